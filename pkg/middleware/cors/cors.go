// Package cors holds the single origin policy for the service. The
// HTTP middleware and the websocket upgrade check both go through the
// same Policy so a browser that can call the REST API can always open
// the realtime stream too.
package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Policy decides which browser origins may talk to the API. An empty
// origin list allows everything, which is the development default.
type Policy struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewPolicy normalizes the configured origin list. A bare "*" entry
// means allow-all, same as an empty list.
func NewPolicy(allowedOrigins []string) *Policy {
	p := &Policy{origins: make(map[string]struct{}, len(allowedOrigins))}
	if len(allowedOrigins) == 0 {
		p.allowAll = true
	}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			p.allowAll = true
			continue
		}
		if origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

// Allows reports whether the origin may access the API. Requests
// without an Origin header (curl, server-to-server) pass.
func (p *Policy) Allows(origin string) bool {
	if p.allowAll || origin == "" {
		return true
	}
	_, ok := p.origins[strings.TrimRight(origin, "/")]
	return ok
}

// CheckRequest adapts the policy to gorilla's upgrader CheckOrigin.
func (p *Policy) CheckRequest(r *http.Request) bool {
	return p.Allows(r.Header.Get("Origin"))
}

// Middleware applies the policy to HTTP responses and short-circuits
// preflight requests.
func (p *Policy) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && p.Allows(origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		case origin == "" && p.allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPolicyAllows(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"empty list allows anything", nil, "https://evil.example", true},
		{"wildcard entry allows anything", []string{"*"}, "https://anywhere.example", true},
		{"exact match", []string{"https://app.example"}, "https://app.example", true},
		{"trailing slash normalized", []string{"https://app.example/"}, "https://app.example", true},
		{"unlisted origin refused", []string{"https://app.example"}, "https://other.example", false},
		{"no origin header passes", []string{"https://app.example"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewPolicy(tc.allowed).Allows(tc.origin))
		})
	}
}

func TestPolicyCheckRequestMatchesMiddleware(t *testing.T) {
	policy := NewPolicy([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, policy.CheckRequest(req))

	req.Header.Set("Origin", "https://other.example")
	assert.False(t, policy.CheckRequest(req))
}

func TestMiddlewareSetsHeadersAndShortCircuitsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewPolicy([]string{"https://app.example"}).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Unlisted origins get no allow header back.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://other.example")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rakazet/basecamp-kita-api/internal/models"
	"github.com/rakazet/basecamp-kita-api/internal/service"
	appErrors "github.com/rakazet/basecamp-kita-api/pkg/errors"
	"github.com/rakazet/basecamp-kita-api/pkg/response"
)

// ContextClaimsKey is the gin context key storing JWT claims.
const ContextClaimsKey = "currentClaims"

// ContextUserKey is the gin context key storing the resolved account.
const ContextUserKey = "currentUser"

type userLoader interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// JWT protects routes by requiring a valid access token and resolves
// the bearer's account so handlers get a live *models.User, not just
// claims. Browsers cannot set headers on websocket dials, so a
// `?token=` query parameter is accepted as a fallback.
func JWT(authService *service.AuthService, users userLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			// The token outlived the account.
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists"))
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trainova/classtrack-api/internal/models"
	"github.com/trainova/classtrack-api/internal/service"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
	"github.com/trainova/classtrack-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the caller identity.
const ContextIdentityKey = "currentIdentity"

// Auth protects routes by requiring either a Bearer token or an X-API-Key
// header. The resolved identity is stored on the request context.
func Auth(identity *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			ident, err := identity.ValidateAPIKey(key)
			if err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Set(ContextIdentityKey, ident)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := identity.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, models.Identity{
			UserID:   claims.UserID,
			FullName: claims.FullName,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// RequireRoles restricts a route to callers holding one of the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextIdentityKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		ident, ok := value.(models.Identity)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[ident.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IdentityKey is the gin context key holding the caller's domain.Identity.
const IdentityKey = "identity"

type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// Auth validates the Bearer token and stores the caller's identity.
func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "client_ip": c.ClientIP()})

		header := c.GetHeader("Authorization")
		if header == "" {
			log.Warn("auth failed: missing authorization header")
			abortUnauthorized(c, "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			log.Warn("auth failed: invalid authorization format")
			abortUnauthorized(c, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := validator.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			log.WithError(err).Warn("auth failed: invalid token")
			if jwt.IsExpired(err) {
				abortUnauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
				return
			}
			abortUnauthorized(c, "Invalid access token", "INVALID_TOKEN")
			return
		}

		role := claims.Role
		if role == "" {
			role = domain.RoleCustomer
		}
		if role != domain.RoleCustomer && role != domain.RoleAdmin {
			log.WithField("role", role).Warn("auth failed: unknown role")
			abortUnauthorized(c, "Invalid access token", "INVALID_TOKEN")
			return
		}

		c.Set(IdentityKey, domain.Identity{ID: claims.Subject, Role: role})
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abortUnauthorized(c, "Authentication required", "MISSING_AUTH_HEADER")
			return
		}
		if identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func abortUnauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
		"code":    code,
	})
}

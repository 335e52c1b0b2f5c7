package middleware

import (
	"net/http"
	"strings"

	"propertyhub/internal/domain"
	"propertyhub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// TokenVerifier is satisfied by *jwt.Service.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// JWTAuth validates the bearer token and stores user_id, role and identity in the context.
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		id, err := verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", id.UserID)
		c.Set("role", string(id.Role))
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by JWTAuth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

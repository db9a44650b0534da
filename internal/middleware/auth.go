package middleware

import (
	"strings"

	"anoa.com/innoliber/internal/entity"
	user "anoa.com/innoliber/internal/modules/user/service"
	"anoa.com/innoliber/pkg/response"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "user"

type AuthMiddleware struct {
	gate user.Gate
}

func NewAuthMiddleware(gate user.Gate) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// RequireActiveUser resolves the bearer token and rejects disabled accounts.
func (m *AuthMiddleware) RequireActiveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := m.gate.Resolve(c.Request.Context(), extractToken(c))
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		u, err = m.gate.RequireActive(u)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		c.Set(currentUserKey, u)
		c.Set("user_id", u.ID)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	// Fallback to query parameter "token" (useful for WebSockets)
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

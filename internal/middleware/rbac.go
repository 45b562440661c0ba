package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
)

// RequireRoles lets the request through only when the token's role is one of roles.
// Must run after RequireJWT.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrRoleNotAllowed)
	}
}

// RequireAdmin is RequireRoles(model.RoleAdmin).
func RequireAdmin() gin.HandlerFunc { return RequireRoles(model.RoleAdmin) }

// RequireAuthor admits staff and admins.
func RequireAuthor() gin.HandlerFunc { return RequireRoles(model.RoleStaff, model.RoleAdmin) }

// RequireStudent admits students only.
func RequireStudent() gin.HandlerFunc { return RequireRoles(model.RoleStudent) }

package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/edsonosf/gdp/pkg/errors"
	"github.com/edsonosf/gdp/pkg/response"
)

// RequireAdmin lets only system administrators through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if !claims.IsSystemAdmin {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "Acesso restrito a administradores."))
			return
		}
		c.Next()
	}
}

// AllowSelfOrAdmin lets administrators through, and other users only when the route
// parameter names their own account.
func AllowSelfOrAdmin(param string) gin.HandlerFunc {
	if param == "" {
		param = "id"
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if claims.IsSystemAdmin || c.Param(param) == claims.UserID {
			c.Next()
			return
		}
		response.Abort(c, appErrors.ErrForbidden)
	}
}

package router

import (
	"net/http"

	"oposiciones/controllers"
	"oposiciones/models"

	"github.com/gin-gonic/gin"
)

// Authorizer blocks access to protected routes when the user is blocked.
func Authorizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := controllers.GetUserLogged(c)
		if !ok {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if user.Status == models.USER_STATUS_BLOCKED {
			controllers.RespondError(c, "user blocked", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

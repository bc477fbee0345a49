package router

import (
	"net/http"

	"oposiciones/controllers"
	"oposiciones/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Adminizer guards /api/admin: catalog edits, BOE syncs, the review queues
// and the dashboards. Denied attempts by signed-in users are logged.
func Adminizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := controllers.GetUserLogged(c)
		switch {
		case !ok:
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
		case !user.Admin:
			logger.L().Warn("admin route denied",
				zap.Int64("user_id", user.ID),
				zap.String("route", c.FullPath()))
			controllers.RespondError(c, "admin required", http.StatusForbidden)
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}

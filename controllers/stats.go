package controllers

import (
	"net/http"

	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

// GET /api/stats/me
func MyStats(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	stats, err := queries.UserStatsFor(c.Request.Context(), Env(c), user)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, stats)
}

// GET /api/admin/dashboard
func AdminDashboard(c *gin.Context) {
	dash, err := queries.AdminDashboard(c.Request.Context(), Env(c))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, dash)
}

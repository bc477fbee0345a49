package controllers

import (
	"net/http"

	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

// GET /api/me
func Me(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db, ok := database(c)
	if !ok {
		return
	}
	limits, err := queries.LimitsForUser(db, env.Conf, user.ID, now())
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public(), "limits": limits})
}

package controllers

import (
	"net/http"

	"oposiciones/queries"

	"github.com/gin-gonic/gin"
)

// UpdateCurrentUser updates the logged user ("me").
// Route: PUT /api/user
//
// Forbidden fields (id, email, password, admin, status, timestamps) are ignored.
func UpdateCurrentUser(c *gin.Context) {
	logged, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}

	db, ok := database(c)
	if !ok {
		return
	}

	// generic map so unknown keys can be dropped safely
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := queries.UpdateUserProfile(db, logged.ID, payload)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, updated)
}

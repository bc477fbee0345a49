package controllers

import (
	"oposiciones/models"
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// POST /api/feedback (optional auth)
func CreateFeedback(c *gin.Context) {
	var in schemas.FeedbackCreate
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	var user *models.User
	if u, ok := GetUserLogged(c); ok {
		user = &u
	}
	f, err := queries.CreateFeedback(db, user, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"feedback": f})
}

// GET /api/admin/feedback
func AdminListFeedback(c *gin.Context) {
	var q schemas.FeedbackQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminListFeedback(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// PUT /api/admin/feedback/:id
func AdminUpdateFeedback(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.FeedbackUpdate
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	f, err := queries.AdminUpdateFeedback(db, id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"feedback": f})
}

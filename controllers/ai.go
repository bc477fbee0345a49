package controllers

import (
	"net/http"

	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// POST /api/ai/chat
func AIChat(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var in schemas.AIChatRequest
	if !BindJSON(c, &in) {
		return
	}
	reply, err := queries.Chat(c.Request.Context(), Env(c), user, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, reply)
}

// POST /api/ai/chat-logs/:id/feedback
func AIChatFeedback(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.AIFeedbackRequest
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	entry, err := queries.SetChatFeedback(db, user.ID, id, in.Feedback)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"log": entry})
}

// GET /api/admin/ai-chat-logs
func AdminAIChatLogs(c *gin.Context) {
	var q schemas.AIChatLogsQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminChatLogs(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

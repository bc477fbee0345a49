package controllers

import (
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// userIDOrZero is 0 for anonymous requests.
func userIDOrZero(c *gin.Context) int64 {
	if user, ok := GetUserLogged(c); ok {
		return user.ID
	}
	return 0
}

// GET /api/questions/filtered
func FilteredQuestions(c *gin.Context) {
	var q schemas.FilteredQuestionsQuery
	if !BindQuery(c, &q) {
		return
	}
	list, err := queries.FilteredQuestions(c.Request.Context(), Env(c), userIDOrZero(c), q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, list)
}

// GET /api/questions/:id
func GetQuestion(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	q, err := queries.GetActiveQuestion(db, id)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"question": q.Public()})
}

// POST /api/questions/:id/check
func CheckAnswer(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req schemas.CheckAnswerRequest
	if !BindJSON(c, &req) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	res, err := queries.CheckAnswer(db, id, req.Answer)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, res)
}

// GET /api/admin/questions
func AdminListQuestions(c *gin.Context) {
	var q schemas.AdminQuestionsQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminListQuestions(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// POST /api/admin/questions
func CreateQuestion(c *gin.Context) {
	var in schemas.QuestionInput
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	q, err := queries.CreateQuestion(db, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"question": q})
}

// PUT /api/admin/questions/:id
func UpdateQuestion(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.QuestionInput
	if !BindJSON(c, &in) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	q, err := queries.UpdateQuestion(db, id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"question": q})
}

// DELETE /api/admin/questions/:id
func DeleteQuestion(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	if err := queries.DeleteQuestion(db, id); err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"deleted": id})
}

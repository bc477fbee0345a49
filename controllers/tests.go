package controllers

import (
	"net/http"

	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// POST /api/tests/random
func GenerateTest(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req schemas.GenerateTestRequest
	if !BindJSON(c, &req) {
		return
	}
	view, err := queries.GenerateTest(c.Request.Context(), Env(c), user, req)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, view)
}

// GET /api/tests/recover
func RecoverTest(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	view, err := queries.RecoverTest(Env(c), user.ID)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, view)
}

// GET /api/tests
func ListTests(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var q queries.TestsQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.ListTests(db, user.ID, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// GET /api/tests/:id
func GetTest(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	view, err := queries.GetTestDetail(db, user.ID, id)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, view)
}

// POST /api/tests/:id/answers
func AnswerTestQuestion(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req schemas.AnswerRequest
	if !BindJSON(c, &req) {
		return
	}
	res, err := queries.AnswerTestQuestion(Env(c), user.ID, id, req)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, res)
}

// POST /api/tests/:id/complete
func CompleteTest(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req schemas.CompleteTestRequest
	if !BindJSON(c, &req) {
		return
	}
	res, err := queries.CompleteTest(c.Request.Context(), Env(c), user.ID, id, req)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, res)
}

// GET /api/tests/shared/:code
func GetSharedTest(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	shared, err := queries.SharedTestByCode(db, c.Param("code"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, shared)
}

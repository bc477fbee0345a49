package controllers

import (
	"net/http"

	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// POST /api/disputes
func CreateDispute(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var in schemas.DisputeCreate
	if !BindJSON(c, &in) {
		return
	}
	d, err := queries.CreateDispute(Env(c), user.ID, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"dispute": d})
}

// GET /api/disputes
func MyDisputes(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p schemas.Pagination
	if !BindQuery(c, &p) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.ListMyDisputes(db, user.ID, p)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// GET /api/admin/disputes
func AdminListDisputes(c *gin.Context) {
	var q schemas.DisputesQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminListDisputes(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// PUT /api/admin/disputes/:id
func UpdateDispute(c *gin.Context) {
	admin, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.DisputeUpdate
	if !BindJSON(c, &in) {
		return
	}
	d, err := queries.UpdateDispute(c.Request.Context(), Env(c), admin.ID, id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"dispute": d})
}

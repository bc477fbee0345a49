package controllers

import (
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// POST /api/admin/laws/:id/sync
func SyncLaw(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	e := Env(c)
	law, err := queries.GetLaw(e.DB, id)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	report, err := queries.SyncLaw(c.Request.Context(), e, law)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, report)
}

// POST /api/admin/laws/:id/verify
func VerifyLaw(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	n, err := queries.EnqueueLawVerifications(db, id, now())
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"law_id": id, "enqueued": n})
}

// GET /api/admin/verifications
func AdminListVerifications(c *gin.Context) {
	var q schemas.VerificationsQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.AdminListVerifications(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

// GET /api/admin/article-changes
func AdminArticleChanges(c *gin.Context) {
	var q schemas.ArticleChangesQuery
	if !BindQuery(c, &q) {
		return
	}
	db, ok := database(c)
	if !ok {
		return
	}
	page, err := queries.ListArticleChanges(db, q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, page)
}

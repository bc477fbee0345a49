package controllers

import (
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
)

// GET /api/oposiciones
func GetOposiciones(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	list, err := queries.ListOposiciones(db, false)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"oposiciones": list})
}

// GET /api/oposiciones/:slug
func GetOposicion(c *gin.Context) {
	op, err := queries.OposicionBySlug(c.Request.Context(), Env(c), c.Param("slug"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"oposicion": op})
}

// GET /api/oposiciones/:slug/temas
func GetOposicionTemas(c *gin.Context) {
	ctx, e := c.Request.Context(), Env(c)
	op, err := queries.OposicionBySlug(ctx, e, c.Param("slug"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	topics, err := queries.TopicsWithCounts(ctx, e, op.ID)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"oposicion": op.Slug, "temas": topics})
}

// GET /api/temas/resolve
func ResolveTemas(c *gin.Context) {
	var q schemas.TemaResolveQuery
	if !BindQuery(c, &q) {
		return
	}
	match, err := queries.ResolveTemas(c.Request.Context(), Env(c), q)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, match)
}

// GET /api/laws
func GetLaws(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	laws, err := queries.ListLaws(db)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"laws": laws})
}

// GET /api/laws/:slug
func GetLaw(c *gin.Context) {
	law, err := queries.LawDetail(c.Request.Context(), Env(c), c.Param("slug"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"law": law})
}

// GET /api/laws/:slug/articles/:number
func GetArticle(c *gin.Context) {
	art, err := queries.ArticleByNumber(c.Request.Context(), Env(c), c.Param("slug"), c.Param("number"))
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"article": art})
}

// GET /api/admin/oposiciones
func AdminGetOposiciones(c *gin.Context) {
	db, ok := database(c)
	if !ok {
		return
	}
	list, err := queries.ListOposiciones(db, true)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"oposiciones": list})
}

// POST /api/admin/oposiciones
func CreateOposicion(c *gin.Context) {
	var in schemas.OposicionInput
	if !BindJSON(c, &in) {
		return
	}
	op, err := queries.CreateOposicion(c.Request.Context(), Env(c), in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"oposicion": op})
}

// PUT /api/admin/oposiciones/:id
func UpdateOposicion(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.OposicionInput
	if !BindJSON(c, &in) {
		return
	}
	op, err := queries.UpdateOposicion(c.Request.Context(), Env(c), id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"oposicion": op})
}

// POST /api/admin/laws
func CreateLaw(c *gin.Context) {
	var in schemas.LawInput
	if !BindJSON(c, &in) {
		return
	}
	law, err := queries.CreateLaw(c.Request.Context(), Env(c), in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"law": law})
}

// PUT /api/admin/laws/:id
func UpdateLaw(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.LawInput
	if !BindJSON(c, &in) {
		return
	}
	law, err := queries.UpdateLaw(c.Request.Context(), Env(c), id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"law": law})
}

// POST /api/admin/topics
func CreateTopic(c *gin.Context) {
	var in schemas.TopicInput
	if !BindJSON(c, &in) {
		return
	}
	topic, err := queries.CreateTopic(c.Request.Context(), Env(c), in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondCreated(c, gin.H{"topic": topic})
}

// PUT /api/admin/topics/:id
func UpdateTopic(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.TopicInput
	if !BindJSON(c, &in) {
		return
	}
	topic, err := queries.UpdateTopic(c.Request.Context(), Env(c), id, in)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"topic": topic})
}

// PUT /api/admin/topics/:id/scopes
func ReplaceTopicScopes(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var in schemas.TopicScopesUpdate
	if !BindJSON(c, &in) {
		return
	}
	scopes, err := queries.ReplaceTopicScopes(c.Request.Context(), Env(c), id, in.Scopes)
	if err != nil {
		RespondQueryError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"scopes": scopes})
}

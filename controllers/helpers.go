package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	dbpkg "oposiciones/db"
	"oposiciones/queries"
	"oposiciones/schemas"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

var env queries.Env

// SetEnv installs the collaborators (config, cache, LLM, mailer...) used by the handlers.
func SetEnv(e queries.Env) {
	env = e
}

// Env returns the handler environment bound to the request database.
func Env(c *gin.Context) queries.Env {
	if db := dbpkg.DBInstance(c); db != nil {
		return env.WithDB(db)
	}
	return env
}

func database(c *gin.Context) (*gorm.DB, bool) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "database not configured in context", http.StatusInternalServerError)
		return nil, false
	}
	return db, true
}

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondError(c, name+" is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// BindJSON decodes the body into dst and validates it. An empty body is
// accepted and validated as the zero value.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return validated(c, dst)
}

func BindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		RespondError(c, "invalid query string: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return validated(c, dst)
}

func validated(c *gin.Context, dst any) bool {
	if err := schemas.Validate(dst); err != nil {
		RespondQueryError(c, err)
		return false
	}
	return true
}

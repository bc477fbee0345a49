package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const contextKey = "oposiciones.db"

// SetDBtoContext stores the shared connection on each request, where the
// controllers read it to bind queries.Env to the request.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, database)
		c.Next()
	}
}

// DBInstance returns the connection set by SetDBtoContext, or nil when the
// route was mounted without it.
func DBInstance(c *gin.Context) *gorm.DB {
	if v, ok := c.Get(contextKey); ok {
		if database, ok := v.(*gorm.DB); ok {
			return database
		}
	}
	return nil
}

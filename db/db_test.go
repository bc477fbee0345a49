package db

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"oposiciones/config"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SqliteAutoMigrates(t *testing.T) {
	SetConfigurations(config.Configuration{Database: "sqlite3", DbPath: filepath.Join(t.TempDir(), "sub", "test.db")})
	defer SetConfigurations(config.Configuration{})

	database, err := Connect()
	require.NoError(t, err)
	defer database.Close()

	for _, m := range Models() {
		assert.True(t, database.HasTable(m), "%T table missing", m)
	}
	assert.True(t, database.HasTable("oposiciones"))
	assert.True(t, database.HasTable("feedback"))
}

func TestPostgresDSN(t *testing.T) {
	c := config.Configuration{DbHost: "h", DbPort: "5432", DbUser: "u", DbName: "n", DbPass: "p", DbSSL: "disable"}
	assert.Equal(t, "host=h port=5432 user=u dbname=n password=p sslmode=disable", PostgresDSN(c))
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", PostgresURL(c))
	assert.True(t, IsPostgres("postgresql"))
	assert.False(t, IsPostgres("sqlite3"))
}

func TestMigrationsAreEmbeddedInPairs(t *testing.T) {
	up, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	down, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, up)
	assert.Equal(t, len(up), len(down))

	b, err := fs.ReadFile(migrationsFS, up[0])
	require.NoError(t, err)
	for _, table := range []string{"users", "questions", "test_questions", "article_verifications", "oposiciones"} {
		assert.True(t, strings.Contains(string(b), "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}

func TestDBContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	database, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer database.Close()

	r := gin.New()
	r.Use(SetDBtoContext(database))
	r.GET("/", func(c *gin.Context) {
		assert.Same(t, database, DBInstance(c))
		c.Status(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	bare := gin.New()
	bare.GET("/", func(c *gin.Context) {
		assert.Nil(t, DBInstance(c))
		c.Status(http.StatusNoContent)
	})
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// Package querytest opens migrated in-memory databases for tests.
package querytest

import (
	"testing"
	"time"

	"oposiciones/db"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// SetupTestDB opens an in-memory sqlite database with every table migrated.
// The connection is closed when the test ends.
func SetupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	gorm.NowFunc = func() time.Time { return time.Now().UTC() }

	database, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	database.DB().SetMaxOpenConns(1)
	database.LogMode(false)

	if err := db.AutoMigrate(database); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// MustCreate inserts each record or fails the test.
func MustCreate(t testing.TB, database *gorm.DB, records ...interface{}) {
	t.Helper()
	for _, r := range records {
		if err := database.Create(r).Error; err != nil {
			t.Fatalf("create %T: %v", r, err)
		}
	}
}

package db

import (
	"fmt"
	"os"
	"path/filepath"

	"oposiciones/config"
	"oposiciones/logger"
	"oposiciones/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"go.uber.org/zap"
)

var conf config.Configuration

func SetConfigurations(configuration config.Configuration) {
	conf = configuration
}

// Models lists every table managed by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.Plan{},
		&models.UserPlan{},
		&models.Oposicion{},
		&models.Law{},
		&models.Article{},
		&models.Topic{},
		&models.TopicScope{},
		&models.Question{},
		&models.Test{},
		&models.TestQuestion{},
		&models.Feedback{},
		&models.QuestionDispute{},
		&models.AIChatLog{},
		&models.EmailEvent{},
		&models.EmailPreference{},
		&models.ArticleChange{},
		&models.ArticleVerification{},
	}
}

// Connect abre la conexión (sqlite3 por defecto).
// sqlite se auto-migra siempre; en postgres el esquema lo gestiona `oposctl migrate`
// salvo que se exporte AUTOMIGRATE=1.
func Connect() (*gorm.DB, error) {
	database := conf.Database
	if database == "" {
		database = "sqlite3"
	}
	log := logger.L()

	var (
		db  *gorm.DB
		err error
	)

	if IsPostgres(database) {
		log.Info("using postgresql connection", zap.String("host", conf.DbHost), zap.String("db", conf.DbName))
		db, err = gorm.Open("postgres", PostgresDSN(conf))
	} else {
		path := conf.DbPath
		if path == "" {
			path = "db/database.db"
		}
		log.Info("using sqlite3 connection", zap.String("path", path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		db, err = gorm.Open("sqlite3", path+"?_foreign_keys=1")
	}

	if err != nil {
		log.Error("could not connect to database", zap.Error(err))
		return nil, err
	}

	db.LogMode(conf.DevMode)

	if !IsPostgres(database) || getenv("AUTOMIGRATE", "0") == "1" {
		if err := AutoMigrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...).Error; err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func IsPostgres(database string) bool {
	return database == "postgres" || database == "postgresql"
}

func PostgresDSN(c config.Configuration) string {
	path := "host=" + c.DbHost + " port=" + c.DbPort
	path += " user=" + c.DbUser + " dbname=" + c.DbName
	path += " password=" + c.DbPass + " sslmode=" + c.DbSSL
	return path
}

// PostgresURL is the same connection in URL form, as golang-migrate expects.
func PostgresURL(c config.Configuration) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSL)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

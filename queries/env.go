package queries

import (
	"context"
	"math/rand"
	"time"

	"oposiciones/cache"
	"oposiciones/config"
	"oposiciones/events"
	"oposiciones/storage"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// BOEFetcher downloads the consolidated text of a law.
type BOEFetcher interface {
	FetchConsolidated(ctx context.Context, boeID string) ([]byte, error)
}

// Env carries the collaborators needed by operations that go beyond the database.
// Zero-valued collaborators fall back to safe no-op implementations.
type Env struct {
	DB     *gorm.DB
	Conf   config.Configuration
	Cache  cache.Cache
	LLM    tools.LLM
	Mailer tools.Mailer
	Events events.Publisher
	Store  storage.Store
	BOE    BOEFetcher
	Log    *zap.Logger
	Now    func() time.Time
	// Rand drives test generation. A time-seeded source is used when nil.
	Rand *rand.Rand
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Env) cache() cache.Cache {
	if e.Cache == nil {
		return cache.Nop{}
	}
	return e.Cache
}

func (e Env) events() events.Publisher {
	if e.Events == nil {
		return &events.NoopPublisher{}
	}
	return e.Events
}

func (e Env) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e Env) mailer() tools.Mailer {
	if e.Mailer == nil {
		return tools.LogMailer{Log: e.Log}
	}
	return e.Mailer
}

func (e Env) rand() *rand.Rand {
	if e.Rand == nil {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e.Rand
}

// WithDB returns a copy of e using db (typically the request-scoped connection).
func (e Env) WithDB(db *gorm.DB) Env {
	e.DB = db
	return e
}

func (e Env) resolver() Resolver {
	return Resolver{DB: e.DB, Cache: e.cache()}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

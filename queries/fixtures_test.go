package queries

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"oposiciones/cache"
	"oposiciones/config"
	"oposiciones/events"
	"oposiciones/models"
	"oposiciones/queries/querytest"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/require"
)

func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return querytest.SetupTestDB(t)
}

func MustCreate(t *testing.T, database *gorm.DB, records ...interface{}) {
	t.Helper()
	querytest.MustCreate(t, database, records...)
}

var testNow = time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)

// world is a small catalog: one oposición with two topics over two laws.
type world struct {
	DB        *gorm.DB
	Env       Env
	Events    *events.Recorder
	Oposicion models.Oposicion
	CE        models.Law
	LPAC      models.Law
	Articles  map[string]models.Article // "ce:1", "lpac:21"...
	Questions []models.Question
	User      models.User
}

func testConfig() config.Configuration {
	var c config.Configuration
	c.Security.JwtSecret = "test-secret"
	c.Security.AccessTTLMinutes = 60
	c.Security.RefreshTTLDays = 30
	c.Security.RefreshTokenLen = 32
	c.PublicURL = "https://oposiciones.test"
	c.Plans.FreeMonthlyTests = 5
	c.AI.FreeDailyChats = 3
	c.AI.TimeoutSeconds = 5
	c.Workers.VerificationAttempts = 3
	return c
}

func newEnv(t *testing.T, database *gorm.DB) (Env, *events.Recorder) {
	rec := &events.Recorder{}
	return Env{
		DB:     database,
		Conf:   testConfig(),
		Cache:  cache.NewMemory(),
		Events: rec,
		Now:    func() time.Time { return testNow },
		Rand:   rand.New(rand.NewSource(42)),
	}, rec
}

func newUser(t *testing.T, database *gorm.DB, email string) models.User {
	t.Helper()
	created := testNow.Add(-30 * 24 * time.Hour)
	u := models.User{Name: "Lucía Pérez", Email: email, Password: "x", CreatedAt: &created}
	MustCreate(t, database, &u)
	return u
}

func setupWorld(t *testing.T) *world {
	t.Helper()
	database := SetupTestDB(t)
	env, rec := newEnv(t, database)
	w := &world{DB: database, Env: env, Events: rec, Articles: map[string]models.Article{}}

	w.Oposicion = models.Oposicion{Slug: "auxiliar-age", Name: "Auxiliar Administrativo del Estado", IsActive: true}
	w.CE = models.Law{Slug: "ce", ShortName: "CE", Name: "Constitución Española", BoeID: "BOE-A-1978-31229"}
	w.LPAC = models.Law{Slug: "ley-39-2015", ShortName: "Ley 39/2015", Name: "Ley del Procedimiento Administrativo Común", BoeID: "BOE-A-2015-10565"}
	MustCreate(t, database, &w.Oposicion, &w.CE, &w.LPAC)

	for _, n := range []string{"1", "2", "3", "14", "14 bis"} {
		a := models.Article{LawID: w.CE.ID, ArticleNumber: n, Content: "Texto del artículo " + n, IsActive: true}
		MustCreate(t, database, &a)
		w.Articles["ce:"+n] = a
	}
	for _, n := range []string{"21", "22"} {
		a := models.Article{LawID: w.LPAC.ID, ArticleNumber: n, Content: "Plazo máximo " + n, IsActive: true}
		MustCreate(t, database, &a)
		w.Articles["lpac:"+n] = a
	}

	t1 := models.Topic{OposicionID: w.Oposicion.ID, TopicNumber: 1, Title: "La Constitución"}
	t2 := models.Topic{OposicionID: w.Oposicion.ID, TopicNumber: 2, Title: "Procedimiento administrativo"}
	MustCreate(t, database, &t1, &t2)
	MustCreate(t, database,
		&models.TopicScope{TopicID: t1.ID, LawID: w.CE.ID, ArticleNumbers: "1-3,14 bis"},
		&models.TopicScope{TopicID: t2.ID, LawID: w.LPAC.ID},
	)

	// three questions per article
	for _, key := range []string{"ce:1", "ce:2", "ce:3", "ce:14", "ce:14 bis", "lpac:21", "lpac:22"} {
		for i := 0; i < 3; i++ {
			q := models.Question{
				ArticleID:     w.Articles[key].ID,
				QuestionText:  fmt.Sprintf("¿Qué dice el artículo %s? (%d)", key, i),
				OptionA:       "a",
				OptionB:       "b",
				OptionC:       "c",
				OptionD:       "d",
				CorrectOption: "b",
				Explanation:   "Porque lo dice el artículo.",
				IsActive:      true,
			}
			MustCreate(t, database, &q)
			w.Questions = append(w.Questions, q)
		}
	}
	w.User = newUser(t, database, "lucia@example.com")
	return w
}

func (w *world) questionsOf(key string) []models.Question {
	var out []models.Question
	for _, q := range w.Questions {
		if q.ArticleID == w.Articles[key].ID {
			out = append(out, q)
		}
	}
	return out
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target)
}

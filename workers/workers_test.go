package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"oposiciones/config"
	"oposiciones/models"
	"oposiciones/queries"
	"oposiciones/queries/querytest"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var fixedNow = time.Date(2026, 3, 18, 10, 30, 0, 0, time.UTC)

type stubLLM struct {
	mu    sync.Mutex
	calls int
	reply string
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(_ context.Context, _ tools.CompletionRequest) (tools.CompletionResponse, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return tools.CompletionResponse{Text: s.reply, Provider: "stub", Model: "stub-1"}, nil
}

func seedQuestions(t *testing.T, database *gorm.DB, n int) (models.Article, []models.Question) {
	t.Helper()
	law := models.Law{Slug: "ce", ShortName: "CE", Name: "Constitución Española"}
	querytest.MustCreate(t, database, &law)
	art := models.Article{LawID: law.ID, ArticleNumber: "1", Content: "España se constituye en un Estado social y democrático de Derecho.", IsActive: true}
	querytest.MustCreate(t, database, &art)

	var out []models.Question
	for i := 0; i < n; i++ {
		q := models.Question{
			ArticleID:     art.ID,
			QuestionText:  "¿Cómo se constituye España según el artículo 1?",
			OptionA:       "Monarquía absoluta",
			OptionB:       "Estado social y democrático de Derecho",
			OptionC:       "República federal",
			OptionD:       "Estado confederal",
			CorrectOption: "b",
			IsActive:      true,
		}
		querytest.MustCreate(t, database, &q)
		out = append(out, q)
	}
	return art, out
}

func testEnv(database *gorm.DB, llm tools.LLM) queries.Env {
	var conf config.Configuration
	conf.Workers.VerificationAttempts = 3
	return queries.Env{DB: database, Conf: conf, LLM: llm, Now: func() time.Time { return fixedNow }}
}

func TestVerificationProcessor_ProcessDue(t *testing.T) {
	database := querytest.SetupTestDB(t)
	art, questions := seedQuestions(t, database, 3)
	n, err := queries.EnqueueVerifications(database, []int64{art.ID}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	llm := &stubLLM{reply: `{"verdict":"pass","correct_option":"b","explanation":"Coincide con el artículo."}`}
	p := NewVerificationProcessor(testEnv(database, llm))
	p.Batch = 2

	assert.Equal(t, 2, p.processDue(context.Background()))
	p.inflight.Wait()
	assert.Equal(t, 1, p.processDue(context.Background()))
	p.inflight.Wait()
	assert.Equal(t, 0, p.processDue(context.Background()))
	assert.Equal(t, 3, llm.calls)

	for _, q := range questions {
		var got models.Question
		require.NoError(t, database.First(&got, q.ID).Error)
		assert.Equal(t, models.VERIFICATION_VERIFIED, got.VerificationStatus)
	}
}

func TestVerificationProcessor_RunStopsWithoutLeaks(t *testing.T) {
	database := querytest.SetupTestDB(t)
	art, _ := seedQuestions(t, database, 1)
	_, err := queries.EnqueueVerifications(database, []int64{art.ID}, fixedNow)
	require.NoError(t, err)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	llm := &stubLLM{reply: `{"verdict":"unsure","explanation":"No queda claro."}`}
	p := NewVerificationProcessor(testEnv(database, llm))
	p.Tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		var v models.ArticleVerification
		return database.Where("status = ?", models.VERIFY_STATUS_DONE).First(&v).Error == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestStartAndWait(t *testing.T) {
	database := querytest.SetupTestDB(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	env := testEnv(database, &stubLLM{})
	env.Conf.Workers.TickSeconds = 1
	env.Conf.Workers.ReminderHourUTC = 8
	env.Conf.Workers.BOESyncHourUTC = 3

	ctx, cancel := context.WithCancel(context.Background())
	g := Start(ctx, env)
	cancel()
	g.Wait()
}

func TestNextRun(t *testing.T) {
	assert.Equal(t, time.Date(2026, 3, 19, 8, 0, 0, 0, time.UTC), NextRun(fixedNow, 8))
	assert.Equal(t, time.Date(2026, 3, 18, 11, 0, 0, 0, time.UTC), NextRun(fixedNow, 11))
	// exactly on the hour schedules the next day
	assert.Equal(t, time.Date(2026, 3, 19, 10, 0, 0, 0, time.UTC), NextRun(time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC), 10))
}

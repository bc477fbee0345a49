package queries

import (
	"context"
	"testing"
	"time"

	"oposiciones/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answer(t *testing.T, w *world, test models.Test, order int, q models.Question, correct bool, at time.Time) {
	t.Helper()
	opt := "a"
	if correct {
		opt = q.CorrectOption
	}
	MustCreate(t, w.DB, &models.TestQuestion{
		TestID: test.ID, QuestionID: q.ID, QuestionOrder: order,
		UserAnswer: opt, IsCorrect: &correct, AnsweredAt: &at,
	})
}

func TestStreak(t *testing.T) {
	day := func(d int) time.Time { return testNow.AddDate(0, 0, -d) }

	assert.Equal(t, 0, streak(nil, testNow))
	assert.Equal(t, 3, streak([]time.Time{day(0), day(1), day(2), day(4)}, testNow))
	// nothing yet today: the streak ending yesterday still counts
	assert.Equal(t, 2, streak([]time.Time{day(1), day(2)}, testNow))
	assert.Equal(t, 0, streak([]time.Time{day(2), day(3)}, testNow))
}

func TestUserStats(t *testing.T) {
	w := setupWorld(t)
	w.User.TargetOposicionID = &w.Oposicion.ID
	ctx := context.Background()

	test := models.Test{UserID: w.User.ID, Title: "t", TotalQuestions: 10, ShareCode: "stats1"}
	MustCreate(t, w.DB, &test)

	order := 1
	// topic 1: 6 answers, 2 correct
	for i, q := range append(w.questionsOf("ce:1"), w.questionsOf("ce:2")...) {
		answer(t, w, test, order, q, i < 2, testNow.Add(-time.Duration(order)*time.Minute))
		order++
	}
	// topic 2: 5 answers, 5 correct, done yesterday
	for _, q := range append(w.questionsOf("lpac:21"), w.questionsOf("lpac:22")[:2]...) {
		answer(t, w, test, order, q, true, testNow.AddDate(0, 0, -1))
		order++
	}
	// outside every topic
	answer(t, w, test, order, w.questionsOf("ce:14")[0], false, testNow)

	stats, err := UserStatsFor(ctx, w.Env, w.User)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TestsTotal)
	assert.Equal(t, int64(12), stats.Answered)
	assert.Equal(t, int64(7), stats.Correct)
	assert.Equal(t, 2, stats.StreakDays)

	require.Len(t, stats.Topics, 2)
	assert.Equal(t, int64(6), stats.Topics[0].Answered)
	assert.InDelta(t, 2.0/6.0, stats.Topics[0].Accuracy, 0.0001)
	assert.Equal(t, int64(5), stats.Topics[1].Answered)

	require.Len(t, stats.Weakest, 2)
	assert.Equal(t, 1, stats.Weakest[0].TopicNumber)
}

func TestUserStatsWithoutTarget(t *testing.T) {
	w := setupWorld(t)
	stats, err := UserStatsFor(context.Background(), w.Env, w.User)
	require.NoError(t, err)
	assert.Empty(t, stats.Topics)
	assert.Zero(t, stats.Accuracy)
}

func TestAdminDashboard(t *testing.T) {
	w := setupWorld(t)
	recent := testNow.Add(-time.Hour)
	require.NoError(t, w.DB.Model(&w.User).UpdateColumn("last_active_at", recent).Error)
	newUser(t, w.DB, "idle@example.com")

	MustCreate(t, w.DB,
		&models.QuestionDispute{QuestionID: w.Questions[0].ID, UserID: w.User.ID, DisputeType: "typo", Description: "Falta una tilde"},
		&models.Feedback{Type: "bug", Message: "No carga", Email: "x@example.com"},
		&models.ArticleChange{ArticleID: w.Articles["ce:1"].ID, LawID: w.CE.ID, ChangeType: models.CHANGE_MODIFIED, DetectedAt: &recent},
	)
	require.NoError(t, w.DB.Model(&models.Question{}).Where("id = ?", w.Questions[1].ID).
		UpdateColumn("verification_status", models.VERIFICATION_NEEDS_REVIEW).Error)

	d, err := AdminDashboard(context.Background(), w.Env)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Users)
	assert.Equal(t, int64(1), d.ActiveUsers7d)
	assert.Equal(t, int64(1), d.PendingDisputes)
	assert.Equal(t, int64(1), d.PendingFeedback)
	assert.Equal(t, int64(1), d.QuestionsToReview)
	assert.Equal(t, int64(1), d.ArticlesChanged30d)
}

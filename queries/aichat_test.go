package queries

import (
	"context"
	"errors"
	"testing"

	"oposiciones/models"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error
	last  tools.CompletionRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req tools.CompletionRequest) (tools.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return tools.CompletionResponse{}, f.err
	}
	return tools.CompletionResponse{Text: f.reply, Provider: "fake", Model: "fake-1"}, nil
}

func TestChatWithQuestionContext(t *testing.T) {
	w := setupWorld(t)
	llm := &fakeLLM{reply: "La respuesta es la b porque..."}
	w.Env.LLM = llm
	q := w.questionsOf("lpac:21")[0]

	reply, err := Chat(context.Background(), w.Env, w.User, schemas.AIChatRequest{Message: "¿Por qué la b?", QuestionID: &q.ID})
	require.NoError(t, err)
	assert.Equal(t, "fake", reply.Provider)
	assert.NotZero(t, reply.LogID)

	assert.Contains(t, llm.last.Prompt, q.QuestionText)
	assert.Contains(t, llm.last.Prompt, "Artículo 21 de Ley 39/2015")
	assert.Contains(t, llm.last.Prompt, "Consulta del alumno: ¿Por qué la b?")

	var row models.AIChatLog
	require.NoError(t, w.DB.First(&row, reply.LogID).Error)
	assert.Equal(t, models.AI_FEEDBACK_NONE, row.Feedback)
	require.NotNil(t, row.QuestionID)
	assert.Equal(t, q.ID, *row.QuestionID)
}

func TestChatQuotaAndFailures(t *testing.T) {
	w := setupWorld(t)
	ctx := context.Background()
	llm := &fakeLLM{err: errors.New("rate limited")}
	w.Env.LLM = llm

	// failed attempts are logged but do not consume the quota
	for i := 0; i < 4; i++ {
		_, err := Chat(ctx, w.Env, w.User, schemas.AIChatRequest{Message: "hola"})
		requireErrorIs(t, err, ErrUpstream)
	}
	var failedLogs int64
	require.NoError(t, w.DB.Model(&models.AIChatLog{}).Where("error <> ''").Count(&failedLogs).Error)
	assert.Equal(t, int64(4), failedLogs)

	llm.err = nil
	llm.reply = "ok"
	for i := 0; i < 3; i++ {
		_, err := Chat(ctx, w.Env, w.User, schemas.AIChatRequest{Message: "hola"})
		require.NoError(t, err)
	}
	_, err := Chat(ctx, w.Env, w.User, schemas.AIChatRequest{Message: "hola"})
	requireErrorIs(t, err, ErrLimitReached)

	missing := int64(123456)
	other := newUser(t, w.DB, "otra@example.com")
	_, err = Chat(ctx, w.Env, other, schemas.AIChatRequest{Message: "hola", QuestionID: &missing})
	requireErrorIs(t, err, ErrNotFound)
}

func TestChatWithoutProviders(t *testing.T) {
	w := setupWorld(t)
	_, err := Chat(context.Background(), w.Env, w.User, schemas.AIChatRequest{Message: "hola"})
	requireErrorIs(t, err, ErrUpstream)
}

func TestSetChatFeedback(t *testing.T) {
	w := setupWorld(t)
	w.Env.LLM = &fakeLLM{reply: "ok"}
	reply, err := Chat(context.Background(), w.Env, w.User, schemas.AIChatRequest{Message: "hola"})
	require.NoError(t, err)

	other := newUser(t, w.DB, "otra@example.com")
	_, err = SetChatFeedback(w.DB, other.ID, reply.LogID, models.AI_FEEDBACK_POSITIVE)
	requireErrorIs(t, err, ErrForbidden)

	row, err := SetChatFeedback(w.DB, w.User.ID, reply.LogID, models.AI_FEEDBACK_NEGATIVE)
	require.NoError(t, err)
	assert.Equal(t, models.AI_FEEDBACK_NEGATIVE, row.Feedback)

	page, err := AdminChatLogs(w.DB, schemas.AIChatLogsQuery{Feedback: models.AI_FEEDBACK_NEGATIVE})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ñá…", truncate("ñáé", 2))
}

package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oposiciones/metrics"
	"oposiciones/models"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// maxContextChars bounds how much article text goes into a prompt.
const maxContextChars = 6000

type ChatReply struct {
	LogID    int64  `json:"log_id"`
	Response string `json:"response"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (e Env) llm() tools.LLM {
	if e.LLM == nil {
		return tools.FallbackLLM{}
	}
	return e.LLM
}

// questionContext describes the question and its article for the AI tutor.
func questionContext(db *gorm.DB, questionID int64) (string, error) {
	q, err := GetActiveQuestion(db, questionID)
	if err != nil {
		return "", err
	}
	var art models.Article
	if err := db.First(&art, q.ArticleID).Error; err != nil {
		return "", wrapNotFound(err, "article")
	}
	var law models.Law
	if err := db.Unscoped().First(&law, art.LawID).Error; err != nil {
		return "", wrapNotFound(err, "law")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pregunta: %s\n", q.QuestionText)
	for _, opt := range []string{"a", "b", "c", "d"} {
		fmt.Fprintf(&b, "%s) %s\n", opt, q.Option(opt))
	}
	fmt.Fprintf(&b, "Respuesta correcta: %s\n", q.CorrectOption)
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Explicación: %s\n", q.Explanation)
	}
	fmt.Fprintf(&b, "\nArtículo %s de %s", art.ArticleNumber, law.ShortName)
	if art.Title != "" {
		fmt.Fprintf(&b, ". %s", art.Title)
	}
	b.WriteString(":\n")
	b.WriteString(truncate(art.Content, maxContextChars))
	return b.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Chat answers a student's message, optionally about a question. Every attempt is logged.
func Chat(ctx context.Context, env Env, user models.User, in schemas.AIChatRequest) (ChatReply, error) {
	now := env.now()
	if err := CheckAIQuota(env.DB, env.Conf, user.ID, now); err != nil {
		return ChatReply{}, err
	}

	prompt := in.Message
	if in.QuestionID != nil {
		qc, err := questionContext(env.DB, *in.QuestionID)
		if err != nil {
			return ChatReply{}, err
		}
		prompt = qc + "\n\nConsulta del alumno: " + in.Message
	}

	timeout := time.Duration(env.Conf.AI.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, callErr := env.llm().Complete(cctx, tools.CompletionRequest{
		System: env.Conf.AI.SystemPromptChat,
		Prompt: prompt,
	})

	row := models.AIChatLog{
		UserID:     user.ID,
		QuestionID: in.QuestionID,
		Message:    in.Message,
		Response:   resp.Text,
		Provider:   resp.Provider,
		Model:      resp.Model,
		LatencyMs:  time.Since(start).Milliseconds(),
		Feedback:   models.AI_FEEDBACK_NONE,
		CreatedAt:  &now,
	}
	if resp.Latency > 0 {
		row.LatencyMs = resp.Latency.Milliseconds()
	}
	outcome := "ok"
	if callErr != nil {
		row.Error = callErr.Error()
		outcome = "error"
	}
	if err := env.DB.Create(&row).Error; err != nil {
		env.log().Error("save ai chat log", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	provider := resp.Provider
	if provider == "" {
		provider = "none"
	}
	metrics.AIRequests.WithLabelValues(provider, outcome).Inc()

	if callErr != nil {
		env.log().Warn("ai chat failed", zap.Int64("user_id", user.ID), zap.Error(callErr))
		if errors.Is(callErr, tools.ErrNoProviders) {
			return ChatReply{}, fmt.Errorf("%w: no AI providers configured", ErrUpstream)
		}
		return ChatReply{}, fmt.Errorf("%w: %v", ErrUpstream, callErr)
	}
	return ChatReply{LogID: row.ID, Response: resp.Text, Provider: resp.Provider, Model: resp.Model}, nil
}

// SetChatFeedback rates an exchange. Only its author can rate it.
func SetChatFeedback(db *gorm.DB, userID, logID int64, feedback string) (models.AIChatLog, error) {
	var row models.AIChatLog
	if err := db.First(&row, logID).Error; err != nil {
		return models.AIChatLog{}, wrapNotFound(err, "chat log")
	}
	if row.UserID != userID {
		return models.AIChatLog{}, ErrForbidden
	}
	if err := db.Model(&row).UpdateColumn("feedback", feedback).Error; err != nil {
		return models.AIChatLog{}, err
	}
	row.Feedback = feedback
	return row, nil
}

func AdminChatLogs(db *gorm.DB, in schemas.AIChatLogsQuery) (Page[models.AIChatLog], error) {
	q := db.Model(&models.AIChatLog{})
	if in.Provider != "" {
		q = q.Where("provider = ?", in.Provider)
	}
	if in.Feedback != "" {
		q = q.Where("feedback = ?", in.Feedback)
	}
	if in.UserID > 0 {
		q = q.Where("user_id = ?", in.UserID)
	}
	return paginate[models.AIChatLog](q, in.Pagination, "created_at desc, id desc")
}

package queries

import (
	"context"
	"encoding/json"
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

// VerificationTimeout bounds one verification, provider call included.
const VerificationTimeout = 60 * time.Second

// StaleProcessingAfter is how long a claimed verification may stay in processing
// before it is considered abandoned.
const StaleProcessingAfter = 10 * time.Minute

const verificationSystemPrompt = "Eres un revisor jurídico de preguntas tipo test de oposiciones. " +
	"Comprueba si la respuesta marcada como correcta es conforme al texto vigente del artículo. " +
	`Responde solo con JSON: {"verdict":"pass|fail|unsure","correct_option":"a|b|c|d","explanation":"..."}`

var errNoVerdict = errors.New("no JSON verdict in reply")

// EnqueueVerifications queues a check of every active question of the articles.
// Questions with a pending or processing check are skipped.
func EnqueueVerifications(db *gorm.DB, articleIDs []int64, now time.Time) (int, error) {
	if len(articleIDs) == 0 {
		return 0, nil
	}
	var questions []models.Question
	if err := db.Select("id, article_id").
		Where("article_id IN (?) AND is_active = ?", articleIDs, true).
		Order("id asc").
		Find(&questions).Error; err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	var busy []int64
	if err := db.Model(&models.ArticleVerification{}).
		Where("question_id IN (?) AND status IN (?)", ids, []string{models.VERIFY_STATUS_PENDING, models.VERIFY_STATUS_PROCESSING}).
		Pluck("question_id", &busy).Error; err != nil {
		return 0, err
	}
	skip := make(map[int64]bool, len(busy))
	for _, id := range busy {
		skip[id] = true
	}

	n := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, q := range questions {
			if skip[q.ID] {
				continue
			}
			v := models.ArticleVerification{
				ArticleID:   q.ArticleID,
				QuestionID:  q.ID,
				Status:      models.VERIFY_STATUS_PENDING,
				ScheduledAt: &now,
				CreatedAt:   &now,
			}
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func EnqueueLawVerifications(db *gorm.DB, lawID int64, now time.Time) (int, error) {
	if err := db.First(&models.Law{}, lawID).Error; err != nil {
		return 0, wrapNotFound(err, "law")
	}
	var articleIDs []int64
	if err := db.Model(&models.Article{}).Where("law_id = ? AND is_active = ?", lawID, true).Pluck("id", &articleIDs).Error; err != nil {
		return 0, err
	}
	return EnqueueVerifications(db, articleIDs, now)
}

// ClaimDueVerifications moves up to limit due pending rows to processing.
// The pending->processing update is the lock: rows another worker won are skipped.
// UpdateColumns keeps updated_at at now; stale detection depends on it.
func ClaimDueVerifications(db *gorm.DB, limit int, now time.Time) ([]models.ArticleVerification, error) {
	var due []models.ArticleVerification
	if err := db.Where("status = ? AND (scheduled_at IS NULL OR scheduled_at <= ?)", models.VERIFY_STATUS_PENDING, now).
		Order("scheduled_at asc, id asc").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, err
	}

	claimed := make([]models.ArticleVerification, 0, len(due))
	for _, v := range due {
		res := db.Model(&models.ArticleVerification{}).
			Where("id = ? AND status = ?", v.ID, models.VERIFY_STATUS_PENDING).
			UpdateColumns(map[string]any{"status": models.VERIFY_STATUS_PROCESSING, "updated_at": now})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		v.Status = models.VERIFY_STATUS_PROCESSING
		claimed = append(claimed, v)
	}
	return claimed, nil
}

// ReleaseStaleVerifications puts abandoned processing rows back in the queue.
func ReleaseStaleVerifications(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.ArticleVerification{}).
		Where("status = ? AND updated_at < ?", models.VERIFY_STATUS_PROCESSING, now.Add(-StaleProcessingAfter)).
		UpdateColumns(map[string]any{"status": models.VERIFY_STATUS_PENDING, "scheduled_at": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

type Verdict struct {
	Verdict       string `json:"verdict"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// ParseVerdict decodes the first JSON object found in an LLM reply.
func ParseVerdict(reply string) (Verdict, error) {
	start := strings.Index(reply, "{")
	if start < 0 {
		return Verdict{}, errNoVerdict
	}
	dec := json.NewDecoder(strings.NewReader(reply[start:]))
	var v Verdict
	if err := dec.Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", errNoVerdict, err)
	}
	v.Verdict = strings.ToLower(strings.TrimSpace(v.Verdict))
	v.CorrectOption = strings.ToLower(strings.TrimSpace(v.CorrectOption))
	switch v.Verdict {
	case models.VERDICT_PASS, models.VERDICT_FAIL, models.VERDICT_UNSURE:
	default:
		return Verdict{}, fmt.Errorf("%w: unknown verdict %q", errNoVerdict, v.Verdict)
	}
	if v.CorrectOption != "" && !models.IsValidOption(v.CorrectOption) {
		v.CorrectOption = ""
	}
	return v, nil
}

func verificationPrompt(q models.Question, art models.Article, lawName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Artículo %s de %s", art.ArticleNumber, lawName)
	if art.Title != "" {
		fmt.Fprintf(&b, ". %s", art.Title)
	}
	fmt.Fprintf(&b, ":\n%s\n\n", truncate(art.Content, maxContextChars))
	fmt.Fprintf(&b, "Pregunta: %s\n", q.QuestionText)
	for _, opt := range []string{"a", "b", "c", "d"} {
		fmt.Fprintf(&b, "%s) %s\n", opt, q.Option(opt))
	}
	fmt.Fprintf(&b, "Respuesta marcada como correcta: %s\n", q.CorrectOption)
	return b.String()
}

// ProcessVerification runs one claimed verification. Provider failures are
// rescheduled with a linear backoff until the attempts are exhausted.
func ProcessVerification(ctx context.Context, env Env, v models.ArticleVerification) error {
	now := env.now()
	db := env.DB

	var q models.Question
	qErr := db.Unscoped().First(&q, v.QuestionID).Error
	var art models.Article
	aErr := db.First(&art, v.ArticleID).Error
	if qErr != nil || aErr != nil || !q.IsActive || q.DeletedAt != nil {
		return db.Model(&models.ArticleVerification{}).Where("id = ?", v.ID).Updates(map[string]any{
			"status":       models.VERIFY_STATUS_DONE,
			"last_error":   "question or article no longer available",
			"processed_at": now,
		}).Error
	}
	var law models.Law
	_ = db.Unscoped().First(&law, art.LawID).Error

	cctx, cancel := context.WithTimeout(ctx, VerificationTimeout)
	defer cancel()
	resp, err := env.llm().Complete(cctx, tools.CompletionRequest{
		System:    verificationSystemPrompt,
		Prompt:    verificationPrompt(q, art, law.ShortName),
		MaxTokens: 400,
	})
	var verdict Verdict
	if err == nil {
		verdict, err = ParseVerdict(resp.Text)
	}
	if err != nil {
		return failVerification(env, v, err, now)
	}

	status := models.VERIFICATION_NEEDS_REVIEW
	if verdict.Verdict == models.VERDICT_PASS && (verdict.CorrectOption == "" || verdict.CorrectOption == q.CorrectOption) {
		status = models.VERIFICATION_VERIFIED
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ArticleVerification{}).Where("id = ?", v.ID).Updates(map[string]any{
			"status":           models.VERIFY_STATUS_DONE,
			"verdict":          verdict.Verdict,
			"suggested_option": verdict.CorrectOption,
			"explanation":      verdict.Explanation,
			"provider":         resp.Provider,
			"attempts":         v.Attempts + 1,
			"last_error":       "",
			"processed_at":     now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).Where("id = ?", q.ID).UpdateColumn("verification_status", status).Error
	})
	if err != nil {
		return err
	}
	metrics.Verifications.WithLabelValues(verdict.Verdict).Inc()
	env.log().Info("question verified",
		zap.Int64("verification_id", v.ID),
		zap.Int64("question_id", q.ID),
		zap.String("verdict", verdict.Verdict),
		zap.String("provider", resp.Provider),
	)
	return nil
}

func failVerification(env Env, v models.ArticleVerification, cause error, now time.Time) error {
	attempts := v.Attempts + 1
	maxAttempts := env.Conf.Workers.VerificationAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	updates := map[string]any{
		"attempts":   attempts,
		"last_error": cause.Error(),
	}
	if attempts >= maxAttempts {
		updates["status"] = models.VERIFY_STATUS_FAILED
		updates["processed_at"] = now
	} else {
		updates["status"] = models.VERIFY_STATUS_PENDING
		updates["scheduled_at"] = now.Add(time.Duration(attempts) * time.Minute)
	}
	if err := env.DB.Model(&models.ArticleVerification{}).Where("id = ?", v.ID).Updates(updates).Error; err != nil {
		return err
	}
	metrics.Verifications.WithLabelValues("error").Inc()
	env.log().Warn("verification failed",
		zap.Int64("verification_id", v.ID),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
	return nil
}

// DrainVerifications processes due verifications until none is left. Used by the CLI.
func DrainVerifications(ctx context.Context, env Env, batch int) (int, error) {
	if batch <= 0 {
		batch = 20
	}
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		claimed, err := ClaimDueVerifications(env.DB, batch, env.now())
		if err != nil {
			return total, err
		}
		if len(claimed) == 0 {
			return total, nil
		}
		for _, v := range claimed {
			if err := ProcessVerification(ctx, env, v); err != nil {
				return total, err
			}
			total++
		}
	}
}

func AdminListVerifications(db *gorm.DB, in schemas.VerificationsQuery) (Page[models.ArticleVerification], error) {
	q := db.Model(&models.ArticleVerification{})
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	if in.Verdict != "" {
		q = q.Where("verdict = ?", in.Verdict)
	}
	return paginate[models.ArticleVerification](q, in.Pagination, "created_at desc, id desc")
}

func ListArticleChanges(db *gorm.DB, in schemas.ArticleChangesQuery) (Page[models.ArticleChange], error) {
	q := db.Model(&models.ArticleChange{})
	if in.LawID > 0 {
		q = q.Where("law_id = ?", in.LawID)
	}
	return paginate[models.ArticleChange](q, in.Pagination, "detected_at desc, id desc")
}

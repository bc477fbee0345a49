package queries

import (
	"context"
	"sort"
	"time"

	"oposiciones/models"

	"github.com/jinzhu/gorm"
	"golang.org/x/sync/errgroup"
)

const weakTopicMinAnswers = 5

type TopicAccuracy struct {
	TopicNumber int     `json:"topic_number"`
	Title       string  `json:"title"`
	Answered    int64   `json:"answered"`
	Correct     int64   `json:"correct"`
	Accuracy    float64 `json:"accuracy"`
}

type UserStats struct {
	TestsTotal     int64           `json:"tests_total"`
	TestsCompleted int64           `json:"tests_completed"`
	Answered       int64           `json:"answered"`
	Correct        int64           `json:"correct"`
	Accuracy       float64         `json:"accuracy"`
	StreakDays     int             `json:"streak_days"`
	Topics         []TopicAccuracy `json:"topics"`
	Weakest        []TopicAccuracy `json:"weakest"`
}

type answeredRow struct {
	LawID         int64
	ArticleNumber string
	IsCorrect     *bool
	AnsweredAt    *time.Time
}

func UserStatsFor(ctx context.Context, env Env, user models.User) (UserStats, error) {
	out := UserStats{Topics: []TopicAccuracy{}, Weakest: []TopicAccuracy{}}
	db := env.DB

	if err := db.Model(&models.Test{}).Where("user_id = ?", user.ID).Count(&out.TestsTotal).Error; err != nil {
		return out, err
	}
	if err := db.Model(&models.Test{}).Where("user_id = ? AND is_completed = ?", user.ID, true).Count(&out.TestsCompleted).Error; err != nil {
		return out, err
	}

	var rows []answeredRow
	if err := db.Table("test_questions").
		Select("articles.law_id, articles.article_number, test_questions.is_correct, test_questions.answered_at").
		Joins("JOIN tests ON tests.id = test_questions.test_id").
		Joins("JOIN questions ON questions.id = test_questions.question_id").
		Joins("JOIN articles ON articles.id = questions.article_id").
		Where("tests.user_id = ? AND test_questions.answered_at IS NOT NULL", user.ID).
		Scan(&rows).Error; err != nil {
		return out, err
	}

	var days []time.Time
	for _, r := range rows {
		out.Answered++
		if r.IsCorrect != nil && *r.IsCorrect {
			out.Correct++
		}
		if r.AnsweredAt != nil {
			days = append(days, *r.AnsweredAt)
		}
	}
	if out.Answered > 0 {
		out.Accuracy = float64(out.Correct) / float64(out.Answered)
	}
	out.StreakDays = streak(days, env.now())

	if user.TargetOposicionID == nil {
		return out, nil
	}
	topics, err := env.resolver().ScopesForOposicion(ctx, *user.TargetOposicionID)
	if err != nil {
		return out, err
	}
	for _, t := range topics {
		acc := TopicAccuracy{TopicNumber: t.TopicNumber, Title: t.Title}
		for _, r := range rows {
			for _, s := range t.Scopes {
				if s.Covers(r.LawID, r.ArticleNumber) {
					acc.Answered++
					if r.IsCorrect != nil && *r.IsCorrect {
						acc.Correct++
					}
					break
				}
			}
		}
		if acc.Answered > 0 {
			acc.Accuracy = float64(acc.Correct) / float64(acc.Answered)
		}
		out.Topics = append(out.Topics, acc)
	}
	out.Weakest = weakestTopics(out.Topics, 5)
	return out, nil
}

func weakestTopics(topics []TopicAccuracy, n int) []TopicAccuracy {
	out := []TopicAccuracy{}
	for _, t := range topics {
		if t.Answered >= weakTopicMinAnswers {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].TopicNumber < out[j].TopicNumber
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// streak counts consecutive UTC days with activity ending today, or yesterday
// when nothing was answered yet today.
func streak(times []time.Time, now time.Time) int {
	active := map[time.Time]bool{}
	for _, t := range times {
		active[startOfDay(t)] = true
	}
	day := startOfDay(now)
	if !active[day] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for active[day] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

type Dashboard struct {
	Users              int64 `json:"users"`
	ActiveUsers7d      int64 `json:"active_users_7d"`
	TestsToday         int64 `json:"tests_today"`
	AnswersToday       int64 `json:"answers_today"`
	PendingDisputes    int64 `json:"pending_disputes"`
	PendingFeedback    int64 `json:"pending_feedback"`
	QuestionsToReview  int64 `json:"questions_needing_review"`
	ArticlesChanged30d int64 `json:"articles_changed_30d"`
}

// AdminDashboard runs the independent counts concurrently.
func AdminDashboard(ctx context.Context, env Env) (Dashboard, error) {
	var out Dashboard
	now := env.now()
	today := startOfDay(now)

	count := func(dst *int64, build func(db *gorm.DB) *gorm.DB) func() error {
		return func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return build(env.DB.New()).Count(dst).Error
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(count(&out.Users, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.User{})
	}))
	g.Go(count(&out.ActiveUsers7d, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.User{}).Where("last_active_at >= ?", now.AddDate(0, 0, -7))
	}))
	g.Go(count(&out.TestsToday, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Test{}).Where("created_at >= ?", today)
	}))
	g.Go(count(&out.AnswersToday, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.TestQuestion{}).Where("answered_at >= ?", today)
	}))
	g.Go(count(&out.PendingDisputes, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.QuestionDispute{}).Where("status IN (?)", []string{models.DISPUTE_STATUS_PENDING, models.DISPUTE_STATUS_REVIEWING})
	}))
	g.Go(count(&out.PendingFeedback, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Feedback{}).Where("status = ?", models.FEEDBACK_STATUS_PENDING)
	}))
	g.Go(count(&out.QuestionsToReview, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Question{}).Where("verification_status = ?", models.VERIFICATION_NEEDS_REVIEW)
	}))
	g.Go(count(&out.ArticlesChanged30d, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.ArticleChange{}).Where("detected_at >= ?", now.AddDate(0, 0, -30))
	}))

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

package queries

import (
	"context"
	"strings"
	"time"

	"oposiciones/models"
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

// articleScope is the set of articles a question listing or a test draws from.
type articleScope struct {
	OposicionID *int64
	ArticleIDs  []int64
}

// resolveArticleScope turns oposicion/topics/laws/articles filters into active article ids.
// With an oposición the topics (or all of them) define the articles, optionally narrowed
// to the given laws and article numbers. Without one, the laws define them, narrowed to article numbers when
// exactly one law is given.
func resolveArticleScope(ctx context.Context, env Env, oposicion string, topics []int, lawSlugs, articles []string) (articleScope, error) {
	var scope articleScope

	laws, err := LawsBySlugs(ctx, env, lawSlugs)
	if err != nil {
		return scope, err
	}
	lawIDs := make([]int64, len(laws))
	for i, l := range laws {
		lawIDs[i] = l.ID
	}

	if oposicion != "" {
		op, err := OposicionBySlug(ctx, env, oposicion)
		if err != nil {
			return scope, err
		}
		scope.OposicionID = &op.ID
		ids, err := env.resolver().ArticleIDsForTopics(ctx, op.ID, topics)
		if err != nil {
			return scope, err
		}
		if len(lawIDs) > 0 && len(ids) > 0 {
			q := env.DB.Model(&models.Article{}).Where("id IN (?) AND law_id IN (?)", ids, lawIDs)
			if len(articles) > 0 {
				q = q.Where("article_number IN (?)", articles)
			}
			narrowed := []int64{}
			if err := q.Order("id asc").Pluck("id", &narrowed).Error; err != nil {
				return scope, err
			}
			ids = narrowed
		}
		scope.ArticleIDs = ids
		return scope, nil
	}

	if len(lawIDs) == 0 {
		return scope, validationf("oposicion or laws is required")
	}
	q := env.DB.Model(&models.Article{}).Where("law_id IN (?) AND is_active = ?", lawIDs, true)
	if len(articles) > 0 {
		q = q.Where("article_number IN (?)", articles)
	}
	ids := []int64{}
	if err := q.Order("id asc").Pluck("id", &ids).Error; err != nil {
		return scope, err
	}
	scope.ArticleIDs = ids
	return scope, nil
}

// answeredSince selects the ids of questions the user answered at or after since.
func answeredSince(db *gorm.DB, userID int64, since time.Time) *gorm.SqlExpr {
	return db.Table("test_questions").
		Select("test_questions.question_id").
		Joins("JOIN tests ON tests.id = test_questions.test_id").
		Where("tests.user_id = ? AND test_questions.answered_at >= ?", userID, since).
		SubQuery()
}

type QuestionList struct {
	Questions []models.PublicQuestion `json:"questions"`
	Total     int64                   `json:"total"`
	Limit     int                     `json:"limit"`
	Offset    int                     `json:"offset"`
}

// FilteredQuestions lists active questions without their answer key. userID 0 means anonymous.
func FilteredQuestions(ctx context.Context, env Env, userID int64, in schemas.FilteredQuestionsQuery) (QuestionList, error) {
	out := QuestionList{Questions: []models.PublicQuestion{}, Limit: in.Limit, Offset: in.Offset}

	scope, err := resolveArticleScope(ctx, env, in.Oposicion, in.Topics, in.Laws, in.Articles)
	if err != nil {
		return out, err
	}
	if len(scope.ArticleIDs) == 0 {
		return out, nil
	}

	q := env.DB.Model(&models.Question{}).Where("article_id IN (?) AND is_active = ?", scope.ArticleIDs, true)
	if in.Difficulty != "" {
		q = q.Where("difficulty = ?", in.Difficulty)
	}
	if in.OnlyOfficial {
		q = q.Where("is_official_exam = ?", true)
	}
	if userID > 0 && in.ExcludeAnsweredDays > 0 {
		since := env.now().AddDate(0, 0, -in.ExcludeAnsweredDays)
		q = q.Where("id NOT IN ?", answeredSince(env.DB, userID, since))
	}

	if err := q.Count(&out.Total).Error; err != nil {
		return out, err
	}
	var questions []models.Question
	if err := q.Order("id asc").Limit(in.Limit).Offset(in.Offset).Find(&questions).Error; err != nil {
		return out, err
	}
	for _, qq := range questions {
		out.Questions = append(out.Questions, qq.Public())
	}
	return out, nil
}

func GetQuestion(db *gorm.DB, id int64) (models.Question, error) {
	var q models.Question
	if err := db.First(&q, id).Error; err != nil {
		return models.Question{}, wrapNotFound(err, "question")
	}
	return q, nil
}

// GetActiveQuestion hides deactivated questions from users.
func GetActiveQuestion(db *gorm.DB, id int64) (models.Question, error) {
	q, err := GetQuestion(db, id)
	if err != nil {
		return models.Question{}, err
	}
	if !q.IsActive {
		return models.Question{}, notFoundf("question")
	}
	return q, nil
}

type CheckResult struct {
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// CheckAnswer grades a practice answer and updates the question counters.
func CheckAnswer(db *gorm.DB, questionID int64, answer string) (CheckResult, error) {
	q, err := GetActiveQuestion(db, questionID)
	if err != nil {
		return CheckResult{}, err
	}
	correct := q.CorrectOption == answer
	if err := recordAnswer(db, q.ID, correct); err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Correct: correct, CorrectOption: q.CorrectOption, Explanation: q.Explanation}, nil
}

// recordAnswer bumps the counters atomically and recomputes the difficulty
// once enough answers were collected.
func recordAnswer(db *gorm.DB, questionID int64, correct bool) error {
	updates := map[string]any{"times_answered": gorm.Expr("times_answered + 1")}
	if correct {
		updates["times_correct"] = gorm.Expr("times_correct + 1")
	}
	if err := db.Model(&models.Question{}).Where("id = ?", questionID).UpdateColumns(updates).Error; err != nil {
		return err
	}

	var q models.Question
	if err := db.Select("id, times_answered, times_correct, difficulty").Where("id = ?", questionID).First(&q).Error; err != nil {
		return err
	}
	if q.TimesAnswered < models.MinAnswersForDifficulty {
		return nil
	}
	d := models.DifficultyForRate(float64(q.TimesCorrect) / float64(q.TimesAnswered))
	if d == q.Difficulty {
		return nil
	}
	return db.Model(&models.Question{}).Where("id = ?", questionID).UpdateColumn("difficulty", d).Error
}

func questionFromInput(q *models.Question, in schemas.QuestionInput) {
	q.ArticleID = in.ArticleID
	q.QuestionText = in.QuestionText
	q.OptionA = strings.TrimSpace(in.OptionA)
	q.OptionB = strings.TrimSpace(in.OptionB)
	q.OptionC = strings.TrimSpace(in.OptionC)
	q.OptionD = strings.TrimSpace(in.OptionD)
	q.CorrectOption = in.CorrectOption
	q.Explanation = strings.TrimSpace(in.Explanation)
	q.Difficulty = in.Difficulty
	q.IsOfficialExam = in.IsOfficialExam
	q.ExamSource = strings.TrimSpace(in.ExamSource)
	q.ExamYear = in.ExamYear
}

func CreateQuestion(db *gorm.DB, in schemas.QuestionInput) (models.Question, error) {
	if err := db.First(&models.Article{}, in.ArticleID).Error; err != nil {
		return models.Question{}, wrapNotFound(err, "article")
	}
	var q models.Question
	questionFromInput(&q, in)
	q.IsActive = true
	q.VerificationStatus = models.VERIFICATION_UNVERIFIED
	if missing := q.MissingFields(); missing != "" {
		return models.Question{}, validationf("missing field %s", missing)
	}
	if err := db.Create(&q).Error; err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// UpdateQuestion replaces the editable fields. Editing the text, options or answer
// puts the question back to unverified.
func UpdateQuestion(db *gorm.DB, id int64, in schemas.QuestionInput) (models.Question, error) {
	q, err := GetQuestion(db, id)
	if err != nil {
		return models.Question{}, err
	}
	if in.ArticleID != q.ArticleID {
		if err := db.First(&models.Article{}, in.ArticleID).Error; err != nil {
			return models.Question{}, wrapNotFound(err, "article")
		}
	}

	before := q
	questionFromInput(&q, in)
	if before.QuestionText != q.QuestionText || before.CorrectOption != q.CorrectOption ||
		before.OptionA != q.OptionA || before.OptionB != q.OptionB ||
		before.OptionC != q.OptionC || before.OptionD != q.OptionD ||
		before.ArticleID != q.ArticleID {
		q.VerificationStatus = models.VERIFICATION_UNVERIFIED
	}
	if missing := q.MissingFields(); missing != "" {
		return models.Question{}, validationf("missing field %s", missing)
	}
	if err := db.Save(&q).Error; err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// DeleteQuestion deactivates and soft-deletes. Answers already given keep pointing at it.
func DeleteQuestion(db *gorm.DB, id int64) error {
	q, err := GetQuestion(db, id)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&q).UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		return tx.Delete(&q).Error
	})
}

func AdminListQuestions(db *gorm.DB, in schemas.AdminQuestionsQuery) (Page[models.Question], error) {
	q := db.Model(&models.Question{})
	if !in.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if in.VerificationStatus != "" {
		q = q.Where("verification_status = ?", in.VerificationStatus)
	}
	if in.ArticleID > 0 {
		q = q.Where("article_id = ?", in.ArticleID)
	}
	if in.LawID > 0 {
		q = q.Where("article_id IN ?", db.Table("articles").Select("id").Where("law_id = ?", in.LawID).SubQuery())
	}
	return paginate[models.Question](q, in.Pagination, "id asc")
}

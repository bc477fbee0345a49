package queries

import (
	"context"
	"strings"
	"time"

	"oposiciones/events"
	"oposiciones/metrics"
	"oposiciones/models"
	"oposiciones/schemas"
	"oposiciones/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// RecoverWindow is how old an unfinished test can be and still be resumed.
const RecoverWindow = 48 * time.Hour

type TestQuestionView struct {
	QuestionOrder    int                   `json:"question_order"`
	Question         models.PublicQuestion `json:"question"`
	UserAnswer       string                `json:"user_answer,omitempty"`
	IsCorrect        *bool                 `json:"is_correct,omitempty"`
	TimeSpentSeconds int                   `json:"time_spent_seconds,omitempty"`
	// CorrectOption and Explanation are only filled once the slot is answered or the test is completed.
	CorrectOption string `json:"correct_option,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

type TestView struct {
	Test      models.Test        `json:"test"`
	Questions []TestQuestionView `json:"questions"`
	NextOrder int                `json:"next_order,omitempty"`
}

// GenerateTest draws a weighted random test for the user and persists it.
func GenerateTest(ctx context.Context, env Env, user models.User, req schemas.GenerateTestRequest) (TestView, error) {
	now := env.now()
	if err := CheckTestQuota(env.DB, env.Conf, user.ID, now); err != nil {
		return TestView{}, err
	}

	scope, err := resolveArticleScope(ctx, env, req.Oposicion, req.Topics, req.Laws, nil)
	if err != nil {
		return TestView{}, err
	}
	pool, err := candidatePool(env.DB, scope.ArticleIDs, req.Difficulty, req.OnlyOfficial || req.TestType == models.TEST_TYPE_OFFICIAL)
	if err != nil {
		return TestView{}, err
	}
	if len(pool) == 0 {
		return TestView{}, notFoundf("no questions match the filters")
	}

	history, err := lastAnswers(env.DB, user.ID, pool)
	if err != nil {
		return TestView{}, err
	}
	var cutoff *time.Time
	if req.ExcludeRecentDays > 0 {
		t := now.AddDate(0, 0, -req.ExcludeRecentDays)
		cutoff = &t
	}
	focusWeak := req.FocusWeak || req.TestType == models.TEST_TYPE_WEAK_AREAS
	cands := buildCandidates(pool, history, focusWeak, cutoff, req.NumQuestions)
	ids := weightedSample(env.rand(), cands, req.NumQuestions)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTestTitle(ctx, env, req)
	}

	test := models.Test{
		UserID:         user.ID,
		OposicionID:    scope.OposicionID,
		Title:          title,
		TestType:       req.TestType,
		TotalQuestions: len(ids),
		ShareCode:      tools.ShareCode(),
		StartedAt:      &now,
		CreatedAt:      &now,
	}
	err = env.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&test).Error; err != nil {
			return err
		}
		for i, id := range ids {
			tq := models.TestQuestion{TestID: test.ID, QuestionID: id, QuestionOrder: i + 1, CreatedAt: &now}
			if err := tx.Create(&tq).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TestView{}, err
	}
	metrics.TestsGenerated.Inc()
	env.log().Info("test generated",
		zap.Int64("test_id", test.ID),
		zap.Int64("user_id", user.ID),
		zap.String("type", test.TestType),
		zap.Int("questions", len(ids)),
		zap.Int("pool", len(pool)),
	)
	return loadTestView(env.DB, test)
}

func defaultTestTitle(ctx context.Context, env Env, req schemas.GenerateTestRequest) string {
	switch req.TestType {
	case models.TEST_TYPE_WEAK_AREAS:
		return "Repaso de fallos"
	case models.TEST_TYPE_OFFICIAL:
		return "Preguntas de exámenes oficiales"
	case models.TEST_TYPE_TOPIC:
		return "Test por temas"
	case models.TEST_TYPE_LAW:
		var names []string
		for _, slug := range req.Laws {
			if law, err := LawBySlug(ctx, env, slug); err == nil {
				names = append(names, law.ShortName)
			}
		}
		if len(names) > 0 {
			return "Test de " + strings.Join(names, ", ")
		}
		return "Test por leyes"
	}
	return "Test aleatorio"
}

// loadTestView joins the slots of a test with their questions.
func loadTestView(db *gorm.DB, test models.Test) (TestView, error) {
	view := TestView{Test: test, Questions: []TestQuestionView{}}

	var slots []models.TestQuestion
	if err := db.Where("test_id = ?", test.ID).Order("question_order asc").Find(&slots).Error; err != nil {
		return view, err
	}
	if len(slots) == 0 {
		return view, nil
	}
	ids := make([]int64, len(slots))
	for i, s := range slots {
		ids[i] = s.QuestionID
	}
	// deleted questions still show in past tests
	var questions []models.Question
	if err := db.Unscoped().Where("id IN (?)", ids).Find(&questions).Error; err != nil {
		return view, err
	}
	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	for _, s := range slots {
		q := byID[s.QuestionID]
		v := TestQuestionView{
			QuestionOrder:    s.QuestionOrder,
			Question:         q.Public(),
			UserAnswer:       s.UserAnswer,
			IsCorrect:        s.IsCorrect,
			TimeSpentSeconds: s.TimeSpentSeconds,
		}
		if s.Answered() || test.IsCompleted {
			v.CorrectOption = q.CorrectOption
			v.Explanation = q.Explanation
		}
		if !s.Answered() && view.NextOrder == 0 && !test.IsCompleted {
			view.NextOrder = s.QuestionOrder
		}
		view.Questions = append(view.Questions, v)
	}
	return view, nil
}

func getOwnedTest(db *gorm.DB, userID, testID int64) (models.Test, error) {
	var test models.Test
	if err := db.First(&test, testID).Error; err != nil {
		return models.Test{}, wrapNotFound(err, "test")
	}
	if test.UserID != userID {
		return models.Test{}, ErrForbidden
	}
	return test, nil
}

// RecoverTest returns the newest unfinished test started inside RecoverWindow.
func RecoverTest(env Env, userID int64) (TestView, error) {
	since := env.now().Add(-RecoverWindow)
	var test models.Test
	err := env.DB.Where("user_id = ? AND is_completed = ? AND started_at >= ?", userID, false, since).
		Order("started_at desc, id desc").
		First(&test).Error
	if err != nil {
		return TestView{}, wrapNotFound(err, "test to recover")
	}
	return loadTestView(env.DB, test)
}

func GetTestDetail(db *gorm.DB, userID, testID int64) (TestView, error) {
	test, err := getOwnedTest(db, userID, testID)
	if err != nil {
		return TestView{}, err
	}
	return loadTestView(db, test)
}

type AnswerResult struct {
	QuestionOrder int    `json:"question_order"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
	Answered      int    `json:"answered"`
	Total         int    `json:"total"`
}

// AnswerTestQuestion records the answer of one slot. A slot can only be answered once.
func AnswerTestQuestion(env Env, userID, testID int64, req schemas.AnswerRequest) (AnswerResult, error) {
	test, err := getOwnedTest(env.DB, userID, testID)
	if err != nil {
		return AnswerResult{}, err
	}
	if test.IsCompleted {
		return AnswerResult{}, conflictf("test already completed")
	}

	var slot models.TestQuestion
	if err := env.DB.Where("test_id = ? AND question_order = ?", testID, req.QuestionOrder).First(&slot).Error; err != nil {
		return AnswerResult{}, wrapNotFound(err, "question order")
	}
	if slot.Answered() {
		return AnswerResult{}, conflictf("question already answered")
	}

	question, err := GetQuestion(env.DB.Unscoped(), slot.QuestionID)
	if err != nil {
		return AnswerResult{}, err
	}
	correct := question.CorrectOption == req.Answer
	now := env.now()

	err = env.DB.Transaction(func(tx *gorm.DB) error {
		// the empty-answer guard makes concurrent answers to the same slot lose cleanly
		res := tx.Model(&models.TestQuestion{}).
			Where("id = ? AND (user_answer = '' OR user_answer IS NULL)", slot.ID).
			Updates(map[string]any{
				"user_answer":        req.Answer,
				"is_correct":         correct,
				"answered_at":        now,
				"time_spent_seconds": req.TimeSpentSeconds,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("question already answered")
		}
		return recordAnswer(tx, question.ID, correct)
	})
	if err != nil {
		return AnswerResult{}, err
	}

	var answered int64
	if err := env.DB.Model(&models.TestQuestion{}).Where("test_id = ? AND user_answer <> ''", testID).Count(&answered).Error; err != nil {
		return AnswerResult{}, err
	}
	return AnswerResult{
		QuestionOrder: req.QuestionOrder,
		Correct:       correct,
		CorrectOption: question.CorrectOption,
		Explanation:   question.Explanation,
		Answered:      int(answered),
		Total:         test.TotalQuestions,
	}, nil
}

type TestResult struct {
	TestID           int64      `json:"test_id"`
	Score            int        `json:"score"`
	TotalQuestions   int        `json:"total_questions"`
	Answered         int        `json:"answered"`
	Percentage       float64    `json:"percentage"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	CompletedAt      *time.Time `json:"completed_at"`
	ShareCode        string     `json:"share_code"`
}

func resultOf(test models.Test, answered int) TestResult {
	r := TestResult{
		TestID:           test.ID,
		Score:            test.Score,
		TotalQuestions:   test.TotalQuestions,
		Answered:         answered,
		TimeSpentSeconds: test.TimeSpentSeconds,
		CompletedAt:      test.CompletedAt,
		ShareCode:        test.ShareCode,
	}
	if test.TotalQuestions > 0 {
		r.Percentage = float64(test.Score) * 100 / float64(test.TotalQuestions)
	}
	return r
}

// CompleteTest scores the test. Completing an already completed test returns the stored result.
func CompleteTest(ctx context.Context, env Env, userID, testID int64, req schemas.CompleteTestRequest) (TestResult, error) {
	test, err := getOwnedTest(env.DB, userID, testID)
	if err != nil {
		return TestResult{}, err
	}

	var correct, answered int64
	if err := env.DB.Model(&models.TestQuestion{}).Where("test_id = ? AND is_correct = ?", testID, true).Count(&correct).Error; err != nil {
		return TestResult{}, err
	}
	if err := env.DB.Model(&models.TestQuestion{}).Where("test_id = ? AND user_answer <> ''", testID).Count(&answered).Error; err != nil {
		return TestResult{}, err
	}
	if test.IsCompleted {
		return resultOf(test, int(answered)), nil
	}

	now := env.now()
	spent := req.TimeSpentSeconds
	if spent == 0 {
		var sum struct{ Total int }
		if err := env.DB.Model(&models.TestQuestion{}).Select("COALESCE(SUM(time_spent_seconds), 0) as total").Where("test_id = ?", testID).Scan(&sum).Error; err != nil {
			return TestResult{}, err
		}
		spent = sum.Total
	}

	res := env.DB.Model(&models.Test{}).
		Where("id = ? AND is_completed = ?", testID, false).
		Updates(map[string]any{
			"is_completed":       true,
			"score":              int(correct),
			"completed_at":       now,
			"time_spent_seconds": spent,
		})
	if res.Error != nil {
		return TestResult{}, res.Error
	}
	if err := env.DB.First(&test, testID).Error; err != nil {
		return TestResult{}, err
	}
	if res.RowsAffected == 0 {
		// completed concurrently
		return resultOf(test, int(answered)), nil
	}

	err = env.events().Publish(ctx, events.TopicTestCompleted, events.TestCompleted{
		TestID:         test.ID,
		UserID:         test.UserID,
		Score:          test.Score,
		TotalQuestions: test.TotalQuestions,
		CompletedAt:    now,
	})
	if err != nil {
		env.log().Warn("publish test completed", zap.Int64("test_id", test.ID), zap.Error(err))
	}
	return resultOf(test, int(answered)), nil
}

type TestsQuery struct {
	schemas.Pagination
	Completed *bool `form:"completed"`
}

func ListTests(db *gorm.DB, userID int64, in TestsQuery) (Page[models.Test], error) {
	q := db.Model(&models.Test{}).Where("user_id = ?", userID)
	if in.Completed != nil {
		q = q.Where("is_completed = ?", *in.Completed)
	}
	return paginate[models.Test](q, in.Pagination, "created_at desc, id desc")
}

// SharedTest is what anyone with the share code can see.
type SharedTest struct {
	Title          string     `json:"title"`
	TestType       string     `json:"test_type"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	Percentage     float64    `json:"percentage"`
	CompletedAt    *time.Time `json:"completed_at"`
	UserName       string     `json:"user_name"`
}

func SharedTestByCode(db *gorm.DB, code string) (SharedTest, error) {
	var test models.Test
	if err := db.Where("share_code = ? AND is_completed = ?", strings.TrimSpace(code), true).First(&test).Error; err != nil {
		return SharedTest{}, wrapNotFound(err, "shared test")
	}
	var user models.User
	_ = db.Select("id, name").First(&user, test.UserID).Error

	out := SharedTest{
		Title:          test.Title,
		TestType:       test.TestType,
		Score:          test.Score,
		TotalQuestions: test.TotalQuestions,
		CompletedAt:    test.CompletedAt,
		UserName:       firstName(user.Name),
	}
	if test.TotalQuestions > 0 {
		out.Percentage = float64(test.Score) * 100 / float64(test.TotalQuestions)
	}
	return out, nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return ""
}

package schemas

import "strings"

// FilteredQuestionsQuery is the query string of GET /api/questions/filtered.
type FilteredQuestionsQuery struct {
	Oposicion           string   `form:"oposicion" json:"oposicion" validate:"omitempty,slug"`
	Topics              []int    `form:"topics" json:"topics" validate:"omitempty,max=200,dive,min=1,max=500"`
	Laws                []string `form:"laws" json:"laws" validate:"omitempty,max=50,dive,slug"`
	Articles            []string `form:"articles" json:"articles" validate:"omitempty,max=200,dive,article_number"`
	Difficulty          string   `form:"difficulty" json:"difficulty" validate:"omitempty,oneof=easy medium hard extreme"`
	OnlyOfficial        bool     `form:"only_official" json:"only_official"`
	ExcludeAnsweredDays int      `form:"exclude_answered_days" json:"exclude_answered_days" validate:"min=0,max=365"`
	Limit               int      `form:"limit" json:"limit" validate:"min=1,max=100"`
	Offset              int      `form:"offset" json:"offset" validate:"min=0"`
}

func (q *FilteredQuestionsQuery) Normalize() {
	q.Oposicion = strings.TrimSpace(q.Oposicion)
	q.Laws = splitCSV(q.Laws)
	q.Articles = splitCSV(q.Articles)
	for i := range q.Articles {
		q.Articles[i] = strings.ToLower(q.Articles[i])
	}
	if q.Limit == 0 {
		q.Limit = 25
	}
}

func (q *FilteredQuestionsQuery) Check() []FieldError {
	var out []FieldError
	if q.Oposicion == "" && len(q.Laws) == 0 {
		out = append(out, FieldError{Field: "oposicion", Rule: "required_without=laws"})
	}
	if len(q.Topics) > 0 && q.Oposicion == "" {
		out = append(out, FieldError{Field: "topics", Rule: "requires=oposicion"})
	}
	if len(q.Articles) > 0 && len(q.Laws) != 1 {
		out = append(out, FieldError{Field: "articles", Rule: "requires_single_law"})
	}
	return out
}

type CheckAnswerRequest struct {
	Answer string `json:"answer" validate:"required,option"`
}

func (r *CheckAnswerRequest) Normalize() {
	r.Answer = strings.ToLower(strings.TrimSpace(r.Answer))
}

// QuestionInput is the admin create/update body.
type QuestionInput struct {
	ArticleID      int64  `json:"article_id" validate:"required,min=1"`
	QuestionText   string `json:"question_text" validate:"required,min=10,max=4000"`
	OptionA        string `json:"option_a" validate:"required,max=2000"`
	OptionB        string `json:"option_b" validate:"required,max=2000"`
	OptionC        string `json:"option_c" validate:"required,max=2000"`
	OptionD        string `json:"option_d" validate:"required,max=2000"`
	CorrectOption  string `json:"correct_option" validate:"required,option"`
	Explanation    string `json:"explanation" validate:"max=8000"`
	Difficulty     string `json:"difficulty" validate:"omitempty,oneof=easy medium hard extreme"`
	IsOfficialExam bool   `json:"is_official_exam"`
	ExamSource     string `json:"exam_source" validate:"max=255"`
	ExamYear       int    `json:"exam_year" validate:"omitempty,min=1980,max=2100"`
}

func (q *QuestionInput) Normalize() {
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.CorrectOption = strings.ToLower(strings.TrimSpace(q.CorrectOption))
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
}

func (q *QuestionInput) Check() []FieldError {
	if q.IsOfficialExam && strings.TrimSpace(q.ExamSource) == "" {
		return []FieldError{{Field: "exam_source", Rule: "required_if=is_official_exam"}}
	}
	return nil
}

type AdminQuestionsQuery struct {
	Pagination
	VerificationStatus string `form:"verification_status" validate:"omitempty,oneof=unverified verified needs_review"`
	LawID              int64  `form:"law_id" validate:"min=0"`
	ArticleID          int64  `form:"article_id" validate:"min=0"`
	IncludeInactive    bool   `form:"include_inactive"`
}

// TemaResolveQuery is the query string of GET /api/temas/resolve.
type TemaResolveQuery struct {
	Oposicion string `form:"oposicion" validate:"required,slug"`
	Law       string `form:"law" validate:"required,slug"`
	Article   string `form:"article" validate:"required,article_number"`
}

func (q *TemaResolveQuery) Normalize() {
	q.Oposicion = strings.TrimSpace(q.Oposicion)
	q.Law = strings.TrimSpace(q.Law)
	q.Article = strings.ToLower(strings.Join(strings.Fields(q.Article), " "))
}

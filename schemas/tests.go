package schemas

import "strings"

// GenerateTestRequest is the body of POST /api/tests/random.
type GenerateTestRequest struct {
	Oposicion         string   `json:"oposicion" validate:"omitempty,slug"`
	Topics            []int    `json:"topics" validate:"omitempty,max=200,dive,min=1,max=500"`
	Laws              []string `json:"laws" validate:"omitempty,max=50,dive,slug"`
	NumQuestions      int      `json:"num_questions" validate:"min=5,max=100"`
	Difficulty        string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard extreme"`
	OnlyOfficial      bool     `json:"only_official"`
	FocusWeak         bool     `json:"focus_weak"`
	ExcludeRecentDays int      `json:"exclude_recent_days" validate:"min=0,max=90"`
	TestType          string   `json:"test_type" validate:"omitempty,oneof=random topic law official weak_areas"`
	Title             string   `json:"title" validate:"max=200"`
}

func (r *GenerateTestRequest) Normalize() {
	r.Oposicion = strings.TrimSpace(r.Oposicion)
	r.Laws = splitCSV(r.Laws)
	if r.NumQuestions == 0 {
		r.NumQuestions = 20
	}
	if r.TestType == "" {
		switch {
		case r.FocusWeak:
			r.TestType = "weak_areas"
		case r.OnlyOfficial:
			r.TestType = "official"
		case len(r.Topics) > 0:
			r.TestType = "topic"
		case len(r.Laws) > 0 && r.Oposicion == "":
			r.TestType = "law"
		default:
			r.TestType = "random"
		}
	}
}

func (r *GenerateTestRequest) Check() []FieldError {
	var out []FieldError
	if r.Oposicion == "" && len(r.Laws) == 0 {
		out = append(out, FieldError{Field: "oposicion", Rule: "required_without=laws"})
	}
	if len(r.Topics) > 0 && r.Oposicion == "" {
		out = append(out, FieldError{Field: "topics", Rule: "requires=oposicion"})
	}
	return out
}

// AnswerRequest is the body of POST /api/tests/:id/answers.
type AnswerRequest struct {
	QuestionOrder    int    `json:"question_order" validate:"min=1"`
	Answer           string `json:"answer" validate:"required,option"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0,max=86400"`
}

func (r *AnswerRequest) Normalize() {
	r.Answer = strings.ToLower(strings.TrimSpace(r.Answer))
}

type CompleteTestRequest struct {
	TimeSpentSeconds int `json:"time_spent_seconds" validate:"min=0,max=86400"`
}

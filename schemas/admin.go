package schemas

import (
	"strings"
	"time"
)

type DisputeCreate struct {
	QuestionID  int64  `json:"question_id" validate:"required,min=1"`
	DisputeType string `json:"dispute_type" validate:"required,oneof=wrong_answer ambiguous outdated_law typo other"`
	Description string `json:"description" validate:"required,min=10,max=2000"`
}

func (d *DisputeCreate) Normalize() {
	d.Description = strings.TrimSpace(d.Description)
}

type DisputeUpdate struct {
	Status             string `json:"status" validate:"required,oneof=reviewing resolved rejected"`
	AdminResponse      string `json:"admin_response" validate:"max=2000"`
	DeactivateQuestion bool   `json:"deactivate_question"`
}

func (d *DisputeUpdate) Normalize() {
	d.AdminResponse = strings.TrimSpace(d.AdminResponse)
}

func (d *DisputeUpdate) Check() []FieldError {
	if (d.Status == "resolved" || d.Status == "rejected") && d.AdminResponse == "" {
		return []FieldError{{Field: "admin_response", Rule: "required_if=status"}}
	}
	if d.DeactivateQuestion && d.Status != "resolved" {
		return []FieldError{{Field: "deactivate_question", Rule: "requires=resolved"}}
	}
	return nil
}

type DisputesQuery struct {
	Pagination
	Status string `form:"status" validate:"omitempty,oneof=pending reviewing resolved rejected"`
	Type   string `form:"type" validate:"omitempty,oneof=wrong_answer ambiguous outdated_law typo other"`
}

type FeedbackCreate struct {
	Type    string `json:"type" validate:"required,oneof=bug suggestion content other"`
	Message string `json:"message" validate:"required,min=5,max=5000"`
	URL     string `json:"url" validate:"max=500"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
}

func (f *FeedbackCreate) Normalize() {
	f.Message = strings.TrimSpace(f.Message)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

type FeedbackUpdate struct {
	Status     string `json:"status" validate:"required,oneof=pending in_review resolved dismissed"`
	AdminNotes string `json:"admin_notes" validate:"max=5000"`
}

type FeedbackQuery struct {
	Pagination
	Status string `form:"status" validate:"omitempty,oneof=pending in_review resolved dismissed"`
	Type   string `form:"type" validate:"omitempty,oneof=bug suggestion content other"`
}

// AIChatLogsQuery is the query string of GET /api/admin/ai-chat-logs.
type AIChatLogsQuery struct {
	Pagination
	Provider string `form:"provider" validate:"omitempty,oneof=openai anthropic gemini"`
	Feedback string `form:"feedback" validate:"omitempty,oneof=none positive negative"`
	UserID   int64  `form:"user_id" validate:"min=0"`
}

type AIChatRequest struct {
	Message    string `json:"message" validate:"required,min=1,max=2000"`
	QuestionID *int64 `json:"question_id" validate:"omitempty,min=1"`
}

func (r *AIChatRequest) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
}

type AIFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,oneof=positive negative"`
}

type EmailEventsQuery struct {
	Pagination
	Type  string `form:"type" validate:"omitempty,oneof=reminder dispute_update welcome"`
	Event string `form:"event" validate:"omitempty,oneof=sent failed delivered opened clicked bounced complained"`
}

// DateRangeQuery accepts from/to as YYYY-MM-DD.
type DateRangeQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

func (q *DateRangeQuery) Check() []FieldError {
	if q.From == "" || q.To == "" {
		return nil
	}
	from, err1 := time.Parse("2006-01-02", q.From)
	to, err2 := time.Parse("2006-01-02", q.To)
	if err1 == nil && err2 == nil && to.Before(from) {
		return []FieldError{{Field: "to", Rule: "gtefield=from"}}
	}
	return nil
}

type EmailPreferencesUpdate struct {
	UnsubscribedAll *bool `json:"unsubscribed_all"`
	Reminders       *bool `json:"reminders"`
	DisputeUpdates  *bool `json:"dispute_updates"`
}

type VerificationsQuery struct {
	Pagination
	Status  string `form:"status" validate:"omitempty,oneof=pending processing done failed"`
	Verdict string `form:"verdict" validate:"omitempty,oneof=pass fail unsure"`
}

type ArticleChangesQuery struct {
	Pagination
	LawID int64 `form:"law_id" validate:"min=0"`
}

type OposicionInput struct {
	Slug      string `json:"slug" validate:"required,slug,max=100"`
	Name      string `json:"name" validate:"required,max=255"`
	ShortName string `json:"short_name" validate:"max=100"`
	IsActive  *bool  `json:"is_active"`
}

type LawInput struct {
	Slug      string `json:"slug" validate:"required,slug,max=100"`
	ShortName string `json:"short_name" validate:"required,max=100"`
	Name      string `json:"name" validate:"required,max=1000"`
	BoeID     string `json:"boe_id" validate:"omitempty,max=40,startswith=BOE-"`
}

type TopicInput struct {
	OposicionID int64  `json:"oposicion_id" validate:"required,min=1"`
	TopicNumber int    `json:"topic_number" validate:"required,min=1,max=500"`
	Title       string `json:"title" validate:"required,max=1000"`
}

type TopicScopeInput struct {
	LawID          int64  `json:"law_id" validate:"required,min=1"`
	ArticleNumbers string `json:"article_numbers" validate:"max=4000"`
}

type TopicScopesUpdate struct {
	Scopes []TopicScopeInput `json:"scopes" validate:"max=50,dive"`
}

type AssignPlanRequest struct {
	PlanID    int64      `json:"plan_id" validate:"required,min=1"`
	ExpiresAt *time.Time `json:"expires_at"`
}

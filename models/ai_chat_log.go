package models

import "time"

const AI_FEEDBACK_NONE = "none"
const AI_FEEDBACK_POSITIVE = "positive"
const AI_FEEDBACK_NEGATIVE = "negative"

// AIChatLog records every AI chat exchange, including failed ones.
type AIChatLog struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     int64      `gorm:"not null;index" json:"user_id"`
	QuestionID *int64     `gorm:"index" json:"question_id"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Response   string     `gorm:"type:text" json:"response"`
	Provider   string     `gorm:"default:'';index" json:"provider"`
	Model      string     `gorm:"default:''" json:"model"`
	LatencyMs  int64      `gorm:"not null;default:0" json:"latency_ms"`
	Feedback   string     `gorm:"not null;default:'none';index" json:"feedback"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  *time.Time `gorm:"index" json:"created_at"`
}

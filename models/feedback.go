package models

import "time"

const FEEDBACK_TYPE_BUG = "bug"
const FEEDBACK_TYPE_SUGGESTION = "suggestion"
const FEEDBACK_TYPE_CONTENT = "content"
const FEEDBACK_TYPE_OTHER = "other"

const FEEDBACK_STATUS_PENDING = "pending"
const FEEDBACK_STATUS_IN_REVIEW = "in_review"
const FEEDBACK_STATUS_RESOLVED = "resolved"
const FEEDBACK_STATUS_DISMISSED = "dismissed"

// Feedback is a free-form message sent from the site. UserID is nil for anonymous visitors.
type Feedback struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     *int64     `gorm:"index" json:"user_id"`
	Type       string     `gorm:"not null" json:"type"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	URL        string     `gorm:"column:url;default:''" json:"url"`
	Email      string     `gorm:"default:''" json:"email"`
	Status     string     `gorm:"not null;default:'pending';index" json:"status"`
	AdminNotes string     `gorm:"type:text" json:"admin_notes"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

func (Feedback) TableName() string { return "feedback" }

package models

import "time"

/************************************************
/**** MARK: VERIFICATION JOB STATUS ****/
/************************************************/
const VERIFY_STATUS_PENDING = "pending"
const VERIFY_STATUS_PROCESSING = "processing"
const VERIFY_STATUS_DONE = "done"
const VERIFY_STATUS_FAILED = "failed"

const VERDICT_PASS = "pass"
const VERDICT_FAIL = "fail"
const VERDICT_UNSURE = "unsure"

// ArticleVerification is one queued LLM check of a question against its article.
// It enters as "pending" and the verification worker picks it once ScheduledAt <= now.
type ArticleVerification struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ArticleID       int64      `gorm:"not null;index" json:"article_id"`
	QuestionID      int64      `gorm:"not null;index" json:"question_id"`
	Status          string     `gorm:"not null;default:'pending';index" json:"status"`
	Verdict         string     `gorm:"default:''" json:"verdict"`
	SuggestedOption string     `gorm:"default:''" json:"suggested_option"`
	Explanation     string     `gorm:"type:text" json:"explanation"`
	Provider        string     `gorm:"default:''" json:"provider"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	LastError       string     `gorm:"type:text" json:"last_error,omitempty"`
	ScheduledAt     *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt     *time.Time `json:"processed_at"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

/************************************************
/**** MARK: ARTICLE CHANGES ****/
/************************************************/
const CHANGE_NEW = "new"
const CHANGE_MODIFIED = "modified"
const CHANGE_REMOVED = "removed"

// ArticleChange records a difference detected between the stored article and the BOE text.
type ArticleChange struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ArticleID    int64      `gorm:"not null;index" json:"article_id"`
	LawID        int64      `gorm:"not null;index" json:"law_id"`
	ChangeType   string     `gorm:"not null" json:"change_type"`
	Similarity   float64    `gorm:"not null;default:0" json:"similarity"`
	PreviousHash string     `gorm:"default:''" json:"previous_hash"`
	NewHash      string     `gorm:"default:''" json:"new_hash"`
	DetectedAt   *time.Time `gorm:"index" json:"detected_at"`
}

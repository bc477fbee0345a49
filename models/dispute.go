package models

import "time"

/************************************************
/**** MARK: DISPUTE TYPES ****/
/************************************************/
const DISPUTE_TYPE_WRONG_ANSWER = "wrong_answer"
const DISPUTE_TYPE_AMBIGUOUS = "ambiguous"
const DISPUTE_TYPE_OUTDATED_LAW = "outdated_law"
const DISPUTE_TYPE_TYPO = "typo"
const DISPUTE_TYPE_OTHER = "other"

/************************************************
/**** MARK: DISPUTE STATUS ****/
/************************************************/
const DISPUTE_STATUS_PENDING = "pending"
const DISPUTE_STATUS_REVIEWING = "reviewing"
const DISPUTE_STATUS_RESOLVED = "resolved"
const DISPUTE_STATUS_REJECTED = "rejected"

// QuestionDispute (impugnación) is a user challenge to a question.
type QuestionDispute struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	QuestionID    int64      `gorm:"not null;index" json:"question_id"`
	UserID        int64      `gorm:"not null;index" json:"user_id"`
	DisputeType   string     `gorm:"not null" json:"dispute_type"`
	Description   string     `gorm:"type:text;not null" json:"description"`
	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	AdminResponse string     `gorm:"type:text" json:"admin_response"`
	ResolvedBy    *int64     `json:"resolved_by"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// CanTransition reports whether a dispute may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case DISPUTE_STATUS_PENDING:
		return to == DISPUTE_STATUS_REVIEWING || to == DISPUTE_STATUS_RESOLVED || to == DISPUTE_STATUS_REJECTED
	case DISPUTE_STATUS_REVIEWING:
		return to == DISPUTE_STATUS_RESOLVED || to == DISPUTE_STATUS_REJECTED
	}
	return false
}

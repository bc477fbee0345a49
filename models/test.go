package models

import "time"

/************************************************
/**** MARK: TEST TYPES ****/
/************************************************/
const TEST_TYPE_RANDOM = "random"
const TEST_TYPE_TOPIC = "topic"
const TEST_TYPE_LAW = "law"
const TEST_TYPE_OFFICIAL = "official"
const TEST_TYPE_WEAK_AREAS = "weak_areas"

// Test is one practice session generated for a user.
type Test struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID           int64      `gorm:"not null;index" json:"user_id"`
	OposicionID      *int64     `gorm:"index" json:"oposicion_id"`
	Title            string     `gorm:"not null" json:"title"`
	TestType         string     `gorm:"not null;default:'random'" json:"test_type"`
	TotalQuestions   int        `gorm:"not null" json:"total_questions"`
	Score            int        `gorm:"not null;default:0" json:"score"`
	ShareCode        string     `gorm:"not null;unique_index" json:"share_code"`
	IsCompleted      bool       `gorm:"not null;default:false;index" json:"is_completed"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	TimeSpentSeconds int        `gorm:"not null;default:0" json:"time_spent_seconds"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// TestQuestion is one slot of a test. UserAnswer stays empty until answered.
type TestQuestion struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TestID           int64      `gorm:"not null;index;unique_index:ux_test_order" json:"test_id"`
	QuestionID       int64      `gorm:"not null;index" json:"question_id"`
	QuestionOrder    int        `gorm:"not null;unique_index:ux_test_order" json:"question_order"`
	UserAnswer       string     `gorm:"default:''" json:"user_answer"`
	IsCorrect        *bool      `json:"is_correct"`
	AnsweredAt       *time.Time `gorm:"index" json:"answered_at"`
	TimeSpentSeconds int        `gorm:"not null;default:0" json:"time_spent_seconds"`
	CreatedAt        *time.Time `json:"created_at"`
}

func (tq TestQuestion) Answered() bool {
	return tq.UserAnswer != ""
}

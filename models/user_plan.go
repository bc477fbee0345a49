package models

import "time"

// UserPlan links a user to a plan. user_id is unique: at most one plan per user.
// Users without a link are on the free tier configured in config.Plans.
type UserPlan struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    int64      `gorm:"not null;unique_index" json:"user_id"`
	PlanID    int64      `gorm:"not null;index" json:"plan_id"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Active reports whether the link is still valid at now.
func (up UserPlan) Active(now time.Time) bool {
	return up.ExpiresAt == nil || now.Before(*up.ExpiresAt)
}

package models

import "time"

// Plan define los límites de uso de una suscripción (free, premium...).
// Los cobros quedan fuera de este servicio: un admin asigna el plan al usuario.
type Plan struct {
	ID          int64  `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Slug        string `gorm:"not null;unique" json:"slug" form:"slug"`
	Name        string `gorm:"not null" json:"name" form:"name"`
	Description string `gorm:"type:text" json:"description" form:"description"`
	PriceCents  int64  `gorm:"not null;default:0" json:"price_cents" form:"price_cents"`

	// MonthlyTestLimit is how many tests can be generated per calendar month. 0 means unlimited.
	MonthlyTestLimit int64 `gorm:"not null;default:0" json:"monthly_test_limit" form:"monthly_test_limit"`
	// DailyAIChatLimit is how many AI chat messages can be sent per day. 0 means unlimited.
	DailyAIChatLimit int64 `gorm:"not null;default:0" json:"daily_ai_chat_limit" form:"daily_ai_chat_limit"`

	Currency  string     `gorm:"not null;default:'EUR'" json:"currency" form:"currency"`
	Interval  string     `gorm:"not null;default:'monthly'" json:"interval" form:"interval"` // monthly|yearly|one_time
	IsActive  bool       `gorm:"not null;default:true" json:"is_active" form:"is_active"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (plan Plan) MissingFields() string {
	if plan.Slug == "" {
		return "slug"
	} else if plan.Name == "" {
		return "name"
	}
	return ""
}

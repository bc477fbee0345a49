package models

import "time"

/************************************************
/**** MARK: EMAIL TYPES ****/
/************************************************/
const EMAIL_TYPE_REMINDER = "reminder"
const EMAIL_TYPE_DISPUTE_UPDATE = "dispute_update"
const EMAIL_TYPE_WELCOME = "welcome"

/************************************************
/**** MARK: EMAIL EVENT TYPES ****/
/************************************************/
const EMAIL_EVENT_SENT = "sent"
const EMAIL_EVENT_FAILED = "failed"
const EMAIL_EVENT_DELIVERED = "delivered"
const EMAIL_EVENT_OPENED = "opened"
const EMAIL_EVENT_CLICKED = "clicked"
const EMAIL_EVENT_BOUNCED = "bounced"
const EMAIL_EVENT_COMPLAINED = "complained"

// EmailEvent is one lifecycle event of an outgoing email.
type EmailEvent struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID       int64      `gorm:"not null;default:0;index" json:"user_id"`
	EmailType    string     `gorm:"not null;index" json:"email_type"`
	EventType    string     `gorm:"not null;index" json:"event_type"`
	ProviderID   string     `gorm:"default:'';index" json:"provider_id"`
	EmailAddress string     `gorm:"default:''" json:"email_address"`
	Detail       string     `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt    *time.Time `gorm:"index" json:"created_at"`
}

// EmailPreference stores opt-outs. A missing row means every email type is allowed.
type EmailPreference struct {
	ID              int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID          int64      `gorm:"not null;unique_index" json:"user_id"`
	UnsubscribedAll bool       `gorm:"not null;default:false" json:"unsubscribed_all"`
	Reminders       bool       `gorm:"not null;default:true" json:"reminders"`
	DisputeUpdates  bool       `gorm:"not null;default:true" json:"dispute_updates"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// Allows reports whether an email of the given type may be sent.
func (p EmailPreference) Allows(emailType string) bool {
	if p.UnsubscribedAll {
		return false
	}
	switch emailType {
	case EMAIL_TYPE_REMINDER:
		return p.Reminders
	case EMAIL_TYPE_DISPUTE_UPDATE:
		return p.DisputeUpdates
	}
	return true
}

// DefaultEmailPreference is what a user without a row gets.
func DefaultEmailPreference(userID int64) EmailPreference {
	return EmailPreference{UserID: userID, Reminders: true, DisputeUpdates: true}
}

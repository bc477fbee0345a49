package models

import (
	"strings"
	"time"

	"oposiciones/tools"
)

/************************************************
/**** MARK: USER STATUS ****/
/************************************************/
const USER_STATUS_AVAILABLE = 0
const USER_STATUS_BLOCKED = 2

// User representa un opositor (o administrador) registrado en la plataforma.
type User struct {
	ID                int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name              string     `gorm:"not null" json:"name" form:"name"`
	Email             string     `gorm:"not null;unique" json:"email" form:"email"`
	Password          string     `gorm:"not null" json:"password,omitempty" form:"password"`
	Phone             string     `gorm:"default:''" json:"phone" form:"phone"`
	City              string     `gorm:"default:''" json:"city" form:"city"`
	TargetOposicionID *int64     `gorm:"index" json:"target_oposicion_id" form:"target_oposicion_id"`
	Status            int        `gorm:"default:0" json:"status" form:"status"`
	Admin             bool       `gorm:"not null;default:false" json:"admin" form:"admin"`
	LastActiveAt      *time.Time `json:"last_active_at"`
	CreatedAt         *time.Time `json:"created_at" form:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at" form:"updated_at"`
}

func (user User) MissingFields() string {
	if strings.TrimSpace(user.Name) == "" {
		return "name"
	} else if user.Email == "" {
		return "email"
	} else if user.Password == "" {
		return "password"
	} else if tools.CheckPassword(user.Password) != "" {
		return tools.CheckPassword(user.Password)
	}
	return ""
}

// Public returns a copy safe to serialize.
func (user User) Public() User {
	user.Password = ""
	return user
}

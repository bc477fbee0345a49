package models

import "time"

// Oposicion es una convocatoria (Auxiliar Administrativo del Estado, Tramitación Procesal...).
type Oposicion struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Slug      string     `gorm:"not null;unique" json:"slug" form:"slug"`
	Name      string     `gorm:"not null" json:"name" form:"name"`
	ShortName string     `gorm:"default:''" json:"short_name" form:"short_name"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active" form:"is_active"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Law is a legal text published in the BOE.
type Law struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Slug         string     `gorm:"not null;unique" json:"slug" form:"slug"`
	ShortName    string     `gorm:"not null" json:"short_name" form:"short_name"` // ex: CE, Ley 39/2015
	Name         string     `gorm:"type:text;not null" json:"name" form:"name"`
	BoeID        string     `gorm:"column:boe_id;default:''" json:"boe_id" form:"boe_id"` // ex: BOE-A-1978-31229
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	DeletedAt    *time.Time `sql:"index" json:"-"`
}

// Article is one precepto of a law.
type Article struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	LawID         int64      `gorm:"not null;index;unique_index:ux_law_article" json:"law_id"`
	ArticleNumber string     `gorm:"not null;unique_index:ux_law_article" json:"article_number"`
	Title         string     `gorm:"type:text" json:"title"`
	Content       string     `gorm:"type:text" json:"content"`
	ContentHash   string     `gorm:"default:''" json:"content_hash"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// Topic (tema) is one unit of an oposición syllabus.
type Topic struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	OposicionID int64      `gorm:"not null;index;unique_index:ux_oposicion_topic" json:"oposicion_id"`
	TopicNumber int        `gorm:"not null;unique_index:ux_oposicion_topic" json:"topic_number"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// TopicScope maps a topic to the articles of one law it covers.
// ArticleNumbers is a comma separated list that accepts numeric ranges ("1-9,14 bis").
// An empty list covers the whole law.
type TopicScope struct {
	ID             int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TopicID        int64      `gorm:"not null;index" json:"topic_id"`
	LawID          int64      `gorm:"not null;index" json:"law_id"`
	ArticleNumbers string     `gorm:"type:text" json:"article_numbers"`
	CreatedAt      *time.Time `json:"created_at"`
}

func (Oposicion) TableName() string { return "oposiciones" }

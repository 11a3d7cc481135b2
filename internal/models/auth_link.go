package models

import "time"

// AuthLink is a region-tagged network authentication link.
type AuthLink struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Region    string    `gorm:"size:100;not null;index" json:"region"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	URL       string    `gorm:"column:url;size:2048;not null" json:"url"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuthLink) TableName() string { return "auth_links" }

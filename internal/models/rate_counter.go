package models

import "time"

// RateCounter is a fixed-window request counter shared by every server
// instance pointing at the same database.
type RateCounter struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Count     int64     `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (RateCounter) TableName() string { return "rate_counters" }

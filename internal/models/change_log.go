package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChangeEntityNode     = "node"
	ChangeEntityAuthLink = "auth_link"
	ChangeEntityIcon     = "icon"
	ChangeEntityImport   = "import"
)

// ChangeLog records a mutation applied through the API or the importer.
type ChangeLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Entity    string         `gorm:"size:32;not null;index:idx_change_logs_entity" json:"entity"`
	EntityID  string         `gorm:"size:255;index:idx_change_logs_entity" json:"entity_id"`
	Action    string         `gorm:"size:32;not null" json:"action"`
	Changes   datatypes.JSON `json:"changes"`
	RequestID string         `gorm:"size:64" json:"request_id,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

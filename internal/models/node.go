package models

import "time"

const (
	NodeTypeFolder = "folder"
	NodeTypeLink   = "link"
)

// Node is a folder or link in the tool tree. Code encodes ancestry as
// dash-joined sibling indexes, e.g. "3-2-1".
type Node struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Code      string    `gorm:"size:255;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	NodeType  string    `gorm:"size:16;not null;index" json:"node_type"`
	Icon      *string   `gorm:"size:255" json:"icon"`
	URL       *string   `gorm:"column:url;size:2048" json:"url"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Children []Node `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Node) TableName() string { return "nodes" }

// IsLink reports whether the node points to an external URL.
func (n Node) IsLink() bool { return n.NodeType == NodeTypeLink }

// ValidNodeType reports whether t is folder or link.
func ValidNodeType(t string) bool {
	return t == NodeTypeFolder || t == NodeTypeLink
}

package database

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
)

// SchemaVersion is bumped whenever AutoMigrate gains a model or index.
const SchemaVersion = 3

// SchemaVersionSetting stores the last schema version applied to the database.
const SchemaVersionSetting = "schema.version"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Node{},
		&models.AuthLink{},
		&models.ChangeLog{},
		&models.SystemSetting{},
		&models.RateCounter{},
	); err != nil {
		return err
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_nodes_parent_order ON nodes (parent_id, sort_order)").Error; err != nil {
		return fmt.Errorf("create sibling order index: %w", err)
	}

	return UpsertSystemSetting(context.Background(), db, SchemaVersionSetting, strconv.Itoa(SchemaVersion))
}

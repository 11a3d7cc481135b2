package database

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tool-table.db")

	db, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Prepare(db))
	require.FileExists(t, path)
}

func TestPrepareCreatesSchemaAndVersion(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))

	migrator := db.Migrator()
	require.True(t, migrator.HasTable(&models.Node{}))
	require.True(t, migrator.HasTable(&models.AuthLink{}))
	require.True(t, migrator.HasTable(&models.ChangeLog{}))
	require.True(t, migrator.HasIndex(&models.Node{}, "idx_nodes_parent_order"))

	version, err := GetSystemSetting(context.Background(), db, SchemaVersionSetting)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(SchemaVersion), version)

	// idempotent
	require.NoError(t, Prepare(db))
}

func TestNodeDeleteCascadesThroughForeignKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))

	root := models.Node{Code: "1", Name: "Tools", NodeType: models.NodeTypeFolder, IsActive: true}
	require.NoError(t, db.Create(&root).Error)
	child := models.Node{ParentID: &root.ID, Code: "1-1", Name: "Servers", NodeType: models.NodeTypeFolder, IsActive: true}
	require.NoError(t, db.Create(&child).Error)

	require.NoError(t, db.Delete(&models.Node{}, root.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Node{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDuplicateCodeTranslatesToDuplicatedKey(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))

	require.NoError(t, db.Create(&models.Node{Code: "1", Name: "A", NodeType: models.NodeTypeFolder}).Error)
	err := db.Create(&models.Node{Code: "1", Name: "B", NodeType: models.NodeTypeFolder}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSystemSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Prepare(db))
	ctx := context.Background()

	value, err := GetSystemSetting(ctx, db, "import.last_run")
	require.NoError(t, err)
	require.Empty(t, value)

	require.NoError(t, UpsertSystemSetting(ctx, db, "import.last_run", "first"))
	require.NoError(t, UpsertSystemSetting(ctx, db, "import.last_run", "second"))

	value, err = GetSystemSetting(ctx, db, "import.last_run")
	require.NoError(t, err)
	require.Equal(t, "second", value)

	require.Error(t, UpsertSystemSetting(ctx, db, " ", "x"))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

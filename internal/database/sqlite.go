package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DefaultSQLitePath is where the portal keeps its database when nothing is configured.
const DefaultSQLitePath = "./data/tool-table.db"

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, memory, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, err
	}

	if memory {
		// every connection must see the same private in-memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

func buildSQLiteDSN(cfg Config) (dsn string, memory bool, err error) {
	if cfg.DSN != "" {
		return cfg.DSN, strings.Contains(cfg.DSN, "mode=memory") || strings.Contains(cfg.DSN, ":memory:"), nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = DefaultSQLitePath
	}
	if strings.EqualFold(path, ":memory:") {
		return fmt.Sprintf("file:tooltable-%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString()), true, nil
	}

	if err := ensureDir(path); err != nil {
		return "", false, err
	}
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path)), false, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/auditctx"
	"github.com/charlesng35/tooltable/internal/models"
	"github.com/charlesng35/tooltable/pkg/logger"
)

// ChangeEntry captures a single mutation to persist.
type ChangeEntry struct {
	Entity   string
	EntityID string
	Action   string
	Changes  map[string]any
}

// ChangeFilter narrows change log queries.
type ChangeFilter struct {
	Entity   string
	EntityID string
	Since    *time.Time
	Limit    int
}

const (
	defaultChangeLimit = 100
	maxChangeLimit     = 1000
)

// ChangeLogService persists and retrieves change log entries.
type ChangeLogService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewChangeLogService constructs a ChangeLogService using the provided database handle.
func NewChangeLogService(db *gorm.DB) (*ChangeLogService, error) {
	if db == nil {
		return nil, errors.New("change log service: db is required")
	}
	return &ChangeLogService{db: db, log: logger.WithModule("changes")}, nil
}

// Record stores an entry, tagging it with the request id carried by ctx.
func (s *ChangeLogService) Record(ctx context.Context, entry ChangeEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Entity) == "" {
		return errors.New("change log service: entity is required")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("change log service: action is required")
	}

	var payload datatypes.JSON
	if entry.Changes != nil {
		encoded, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("change log service: marshal changes: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	record := models.ChangeLog{
		Entity:   strings.TrimSpace(entry.Entity),
		EntityID: strings.TrimSpace(entry.EntityID),
		Action:   strings.TrimSpace(entry.Action),
		Changes:  payload,
	}
	if origin, ok := auditctx.FromContext(ctx); ok {
		record.RequestID = origin.RequestID
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("change log service: record: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *ChangeLogService) List(ctx context.Context, filter ChangeFilter) ([]models.ChangeLog, error) {
	ctx = ensureContext(ctx)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultChangeLimit
	}
	if limit > maxChangeLimit {
		limit = maxChangeLimit
	}

	query := s.db.WithContext(ctx).Model(&models.ChangeLog{})
	if entity := strings.TrimSpace(filter.Entity); entity != "" {
		query = query.Where("entity = ?", entity)
	}
	if id := strings.TrimSpace(filter.EntityID); id != "" {
		query = query.Where("entity_id = ?", id)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var entries []models.ChangeLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("change log service: list: %w", err)
	}
	return entries, nil
}

// CleanupOlderThan removes entries older than the retention window (in days).
func (s *ChangeLogService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("change log service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ChangeLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("change log service: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// recordChange logs the entry while tolerating change log failures.
func recordChange(changes *ChangeLogService, ctx context.Context, entry ChangeEntry) {
	if changes == nil {
		return
	}
	if err := changes.Record(ctx, entry); err != nil {
		changes.log.Warn("change log write failed",
			zap.String("entity", entry.Entity),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

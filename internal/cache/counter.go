// Package cache keeps short-lived shared state in the primary database.
package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tooltable/internal/models"
)

// DatabaseCounter implements fixed-window counters on the rate_counters table.
type DatabaseCounter struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewDatabaseCounter constructs a database-backed counter. Returns nil for a nil db.
func NewDatabaseCounter(db *gorm.DB) *DatabaseCounter {
	if db == nil {
		return nil
	}
	return &DatabaseCounter{db: db, clock: time.Now}
}

// IncrementWithTTL atomically increments the counter for key. An expired
// window restarts at one; the returned duration is the time left in the window.
func (s *DatabaseCounter) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database counter not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()
	var entry models.RateCounter

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row lock where the dialect supports it
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry = models.RateCounter{Key: key, Count: 1, ExpiresAt: now.Add(window)}
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}

		if !entry.ExpiresAt.After(now) {
			entry.Count = 1
			entry.ExpiresAt = now.Add(window)
		} else {
			entry.Count++
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return entry.Count, entry.ExpiresAt.Sub(now), nil
}

// PurgeExpired deletes counters whose window has closed.
func (s *DatabaseCounter) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database counter not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock()).Delete(&models.RateCounter{})
	return result.RowsAffected, result.Error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
	apperrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/metrics"
)

const (
	codeSeparator        = "-"
	defaultCodeRetries   = 5
	codeGenerationFailed = "failed to generate unique code"
)

// nextCode returns the code for a new child of parentID. Roots get the numeric
// successor of the largest root code, children get "<parent>-<n>" where n
// follows the largest local index among the siblings. offset is added on top
// so retries after a collision skip the contested candidate.
func nextCode(tx *gorm.DB, parentID *uint, offset int) (string, error) {
	query := tx.Model(&models.Node{})
	prefix := ""
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		var parent models.Node
		if err := tx.Select("id", "code").Take(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", apperrors.NewNotFound("parent node not found")
			}
			return "", fmt.Errorf("load parent: %w", err)
		}
		prefix = parent.Code + codeSeparator
		query = query.Where("parent_id = ?", parent.ID)
	}

	var codes []string
	if err := query.Pluck("code", &codes).Error; err != nil {
		return "", fmt.Errorf("load sibling codes: %w", err)
	}

	next := maxLocalIndex(codes, parentID == nil) + 1 + offset
	return prefix + strconv.Itoa(next), nil
}

// maxLocalIndex returns the largest parseable local index, or 0. Root codes
// must parse as a whole.
func maxLocalIndex(codes []string, root bool) int {
	highest := 0
	for _, code := range codes {
		if root && strings.Contains(code, codeSeparator) {
			continue
		}
		if n, ok := localIndex(code); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// localIndex parses the segment after the last separator.
func localIndex(code string) (int, bool) {
	segment := code
	if idx := strings.LastIndex(code, codeSeparator); idx >= 0 {
		segment = code[idx+1:]
	}
	n, err := strconv.Atoi(segment)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// codeFollowsParent reports whether code is a well formed child code of parentCode,
// or a well formed root code when parentCode is empty.
func codeFollowsParent(code, parentCode string) bool {
	if parentCode == "" {
		_, err := strconv.Atoi(code)
		return err == nil
	}
	rest, ok := strings.CutPrefix(code, parentCode+codeSeparator)
	if !ok || strings.Contains(rest, codeSeparator) {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// withUniqueRetry runs fn up to attempts times, retrying only on duplicate key
// errors. fn receives the zero-based attempt number.
func withUniqueRetry(ctx context.Context, attempts int, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = defaultCodeRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !isUniqueConstraintError(err) {
			return err
		}
		lastErr = err
		metrics.CodeRetries.Inc()
	}

	return apperrors.Wrap(lastErr, codeGenerationFailed)
}

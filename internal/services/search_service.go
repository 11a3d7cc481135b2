package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
	"github.com/charlesng35/tooltable/pkg/metrics"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

// SearchResult is a matching node with its breadcrumb path.
type SearchResult struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	NodeType string  `json:"node_type"`
	Icon     *string `json:"icon"`
	URL      *string `json:"url"`
	Code     string  `json:"code"`
	Path     string  `json:"path"`
}

// SearchService performs name lookups over active nodes.
type SearchService struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
}

// NewSearchService constructs a SearchService. Non-positive limits fall back to defaults.
func NewSearchService(db *gorm.DB, defaultLimit, maxLimit int) (*SearchService, error) {
	if db == nil {
		return nil, errors.New("search service: db is required")
	}
	if maxLimit <= 0 {
		maxLimit = MaxSearchLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultSearchLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &SearchService{db: db, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// Search matches query case-insensitively against node names. Links sort
// before folders, then by name. A blank query returns no results.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	ctx = ensureContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		metrics.SearchQueries.WithLabelValues("empty").Inc()
		return []SearchResult{}, nil
	}
	limit = s.EffectiveLimit(limit)

	var nodes []models.Node
	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) ESCAPE '"+likeEscape+"' AND is_active = ?", containsPattern(query), true).
		Order("node_type DESC, name ASC").
		Limit(limit).
		Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("search service: query: %w", err)
	}

	results := make([]SearchResult, 0, len(nodes))
	if len(nodes) == 0 {
		metrics.SearchQueries.WithLabelValues("miss").Inc()
		return results, nil
	}

	ids := make([]uint, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	paths, err := resolvePaths(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, fmt.Errorf("search service: resolve paths: %w", err)
	}

	for _, node := range nodes {
		results = append(results, SearchResult{
			ID:       node.ID,
			Name:     node.Name,
			NodeType: node.NodeType,
			Icon:     node.Icon,
			URL:      node.URL,
			Code:     node.Code,
			Path:     paths[node.ID],
		})
	}
	metrics.SearchQueries.WithLabelValues("hit").Inc()
	return results, nil
}

// EffectiveLimit applies the default and maximum to a requested limit.
func (s *SearchService) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

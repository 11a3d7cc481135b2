package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

const (
	// maxTreeDepth bounds every upward or downward walk over parent links.
	maxTreeDepth  = 64
	pathSeparator = " > "
)

// Path returns the ancestor names of id, root first, joined with " > ".
// A broken chain yields the partial path collected so far.
func (s *NodeService) Path(ctx context.Context, id uint) (string, error) {
	ctx = ensureContext(ctx)

	paths, err := resolvePaths(s.db.WithContext(ctx), []uint{id})
	if err != nil {
		return "", fmt.Errorf("node service: path: %w", err)
	}
	return paths[id], nil
}

type pathRow struct {
	Origin uint
	Name   string
	Depth  int
}

// resolvePaths walks parent links for all ids in one query.
func resolvePaths(db *gorm.DB, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []pathRow
	err := db.Raw(`
WITH RECURSIVE chain(origin, id, parent_id, name, depth) AS (
	SELECT id, id, parent_id, name, 0 FROM nodes WHERE id IN ?
	UNION ALL
	SELECT c.origin, n.id, n.parent_id, n.name, c.depth + 1
	FROM chain c JOIN nodes n ON n.id = c.parent_id
	WHERE c.depth < ?
)
SELECT origin, name, depth FROM chain`,
		ids, maxTreeDepth-1,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Origin != rows[j].Origin {
			return rows[i].Origin < rows[j].Origin
		}
		return rows[i].Depth > rows[j].Depth
	})

	names := make(map[uint][]string, len(ids))
	for _, row := range rows {
		names[row.Origin] = append(names[row.Origin], row.Name)
	}
	for origin, parts := range names {
		out[origin] = strings.Join(parts, pathSeparator)
	}
	return out, nil
}

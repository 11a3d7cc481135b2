package services

import (
	"context"
	"fmt"

	"github.com/charlesng35/tooltable/internal/models"
)

// CodeDrift lists nodes whose code no longer extends the parent's code with a
// single numeric segment, e.g. rows edited by hand or imported from elsewhere.
func (s *NodeService) CodeDrift(ctx context.Context) ([]models.Node, error) {
	ctx = ensureContext(ctx)

	var nodes []models.Node
	if err := s.db.WithContext(ctx).Order("id").Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("node service: load nodes: %w", err)
	}

	codes := make(map[uint]string, len(nodes))
	for _, node := range nodes {
		codes[node.ID] = node.Code
	}

	var drifted []models.Node
	for _, node := range nodes {
		parentCode := ""
		if node.ParentID != nil {
			code, ok := codes[*node.ParentID]
			if !ok {
				drifted = append(drifted, node)
				continue
			}
			parentCode = code
		}
		if !codeFollowsParent(node.Code, parentCode) {
			drifted = append(drifted, node)
		}
	}
	return drifted, nil
}

package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
)

// NodeTree is a node with its nested active children.
type NodeTree struct {
	models.Node
	Children []*NodeTree `json:"children"`
}

const rootKey uint = 0

// Tree returns the whole active forest.
func (s *NodeService) Tree(ctx context.Context) ([]*NodeTree, error) {
	ctx = ensureContext(ctx)

	var nodes []models.Node
	if err := s.activeOrdered(ctx).Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("node service: load tree: %w", err)
	}
	return assembleTree(nodes, rootKey), nil
}

// Subtree returns the active descendants of parentID, nested. parentID is not
// checked for existence.
func (s *NodeService) Subtree(ctx context.Context, parentID uint) ([]*NodeTree, error) {
	ctx = ensureContext(ctx)

	var nodes []models.Node
	err := s.db.WithContext(ctx).Raw(`
WITH RECURSIVE subtree(id) AS (
	SELECT id FROM nodes WHERE parent_id = ? AND is_active = ?
	UNION
	SELECT n.id FROM nodes n JOIN subtree st ON n.parent_id = st.id WHERE n.is_active = ?
)
SELECT * FROM nodes WHERE id IN (SELECT id FROM subtree) ORDER BY sort_order ASC, code ASC`,
		parentID, true, true,
	).Scan(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("node service: load subtree: %w", err)
	}
	return assembleTree(nodes, parentID), nil
}

// assembleTree nests ordered nodes under start using a parent index. Nodes
// whose parent is absent from the slice are unreachable and dropped. A node
// is attached at most once, which cuts cycles in corrupt parent links.
func assembleTree(nodes []models.Node, start uint) []*NodeTree {
	byParent := make(map[uint][]*NodeTree, len(nodes))
	for i := range nodes {
		key := rootKey
		if nodes[i].ParentID != nil {
			key = *nodes[i].ParentID
		}
		byParent[key] = append(byParent[key], &NodeTree{Node: nodes[i], Children: []*NodeTree{}})
	}

	visited := make(map[uint]bool, len(nodes))
	if start != rootKey {
		visited[start] = true
	}

	var attach func(parent uint) []*NodeTree
	attach = func(parent uint) []*NodeTree {
		out := make([]*NodeTree, 0, len(byParent[parent]))
		for _, child := range byParent[parent] {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			child.Children = attach(child.ID)
			out = append(out, child)
		}
		return out
	}
	return attach(start)
}

// descendantNodes returns every node below id, active or not, ordered by depth.
func descendantNodes(tx *gorm.DB, id uint) ([]models.Node, error) {
	var nodes []models.Node
	err := tx.Raw(`
WITH RECURSIVE subtree(id, depth) AS (
	SELECT id, 1 FROM nodes WHERE parent_id = ?
	UNION ALL
	SELECT n.id, st.depth + 1 FROM nodes n JOIN subtree st ON n.parent_id = st.id WHERE st.depth < ?
)
SELECT nodes.* FROM nodes JOIN (SELECT id, MIN(depth) AS depth FROM subtree GROUP BY id) d ON d.id = nodes.id
ORDER BY d.depth ASC, nodes.id ASC`,
		id, maxTreeDepth,
	).Scan(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}
	return nodes, nil
}

func containsNode(nodes []models.Node, id uint) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// rewriteSubtreeCodes recomputes descendant codes below rootID from newRootCode,
// keeping each node's local index. Nodes whose code has no parseable index get
// the next free index among their siblings. descendants must be ordered
// parents first.
func rewriteSubtreeCodes(tx *gorm.DB, rootID uint, newRootCode string, descendants []models.Node) (int, error) {
	nextFree := map[uint]int{}
	for _, node := range descendants {
		if node.ParentID == nil {
			continue
		}
		if index, ok := localIndex(node.Code); ok && index >= nextFree[*node.ParentID] {
			nextFree[*node.ParentID] = index + 1
		}
	}

	codes := map[uint]string{rootID: newRootCode}
	rewritten := 0
	for _, node := range descendants {
		if node.ParentID == nil {
			continue
		}
		parentCode, ok := codes[*node.ParentID]
		if !ok {
			continue
		}
		index, ok := localIndex(node.Code)
		if !ok {
			index = max(nextFree[*node.ParentID], 1)
			nextFree[*node.ParentID] = index + 1
		}
		code := fmt.Sprintf("%s%s%d", parentCode, codeSeparator, index)
		codes[node.ID] = code
		if code == node.Code {
			continue
		}
		if err := tx.Model(&models.Node{ID: node.ID}).Update("code", code).Error; err != nil {
			return rewritten, err
		}
		rewritten++
	}
	return rewritten, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
	apperrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/logger"
	"github.com/charlesng35/tooltable/pkg/metrics"
	"github.com/charlesng35/tooltable/pkg/optional"
)

const errLinkRequiresURL = "Link type requires URL"

// NodeService manages the folder/link tree.
type NodeService struct {
	db          *gorm.DB
	changes     *ChangeLogService
	codeRetries int
	log         *zap.Logger
}

// NodeServiceOption customises a NodeService.
type NodeServiceOption func(*NodeService)

// WithCodeRetries sets how many insert attempts code generation gets.
func WithCodeRetries(n int) NodeServiceOption {
	return func(s *NodeService) {
		if n > 0 {
			s.codeRetries = n
		}
	}
}

// CreateNodeInput describes a node to insert. An empty Code is generated.
type CreateNodeInput struct {
	ParentID  *uint   `json:"parent_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	NodeType  string  `json:"node_type"`
	Icon      *string `json:"icon"`
	URL       *string `json:"url"`
	SortOrder int     `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

// UpdateNodeInput is a partial update. Icon and URL accept null to clear.
type UpdateNodeInput struct {
	Name      optional.Field[string] `json:"name"`
	NodeType  optional.Field[string] `json:"node_type"`
	Icon      optional.Field[string] `json:"icon"`
	URL       optional.Field[string] `json:"url"`
	SortOrder optional.Field[int]    `json:"sort_order"`
	IsActive  optional.Field[bool]   `json:"is_active"`
}

// ReorderItem assigns a new sort order to a node.
type ReorderItem struct {
	ID        uint `json:"id"`
	SortOrder int  `json:"sort_order"`
}

// NodeDetail is a node together with its active children.
type NodeDetail struct {
	models.Node
	Items []models.Node `json:"items"`
}

// NewNodeService constructs a NodeService.
func NewNodeService(db *gorm.DB, changes *ChangeLogService, opts ...NodeServiceOption) (*NodeService, error) {
	if db == nil {
		return nil, errors.New("node service: db is required")
	}
	svc := &NodeService{
		db:          db,
		changes:     changes,
		codeRetries: defaultCodeRetries,
		log:         logger.WithModule("nodes"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListRoots returns active top-level nodes in sibling order.
func (s *NodeService) ListRoots(ctx context.Context) ([]models.Node, error) {
	ctx = ensureContext(ctx)

	var nodes []models.Node
	if err := s.activeOrdered(ctx).Where("parent_id IS NULL").Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("node service: list roots: %w", err)
	}
	return nodes, nil
}

// Get returns a node by id regardless of its active flag.
func (s *NodeService) Get(ctx context.Context, id uint) (*models.Node, error) {
	ctx = ensureContext(ctx)
	return s.load(s.db.WithContext(ctx), id)
}

// Children returns the active children of id. Unknown ids yield an empty list.
func (s *NodeService) Children(ctx context.Context, id uint) ([]models.Node, error) {
	ctx = ensureContext(ctx)

	nodes := []models.Node{}
	if err := s.activeOrdered(ctx).Where("parent_id = ?", id).Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("node service: list children: %w", err)
	}
	return nodes, nil
}

// GetByCode returns an active node and its active children.
func (s *NodeService) GetByCode(ctx context.Context, code string) (*NodeDetail, error) {
	ctx = ensureContext(ctx)

	var node models.Node
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", strings.TrimSpace(code), true).
		Take(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("node not found")
		}
		return nil, fmt.Errorf("node service: get by code: %w", err)
	}

	items, err := s.Children(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return &NodeDetail{Node: node, Items: items}, nil
}

// Create inserts a node. Without an explicit code one is generated under the
// parent, retrying on collisions.
func (s *NodeService) Create(ctx context.Context, input CreateNodeInput) (*models.Node, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.NodeType = strings.TrimSpace(input.NodeType)
	input.Code = strings.TrimSpace(input.Code)
	input.Icon = trimmedPtr(input.Icon)
	input.URL = trimmedPtr(input.URL)

	if err := validateNodeInput(&input); err != nil {
		return nil, err
	}
	if err := validateNodeIcon(input.Icon); err != nil {
		return nil, err
	}

	node := models.Node{
		ParentID:  input.ParentID,
		Name:      input.Name,
		NodeType:  input.NodeType,
		Icon:      input.Icon,
		URL:       input.URL,
		SortOrder: input.SortOrder,
		IsActive:  true,
	}
	if input.IsActive != nil {
		node.IsActive = *input.IsActive
	}

	if input.Code != "" {
		if err := s.createWithCode(ctx, &node, input.Code); err != nil {
			return nil, err
		}
	} else {
		err := withUniqueRetry(ctx, s.codeRetries, func(attempt int) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				code, err := nextCode(tx, node.ParentID, attempt)
				if err != nil {
					return err
				}
				node.ID = 0
				node.Code = code
				return tx.Create(&node).Error
			})
		})
		if err != nil {
			if isAppError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("node service: create: %w", err)
		}
	}

	metrics.NodeMutations.WithLabelValues("create").Inc()
	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityNode,
		EntityID: nodeEntityID(node.ID),
		Action:   "create",
		Changes: map[string]any{
			"code":      node.Code,
			"name":      node.Name,
			"node_type": node.NodeType,
			"parent_id": node.ParentID,
		},
	})
	return &node, nil
}

func (s *NodeService) createWithCode(ctx context.Context, node *models.Node, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if node.ParentID != nil {
			if _, err := s.load(tx, *node.ParentID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewNotFound("parent node not found")
				}
				return err
			}
		}
		node.Code = code
		if err := tx.Create(node).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict(fmt.Sprintf("code %s already exists", code))
			}
			return fmt.Errorf("node service: create: %w", err)
		}
		return nil
	})
}

// Update applies a partial update. The merged node must still satisfy the
// link-requires-url rule.
func (s *NodeService) Update(ctx context.Context, id uint, input UpdateNodeInput) (*models.Node, error) {
	ctx = ensureContext(ctx)

	node, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Name.Set {
		if input.Name.Null {
			return nil, apperrors.NewBadRequest("name cannot be null")
		}
		name := strings.TrimSpace(input.Name.Value)
		if err := validation.Validate(name, validation.Required, validation.RuneLength(1, 200)); err != nil {
			return nil, apperrors.NewBadRequest("name: " + err.Error())
		}
		if name != node.Name {
			updates["name"] = name
			node.Name = name
		}
	}
	if input.NodeType.Set {
		if input.NodeType.Null {
			return nil, apperrors.NewBadRequest("node_type cannot be null")
		}
		nodeType := strings.TrimSpace(input.NodeType.Value)
		if !models.ValidNodeType(nodeType) {
			return nil, apperrors.NewBadRequest("node_type must be folder or link")
		}
		if nodeType != node.NodeType {
			updates["node_type"] = nodeType
			node.NodeType = nodeType
		}
	}
	if input.Icon.Set {
		icon := trimmedPtr(input.Icon.Ptr())
		if err := validateNodeIcon(icon); err != nil {
			return nil, err
		}
		if derefString(icon) != derefString(node.Icon) {
			updates["icon"] = icon
			node.Icon = icon
		}
	}
	if input.URL.Set {
		url := trimmedPtr(input.URL.Ptr())
		if derefString(url) != derefString(node.URL) {
			updates["url"] = url
			node.URL = url
		}
	}
	if input.SortOrder.Set {
		if input.SortOrder.Null {
			return nil, apperrors.NewBadRequest("sort_order cannot be null")
		}
		if input.SortOrder.Value != node.SortOrder {
			updates["sort_order"] = input.SortOrder.Value
			node.SortOrder = input.SortOrder.Value
		}
	}
	if input.IsActive.Set {
		if input.IsActive.Null {
			return nil, apperrors.NewBadRequest("is_active cannot be null")
		}
		if input.IsActive.Value != node.IsActive {
			updates["is_active"] = input.IsActive.Value
			node.IsActive = input.IsActive.Value
		}
	}

	if node.IsLink() && node.URL == nil {
		return nil, apperrors.NewBadRequest(errLinkRequiresURL)
	}
	if len(updates) == 0 {
		return node, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Node{ID: id}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("node service: update: %w", err)
	}
	updated, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	metrics.NodeMutations.WithLabelValues("update").Inc()
	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityNode,
		EntityID: nodeEntityID(id),
		Action:   "update",
		Changes:  updates,
	})
	return updated, nil
}

// Move reparents a node, regenerating its code under the new parent and
// rewriting the codes of its whole subtree. It returns the new code.
func (s *NodeService) Move(ctx context.Context, id uint, newParentID *uint) (string, error) {
	ctx = ensureContext(ctx)

	var (
		oldCode     string
		oldParentID *uint
		newCode     string
		rewritten   int
	)
	err := withUniqueRetry(ctx, s.codeRetries, func(attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			node, err := s.load(tx, id)
			if err != nil {
				return err
			}
			oldCode, oldParentID = node.Code, node.ParentID

			descendants, err := descendantNodes(tx, id)
			if err != nil {
				return err
			}
			if newParentID != nil {
				if *newParentID == id || containsNode(descendants, *newParentID) {
					return apperrors.NewBadRequest("cannot move a node under itself or its descendants")
				}
			}

			code, err := nextCode(tx, newParentID, attempt)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.Node{ID: id}).Updates(map[string]any{
				"parent_id": newParentID,
				"code":      code,
			}).Error; err != nil {
				return err
			}

			count, err := rewriteSubtreeCodes(tx, id, code, descendants)
			if err != nil {
				return err
			}
			newCode, rewritten = code, count
			return nil
		})
	})
	if err != nil {
		if isAppError(err) {
			return "", err
		}
		return "", fmt.Errorf("node service: move: %w", err)
	}

	metrics.NodeMutations.WithLabelValues("move").Inc()
	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityNode,
		EntityID: nodeEntityID(id),
		Action:   "move",
		Changes: map[string]any{
			"old_parent_id":     oldParentID,
			"new_parent_id":     newParentID,
			"old_code":          oldCode,
			"new_code":          newCode,
			"descendants_coded": rewritten,
		},
	})
	return newCode, nil
}

// Reorder assigns sort orders one item at a time. The first failure aborts the
// remaining items; items already applied stay applied.
func (s *NodeService) Reorder(ctx context.Context, items []ReorderItem) error {
	ctx = ensureContext(ctx)

	for _, item := range items {
		if _, err := s.load(s.db.WithContext(ctx), item.ID); err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).
			Model(&models.Node{ID: item.ID}).
			Update("sort_order", item.SortOrder).Error; err != nil {
			return fmt.Errorf("node service: reorder %d: %w", item.ID, err)
		}
	}

	if len(items) > 0 {
		metrics.NodeMutations.WithLabelValues("reorder").Inc()
		recordChange(s.changes, ctx, ChangeEntry{
			Entity: models.ChangeEntityNode,
			Action: "reorder",
			Changes: map[string]any{
				"items": items,
			},
		})
	}
	return nil
}

// Delete removes a node; the storage cascade removes its descendants.
func (s *NodeService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	node, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	descendants, err := descendantNodes(s.db.WithContext(ctx), id)
	if err != nil {
		return fmt.Errorf("node service: delete: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Node{}, id).Error; err != nil {
		return fmt.Errorf("node service: delete: %w", err)
	}

	metrics.NodeMutations.WithLabelValues("delete").Inc()
	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityNode,
		EntityID: nodeEntityID(id),
		Action:   "delete",
		Changes: map[string]any{
			"code":        node.Code,
			"name":        node.Name,
			"descendants": len(descendants),
		},
	})
	return nil
}

func (s *NodeService) load(db *gorm.DB, id uint) (*models.Node, error) {
	var node models.Node
	if err := db.Take(&node, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("node not found")
		}
		return nil, fmt.Errorf("node service: load node: %w", err)
	}
	return &node, nil
}

func (s *NodeService) activeOrdered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, code ASC")
}

func validateNodeInput(input *CreateNodeInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&input.NodeType, validation.Required, validation.In(models.NodeTypeFolder, models.NodeTypeLink)),
		validation.Field(&input.URL, validation.When(input.NodeType == models.NodeTypeLink,
			validation.Required.Error(errLinkRequiresURL))),
	)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		if urlErr, ok := fieldErrs["url"]; ok && len(fieldErrs) == 1 {
			return apperrors.NewBadRequest(urlErr.Error())
		}
	}
	return apperrors.NewBadRequest(err.Error())
}

// validateNodeIcon requires a bare file name, the same shape the icon store accepts.
func validateNodeIcon(icon *string) error {
	if icon == nil {
		return nil
	}
	err := validation.Validate(*icon,
		validation.RuneLength(1, 255),
		validation.By(func(any) error {
			name := *icon
			if name == "." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
				return errors.New("must be a file name without a path")
			}
			return nil
		}),
	)
	if err != nil {
		return apperrors.NewBadRequest("icon: " + err.Error())
	}
	return nil
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}

func nodeEntityID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

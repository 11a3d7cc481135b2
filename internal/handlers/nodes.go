package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/response"
)

// NodeHandler exposes the folder/link tree.
type NodeHandler struct {
	svc *services.NodeService
}

// NewNodeHandler constructs a NodeHandler.
func NewNodeHandler(svc *services.NodeService) (*NodeHandler, error) {
	if svc == nil {
		return nil, errors.New("node handler: service is required")
	}
	return &NodeHandler{svc: svc}, nil
}

type createNodeRequest struct {
	ParentID  *uint   `json:"parent_id"`
	Code      string  `json:"code" validate:"omitempty,max=255"`
	Name      string  `json:"name" validate:"required,max=200"`
	NodeType  string  `json:"node_type" validate:"required,oneof=folder link"`
	Icon      *string `json:"icon" validate:"omitempty,max=255,filename"`
	URL       *string `json:"url" validate:"omitempty,max=2048"`
	SortOrder int     `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

type moveNodeRequest struct {
	NewParentID *uint `json:"new_parent_id"`
}

type reorderRequest struct {
	Items []services.ReorderItem `json:"items" validate:"required,dive"`
}

// ListRoots handles GET /api/nodes.
func (h *NodeHandler) ListRoots(c *gin.Context) {
	nodes, err := h.svc.ListRoots(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, nodes)
}

// Tree handles GET /api/nodes/tree, optionally scoped by ?parent_id=.
func (h *NodeHandler) Tree(c *gin.Context) {
	parentID, ok := optionalIDQuery(c, "parent_id")
	if !ok {
		return
	}

	ctx := requestContext(c)
	if parentID == nil {
		tree, err := h.svc.Tree(ctx)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, tree)
		return
	}

	if _, err := h.svc.Get(ctx, *parentID); err != nil {
		response.Error(c, err)
		return
	}
	tree, err := h.svc.Subtree(ctx, *parentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tree)
}

// Get handles GET /api/nodes/:id.
func (h *NodeHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	node, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, node)
}

// Children handles GET /api/nodes/:id/children.
func (h *NodeHandler) Children(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	children, err := h.svc.Children(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, children)
}

// GetByCode handles GET /api/nodes/code/:code.
func (h *NodeHandler) GetByCode(c *gin.Context) {
	detail, err := h.svc.GetByCode(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// Create handles POST /api/nodes.
func (h *NodeHandler) Create(c *gin.Context) {
	var req createNodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	node, err := h.svc.Create(requestContext(c), services.CreateNodeInput{
		ParentID:  req.ParentID,
		Code:      req.Code,
		Name:      req.Name,
		NodeType:  req.NodeType,
		Icon:      req.Icon,
		URL:       req.URL,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, node)
}

// Update handles PUT /api/nodes/:id. Only fields present in the body change.
func (h *NodeHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.UpdateNodeInput
	if !bindAndValidate(c, &input) {
		return
	}

	node, err := h.svc.Update(requestContext(c), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, node)
}

// Delete handles DELETE /api/nodes/:id, removing the whole subtree.
func (h *NodeHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Node deleted"})
}

// Move handles PUT /api/nodes/:id/move.
func (h *NodeHandler) Move(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req moveNodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	code, err := h.svc.Move(requestContext(c), id, req.NewParentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Node moved", "new_code": code})
}

// Reorder handles PUT /api/nodes/reorder.
func (h *NodeHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Reorder(requestContext(c), req.Items); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Nodes reordered", "count": len(req.Items)})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/response"
)

// AuthLinkHandler exposes region-grouped authentication links.
type AuthLinkHandler struct {
	svc *services.AuthLinkService
}

// NewAuthLinkHandler constructs an AuthLinkHandler.
func NewAuthLinkHandler(svc *services.AuthLinkService) (*AuthLinkHandler, error) {
	if svc == nil {
		return nil, errors.New("auth link handler: service is required")
	}
	return &AuthLinkHandler{svc: svc}, nil
}

type createAuthLinkRequest struct {
	Region    string `json:"region" validate:"required,max=100"`
	Name      string `json:"name" validate:"required,max=200"`
	URL       string `json:"url" validate:"required,max=2048"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

// ListGrouped handles GET /api/auth-links.
func (h *AuthLinkHandler) ListGrouped(c *gin.Context) {
	groups, err := h.svc.ListGrouped(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, groups)
}

// ListAll handles GET /api/auth-links/all.
func (h *AuthLinkHandler) ListAll(c *gin.Context) {
	links, err := h.svc.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, links)
}

// Regions handles GET /api/auth-links/regions/list.
func (h *AuthLinkHandler) Regions(c *gin.Context) {
	regions, err := h.svc.Regions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, regions)
}

// Get handles GET /api/auth-links/:id.
func (h *AuthLinkHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	link, err := h.svc.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, link)
}

// Create handles POST /api/auth-links.
func (h *AuthLinkHandler) Create(c *gin.Context) {
	var req createAuthLinkRequest
	if !bindAndValidate(c, &req) {
		return
	}
	link, err := h.svc.Create(requestContext(c), services.AuthLinkInput{
		Region:    req.Region,
		Name:      req.Name,
		URL:       req.URL,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, link)
}

// Update handles PUT /api/auth-links/:id.
func (h *AuthLinkHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch services.AuthLinkPatch
	if !bindAndValidate(c, &patch) {
		return
	}
	link, err := h.svc.Update(requestContext(c), id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, link)
}

// Delete handles DELETE /api/auth-links/:id.
func (h *AuthLinkHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Auth link deleted"})
}

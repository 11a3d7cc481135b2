package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/services"
	appErrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/response"
)

// IconHandler manages icon files.
type IconHandler struct {
	svc *services.IconService
}

// NewIconHandler constructs an IconHandler.
func NewIconHandler(svc *services.IconService) (*IconHandler, error) {
	if svc == nil {
		return nil, errors.New("icon handler: service is required")
	}
	return &IconHandler{svc: svc}, nil
}

// List handles GET /api/icons.
func (h *IconHandler) List(c *gin.Context) {
	icons, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, icons)
}

// Upload handles POST /api/icons with a multipart "file" field.
func (h *IconHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unable to read upload"))
		return
	}
	defer file.Close()

	info, err := h.svc.Upload(requestContext(c), header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, info)
}

// Delete handles DELETE /api/icons/:filename.
func (h *IconHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), c.Param("filename")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Icon deleted"})
}

// Rename handles PUT /api/icons/:filename?new_name=.
func (h *IconHandler) Rename(c *gin.Context) {
	newName := strings.TrimSpace(c.Query("new_name"))
	if newName == "" {
		response.Error(c, appErrors.NewBadRequest("new_name is required"))
		return
	}

	updated, err := h.svc.Rename(requestContext(c), c.Param("filename"), newName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":       "Icon renamed",
		"new_name":      newName,
		"updated_nodes": updated,
	})
}

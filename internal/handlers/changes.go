package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/services"
	appErrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/response"
)

// ChangeLogHandler lists recorded mutations.
type ChangeLogHandler struct {
	svc *services.ChangeLogService
}

// NewChangeLogHandler constructs a ChangeLogHandler.
func NewChangeLogHandler(svc *services.ChangeLogService) (*ChangeLogHandler, error) {
	if svc == nil {
		return nil, errors.New("change log handler: service is required")
	}
	return &ChangeLogHandler{svc: svc}, nil
}

// List handles GET /api/changes?entity=&entity_id=&since=&limit=.
func (h *ChangeLogHandler) List(c *gin.Context) {
	filter := services.ChangeFilter{
		Entity:   c.Query("entity"),
		EntityID: c.Query("entity_id"),
		Limit:    parseIntQuery(c, "limit", 0),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("since must be an RFC3339 timestamp"))
			return
		}
		filter.Since = &since
	}

	entries, err := h.svc.List(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{Total: len(entries)})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/response"
)

// SearchHandler serves node name searches.
type SearchHandler struct {
	svc *services.SearchService
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(svc *services.SearchService) (*SearchHandler, error) {
	if svc == nil {
		return nil, errors.New("search handler: service is required")
	}
	return &SearchHandler{svc: svc}, nil
}

// Search handles GET /api/search?q=&limit=. A blank query yields an empty list.
func (h *SearchHandler) Search(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	results, err := h.svc.Search(requestContext(c), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, results, &response.Meta{Total: len(results), Limit: h.svc.EffectiveLimit(limit)})
}

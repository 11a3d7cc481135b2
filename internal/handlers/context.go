package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/tooltable/pkg/errors"
	"github.com/charlesng35/tooltable/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// idParam parses a positive integer path parameter, writing a 400 when it is malformed.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid "+name+" "+strconv.Quote(raw)))
		return 0, false
	}
	return uint(id), true
}

// optionalIDQuery parses an optional positive integer query value.
func optionalIDQuery(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid "+name+" "+strconv.Quote(raw)))
		return nil, false
	}
	value := uint(id)
	return &value, true
}

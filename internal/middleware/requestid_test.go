package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/internal/auditctx"
)

func TestRequestIDPropagatesOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen auditctx.Origin
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		origin, ok := auditctx.FromContext(c.Request.Context())
		require.True(t, ok)
		seen = origin
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	require.Equal(t, "abc-123", seen.RequestID)
	require.Equal(t, "api", seen.Source)
}

func TestRequestIDGeneratesWhenMissingOrOversized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, inbound := range []string{"", strings.Repeat("x", maxRequestIDs+1)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if inbound != "" {
			req.Header.Set(RequestIDHeader, inbound)
		}
		r.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		require.NoError(t, err)
	}
}

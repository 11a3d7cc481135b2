package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/internal/handlers/testutil"
	"github.com/charlesng35/tooltable/internal/middleware"
	"github.com/charlesng35/tooltable/internal/models"
)

func TestChangeLogRecordsMutations(t *testing.T) {
	env := testutil.NewEnv(t)

	node := createNode(t, env, map[string]any{"name": "Wiki", "node_type": "link", "url": "https://wiki.example.com"})
	testutil.MustSucceed[any](t, env.Request(http.MethodPut, fmt.Sprintf("/api/nodes/%d", node.ID), `{"name":"Team Wiki"}`), http.StatusOK, nil)
	testutil.MustSucceed[any](t, env.Request(http.MethodPost, "/api/auth-links", map[string]any{"region": "east", "name": "vpn", "url": "https://vpn.example.com"}), http.StatusCreated, nil)

	var entries []models.ChangeLog
	resp := testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/changes", nil), http.StatusOK, &entries)
	require.Len(t, entries, 3)
	require.Equal(t, 3, resp.Meta.Total)
	for _, entry := range entries {
		require.NotEmpty(t, entry.RequestID)
	}

	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/changes?entity=node&entity_id="+fmt.Sprint(node.ID), nil), http.StatusOK, &entries)
	require.Len(t, entries, 2)
	require.Equal(t, "update", entries[0].Action)
	require.Equal(t, "create", entries[1].Action)

	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/changes?limit=1", nil), http.StatusOK, &entries)
	require.Len(t, entries, 1)

	future := url.QueryEscape(time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/changes?since="+future, nil), http.StatusOK, &entries)
	require.Empty(t, entries)

	testutil.MustFail(t, env.Request(http.MethodGet, "/api/changes?since=yesterday", nil), http.StatusBadRequest, "BAD_REQUEST")
}

func TestChangeLogKeepsCallerRequestID(t *testing.T) {
	env := testutil.NewEnv(t)

	body := `{"name":"Docs","node_type":"folder"}`
	req, err := http.NewRequest(http.MethodPost, "/api/nodes", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "trace-abc")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "trace-abc", w.Header().Get(middleware.RequestIDHeader))

	var entries []models.ChangeLog
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/changes?entity=node", nil), http.StatusOK, &entries)
	require.Len(t, entries, 1)
	require.Equal(t, "trace-abc", entries[0].RequestID)
}

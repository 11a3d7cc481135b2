package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/internal/handlers/testutil"
	"github.com/charlesng35/tooltable/internal/models"
	"github.com/charlesng35/tooltable/internal/services"
)

func createNode(t *testing.T, env *testutil.Env, payload map[string]any) models.Node {
	t.Helper()
	var node models.Node
	testutil.MustSucceed(t, env.Request(http.MethodPost, "/api/nodes", payload), http.StatusCreated, &node)
	return node
}

func TestNodeLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)

	tools := createNode(t, env, map[string]any{"name": "Tools", "node_type": "folder"})
	require.Equal(t, "1", tools.Code)
	servers := createNode(t, env, map[string]any{"name": "Servers", "node_type": "folder", "parent_id": tools.ID})
	require.Equal(t, "1-1", servers.Code)
	network := createNode(t, env, map[string]any{"name": "Network", "node_type": "folder"})
	require.Equal(t, "2", network.Code)
	grafana := createNode(t, env, map[string]any{
		"name":      "Grafana",
		"node_type": "link",
		"parent_id": servers.ID,
		"url":       "https://grafana.example.com",
	})
	require.Equal(t, "1-1-1", grafana.Code)

	var roots []models.Node
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/nodes", nil), http.StatusOK, &roots)
	require.Len(t, roots, 2)

	var fetched models.Node
	testutil.MustSucceed(t, env.Request(http.MethodGet, fmt.Sprintf("/api/nodes/%d", servers.ID), nil), http.StatusOK, &fetched)
	require.Equal(t, "Servers", fetched.Name)

	var children []models.Node
	testutil.MustSucceed(t, env.Request(http.MethodGet, fmt.Sprintf("/api/nodes/%d/children", servers.ID), nil), http.StatusOK, &children)
	require.Len(t, children, 1)
	require.Equal(t, "Grafana", children[0].Name)

	var detail struct {
		Code  string        `json:"code"`
		Items []models.Node `json:"items"`
	}
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/nodes/code/1-1", nil), http.StatusOK, &detail)
	require.Equal(t, "1-1", detail.Code)
	require.Len(t, detail.Items, 1)

	var updated models.Node
	testutil.MustSucceed(t, env.Request(http.MethodPut, fmt.Sprintf("/api/nodes/%d", grafana.ID), `{"name":"Grafana Prod","url":"https://grafana.prod.example.com"}`), http.StatusOK, &updated)
	require.Equal(t, "Grafana Prod", updated.Name)
	require.Equal(t, "https://grafana.prod.example.com", *updated.URL)

	var tree []services.NodeTree
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/nodes/tree", nil), http.StatusOK, &tree)
	require.Len(t, tree, 2)
	require.Len(t, tree[0].Children, 1)
	require.Len(t, tree[0].Children[0].Children, 1)

	testutil.MustSucceed[any](t, env.Request(http.MethodDelete, fmt.Sprintf("/api/nodes/%d", tools.ID), nil), http.StatusOK, nil)
	testutil.MustFail(t, env.Request(http.MethodGet, fmt.Sprintf("/api/nodes/%d", grafana.ID), nil), http.StatusNotFound, "NOT_FOUND")
}

func TestNodeSubtreeByParent(t *testing.T) {
	env := testutil.NewEnv(t)

	tools := createNode(t, env, map[string]any{"name": "Tools", "node_type": "folder"})
	servers := createNode(t, env, map[string]any{"name": "Servers", "node_type": "folder", "parent_id": tools.ID})
	createNode(t, env, map[string]any{"name": "Zabbix", "node_type": "link", "parent_id": servers.ID, "url": "https://zabbix.example.com"})
	createNode(t, env, map[string]any{"name": "Other", "node_type": "folder"})

	var subtree []services.NodeTree
	testutil.MustSucceed(t, env.Request(http.MethodGet, fmt.Sprintf("/api/nodes/tree?parent_id=%d", tools.ID), nil), http.StatusOK, &subtree)
	require.Len(t, subtree, 1)
	require.Equal(t, "Servers", subtree[0].Name)
	require.Len(t, subtree[0].Children, 1)

	testutil.MustFail(t, env.Request(http.MethodGet, "/api/nodes/tree?parent_id=999", nil), http.StatusNotFound, "NOT_FOUND")
	testutil.MustFail(t, env.Request(http.MethodGet, "/api/nodes/tree?parent_id=abc", nil), http.StatusBadRequest, "BAD_REQUEST")
}

func TestNodeCreateValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", map[string]any{"node_type": "folder"}), http.StatusBadRequest, "BAD_REQUEST")
	require.Contains(t, resp.Error.Message, "name is required")

	resp = testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", map[string]any{"name": "X", "node_type": "widget"}), http.StatusBadRequest, "BAD_REQUEST")
	require.Contains(t, resp.Error.Message, "node type must be one of")

	resp = testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", map[string]any{"name": "Wiki", "node_type": "link"}), http.StatusBadRequest, "BAD_REQUEST")
	require.Equal(t, "Link type requires URL", resp.Error.Message)

	testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", `{"name":`), http.StatusBadRequest, "BAD_REQUEST")
	testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", map[string]any{"name": "Orphan", "node_type": "folder", "parent_id": 42}), http.StatusNotFound, "NOT_FOUND")

	createNode(t, env, map[string]any{"name": "First", "node_type": "folder", "code": "7"})
	testutil.MustFail(t, env.Request(http.MethodPost, "/api/nodes", map[string]any{"name": "Dup", "node_type": "folder", "code": "7"}), http.StatusConflict, "CONFLICT")

	testutil.MustFail(t, env.Request(http.MethodGet, "/api/nodes/0", nil), http.StatusBadRequest, "BAD_REQUEST")
}

func TestNodeMoveAndReorder(t *testing.T) {
	env := testutil.NewEnv(t)

	a := createNode(t, env, map[string]any{"name": "A", "node_type": "folder"})
	b := createNode(t, env, map[string]any{"name": "B", "node_type": "folder"})
	child := createNode(t, env, map[string]any{"name": "Child", "node_type": "folder", "parent_id": a.ID})
	leaf := createNode(t, env, map[string]any{"name": "Leaf", "node_type": "link", "parent_id": child.ID, "url": "https://leaf.example.com"})

	var moved struct {
		NewCode string `json:"new_code"`
	}
	testutil.MustSucceed(t, env.Request(http.MethodPut, fmt.Sprintf("/api/nodes/%d/move", child.ID), map[string]any{"new_parent_id": b.ID}), http.StatusOK, &moved)
	require.Equal(t, "2-1", moved.NewCode)

	var reloaded models.Node
	testutil.MustSucceed(t, env.Request(http.MethodGet, fmt.Sprintf("/api/nodes/%d", leaf.ID), nil), http.StatusOK, &reloaded)
	require.Equal(t, "2-1-1", reloaded.Code)

	testutil.MustFail(t, env.Request(http.MethodPut, fmt.Sprintf("/api/nodes/%d/move", b.ID), map[string]any{"new_parent_id": child.ID}), http.StatusBadRequest, "BAD_REQUEST")

	testutil.MustSucceed[any](t, env.Request(http.MethodPut, "/api/nodes/reorder", map[string]any{
		"items": []map[string]any{{"id": b.ID, "sort_order": 0}, {"id": a.ID, "sort_order": 1}},
	}), http.StatusOK, nil)

	var roots []models.Node
	testutil.MustSucceed(t, env.Request(http.MethodGet, "/api/nodes", nil), http.StatusOK, &roots)
	require.Equal(t, "B", roots[0].Name)
	require.Equal(t, "A", roots[1].Name)

	testutil.MustFail(t, env.Request(http.MethodPut, "/api/nodes/reorder", map[string]any{
		"items": []map[string]any{{"id": 999, "sort_order": 0}},
	}), http.StatusNotFound, "NOT_FOUND")
}

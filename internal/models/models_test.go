package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNodeJSONOmitsChildrenRelation(t *testing.T) {
	url := "https://intranet.example.com"
	node := Node{
		ID:        3,
		Code:      "1-2",
		Name:      "Wiki",
		NodeType:  NodeTypeLink,
		URL:       &url,
		IsActive:  true,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Children:  []Node{{ID: 9}},
	}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotContains(t, decoded, "children")
	require.Equal(t, "1-2", decoded["code"])
	require.Equal(t, url, decoded["url"])
	require.Nil(t, decoded["parent_id"])
}

func TestValidNodeType(t *testing.T) {
	require.True(t, ValidNodeType("folder"))
	require.True(t, ValidNodeType("link"))
	require.False(t, ValidNodeType("Folder"))
	require.False(t, ValidNodeType(""))

	require.True(t, Node{NodeType: NodeTypeLink}.IsLink())
	require.False(t, Node{NodeType: NodeTypeFolder}.IsLink())
}

func TestTableNames(t *testing.T) {
	require.Equal(t, "nodes", Node{}.TableName())
	require.Equal(t, "auth_links", AuthLink{}.TableName())
}

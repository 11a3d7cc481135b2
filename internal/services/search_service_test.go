package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/pkg/optional"
)

func TestSearchBlankQueryReturnsEmpty(t *testing.T) {
	svc := newTestServices(t)
	mustCreateFolder(t, svc.nodes, nil, "Tools")

	for _, q := range []string{"", "   "} {
		results, err := svc.search.Search(context.Background(), q, 10)
		require.NoError(t, err)
		require.NotNil(t, results)
		require.Empty(t, results)
	}
}

func TestSearchMatchesCaseInsensitiveWithPaths(t *testing.T) {
	svc := newTestServices(t)
	tools := mustCreateFolder(t, svc.nodes, nil, "Tools")
	servers := mustCreateFolder(t, svc.nodes, &tools.ID, "Server Room")
	mustCreateLink(t, svc.nodes, &servers.ID, "Zabbix Server", "https://zabbix.example.com")
	mustCreateLink(t, svc.nodes, &tools.ID, "Mail server", "https://mail.example.com")

	results, err := svc.search.Search(context.Background(), "SERVER", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// links first, then by name
	require.Equal(t, "link", results[0].NodeType)
	require.Equal(t, "Mail server", results[0].Name)
	require.Equal(t, "Tools > Mail server", results[0].Path)
	require.Equal(t, "Zabbix Server", results[1].Name)
	require.Equal(t, "Tools > Server Room > Zabbix Server", results[1].Path)
	require.Equal(t, "folder", results[2].NodeType)
	require.Equal(t, "1-1", results[2].Code)
}

func TestSearchFindsNonASCIINames(t *testing.T) {
	svc := newTestServices(t)
	mustCreateFolder(t, svc.nodes, nil, "École Tools")
	mustCreateLink(t, svc.nodes, nil, "Übersicht", "https://uebersicht.example.com")

	for _, q := range []string{"École", "cole", "TOOLS", "École tools"} {
		results, err := svc.search.Search(context.Background(), q, 10)
		require.NoError(t, err)
		require.Len(t, results, 1, q)
		require.Equal(t, "École Tools", results[0].Name, q)
	}

	results, err := svc.search.Search(context.Background(), "Übersicht", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "link", results[0].NodeType)
}

func TestSearchSkipsInactiveNodes(t *testing.T) {
	svc := newTestServices(t)
	node := mustCreateLink(t, svc.nodes, nil, "Secret Console", "https://console.example.com")
	mustCreateFolder(t, svc.nodes, nil, "Public")
	_, err := svc.nodes.Update(context.Background(), node.ID, UpdateNodeInput{IsActive: optional.Of(false)})
	require.NoError(t, err)

	results, err := svc.search.Search(context.Background(), "console", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	svc := newTestServices(t)
	mustCreateFolder(t, svc.nodes, nil, "100% uptime")
	mustCreateFolder(t, svc.nodes, nil, "1000 nodes")
	mustCreateFolder(t, svc.nodes, nil, "snake_case")
	mustCreateFolder(t, svc.nodes, nil, "snakeXcase")

	results, err := svc.search.Search(context.Background(), "100%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "100% uptime", results[0].Name)

	results, err = svc.search.Search(context.Background(), "e_c", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "snake_case", results[0].Name)
}

func TestSearchClampsLimit(t *testing.T) {
	svc := newTestServices(t)
	for i := 0; i < 6; i++ {
		mustCreateFolder(t, svc.nodes, nil, fmt.Sprintf("node %d", i))
	}

	limited, err := NewSearchService(svc.db, 2, 4)
	require.NoError(t, err)

	results, err := limited.Search(context.Background(), "node", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = limited.Search(context.Background(), "node", 100)
	require.NoError(t, err)
	require.Len(t, results, 4)

	results, err = limited.Search(context.Background(), "node", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestNewSearchServiceDefaults(t *testing.T) {
	svc := newTestServices(t)
	require.Equal(t, DefaultSearchLimit, svc.search.defaultLimit)
	require.Equal(t, MaxSearchLimit, svc.search.maxLimit)

	_, err := NewSearchService(nil, 0, 0)
	require.Error(t, err)
}

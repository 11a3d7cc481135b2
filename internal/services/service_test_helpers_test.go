package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/database/testutil"
	"github.com/charlesng35/tooltable/internal/models"
	apperrors "github.com/charlesng35/tooltable/pkg/errors"
)

type testServices struct {
	db      *gorm.DB
	nodes   *NodeService
	search  *SearchService
	links   *AuthLinkService
	changes *ChangeLogService
}

func newTestServices(t *testing.T, opts ...NodeServiceOption) testServices {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	changes, err := NewChangeLogService(db)
	require.NoError(t, err)
	nodes, err := NewNodeService(db, changes, opts...)
	require.NoError(t, err)
	search, err := NewSearchService(db, 0, 0)
	require.NoError(t, err)
	links, err := NewAuthLinkService(db, changes)
	require.NoError(t, err)

	return testServices{db: db, nodes: nodes, search: search, links: links, changes: changes}
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func uintPtr(v uint) *uint { return &v }

func mustCreateFolder(t *testing.T, svc *NodeService, parentID *uint, name string) *models.Node {
	t.Helper()
	node, err := svc.Create(context.Background(), CreateNodeInput{
		ParentID: parentID,
		Name:     name,
		NodeType: models.NodeTypeFolder,
	})
	require.NoError(t, err)
	return node
}

func mustCreateLink(t *testing.T, svc *NodeService, parentID *uint, name, url string) *models.Node {
	t.Helper()
	node, err := svc.Create(context.Background(), CreateNodeInput{
		ParentID: parentID,
		Name:     name,
		NodeType: models.NodeTypeLink,
		URL:      strPtr(url),
	})
	require.NoError(t, err)
	return node
}

// insertRaw stores a node as-is, bypassing code generation.
func insertRaw(t *testing.T, db *gorm.DB, node models.Node) *models.Node {
	t.Helper()
	if node.NodeType == "" {
		node.NodeType = models.NodeTypeFolder
	}
	require.NoError(t, db.Create(&node).Error)
	return &node
}

func requireAppStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apperrors.FromError(err).StatusCode, "unexpected error: %v", err)
}

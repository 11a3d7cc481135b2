package importer

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/database/testutil"
	"github.com/charlesng35/tooltable/internal/models"
	"github.com/charlesng35/tooltable/internal/services"
)

const rootsYAML = `
roots:
  - code: "1"
    name: Group Services
  - code: "3"
    name: NetOps Tools
`

const netopsYAML = `
items:
  - name: Monitoring
    icon: monitor.png
    file: 3-1.yaml
  - name: Wiki
    icon: wiki.png
    url: https://wiki.example.com
`

const monitoringYAML = `
items:
  - name: Grafana
    url: https://grafana.example.com
  - name: Broken
  - name: Zabbix
    url: https://zabbix.example.com
`

const orphanYAML = `
items:
  - name: Deep link
    url: https://deep.example.com
`

const authYAML = `
sections:
  - region: east
    items:
      - name: gateway-east
        url: https://east.example.com/login
      - name: portal-east
        url: https://portal-east.example.com
  - region: west
    items:
      - name: gateway-west
        url: https://west.example.com/login
`

type fixture struct {
	db       *gorm.DB
	fs       afero.Fs
	changes  *services.ChangeLogService
	importer *Importer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/"+name, []byte(content), 0o644))
	}

	changes, err := services.NewChangeLogService(db)
	require.NoError(t, err)
	im, err := New(db, fs, changes)
	require.NoError(t, err)
	im.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	return &fixture{db: db, fs: fs, changes: changes, importer: im}
}

func (f *fixture) node(t *testing.T, code string) models.Node {
	t.Helper()
	var node models.Node
	require.NoError(t, f.db.Where("code = ?", code).Take(&node).Error)
	return node
}

func defaultFiles() map[string]string {
	return map[string]string{
		RootsFile:     rootsYAML,
		"3.yaml":      netopsYAML,
		"3-1.yaml":    monitoringYAML,
		"5-2.yaml":    orphanYAML,
		AuthLinksFile: authYAML,
		"notes.txt":   "ignored",
		"readme.yaml": "ignored: true",
	}
}

func TestImportBuildsTree(t *testing.T) {
	f := newFixture(t, defaultFiles())

	result, err := f.importer.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, 3, result.Files)
	require.Equal(t, 3, result.Folders) // two roots plus Monitoring
	require.Equal(t, 2, result.Placeholders)
	require.Equal(t, 4, result.Links)
	require.Equal(t, 3, result.AuthLinks)
	require.Len(t, result.Skipped, 1)
	require.Contains(t, result.Skipped[0], "3-1.yaml: item 2")

	netops := f.node(t, "3")
	require.Equal(t, "NetOps Tools", netops.Name)
	require.Equal(t, 3, netops.SortOrder)

	monitoring := f.node(t, "3-1")
	require.Equal(t, models.NodeTypeFolder, monitoring.NodeType)
	require.Equal(t, netops.ID, *monitoring.ParentID)
	require.Equal(t, "monitor.png", *monitoring.Icon)

	wiki := f.node(t, "3-2")
	require.Equal(t, models.NodeTypeLink, wiki.NodeType)
	require.Equal(t, "https://wiki.example.com", *wiki.URL)

	zabbix := f.node(t, "3-1-3")
	require.Equal(t, "Zabbix", zabbix.Name)
	require.Equal(t, monitoring.ID, *zabbix.ParentID)
	require.Equal(t, 2, zabbix.SortOrder)

	placeholder := f.node(t, "5-2")
	require.Equal(t, "5-2", placeholder.Name)
	require.Equal(t, f.node(t, "5").ID, *placeholder.ParentID)
	require.Equal(t, "https://deep.example.com", *f.node(t, "5-2-1").URL)

	var links []models.AuthLink
	require.NoError(t, f.db.Order("region, sort_order").Find(&links).Error)
	require.Len(t, links, 3)
	require.Equal(t, "portal-east", links[1].Name)
	require.Equal(t, 1, links[1].SortOrder)

	last, err := LastRun(context.Background(), f.db)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), last)

	entries, err := f.changes.List(context.Background(), services.ChangeFilter{Entity: models.ChangeEntityImport})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotEmpty(t, entries[0].RequestID)
}

func TestImportIsRepeatable(t *testing.T) {
	f := newFixture(t, defaultFiles())

	_, err := f.importer.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(f.fs, "/3.yaml", []byte(`
items:
  - name: Monitoring Stack
    file: 3-1.yaml
`), 0o644))

	_, err = f.importer.Run(context.Background(), Options{})
	require.NoError(t, err)

	var nodes, links int64
	require.NoError(t, f.db.Model(&models.Node{}).Count(&nodes).Error)
	require.NoError(t, f.db.Model(&models.AuthLink{}).Count(&links).Error)
	require.EqualValues(t, 9, nodes)
	require.EqualValues(t, 3, links)
	require.Equal(t, "Monitoring Stack", f.node(t, "3-1").Name)
}

func TestImportResetClearsExistingData(t *testing.T) {
	f := newFixture(t, map[string]string{AuthLinksFile: authYAML})

	stale := models.Node{Code: "9", Name: "Stale", NodeType: models.NodeTypeFolder, IsActive: true}
	require.NoError(t, f.db.Create(&stale).Error)
	require.NoError(t, f.db.Create(&models.AuthLink{Region: "old", Name: "old", URL: "https://old", IsActive: true}).Error)

	result, err := f.importer.Run(context.Background(), Options{Reset: true})
	require.NoError(t, err)
	require.Equal(t, 3, result.AuthLinks)

	var nodes int64
	require.NoError(t, f.db.Model(&models.Node{}).Count(&nodes).Error)
	require.Zero(t, nodes)

	var regions []string
	require.NoError(t, f.db.Model(&models.AuthLink{}).Distinct().Order("region").Pluck("region", &regions).Error)
	require.Equal(t, []string{"east", "west"}, regions)
}

func TestImportSkipsInvalidYAML(t *testing.T) {
	f := newFixture(t, map[string]string{
		"2.yaml": "items: [unclosed",
		"4.yaml": "items:\n  - name: Ok\n    url: https://ok.example.com\n",
	})

	result, err := f.importer.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Files)
	require.Equal(t, 1, result.Links)
	require.Len(t, result.Skipped, 1)
	require.Contains(t, result.Skipped[0], "2.yaml")

	// the placeholder for the unreadable file still exists
	require.Equal(t, "2", f.node(t, "2").Name)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, afero.NewMemMapFs(), nil)
	require.Error(t, err)

	db := testutil.MustOpenTestDB(t)
	_, err = New(db, nil, nil)
	require.Error(t, err)
}

func TestLeadingCode(t *testing.T) {
	require.Equal(t, "3-2-1", leadingCode("3-2-1.yaml"))
	require.Equal(t, "12", leadingCode(" 12_extra"))
	require.Empty(t, leadingCode("readme"))
	require.Empty(t, leadingCode("-1"))
}

// Package importer loads the legacy YAML resource directory into the node and
// auth link tables.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/auditctx"
	"github.com/charlesng35/tooltable/internal/database"
	"github.com/charlesng35/tooltable/internal/models"
	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/logger"
	"github.com/charlesng35/tooltable/pkg/metrics"
)

const (
	RootsFile     = "roots.yaml"
	AuthLinksFile = "AccessInternetAuth.yaml"

	// LastRunSetting stores the RFC3339 timestamp of the last successful import.
	LastRunSetting = "import.last_run"
)

var codePrefix = regexp.MustCompile(`^(\d+(?:-\d+)*)`)

// Options controls a single import run.
type Options struct {
	// Reset clears nodes and auth links before importing.
	Reset bool
}

// Result counts what an import wrote.
type Result struct {
	Folders      int      `json:"folders"`
	Placeholders int      `json:"placeholders"`
	Links        int      `json:"links"`
	AuthLinks    int      `json:"auth_links"`
	Files        int      `json:"files"`
	Skipped      []string `json:"skipped,omitempty"`
}

type rootsDocument struct {
	Roots []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"roots"`
}

type itemsDocument struct {
	Items []struct {
		Name string `yaml:"name"`
		Icon string `yaml:"icon"`
		URL  string `yaml:"url"`
		File string `yaml:"file"`
	} `yaml:"items"`
}

type authDocument struct {
	Sections []struct {
		Region string `yaml:"region"`
		Items  []struct {
			Name string `yaml:"name"`
			URL  string `yaml:"url"`
		} `yaml:"items"`
	} `yaml:"sections"`
}

type treeFile struct {
	name string
	code string
}

// Importer reads YAML documents from a filesystem rooted at the resource
// directory.
type Importer struct {
	db      *gorm.DB
	fs      afero.Fs
	changes *services.ChangeLogService
	log     *zap.Logger
	now     func() time.Time
}

// New constructs an Importer. changes may be nil to skip the change log entry.
func New(db *gorm.DB, fs afero.Fs, changes *services.ChangeLogService) (*Importer, error) {
	if db == nil {
		return nil, errors.New("importer: db is required")
	}
	if fs == nil {
		return nil, errors.New("importer: filesystem is required")
	}
	return &Importer{
		db:      db,
		fs:      fs,
		changes: changes,
		log:     logger.WithModule("importer"),
		now:     time.Now,
	}, nil
}

// Run imports roots, tree files and auth links in one transaction.
func (im *Importer) Run(ctx context.Context, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = auditctx.WithOrigin(ctx, auditctx.Origin{RequestID: uuid.NewString(), Source: "importer"})

	files, err := im.treeFiles()
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := reset(tx); err != nil {
				return err
			}
		}
		if err := im.importRoots(tx, &result); err != nil {
			return err
		}
		for _, file := range files {
			if err := im.importTreeFile(tx, file, &result); err != nil {
				return err
			}
		}
		if err := im.importAuthLinks(tx, &result); err != nil {
			return err
		}
		return database.UpsertSystemSetting(ctx, tx, LastRunSetting, im.now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return Result{}, fmt.Errorf("importer: %w", err)
	}

	metrics.NodeMutations.WithLabelValues("import").Add(float64(result.Folders + result.Placeholders + result.Links))
	if im.changes != nil {
		if err := im.changes.Record(ctx, services.ChangeEntry{
			Entity: models.ChangeEntityImport,
			Action: "import",
			Changes: map[string]any{
				"reset":        opts.Reset,
				"folders":      result.Folders,
				"placeholders": result.Placeholders,
				"links":        result.Links,
				"auth_links":   result.AuthLinks,
				"files":        result.Files,
			},
		}); err != nil {
			im.log.Warn("change log write failed", zap.Error(err))
		}
	}

	im.log.Info("import finished",
		zap.Bool("reset", opts.Reset),
		zap.Int("files", result.Files),
		zap.Int("folders", result.Folders),
		zap.Int("placeholders", result.Placeholders),
		zap.Int("links", result.Links),
		zap.Int("auth_links", result.AuthLinks),
		zap.Strings("skipped", result.Skipped),
	)
	return result, nil
}

// LastRun returns when the last import committed, or the zero time.
func LastRun(ctx context.Context, db *gorm.DB) (time.Time, error) {
	raw, err := database.GetSystemSetting(ctx, db, LastRunSetting)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}

func reset(tx *gorm.DB) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Node{}).Error; err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AuthLink{}).Error; err != nil {
		return fmt.Errorf("clear auth links: %w", err)
	}
	return nil
}

// treeFiles lists <code>.yaml documents parents first: by depth, then code.
func (im *Importer) treeFiles() ([]treeFile, error) {
	entries, err := afero.ReadDir(im.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("importer: read resource dir: %w", err)
	}

	var files []treeFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yaml" || name == AuthLinksFile || name == RootsFile {
			continue
		}
		code := leadingCode(strings.TrimSuffix(name, ".yaml"))
		if code == "" {
			continue
		}
		files = append(files, treeFile{name: name, code: code})
	}

	sort.Slice(files, func(i, j int) bool {
		di, dj := strings.Count(files[i].code, "-"), strings.Count(files[j].code, "-")
		if di != dj {
			return di < dj
		}
		return files[i].code < files[j].code
	})
	return files, nil
}

func (im *Importer) importRoots(tx *gorm.DB, result *Result) error {
	var doc rootsDocument
	found, err := im.decode(RootsFile, &doc, result)
	if err != nil || !found {
		return err
	}

	for _, root := range doc.Roots {
		code := leadingCode(root.Code)
		if code == "" || strings.Contains(code, "-") {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: invalid root code %q", RootsFile, root.Code))
			continue
		}
		order, _ := strconv.Atoi(code)
		node := models.Node{Code: code, Name: strings.TrimSpace(root.Name), NodeType: models.NodeTypeFolder, SortOrder: order, IsActive: true}
		if node.Name == "" {
			node.Name = code
		}
		if err := upsertNode(tx, &node); err != nil {
			return err
		}
		result.Folders++
	}
	return nil
}

func (im *Importer) importTreeFile(tx *gorm.DB, file treeFile, result *Result) error {
	parent, created, err := ensureFolder(tx, file.code)
	if err != nil {
		return err
	}
	result.Placeholders += created

	var doc itemsDocument
	found, err := im.decode(file.name, &doc, result)
	if err != nil || !found {
		return err
	}
	result.Files++

	for idx, item := range doc.Items {
		node := models.Node{
			ParentID:  &parent.ID,
			Name:      strings.TrimSpace(item.Name),
			Icon:      optionalText(item.Icon),
			SortOrder: idx,
			IsActive:  true,
		}

		if ref := strings.TrimSpace(item.File); ref != "" {
			node.NodeType = models.NodeTypeFolder
			node.Code = leadingCode(ref)
			if node.Code == "" {
				node.Code = fmt.Sprintf("%s-%d", file.code, idx+1)
			}
			if err := upsertNode(tx, &node); err != nil {
				return err
			}
			result.Folders++
			continue
		}

		if strings.TrimSpace(item.URL) == "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: item %d has neither url nor file", file.name, idx+1))
			continue
		}
		node.NodeType = models.NodeTypeLink
		node.Code = fmt.Sprintf("%s-%d", file.code, idx+1)
		node.URL = optionalText(item.URL)
		if err := upsertNode(tx, &node); err != nil {
			return err
		}
		result.Links++
	}
	return nil
}

func (im *Importer) importAuthLinks(tx *gorm.DB, result *Result) error {
	var doc authDocument
	found, err := im.decode(AuthLinksFile, &doc, result)
	if err != nil || !found {
		return err
	}

	for _, section := range doc.Sections {
		region := strings.TrimSpace(section.Region)
		if region == "" {
			result.Skipped = append(result.Skipped, AuthLinksFile+": section without region")
			continue
		}
		for idx, item := range section.Items {
			link := models.AuthLink{
				Region:    region,
				Name:      strings.TrimSpace(item.Name),
				URL:       strings.TrimSpace(item.URL),
				SortOrder: idx,
				IsActive:  true,
			}
			var existing models.AuthLink
			err := tx.Where("region = ? AND name = ?", link.Region, link.Name).Take(&existing).Error
			switch {
			case err == nil:
				err = tx.Model(&existing).Updates(map[string]any{"url": link.URL, "sort_order": link.SortOrder}).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				err = tx.Create(&link).Error
			}
			if err != nil {
				return fmt.Errorf("auth link %s/%s: %w", link.Region, link.Name, err)
			}
			result.AuthLinks++
		}
	}
	return nil
}

// decode reads name into dest. Missing files report found=false; unreadable
// YAML is recorded as skipped rather than failing the run.
func (im *Importer) decode(name string, dest any, result *Result) (bool, error) {
	data, err := afero.ReadFile(im.fs, "/"+name)
	if err != nil {
		exists, statErr := afero.Exists(im.fs, "/"+name)
		if statErr == nil && !exists {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		im.log.Warn("skipping unreadable yaml", zap.String("file", name), zap.Error(err))
		result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", name, err))
		return false, nil
	}
	return true, nil
}

// ensureFolder returns the node with code, creating it and any missing
// ancestors as folders named by their code.
func ensureFolder(tx *gorm.DB, code string) (*models.Node, int, error) {
	var node models.Node
	err := tx.Where("code = ?", code).Take(&node).Error
	if err == nil {
		return &node, 0, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, fmt.Errorf("load %s: %w", code, err)
	}

	created := 0
	var parentID *uint
	if cut := strings.LastIndex(code, "-"); cut > 0 {
		parent, n, err := ensureFolder(tx, code[:cut])
		if err != nil {
			return nil, 0, err
		}
		parentID = &parent.ID
		created += n
	}

	node = models.Node{ParentID: parentID, Code: code, Name: code, NodeType: models.NodeTypeFolder, IsActive: true}
	if err := tx.Create(&node).Error; err != nil {
		return nil, 0, fmt.Errorf("create folder %s: %w", code, err)
	}
	return &node, created + 1, nil
}

// upsertNode inserts node or refreshes the existing row with the same code.
func upsertNode(tx *gorm.DB, node *models.Node) error {
	var existing models.Node
	err := tx.Where("code = ?", node.Code).Take(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"name":       node.Name,
			"node_type":  node.NodeType,
			"icon":       node.Icon,
			"sort_order": node.SortOrder,
		}
		if node.NodeType == models.NodeTypeLink {
			updates["url"] = node.URL
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update %s: %w", node.Code, err)
		}
		node.ID = existing.ID
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(node).Error; err != nil {
			return fmt.Errorf("create %s: %w", node.Code, err)
		}
		return nil
	default:
		return fmt.Errorf("load %s: %w", node.Code, err)
	}
}

func leadingCode(s string) string {
	return codePrefix.FindString(strings.TrimSpace(s))
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

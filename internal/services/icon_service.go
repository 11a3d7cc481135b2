package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/models"
	apperrors "github.com/charlesng35/tooltable/pkg/errors"
)

// DefaultMaxIconBytes caps a single upload.
const DefaultMaxIconBytes int64 = 2 << 20

var allowedIconExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".svg":  true,
	".webp": true,
	".gif":  true,
}

// IconInfo describes a stored icon file.
type IconInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// IconService stores icon files on a filesystem rooted at the icon directory
// and keeps node icon references consistent with renames.
type IconService struct {
	fs       afero.Fs
	db       *gorm.DB
	changes  *ChangeLogService
	maxBytes int64
}

// NewIconService constructs an IconService. fs must be rooted at the icon
// directory, e.g. afero.NewBasePathFs(afero.NewOsFs(), dir).
func NewIconService(fs afero.Fs, db *gorm.DB, changes *ChangeLogService, maxBytes int64) (*IconService, error) {
	if fs == nil {
		return nil, errors.New("icon service: filesystem is required")
	}
	if db == nil {
		return nil, errors.New("icon service: db is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxIconBytes
	}
	return &IconService{fs: fs, db: db, changes: changes, maxBytes: maxBytes}, nil
}

// List returns icon files sorted by name.
func (s *IconService) List(ctx context.Context) ([]IconInfo, error) {
	entries, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		if os.IsNotExist(err) {
			return []IconInfo{}, nil
		}
		return nil, fmt.Errorf("icon service: list: %w", err)
	}

	icons := make([]IconInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !hasIconExtension(entry.Name()) {
			continue
		}
		icons = append(icons, IconInfo{
			Name:     entry.Name(),
			Size:     entry.Size(),
			Modified: entry.ModTime(),
		})
	}
	sort.Slice(icons, func(i, j int) bool { return icons[i].Name < icons[j].Name })
	return icons, nil
}

// Exists reports whether an icon file is present.
func (s *IconService) Exists(name string) (bool, error) {
	if err := validateIconName(name); err != nil {
		return false, nil
	}
	return afero.Exists(s.fs, iconPath(name))
}

// Upload writes an icon, replacing any existing file with the same name.
func (s *IconService) Upload(ctx context.Context, name string, r io.Reader) (*IconInfo, error) {
	ctx = ensureContext(ctx)

	if err := validateIconName(name); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("icon service: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("icon exceeds %d bytes", s.maxBytes))
	}
	if err := afero.WriteFile(s.fs, iconPath(name), data, 0o644); err != nil {
		return nil, fmt.Errorf("icon service: write: %w", err)
	}

	info, err := s.fs.Stat(iconPath(name))
	if err != nil {
		return nil, fmt.Errorf("icon service: stat: %w", err)
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityIcon,
		EntityID: name,
		Action:   "upload",
		Changes:  map[string]any{"size": info.Size()},
	})
	return &IconInfo{Name: name, Size: info.Size(), Modified: info.ModTime()}, nil
}

// Delete removes an icon that no node references.
func (s *IconService) Delete(ctx context.Context, name string) error {
	ctx = ensureContext(ctx)

	if err := s.requireExisting(name); err != nil {
		return err
	}

	var inUse int64
	if err := s.db.WithContext(ctx).Model(&models.Node{}).Where("icon = ?", name).Count(&inUse).Error; err != nil {
		return fmt.Errorf("icon service: count references: %w", err)
	}
	if inUse > 0 {
		return apperrors.NewBadRequest(fmt.Sprintf("Icon is in use by %d node(s)", inUse))
	}

	if err := s.fs.Remove(iconPath(name)); err != nil {
		return fmt.Errorf("icon service: remove: %w", err)
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityIcon,
		EntityID: name,
		Action:   "delete",
	})
	return nil
}

// Rename moves an icon file and repoints every node that referenced it.
// It returns the number of nodes updated.
func (s *IconService) Rename(ctx context.Context, oldName, newName string) (int64, error) {
	ctx = ensureContext(ctx)

	if err := s.requireExisting(oldName); err != nil {
		return 0, err
	}
	if err := validateIconName(newName); err != nil {
		return 0, err
	}
	if oldName == newName {
		return 0, nil
	}
	exists, err := afero.Exists(s.fs, iconPath(newName))
	if err != nil {
		return 0, fmt.Errorf("icon service: stat target: %w", err)
	}
	if exists {
		return 0, apperrors.NewBadRequest("Icon with this name already exists")
	}

	if err := s.fs.Rename(iconPath(oldName), iconPath(newName)); err != nil {
		return 0, fmt.Errorf("icon service: rename: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.Node{}).Where("icon = ?", oldName).Update("icon", newName)
	if result.Error != nil {
		// put the file back so references and files stay in step
		_ = s.fs.Rename(iconPath(newName), iconPath(oldName))
		return 0, fmt.Errorf("icon service: update references: %w", result.Error)
	}

	recordChange(s.changes, ctx, ChangeEntry{
		Entity:   models.ChangeEntityIcon,
		EntityID: newName,
		Action:   "rename",
		Changes:  map[string]any{"old_name": oldName, "new_name": newName, "nodes": result.RowsAffected},
	})
	return result.RowsAffected, nil
}

// DanglingReferences counts nodes whose icon file does not exist.
func (s *IconService) DanglingReferences(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	type iconRef struct {
		Icon  string
		Count int
	}
	var refs []iconRef
	err := s.db.WithContext(ctx).Model(&models.Node{}).
		Select("icon, COUNT(*) AS count").
		Where("icon IS NOT NULL AND icon <> ''").
		Group("icon").
		Scan(&refs).Error
	if err != nil {
		return 0, fmt.Errorf("icon service: load references: %w", err)
	}

	dangling := 0
	for _, ref := range refs {
		exists, err := s.Exists(ref.Icon)
		if err != nil {
			return 0, fmt.Errorf("icon service: stat %q: %w", ref.Icon, err)
		}
		if !exists {
			dangling += ref.Count
		}
	}
	return dangling, nil
}

func (s *IconService) requireExisting(name string) error {
	if err := validateIconName(name); err != nil {
		return err
	}
	exists, err := afero.Exists(s.fs, iconPath(name))
	if err != nil {
		return fmt.Errorf("icon service: stat: %w", err)
	}
	if !exists {
		return apperrors.NewNotFound("Icon not found")
	}
	return nil
}

func validateIconName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return apperrors.NewBadRequest("invalid icon file name")
	}
	if !hasIconExtension(name) {
		return apperrors.NewBadRequest("Invalid file type. Allowed: .png, .jpg, .jpeg, .svg, .webp, .gif")
	}
	return nil
}

func hasIconExtension(name string) bool {
	return allowedIconExtensions[strings.ToLower(path.Ext(name))]
}

func iconPath(name string) string {
	return "/" + name
}

package api

import (
	"errors"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/app"
	"github.com/charlesng35/tooltable/internal/services"
)

// Services bundles the domain services shared by the router and the
// maintenance scheduler.
type Services struct {
	Changes   *services.ChangeLogService
	Nodes     *services.NodeService
	Search    *services.SearchService
	AuthLinks *services.AuthLinkService
	Icons     *services.IconService
}

// NewServices wires every domain service against db. iconFS must be rooted at
// the icon directory.
func NewServices(db *gorm.DB, cfg *app.Config, iconFS afero.Fs) (*Services, error) {
	if db == nil {
		return nil, errors.New("database handle must be provided")
	}
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}

	changes, err := services.NewChangeLogService(db)
	if err != nil {
		return nil, err
	}
	nodes, err := services.NewNodeService(db, changes, services.WithCodeRetries(cfg.Nodes.CodeRetries))
	if err != nil {
		return nil, err
	}
	search, err := services.NewSearchService(db, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	if err != nil {
		return nil, err
	}
	links, err := services.NewAuthLinkService(db, changes)
	if err != nil {
		return nil, err
	}
	icons, err := services.NewIconService(iconFS, db, changes, cfg.Icons.MaxBytes)
	if err != nil {
		return nil, err
	}

	return &Services{
		Changes:   changes,
		Nodes:     nodes,
		Search:    search,
		AuthLinks: links,
		Icons:     icons,
	}, nil
}

package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/charlesng35/tooltable/internal/app"
	"github.com/charlesng35/tooltable/internal/handlers"
	"github.com/charlesng35/tooltable/internal/middleware"
	"github.com/charlesng35/tooltable/internal/monitoring"
)

// Dependencies carries everything the router needs beyond configuration.
type Dependencies struct {
	Services   *Services
	Monitoring *monitoring.Module
	RateStore  middleware.RateStore
	// StaticFS is rooted at the directory holding index.html and admin.html.
	StaticFS afero.Fs
}

// NewRouter builds the Gin engine, wires middleware and registers the API,
// health, metrics and static page routes.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Services == nil {
		return nil, errors.New("services must be provided")
	}
	if deps.StaticFS == nil {
		deps.StaticFS = afero.NewBasePathFs(afero.NewOsFs(), cfg.Static.Dir)
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if cfg.Monitoring.Prometheus.Enabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))
	r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	api := r.Group("/api")

	if err := registerNodeRoutes(api, deps.Services); err != nil {
		return nil, err
	}
	if err := registerAuthLinkRoutes(api, deps.Services); err != nil {
		return nil, err
	}
	if err := registerSearchRoutes(api, deps.Services); err != nil {
		return nil, err
	}
	if err := registerIconRoutes(api, deps.Services); err != nil {
		return nil, err
	}
	if err := registerChangeRoutes(api, deps.Services); err != nil {
		return nil, err
	}

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(cfg))

	if cfg.Monitoring.Prometheus.Enabled && deps.Monitoring != nil {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(deps.Monitoring.Handler()))
	}

	if err := registerStaticRoutes(r, deps.StaticFS); err != nil {
		return nil, err
	}

	return r, nil
}

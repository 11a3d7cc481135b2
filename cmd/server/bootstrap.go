package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tooltable/internal/api"
	"github.com/charlesng35/tooltable/internal/app"
	"github.com/charlesng35/tooltable/internal/app/maintenance"
	"github.com/charlesng35/tooltable/internal/cache"
	"github.com/charlesng35/tooltable/internal/database"
	"github.com/charlesng35/tooltable/internal/middleware"
	"github.com/charlesng35/tooltable/internal/monitoring"
	"github.com/charlesng35/tooltable/internal/monitoring/checks"
	"github.com/charlesng35/tooltable/pkg/logger"
)

const (
	databaseProbeTimeout = 2 * time.Second
	rateStoreSweep       = time.Minute
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Services   *api.Services
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	Counters   *cache.DatabaseCounter
	RateStore  middleware.RateStore
	memoryRate *middleware.MemoryRateStore
	Router     *gin.Engine
}

// bootstrapRuntime opens the database, wires services, monitoring and
// background jobs, then builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	iconFS, err := openIconStore(cfg.Icons.Dir)
	if err != nil {
		return nil, err
	}

	stack.Services, err = api.NewServices(stack.DB, cfg, iconFS)
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)
	stack.Monitoring.Health().RegisterReadiness(checks.Database(stack.DB, databaseProbeTimeout))
	stack.Monitoring.Health().RegisterReadiness(checks.IconStore(iconFS))
	if cfg.Maintenance.Enabled {
		stack.Monitoring.Health().RegisterLiveness(checks.Maintenance(0))
	}

	if cfg.Server.RateLimit.Requests > 0 {
		switch strings.ToLower(strings.TrimSpace(cfg.Server.RateLimit.Store)) {
		case app.RateStoreDatabase:
			stack.Counters = cache.NewDatabaseCounter(stack.DB)
			stack.RateStore = middleware.NewCounterRateStore(stack.Counters)
		default:
			stack.memoryRate = middleware.NewMemoryRateStore(rateStoreSweep)
			stack.RateStore = stack.memoryRate
		}
	}

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{
			maintenance.WithChangeLogRetentionDays(cfg.Maintenance.ChangeLogRetentionDays),
			maintenance.WithChangeLogSchedule(cfg.Maintenance.ChangeLogSchedule),
			maintenance.WithCodeAuditSchedule(cfg.Maintenance.CodeAuditSchedule),
			maintenance.WithIconAuditSchedule(cfg.Maintenance.IconAuditSchedule),
		}
		if stack.Counters != nil {
			opts = append(opts, maintenance.WithCounterPurge(stack.Counters))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Services.Changes, stack.Services.Nodes, stack.Services.Icons, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		Services:   stack.Services,
		Monitoring: stack.Monitoring,
		RateStore:  stack.RateStore,
		StaticFS:   afero.NewBasePathFs(afero.NewOsFs(), cfg.Static.Dir),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if _, err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown run failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.memoryRate != nil {
		s.memoryRate.Close()
		s.memoryRate = nil
	}
	s.RateStore = nil

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	if err := ensureSQLiteDir(dbCfg); err != nil {
		return nil, err
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Prepare(db.WithContext(ctx)); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// ensureSQLiteDir creates the directory holding the SQLite file on first use.
func ensureSQLiteDir(cfg database.Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver != "" && driver != "sqlite" {
		return nil
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

// openIconStore roots a filesystem at dir, creating the directory if needed.
func openIconStore(dir string) (afero.Fs, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("icons.dir must be configured")
	}
	osFS := afero.NewOsFs()
	if err := osFS.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create icon directory: %w", err)
	}
	return afero.NewBasePathFs(osFS, dir), nil
}

package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tooltable/internal/monitoring"
	"github.com/charlesng35/tooltable/internal/services"
	"github.com/charlesng35/tooltable/pkg/logger"
	"github.com/charlesng35/tooltable/pkg/metrics"
)

// Job names reported to monitoring.
const (
	JobChangeLogCleanup = "change_log_cleanup"
	JobCodeAudit        = "code_audit"
	JobIconAudit        = "icon_audit"
	JobRateCounterPurge = "rate_counter_purge"
)

const (
	defaultChangeLogRetentionDays = 90
	defaultChangeLogSpec          = "@daily"
	defaultCodeAuditSpec          = "@hourly"
	defaultIconAuditSpec          = "@hourly"
	defaultCounterPurgeSpec       = "@every 15m"
)

// CounterPurger removes expired rate limit counters.
type CounterPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Report summarises a maintenance run.
type Report struct {
	ChangeLogsRemoved int64
	CodeDrift         int
	DanglingIcons     int
	CountersPurged    int64
}

// Cleaner coordinates background maintenance: pruning the change log and
// auditing node codes and icon references.
type Cleaner struct {
	changes   *services.ChangeLogService
	nodes     *services.NodeService
	icons     *services.IconService
	counters  CounterPurger
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	changeLogSchedule string
	codeAuditSchedule string
	iconAuditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithChangeLogRetentionDays adjusts how long change log entries are kept.
func WithChangeLogRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithChangeLogSchedule overrides the cron specification for change log pruning.
func WithChangeLogSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.changeLogSchedule = spec
		}
	}
}

// WithCodeAuditSchedule overrides the cron specification for the code drift audit.
func WithCodeAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.codeAuditSchedule = spec
		}
	}
}

// WithIconAuditSchedule overrides the cron specification for the dangling icon audit.
func WithIconAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.iconAuditSchedule = spec
		}
	}
}

// WithCounterPurge schedules removal of expired shared rate limit counters.
func WithCounterPurge(p CounterPurger) Option {
	return func(c *Cleaner) {
		c.counters = p
	}
}

// NewCleaner constructs a Cleaner. A nil service skips the jobs that need it.
func NewCleaner(changes *services.ChangeLogService, nodes *services.NodeService, icons *services.IconService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		changes:           changes,
		nodes:             nodes,
		icons:             icons,
		retention:         defaultChangeLogRetentionDays,
		changeLogSchedule: defaultChangeLogSpec,
		codeAuditSchedule: defaultCodeAuditSpec,
		iconAuditSchedule: defaultIconAuditSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the enabled jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	jobs := 0

	if c.changes != nil {
		if _, err := c.cron.AddFunc(c.changeLogSchedule, func() {
			if _, err := c.pruneChangeLog(context.Background()); err != nil {
				c.log.Warn("change log cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if c.nodes != nil {
		if _, err := c.cron.AddFunc(c.codeAuditSchedule, func() {
			if _, err := c.auditCodes(context.Background()); err != nil {
				c.log.Warn("code audit failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if c.icons != nil {
		if _, err := c.cron.AddFunc(c.iconAuditSchedule, func() {
			if _, err := c.auditIcons(context.Background()); err != nil {
				c.log.Warn("icon audit failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if c.counters != nil {
		if _, err := c.cron.AddFunc(defaultCounterPurgeSpec, func() {
			if _, err := c.purgeCounters(context.Background()); err != nil {
				c.log.Warn("rate counter purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if jobs > 0 {
		c.cron.Start()
	}
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates failures.
func (c *Cleaner) RunOnce(ctx context.Context) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		report Report
		errs   error
	)

	if c.changes != nil {
		removed, err := c.pruneChangeLog(ctx)
		errs = multierr.Append(errs, err)
		report.ChangeLogsRemoved = removed
	}
	if c.nodes != nil {
		drift, err := c.auditCodes(ctx)
		errs = multierr.Append(errs, err)
		report.CodeDrift = drift
	}
	if c.icons != nil {
		dangling, err := c.auditIcons(ctx)
		errs = multierr.Append(errs, err)
		report.DanglingIcons = dangling
	}
	if c.counters != nil {
		purged, err := c.purgeCounters(ctx)
		errs = multierr.Append(errs, err)
		report.CountersPurged = purged
	}

	return report, errs
}

// track reports a job run to monitoring.
func track[T any](job string, fn func() (T, error)) (T, error) {
	start := time.Now()
	value, err := fn()
	if err != nil {
		monitoring.RecordMaintenanceRun(job, monitoring.ResultFailure, err.Error(), time.Since(start))
	} else {
		monitoring.RecordMaintenanceRun(job, monitoring.ResultSuccess, "", time.Since(start))
	}
	return value, err
}

func (c *Cleaner) pruneChangeLog(ctx context.Context) (int64, error) {
	return track(JobChangeLogCleanup, func() (int64, error) { return c.pruneChangeLogOnce(ctx) })
}

func (c *Cleaner) auditCodes(ctx context.Context) (int, error) {
	return track(JobCodeAudit, func() (int, error) { return c.auditCodesOnce(ctx) })
}

func (c *Cleaner) auditIcons(ctx context.Context) (int, error) {
	return track(JobIconAudit, func() (int, error) { return c.auditIconsOnce(ctx) })
}

func (c *Cleaner) purgeCounters(ctx context.Context) (int64, error) {
	return track(JobRateCounterPurge, func() (int64, error) { return c.counters.PurgeExpired(ctx) })
}

func (c *Cleaner) pruneChangeLogOnce(ctx context.Context) (int64, error) {
	removed, err := c.changes.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("pruned change log", zap.Int64("removed", removed), zap.Int("retention_days", c.retention))
	}
	return removed, nil
}

func (c *Cleaner) auditCodesOnce(ctx context.Context) (int, error) {
	drifted, err := c.nodes.CodeDrift(ctx)
	if err != nil {
		return 0, err
	}
	metrics.CodeDrift.Set(float64(len(drifted)))
	if len(drifted) > 0 {
		sample := make([]string, 0, 5)
		for i := 0; i < len(drifted) && i < cap(sample); i++ {
			sample = append(sample, drifted[i].Code)
		}
		c.log.Warn("node codes out of step with parents",
			zap.Int("count", len(drifted)),
			zap.Strings("sample", sample),
		)
	}
	return len(drifted), nil
}

func (c *Cleaner) auditIconsOnce(ctx context.Context) (int, error) {
	dangling, err := c.icons.DanglingReferences(ctx)
	if err != nil {
		return 0, err
	}
	metrics.DanglingIcons.Set(float64(dangling))
	if dangling > 0 {
		c.log.Warn("nodes reference missing icons", zap.Int("count", dangling))
	}
	return dangling, nil
}

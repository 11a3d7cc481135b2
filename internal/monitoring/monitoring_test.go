package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/internal/database/testutil"
	"github.com/charlesng35/tooltable/internal/monitoring"
	"github.com/charlesng35/tooltable/internal/monitoring/checks"
)

func setupModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	return mod
}

func TestSummaryTracksMaintenanceRuns(t *testing.T) {
	setupModule(t)

	monitoring.RecordMaintenanceRun("change_log_cleanup", monitoring.ResultSuccess, "", time.Second)
	monitoring.RecordMaintenanceRun("code_audit", monitoring.ResultFailure, "db locked", time.Second)
	monitoring.RecordMaintenanceRun("code_audit", monitoring.ResultFailure, "db locked", time.Second)

	summary := monitoring.Snapshot()
	require.Len(t, summary.Maintenance.Jobs, 2)
	require.Equal(t, "change_log_cleanup", summary.Maintenance.Jobs[0].Job)
	require.False(t, summary.Maintenance.Jobs[0].LastSuccessAt.IsZero())

	audit := summary.Maintenance.Jobs[1]
	require.Equal(t, uint64(2), audit.ConsecutiveFailures)
	require.Equal(t, uint64(2), audit.TotalRuns)
	require.Equal(t, "db locked", audit.LastError)
	require.True(t, audit.LastSuccessAt.IsZero())
}

func TestHealthManagerEvaluate(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("icons", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "icon directory missing"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "icons", report.Checks[1].Component)

	manager.RegisterReadiness(monitoring.NewCheck("broken", func(ctx context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	report = manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "boom", report.Checks[2].Details)

	require.True(t, manager.EvaluateLiveness(context.Background()).Success)
}

func TestHealthManagerTimeout(t *testing.T) {
	manager := monitoring.NewHealthManager()
	manager.SetTimeout(10 * time.Millisecond)
	manager.RegisterReadiness(monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
		<-ctx.Done()
		return monitoring.ResultFromError("slow", ctx.Err(), 0)
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDegraded, report.Status)
}

func TestResultFromError(t *testing.T) {
	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Second).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("refused"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.Canceled, -1).Status)
}

func TestMaintenanceCheck(t *testing.T) {
	setupModule(t)

	monitoring.RecordMaintenanceRun("change_log_cleanup", monitoring.ResultSuccess, "", time.Second)
	monitoring.RecordMaintenanceRun("icon_audit", monitoring.ResultFailure, "stat failed", time.Second)

	result := checks.Maintenance(0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "icon_audit: stat failed")
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	result := checks.Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestIconStoreCheck(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/", 0o755))
	require.Equal(t, monitoring.StatusUp, checks.IconStore(fs).Run(context.Background()).Status)

	empty := afero.NewBasePathFs(afero.NewMemMapFs(), "/missing")
	require.Equal(t, monitoring.StatusDegraded, checks.IconStore(empty).Run(context.Background()).Status)
}

func TestModuleHandlerServesMetrics(t *testing.T) {
	mod := setupModule(t)
	monitoring.RecordMaintenanceRun("code_audit", monitoring.ResultSuccess, "", time.Millisecond)

	w := httptest.NewRecorder()
	mod.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "tooltable_maintenance_runs_total")
}

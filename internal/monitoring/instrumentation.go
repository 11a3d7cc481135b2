package monitoring

import (
	"strings"
	"time"
)

// Maintenance job results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)

	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)

	now := time.Now()
	if result == ResultSuccess {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(now.Unix()))
	}
	module.stats.maintenanceEntry(jobID).record(result, strings.TrimSpace(message), duration, now)
}

func recordProbeFailure(component string, status ProbeStatus) {
	module := ensureModule()
	if module == nil {
		return
	}
	module.metrics.probeFailures.WithLabelValues(normalizeLabel(component), string(status)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

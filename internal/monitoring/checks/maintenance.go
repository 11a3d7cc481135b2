package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/tooltable/internal/monitoring"
)

const defaultMaintenanceMaxAge = 26 * time.Hour

// Maintenance reports down when a job keeps failing and degraded when a job
// has not run within maxAge. Jobs still waiting for their first run are noted
// but do not affect the status.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		summary := monitoring.Snapshot()
		now := time.Now()

		if len(summary.Maintenance.Jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance runs recorded"}
		}

		status := monitoring.StatusUp
		var notes []string
		for _, job := range summary.Maintenance.Jobs {
			if job.TotalRuns == 0 {
				notes = append(notes, job.Job+": pending first run")
				continue
			}
			if job.ConsecutiveFailures > 0 {
				status = monitoring.StatusDown
				notes = append(notes, job.Job+": "+job.LastError)
				continue
			}
			if !job.LastRunAt.IsZero() && now.Sub(job.LastRunAt) > maxAge {
				if status == monitoring.StatusUp {
					status = monitoring.StatusDegraded
				}
				notes = append(notes, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}

package checks

import (
	"context"

	"github.com/spf13/afero"

	"github.com/charlesng35/tooltable/internal/monitoring"
)

// IconStore reports degraded when the icon directory is missing; the portal
// still serves nodes, only without images.
func IconStore(fs afero.Fs) monitoring.Check {
	return monitoring.NewCheck("icons", func(ctx context.Context) monitoring.ProbeResult {
		if fs == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "icon store not configured"}
		}
		ok, err := afero.DirExists(fs, "/")
		if err != nil {
			return monitoring.ResultFromError("icons", err, 0)
		}
		if !ok {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "icon directory missing"}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}

package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/tooltable/pkg/logger"
)

func TestConfigureLogging(t *testing.T) {
	restore := logger.Replace(zap.NewNop())
	t.Cleanup(restore)

	require.NoError(t, ConfigureLogging("debug", "console"))
	require.NoError(t, ConfigureLogging("", ""))
	// unknown levels fall back to info
	require.NoError(t, ConfigureLogging("loud", "json"))
}

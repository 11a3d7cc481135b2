package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginRoundTrip(t *testing.T) {
	ctx := WithOrigin(context.Background(), Origin{RequestID: "req-1", Source: "api"})

	origin, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "req-1", origin.RequestID)
	require.Equal(t, "api", origin.Source)
}

func TestFromContextWithoutOrigin(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	//nolint:staticcheck // nil context is tolerated
	_, ok = FromContext(nil)
	require.False(t, ok)
}

func TestWithOriginAcceptsNilParent(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated
	ctx := WithOrigin(nil, Origin{Source: "importer"})
	origin, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "importer", origin.Source)
}

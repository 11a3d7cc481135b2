// Package auditctx carries the origin of a mutation from the transport layer
// down to the change log.
package auditctx

import "context"

// Origin describes who or what triggered a change.
type Origin struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Source    string // "api" or "importer"
}

type originContextKey struct{}

// WithOrigin returns a derived context carrying origin.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, originContextKey{}, origin)
}

// FromContext extracts the origin stored by WithOrigin.
func FromContext(ctx context.Context) (Origin, bool) {
	if ctx == nil {
		return Origin{}, false
	}
	origin, ok := ctx.Value(originContextKey{}).(Origin)
	return origin, ok
}

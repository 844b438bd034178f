// Package reqctx implements the Request Context component : the set of fields every HTTP handler needs, normalized
// once per request and threaded through context.Context for the rest of
// the call chain to read.
package reqctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/domain"
)

type contextKey string

const requestContextKey contextKey = "ironlake.request_context"

// RequestContext carries the correlation id, the resolved actor, routing
// metadata for logging, the caller's preferred project, and the base URI to
// embed in wire responses that point back at this service.
type RequestContext struct {
	RequestID string
	Actor domain.Actor
	MatchedPath string
	RequestMethod string
	PreferredProjectID string
	BaseURICatalog string
	UserID string
	AdminPrivileges bool
}

// NewRequestID mints a time-ordered UUIDv7.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// WithRequestContext returns a context carrying rc, retrievable with
// FromContext.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext extracts the RequestContext stashed by WithRequestContext. It
// never returns nil: callers outside of an HTTP request (task workers,
// tests) get an anonymous, zero-value context rather than having to nil
// check everywhere.
func FromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestContextKey).(*RequestContext); ok && rc != nil {
		return rc
	}

	return &RequestContext{Actor: domain.NewAnonymousActor()}
}

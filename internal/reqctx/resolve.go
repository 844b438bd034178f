package reqctx

import (
	"context"
)

// RawRequest is the minimal surface Resolve needs from an inbound HTTP
// request. Adapters (gofiber, net/http) satisfy it with a small shim so
// this package stays free of any single framework adapter's types.
type RawRequest struct {
	Headers HeaderGetter
	Method string
	MatchedPath string
	Host string
	Scheme string
	AuthorizationHdr string
	ProjectIDHeader string
	IncomingRequestID string
}

// Resolve builds the RequestContext for one inbound request: it assigns
// or propagates the correlation id, authenticates the actor, derives the
// preferred project id and reconstructs the base URI.
func (r *ActorResolver) Resolve(ctx context.Context, req RawRequest) (*RequestContext, error) {
	actor, err := r.ResolveActor(ctx, req.AuthorizationHdr)
	if err != nil {
		return nil, err
	}

	requestID := req.IncomingRequestID
	if requestID == "" {
		requestID = NewRequestID()
	}

	rc := &RequestContext{
		RequestID: requestID,
		Actor: actor,
		MatchedPath: req.MatchedPath,
		RequestMethod: req.Method,
		PreferredProjectID: req.ProjectIDHeader,
		BaseURICatalog: DeriveBaseURICatalog(req.Headers, req.Host, req.Scheme),
		UserID: actor.UserID,
		AdminPrivileges: actor.AdminPrivileges,
	}

	return rc, nil
}

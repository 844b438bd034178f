package reqctx

import (
	"context"
	"strings"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/reqctx/authn"
)

// ActorResolver authenticates the bearer token on an inbound request, if
// any, into a domain.Actor. A request with no
// Authorization header resolves to the anonymous actor rather than
// failing outright; individual operations decide whether anonymous access
// is acceptable via the authorization layer.
type ActorResolver struct {
	verifier *authn.Verifier
}

func NewActorResolver(verifier *authn.Verifier) *ActorResolver {
	return &ActorResolver{verifier: verifier}
}

// ResolveActor extracts and verifies the bearer token from authorizationHeader.
// An present-but-invalid token is an authentication error; an absent one
// resolves to anonymous.
func (r *ActorResolver) ResolveActor(ctx context.Context, authorizationHeader string) (domain.Actor, error) {
	token := bearerToken(authorizationHeader)
	if token == "" {
		return domain.NewAnonymousActor(), nil
	}

	if r.verifier == nil {
		return domain.Actor{}, domain.AuthenticationRequiredError{Message: "bearer token presented but no verifier configured"}
	}

	return r.verifier.VerifyBearer(ctx, token)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

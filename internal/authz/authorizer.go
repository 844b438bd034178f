package authz

import (
	"context"
	"fmt"

	"github.com/ironlake-data/catalog/internal/domain"
)

// Backend is the pluggable decision point every Authorizer wraps. It never
// sees role assumption or batching-size bookkeeping — that lives in
// Authorizer so every backend gets it for free.
type Backend interface {
	// BatchCheck returns one decision per check, same order, same length.
	// A backend that cannot honor this invariant is a defect the caller
	// treats as AuthorizationCountMismatch.
	BatchCheck(ctx context.Context, principal string, checks []Check) ([]bool, error)
}

// Authorizer is the service-facing entry point. It wraps a
// Backend with role-assumption semantics and the "hide vs deny" rule.
type Authorizer struct {
	backend Backend
}

func New(backend Backend) *Authorizer {
	return &Authorizer{backend: backend}
}

// AreAllowed runs checks for actor, requiring both the principal and (if
// the actor is role-assumed) the role to separately authorize each action
//. The returned slice always has
// len(checks) entries.
func (a *Authorizer) AreAllowed(ctx context.Context, actor domain.Actor, checks []Check) ([]bool, error) {
	if actor.IsAnonymous() {
		out := make([]bool, len(checks))
		return out, nil
	}

	if actor.IsAdmin() {
		out := make([]bool, len(checks))
		for i := range out {
			out[i] = true
		}

		return out, nil
	}

	principalDecisions, err := a.backend.BatchCheck(ctx, actor.Principal(), checks)
	if err != nil {
		return nil, domain.BackendUnavailableError{Backend: "authz", Message: "batch authorization check failed", Err: err}
	}

	if len(principalDecisions) != len(checks) {
		return nil, domain.AuthorizationCountMismatchError(len(checks), len(principalDecisions))
	}

	if !actor.AssumesRole() {
		return principalDecisions, nil
	}

	roleDecisions, err := a.backend.BatchCheck(ctx, roleSubject(actor.AssumedRoleID), checks)
	if err != nil {
		return nil, domain.BackendUnavailableError{Backend: "authz", Message: "batch authorization check failed for assumed role", Err: err}
	}

	if len(roleDecisions) != len(checks) {
		return nil, domain.AuthorizationCountMismatchError(len(checks), len(roleDecisions))
	}

	out := make([]bool, len(checks))
	for i := range checks {
		out[i] = principalDecisions[i] && roleDecisions[i]
	}

	return out, nil
}

// RequireAction is the single-check fast path. visible reports whether the actor may at
// least see the resource exist; when visible is false, the caller must
// surface NotFound rather than ActionForbidden so existence is never
// leaked to an actor who cannot see the resource.
func (a *Authorizer) RequireAction(ctx context.Context, actor domain.Actor, resource Resource, action Action, visible bool) error {
	decisions, err := a.AreAllowed(ctx, actor, []Check{{Resource: resource, Action: action}})
	if err != nil {
		return err
	}

	if decisions[0] {
		return nil
	}

	if !visible {
		return domain.NotFoundError{EntityType: string(resource.Kind), Message: fmt.Sprintf("%s not found", resource.Kind)}
	}

	return domain.ActionForbiddenError{Action: string(action), Message: fmt.Sprintf("action %q forbidden on %s %s", action, resource.Kind, resource.ID)}
}

func roleSubject(roleID string) string {
	return "role:" + roleID
}

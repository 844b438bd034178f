package authz

import "context"

// AllowAllBackend authorizes every check unconditionally. It is the minimal
// reference backend, suitable for single-tenant or development deployments
// that trust every authenticated caller.
type AllowAllBackend struct{}

func NewAllowAllBackend() *AllowAllBackend { return &AllowAllBackend{} }

func (AllowAllBackend) BatchCheck(_ context.Context, _ string, checks []Check) ([]bool, error) {
	out := make([]bool, len(checks))
	for i := range out {
		out[i] = true
	}

	return out, nil
}

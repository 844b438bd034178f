// Package lifecycle implements the tabular lifecycle orchestration: the
// only piece of the service that touches the catalog store, storage
// binding, authorization layer, and task queue in the same request, in a
// fixed control flow (HTTP → Request Context → Authorization → Catalog
// Store → Storage Binding → Task Queue → Response).
package lifecycle

import (
	"context"

	"github.com/ironlake-data/catalog/internal/platform/applog"
)

type cleanup func(ctx context.Context) error

// CompensationGuard records tentative object-store side effects made during
// an operation and rolls them back unless Disarm is called: write the
// metadata file first, only commit the catalog row after, and delete the
// stray file if anything past that point fails.
type CompensationGuard struct {
	ctx context.Context
	log applog.Logger
	armed bool
	cleanups []cleanup
}

// NewCompensationGuard starts an armed guard. Callers defer g.Close().
func NewCompensationGuard(ctx context.Context, log applog.Logger) *CompensationGuard {
	return &CompensationGuard{ctx: ctx, log: log, armed: true}
}

// OnRollback registers fn to run, in LIFO order, if the guard is never
// disarmed.
func (g *CompensationGuard) OnRollback(fn cleanup) {
	g.cleanups = append(g.cleanups, fn)
}

// Disarm marks the operation as having succeeded; registered cleanups never
// run.
func (g *CompensationGuard) Disarm() {
	g.armed = false
}

// Close runs any pending compensations if the guard was never disarmed.
// Compensation failures are logged, not propagated: the original error (if
// any) already determines the caller's response.
func (g *CompensationGuard) Close() {
	if !g.armed {
		return
	}

	for i := len(g.cleanups) - 1; i >= 0; i-- {
		if err := g.cleanups[i](g.ctx); err != nil {
			g.log.Warnf("compensation cleanup failed: %v", err)
		}
	}
}

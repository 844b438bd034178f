package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironlake-data/catalog/internal/platform/applog"
)

func TestCompensationGuard_RunsCleanupsOnClose(t *testing.T) {
	g := NewCompensationGuard(context.Background(), applog.NoopLogger{})

	var order []int

	g.OnRollback(func(context.Context) error { order = append(order, 1); return nil })
	g.OnRollback(func(context.Context) error { order = append(order, 2); return nil })

	g.Close()

	assert.Equal(t, []int{2, 1}, order, "cleanups run LIFO")
}

func TestCompensationGuard_DisarmSkipsCleanups(t *testing.T) {
	g := NewCompensationGuard(context.Background(), applog.NoopLogger{})

	ran := false
	g.OnRollback(func(context.Context) error { ran = true; return nil })

	g.Disarm()
	g.Close()

	assert.False(t, ran)
}

func TestCompensationGuard_CleanupErrorDoesNotPanic(t *testing.T) {
	g := NewCompensationGuard(context.Background(), applog.NoopLogger{})

	g.OnRollback(func(context.Context) error { return errors.New("cleanup failed") })

	assert.NotPanics(t, g.Close)
}

package catalogstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeVersioned struct {
	Version int64 `json:"version"`
}

func (f fakeVersioned) CacheVersion() int64 { return f.Version }

func TestCache_Key(t *testing.T) {
	c := &Cache{prefix: "ironlake:warehouse"}

	assert.Equal(t, "ironlake:warehouse:warehouse:abc-123", c.key("warehouse", "abc-123"))
}

func TestGet_PolicySkip_NeverTouchesBackend(t *testing.T) {
	// PolicySkip must short-circuit before dereferencing conn, so a Cache
	// with no connection configured is safe to call here.
	c := &Cache{}

	value, ok := Get[fakeVersioned](context.Background(), c, "warehouse", "abc-123", PolicySkip, 0)

	assert.False(t, ok)
	assert.Equal(t, fakeVersioned{}, value)
}

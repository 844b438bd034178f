package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceIdent_String(t *testing.T) {
	ident := NamespaceIdent{"analytics", "raw"}

	assert.Equal(t, "analytics\x1fraw", ident.String())
}

func TestNamespaceIdent_Depth(t *testing.T) {
	assert.Equal(t, 0, NamespaceIdent{}.Depth())
	assert.Equal(t, 2, NamespaceIdent{"a", "b"}.Depth())
}

func TestNamespaceIdent_Equal(t *testing.T) {
	testCases := []struct {
		name     string
		a        NamespaceIdent
		b        NamespaceIdent
		expected bool
	}{
		{"equal paths", NamespaceIdent{"a", "b"}, NamespaceIdent{"a", "b"}, true},
		{"different length", NamespaceIdent{"a"}, NamespaceIdent{"a", "b"}, false},
		{"different component", NamespaceIdent{"a", "b"}, NamespaceIdent{"a", "c"}, false},
		{"both empty", NamespaceIdent{}, NamespaceIdent{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.a.Equal(tc.b))
		})
	}
}

func TestNamespace_CacheVersion(t *testing.T) {
	ns := Namespace{Version: 7}
	assert.Equal(t, int64(7), ns.CacheVersion())
}

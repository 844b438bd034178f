package domain

import (
	"strings"
	"time"
)

// NamespaceIdent is the ordered sequence of name components identifying a
// namespace (GLOSSARY). Each namespace row stores its full path as one
// array of components; rows carry no parent reference.
type NamespaceIdent []string

// String joins the path components with the Iceberg REST protocol's unit
// separator (0x1F) as used by multipart namespace identifiers on the wire.
func (n NamespaceIdent) String() string {
	return strings.Join(n, "\x1f")
}

func (n NamespaceIdent) Depth() int { return len(n) }

func (n NamespaceIdent) Equal(other NamespaceIdent) bool {
	if len(n) != len(other) {
		return false
	}

	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}

	return true
}

// Namespace is a logical group of tabulars scoped to one warehouse.
type Namespace struct {
	ID string
	WarehouseID string
	Path NamespaceIdent
	Properties map[string]string
	Protected bool
	Version int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheVersion satisfies catalogstore.Versioned.
func (n Namespace) CacheVersion() int64 { return n.Version }

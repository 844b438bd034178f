package lifecycle

import (
	"strings"

	"github.com/ironlake-data/catalog/internal/domain"
)

// MaxNamespaceDepth bounds namespace nesting.
const MaxNamespaceDepth = 16

// reservedNameChars mirrors the Iceberg REST protocol's restriction on
// identifier components: the unit separator used to encode multipart
// namespace identifiers on the wire can never appear inside one component.
const reservedNameChars = "\x1f"

// validateIdentifierName rejects empty names and names containing the
// protocol's reserved separator.
func validateIdentifierName(name string) error {
	if name == "" {
		return domain.ValidationError{Code: "empty_identifier", Message: "identifier name must not be empty"}
	}

	if strings.ContainsAny(name, reservedNameChars) {
		return domain.ValidationError{Code: "invalid_identifier", Message: "identifier name contains a reserved character"}
	}

	return nil
}

// validateNamespaceDepth enforces the maximum namespace nesting depth.
// permitOverflow lets callers that must return 404 rather than 400 on depth
// overflow (to preserve engine compatibility) suppress the error and
// instead treat the namespace as not found.
func validateNamespaceDepth(path domain.NamespaceIdent, permitOverflow bool) error {
	if path.Depth() <= MaxNamespaceDepth {
		return nil
	}

	if permitOverflow {
		return domain.NotFoundError{EntityType: "Namespace", Message: "namespace path exceeds the maximum depth"}
	}

	return domain.ValidationError{Code: "namespace_depth_exceeded", Message: "namespace path exceeds the maximum depth"}
}

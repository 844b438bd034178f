package lifecycle

import (
	"fmt"

	"github.com/ironlake-data/catalog/internal/domain"
)

// RequirementKind enumerates the Iceberg REST commit-requirement predicates
// (assert-uuid, assert-current-schema-id, assert-ref-snapshot-id, and the
// rest of the requirement family the protocol defines).
type RequirementKind string

const (
	RequireAssertCreate RequirementKind = "assert-create"
	RequireAssertTableUUID RequirementKind = "assert-table-uuid"
	RequireAssertCurrentSchemaID RequirementKind = "assert-current-schema-id"
	RequireAssertRefSnapshotID RequirementKind = "assert-ref-snapshot-id"
	RequireAssertDefaultSpecID RequirementKind = "assert-default-spec-id"
	RequireAssertDefaultSortOrderID RequirementKind = "assert-default-sort-order-id"
	RequireAssertLastAssignedFieldID RequirementKind = "assert-last-assigned-field-id"
)

// Requirement is one predicate from a commit request's requirements array.
// Only the fields relevant to Kind are populated.
type Requirement struct {
	Kind RequirementKind
	UUID string
	SchemaID *int
	SpecID *int
	SortID *int
	FieldID *int
	Ref string
	SnapshotID *int64 // nil means "the ref must not exist"
}

// evaluateTableRequirements checks reqs against the table's state before any
// commit update has been applied. exists
// reports whether a committed (non-staged) metadata document already
// exists; current is nil when it does not.
func evaluateTableRequirements(reqs []Requirement, current *domain.TableMetadata, exists bool) error {
	for _, r := range reqs {
		if err := evaluateOne(r, current, exists); err != nil {
			return err
		}
	}

	return nil
}

func evaluateOne(r Requirement, current *domain.TableMetadata, exists bool) error {
	switch r.Kind {
	case RequireAssertCreate:
		if exists {
			return domain.ConflictError{Code: "commit_requirement_failed", Message: "assert-create failed: table already exists"}
		}

		return nil
	}

	if !exists || current == nil {
		return domain.ConflictError{Code: "commit_requirement_failed", Message: fmt.Sprintf("%s requires an existing table", r.Kind)}
	}

	switch r.Kind {
	case RequireAssertTableUUID:
		if current.TableUUID != r.UUID {
			return requirementFailed(r.Kind, "table uuid mismatch")
		}
	case RequireAssertCurrentSchemaID:
		if r.SchemaID == nil || current.CurrentSchemaID != *r.SchemaID {
			return requirementFailed(r.Kind, "current schema id mismatch")
		}
	case RequireAssertDefaultSpecID:
		if r.SpecID == nil || current.DefaultSpecID != *r.SpecID {
			return requirementFailed(r.Kind, "default partition spec id mismatch")
		}
	case RequireAssertDefaultSortOrderID:
		if r.SortID == nil || current.DefaultSortOrderID != *r.SortID {
			return requirementFailed(r.Kind, "default sort order id mismatch")
		}
	case RequireAssertLastAssignedFieldID:
		if r.FieldID == nil || current.LastColumnID != *r.FieldID {
			return requirementFailed(r.Kind, "last assigned field id mismatch")
		}
	case RequireAssertRefSnapshotID:
		ref, ok := current.Refs[r.Ref]

		if r.SnapshotID == nil {
			if ok {
				return requirementFailed(r.Kind, fmt.Sprintf("ref %q must not exist", r.Ref))
			}

			return nil
		}

		if !ok || ref.SnapshotID != *r.SnapshotID {
			return requirementFailed(r.Kind, fmt.Sprintf("ref %q snapshot id mismatch", r.Ref))
		}
	default:
		return domain.ValidationError{Code: "unknown_commit_requirement", Message: fmt.Sprintf("unknown commit requirement %q", r.Kind)}
	}

	return nil
}

func requirementFailed(kind RequirementKind, detail string) error {
	return domain.ConflictError{Code: "commit_requirement_failed", Message: fmt.Sprintf("%s failed: %s", kind, detail)}
}

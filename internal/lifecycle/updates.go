package lifecycle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/domain"
)

// UpdateKind enumerates the table-metadata update actions a commit request
// applies in order. This is the subset of the Iceberg REST update family
// needed to exercise create/commit end to end; exotic updates (statistics
// files, encryption keys) are out of scope.
type UpdateKind string

const (
	UpdateAddSchema UpdateKind = "add-schema"
	UpdateSetCurrentSchema UpdateKind = "set-current-schema"
	UpdateAddPartitionSpec UpdateKind = "add-spec"
	UpdateSetDefaultSpec UpdateKind = "set-default-spec"
	UpdateAddSortOrder UpdateKind = "add-sort-order"
	UpdateSetDefaultSortOrder UpdateKind = "set-default-sort-order"
	UpdateAddSnapshot UpdateKind = "add-snapshot"
	UpdateSetSnapshotRef UpdateKind = "set-snapshot-ref"
	UpdateRemoveSnapshotRef UpdateKind = "remove-snapshot-ref"
	UpdateSetProperties UpdateKind = "set-properties"
	UpdateRemoveProperties UpdateKind = "remove-properties"
	UpdateSetLocation UpdateKind = "set-location"
)

// Update is one entry in a commit request's updates array.
type Update struct {
	Kind UpdateKind
	Schema *domain.Schema
	SchemaID *int
	PartitionSpec *domain.PartitionSpec
	SpecID *int
	SortOrder *domain.SortOrder
	SortOrderID *int
	Snapshot *domain.Snapshot
	RefName string
	SnapshotID *int64
	Properties map[string]string
	PropertyKeys []string
	Location string
}

// applyTableUpdates mutates md in place by applying each update in order.
// An update missing its payload, or a set-current-schema naming a schema id
// that was never added, is rejected with a ValidationError; the default
// spec and sort-order ids are not checked against the metadata.
func applyTableUpdates(md *domain.TableMetadata, updates []Update) error {
	for _, u := range updates {
		if err := applyOneTableUpdate(md, u); err != nil {
			return err
		}
	}

	md.LastUpdatedMS = nowMillis()

	return nil
}

func applyOneTableUpdate(md *domain.TableMetadata, u Update) error {
	switch u.Kind {
	case UpdateAddSchema:
		if u.Schema == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "add-schema requires a schema"}
		}

		md.Schemas = append(md.Schemas, *u.Schema)
		if maxID := maxFieldID(*u.Schema); maxID > md.LastColumnID {
			md.LastColumnID = maxID
		}
	case UpdateSetCurrentSchema:
		if u.SchemaID == nil || !hasSchema(md, *u.SchemaID) {
			return domain.ValidationError{Code: "invalid_update", Message: "set-current-schema references an unknown schema id"}
		}

		md.CurrentSchemaID = *u.SchemaID
	case UpdateAddPartitionSpec:
		if u.PartitionSpec == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "add-spec requires a partition spec"}
		}

		md.PartitionSpecs = append(md.PartitionSpecs, *u.PartitionSpec)
	case UpdateSetDefaultSpec:
		if u.SpecID == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "set-default-spec requires a spec id"}
		}

		md.DefaultSpecID = *u.SpecID
	case UpdateAddSortOrder:
		if u.SortOrder == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "add-sort-order requires a sort order"}
		}

		md.SortOrders = append(md.SortOrders, *u.SortOrder)
	case UpdateSetDefaultSortOrder:
		if u.SortOrderID == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "set-default-sort-order requires an order id"}
		}

		md.DefaultSortOrderID = *u.SortOrderID
	case UpdateAddSnapshot:
		if u.Snapshot == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "add-snapshot requires a snapshot"}
		}

		md.Snapshots = append(md.Snapshots, *u.Snapshot)
		md.LastSequenceNumber = u.Snapshot.SequenceNumber
		md.SnapshotLog = append(md.SnapshotLog, domain.SnapshotLogEntry{
			TimestampMS: u.Snapshot.TimestampMS,
			SnapshotID: u.Snapshot.SnapshotID,
		})
	case UpdateSetSnapshotRef:
		if u.RefName == "" || u.SnapshotID == nil {
			return domain.ValidationError{Code: "invalid_update", Message: "set-snapshot-ref requires a ref name and snapshot id"}
		}

		if md.Refs == nil {
			md.Refs = map[string]domain.SnapshotRef{}
		}

		md.Refs[u.RefName] = domain.SnapshotRef{Name: u.RefName, SnapshotID: *u.SnapshotID, Type: refType(u.RefName)}

		if u.RefName == "main" {
			md.CurrentSnapshotID = u.SnapshotID
		}
	case UpdateRemoveSnapshotRef:
		delete(md.Refs, u.RefName)

		if u.RefName == "main" {
			md.CurrentSnapshotID = nil
		}
	case UpdateSetProperties:
		if md.Properties == nil {
			md.Properties = map[string]string{}
		}

		for k, v := range u.Properties {
			md.Properties[k] = v
		}
	case UpdateRemoveProperties:
		for _, k := range u.PropertyKeys {
			delete(md.Properties, k)
		}
	case UpdateSetLocation:
		if u.Location == "" {
			return domain.ValidationError{Code: "invalid_update", Message: "set-location requires a location"}
		}

		md.Location = u.Location
	default:
		return domain.ValidationError{Code: "invalid_update", Message: fmt.Sprintf("unknown update kind %q", u.Kind)}
	}

	return nil
}

func hasSchema(md *domain.TableMetadata, id int) bool {
	for _, s := range md.Schemas {
		if s.SchemaID == id {
			return true
		}
	}

	return false
}

func maxFieldID(s domain.Schema) int {
	max := 0

	for _, f := range s.Fields {
		if f.ID > max {
			max = f.ID
		}
	}

	return max
}

func refType(name string) string {
	if name == "main" {
		return "branch"
	}

	return "tag"
}

// newTableUUID mints the UUID stamped into a freshly created table's
// metadata.
func newTableUUID() string {
	return uuid.NewString()
}

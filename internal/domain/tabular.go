package domain

import "time"

// TabularKind distinguishes tables from views where an operation is shared
// between both (GLOSSARY "Tabular").
type TabularKind string

const (
	TabularTable TabularKind = "table"
	TabularView TabularKind = "view"
)

// TabularIdent names a tabular within a warehouse: a namespace path plus a
// leaf name.
type TabularIdent struct {
	Namespace NamespaceIdent
	Name string
}

// Schema is a simplified Iceberg schema: enough structure to exercise
// requirement evaluation and metadata round-tripping without reimplementing
// the full Iceberg type system.
type Schema struct {
	SchemaID int
	Fields []SchemaField
}

type SchemaField struct {
	ID int
	Name string
	Type string
	Required bool
}

type PartitionSpec struct {
	SpecID int
	Fields []PartitionField
}

type PartitionField struct {
	SourceID int
	FieldID int
	Name string
	Transform string
}

type SortOrder struct {
	OrderID int
	Fields []SortField
}

type SortField struct {
	SourceID int
	Transform string
	Direction string
	NullOrder string
}

// Snapshot is a single committed state of a table.
type Snapshot struct {
	SnapshotID int64
	ParentSnapshotID *int64
	SequenceNumber int64
	TimestampMS int64
	Summary map[string]string
	ManifestListPath string
	SchemaID *int
}

type SnapshotRef struct {
	Name string
	SnapshotID int64
	Type string // "branch" | "tag"
	MaxRefAgeMS *int64
	MaxSnapshotAgeMS *int64
	MinSnapshotsToKeep *int
}

type SnapshotLogEntry struct {
	TimestampMS int64
	SnapshotID int64
}

type MetadataLogEntry struct {
	TimestampMS int64
	MetadataFilePath string
}

type PartitionStatisticsFile struct {
	SnapshotID int64
	StatisticPath string
	FileSizeBytes int64
}

type TableStatisticsFile struct {
	SnapshotID int64
	StatisticPath string
	FileSizeBytes int64
	BlobMetadata []map[string]any
}

// TableMetadata is the Iceberg table metadata document.
type TableMetadata struct {
	FormatVersion int
	TableUUID string
	Location string
	LastSequenceNumber int64
	LastUpdatedMS int64
	LastColumnID int
	Schemas []Schema
	CurrentSchemaID int
	PartitionSpecs []PartitionSpec
	DefaultSpecID int
	LastPartitionID int
	SortOrders []SortOrder
	DefaultSortOrderID int
	Properties map[string]string
	CurrentSnapshotID *int64
	Snapshots []Snapshot
	SnapshotLog []SnapshotLogEntry
	MetadataLog []MetadataLogEntry
	Refs map[string]SnapshotRef
	PartitionStats []PartitionStatisticsFile
	TableStats []TableStatisticsFile
	EncryptionKeys map[string]string
}

// Table is a catalog row binding identity and lifecycle state to an Iceberg
// table metadata document.
type Table struct {
	ID string
	WarehouseID string
	NamespaceID string
	Name string
	FSLocation string
	MetadataFileLocation *string
	Metadata TableMetadata
	Protected bool
	DeletedAt *time.Time
	Version int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Table) IsStaged() bool { return t.MetadataFileLocation == nil }
func (t *Table) IsDeleted() bool { return t.DeletedAt != nil }

// ViewVersion is one committed definition of a view.
type ViewVersion struct {
	VersionID int
	TimestampMS int64
	SchemaID int
	Summary map[string]string
	Representations []ViewRepresentation
	DefaultCatalog *string
	DefaultNS NamespaceIdent
}

type ViewRepresentation struct {
	Type string // "sql"
	SQL string
	Dialect string
}

type ViewMetadata struct {
	FormatVersion int
	ViewUUID string
	Location string
	CurrentVersionID int
	Versions []ViewVersion
	VersionLog []SnapshotLogEntry
	Schemas []Schema
	Properties map[string]string
}

// View is a catalog row for an Iceberg view. Unlike tables,
// views are never staged: a metadata file location is always present.
type View struct {
	ID string
	WarehouseID string
	NamespaceID string
	Name string
	FSLocation string
	MetadataFileLocation string
	Metadata ViewMetadata
	Protected bool
	DeletedAt *time.Time
	Version int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *View) IsDeleted() bool { return v.DeletedAt != nil }

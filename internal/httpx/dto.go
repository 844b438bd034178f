// Package httpx implements the HTTP adapter surface for both the Iceberg
// REST catalog protocol (`/catalog/v1/...`) and the management protocol
// (`/management/v1/...`), built on a fiber router assembly with
// error/correlation-id middleware. The internal domain types carry no JSON
// tags (they round-trip through object-store metadata files via plain
// json.Marshal, a simplification carried from the lifecycle package), so
// every wire-facing shape here is a small DTO with the Iceberg protocol's
// own kebab-case field names.
package httpx

import (
	"github.com/ironlake-data/catalog/internal/domain"
)

func splitNamespace(s string) domain.NamespaceIdent {
	if s == "" {
		return nil
	}

	return domain.NamespaceIdent(splitUnitSeparator(s))
}

func splitUnitSeparator(s string) []string {
	var out []string

	start := 0

	for i, r := range s {
		if r == '\x1f' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}

	out = append(out, s[start:])

	return out
}

// schemaDTO is the wire shape of an Iceberg schema, a simplified
// struct-of-fields mirroring domain.Schema's own simplification.
type schemaDTO struct {
	SchemaID int `json:"schema-id"`
	Type string `json:"type"`
	Fields []schemaFieldDTO `json:"fields"`
}

type schemaFieldDTO struct {
	ID int `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Required bool `json:"required"`
}

func schemaToDTO(s domain.Schema) schemaDTO {
	out := schemaDTO{SchemaID: s.SchemaID, Type: "struct", Fields: make([]schemaFieldDTO, 0, len(s.Fields))}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, schemaFieldDTO{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
	}

	return out
}

func schemaFromDTO(d schemaDTO) domain.Schema {
	out := domain.Schema{SchemaID: d.SchemaID, Fields: make([]domain.SchemaField, 0, len(d.Fields))}
	for _, f := range d.Fields {
		out.Fields = append(out.Fields, domain.SchemaField{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
	}

	return out
}

type partitionSpecDTO struct {
	SpecID int `json:"spec-id"`
	Fields []partitionFieldDTO `json:"fields"`
}

type partitionFieldDTO struct {
	SourceID int `json:"source-id"`
	FieldID int `json:"field-id"`
	Name string `json:"name"`
	Transform string `json:"transform"`
}

func partitionSpecToDTO(p domain.PartitionSpec) partitionSpecDTO {
	out := partitionSpecDTO{SpecID: p.SpecID, Fields: make([]partitionFieldDTO, 0, len(p.Fields))}
	for _, f := range p.Fields {
		out.Fields = append(out.Fields, partitionFieldDTO{SourceID: f.SourceID, FieldID: f.FieldID, Name: f.Name, Transform: f.Transform})
	}

	return out
}

func partitionSpecFromDTO(d partitionSpecDTO) domain.PartitionSpec {
	out := domain.PartitionSpec{SpecID: d.SpecID, Fields: make([]domain.PartitionField, 0, len(d.Fields))}
	for _, f := range d.Fields {
		out.Fields = append(out.Fields, domain.PartitionField{SourceID: f.SourceID, FieldID: f.FieldID, Name: f.Name, Transform: f.Transform})
	}

	return out
}

type sortOrderDTO struct {
	OrderID int `json:"order-id"`
	Fields []sortFieldDTO `json:"fields"`
}

type sortFieldDTO struct {
	SourceID int `json:"source-id"`
	Transform string `json:"transform"`
	Direction string `json:"direction"`
	NullOrder string `json:"null-order"`
}

func sortOrderToDTO(s domain.SortOrder) sortOrderDTO {
	out := sortOrderDTO{OrderID: s.OrderID, Fields: make([]sortFieldDTO, 0, len(s.Fields))}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, sortFieldDTO{SourceID: f.SourceID, Transform: f.Transform, Direction: f.Direction, NullOrder: f.NullOrder})
	}

	return out
}

func sortOrderFromDTO(d sortOrderDTO) domain.SortOrder {
	out := domain.SortOrder{OrderID: d.OrderID, Fields: make([]domain.SortField, 0, len(d.Fields))}
	for _, f := range d.Fields {
		out.Fields = append(out.Fields, domain.SortField{SourceID: f.SourceID, Transform: f.Transform, Direction: f.Direction, NullOrder: f.NullOrder})
	}

	return out
}

// tableMetadataDTO mirrors the subset of the Iceberg table metadata
// document domain.TableMetadata models.
type tableMetadataDTO struct {
	FormatVersion int `json:"format-version"`
	TableUUID string `json:"table-uuid"`
	Location string `json:"location"`
	LastSequenceNumber int64 `json:"last-sequence-number"`
	LastUpdatedMS int64 `json:"last-updated-ms"`
	LastColumnID int `json:"last-column-id"`
	Schemas []schemaDTO `json:"schemas"`
	CurrentSchemaID int `json:"current-schema-id"`
	PartitionSpecs []partitionSpecDTO `json:"partition-specs"`
	DefaultSpecID int `json:"default-spec-id"`
	SortOrders []sortOrderDTO `json:"sort-orders"`
	DefaultSortOrderID int `json:"default-sort-order-id"`
	Properties map[string]string `json:"properties,omitempty"`
	CurrentSnapshotID *int64 `json:"current-snapshot-id,omitempty"`
	MetadataLog []metadataLogEntryDTO `json:"metadata-log,omitempty"`
}

type metadataLogEntryDTO struct {
	TimestampMS int64 `json:"timestamp-ms"`
	MetadataFilePath string `json:"metadata-file"`
}

func tableMetadataToDTO(m domain.TableMetadata) tableMetadataDTO {
	out := tableMetadataDTO{
		FormatVersion: m.FormatVersion,
		TableUUID: m.TableUUID,
		Location: m.Location,
		LastSequenceNumber: m.LastSequenceNumber,
		LastUpdatedMS: m.LastUpdatedMS,
		LastColumnID: m.LastColumnID,
		CurrentSchemaID: m.CurrentSchemaID,
		DefaultSpecID: m.DefaultSpecID,
		DefaultSortOrderID: m.DefaultSortOrderID,
		Properties: m.Properties,
		CurrentSnapshotID: m.CurrentSnapshotID,
	}

	for _, s := range m.Schemas {
		out.Schemas = append(out.Schemas, schemaToDTO(s))
	}

	for _, p := range m.PartitionSpecs {
		out.PartitionSpecs = append(out.PartitionSpecs, partitionSpecToDTO(p))
	}

	for _, s := range m.SortOrders {
		out.SortOrders = append(out.SortOrders, sortOrderToDTO(s))
	}

	for _, e := range m.MetadataLog {
		out.MetadataLog = append(out.MetadataLog, metadataLogEntryDTO{TimestampMS: e.TimestampMS, MetadataFilePath: e.MetadataFilePath})
	}

	return out
}

type loadTableResponse struct {
	MetadataLocation string `json:"metadata-location,omitempty"`
	Metadata tableMetadataDTO `json:"metadata"`
	Config map[string]string `json:"config,omitempty"`
}

type viewVersionDTO struct {
	VersionID int `json:"version-id"`
	TimestampMS int64 `json:"timestamp-ms"`
	SchemaID int `json:"schema-id"`
	Representations []viewRepresentationDTO `json:"representations"`
	DefaultNS []string `json:"default-namespace"`
}

type viewRepresentationDTO struct {
	Type string `json:"type"`
	SQL string `json:"sql"`
	Dialect string `json:"dialect"`
}

type viewMetadataDTO struct {
	FormatVersion int `json:"format-version"`
	ViewUUID string `json:"view-uuid"`
	Location string `json:"location"`
	CurrentVersionID int `json:"current-version-id"`
	Versions []viewVersionDTO `json:"versions"`
	Schemas []schemaDTO `json:"schemas"`
	Properties map[string]string `json:"properties,omitempty"`
}

func viewMetadataToDTO(m domain.ViewMetadata) viewMetadataDTO {
	out := viewMetadataDTO{
		FormatVersion: m.FormatVersion,
		ViewUUID: m.ViewUUID,
		Location: m.Location,
		CurrentVersionID: m.CurrentVersionID,
		Properties: m.Properties,
	}

	for _, s := range m.Schemas {
		out.Schemas = append(out.Schemas, schemaToDTO(s))
	}

	for _, v := range m.Versions {
		vd := viewVersionDTO{VersionID: v.VersionID, TimestampMS: v.TimestampMS, SchemaID: v.SchemaID, DefaultNS: []string(v.DefaultNS)}
		for _, r := range v.Representations {
			vd.Representations = append(vd.Representations, viewRepresentationDTO{Type: r.Type, SQL: r.SQL, Dialect: r.Dialect})
		}

		out.Versions = append(out.Versions, vd)
	}

	return out
}

type loadViewResponse struct {
	MetadataLocation string `json:"metadata-location"`
	Metadata viewMetadataDTO `json:"metadata"`
}

type namespaceResponse struct {
	Namespace []string `json:"namespace"`
	Properties map[string]string `json:"properties,omitempty"`
}

type listNamespacesResponse struct {
	Namespaces [][]string `json:"namespaces"`
}

type createNamespaceRequest struct {
	Namespace []string `json:"namespace"`
	Properties map[string]string `json:"properties,omitempty"`
}

type updateNamespacePropertiesRequest struct {
	Removals []string `json:"removals,omitempty"`
	Updates map[string]string `json:"updates,omitempty"`
}

type updateNamespacePropertiesResponse struct {
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

type identifierDTO struct {
	Namespace []string `json:"namespace"`
	Name string `json:"name"`
}

type createTableRequest struct {
	Name string `json:"name"`
	Schema schemaDTO `json:"schema"`
	PartitionSpec *partitionSpecDTO `json:"partition-spec,omitempty"`
	WriteOrder *sortOrderDTO `json:"write-order,omitempty"`
	StageCreate bool `json:"stage-create,omitempty"`
	Location string `json:"location,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type createViewRequest struct {
	Name string `json:"name"`
	Schema schemaDTO `json:"schema"`
	ViewVersion struct {
		Representations []viewRepresentationDTO `json:"representations"`
	} `json:"view-version"`
	Properties map[string]string `json:"properties,omitempty"`
	Location string `json:"location,omitempty"`
}

type renameRequest struct {
	Source identifierDTO `json:"source"`
	Destination identifierDTO `json:"destination"`
}

type listTablesResponse struct {
	Identifiers []identifierDTO `json:"identifiers"`
}

package httpx

import (
	"encoding/json"
	"fmt"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/lifecycle"
)

// commitTableRequest is the wire shape of a `POST.../tables/{table}`
// commit body: a `(requirements, updates)` pair, each entry discriminated
// by its own "type"/"action" string field per the Iceberg REST protocol.
type commitTableRequest struct {
	Identifier *identifierDTO `json:"identifier,omitempty"`
	Requirements []json.RawMessage `json:"requirements"`
	Updates []json.RawMessage `json:"updates"`
}

type commitViewRequest struct {
	Identifier *identifierDTO `json:"identifier,omitempty"`
	Requirements []json.RawMessage `json:"requirements"`
	Updates []json.RawMessage `json:"updates"`
}

// wireRequirement/wireUpdate hold every field any requirement/update kind
// might populate; decodeRequirements/decodeUpdates project them down onto
// the typed lifecycle.Requirement/lifecycle.Update the commit path expects.
type wireRequirement struct {
	Type string `json:"type"`
	UUID string `json:"uuid,omitempty"`
	SchemaID *int `json:"current-schema-id,omitempty"`
	SpecID *int `json:"default-spec-id,omitempty"`
	SortID *int `json:"default-sort-order-id,omitempty"`
	FieldID *int `json:"last-assigned-field-id,omitempty"`
	Ref string `json:"ref,omitempty"`
	SnapshotID *int64 `json:"snapshot-id,omitempty"`
}

type wireUpdate struct {
	Action string `json:"action"`
	Schema *schemaDTO `json:"schema,omitempty"`
	SchemaID *int `json:"schema-id,omitempty"`
	Spec *partitionSpecDTO `json:"spec,omitempty"`
	SpecID *int `json:"spec-id,omitempty"`
	SortOrder *sortOrderDTO `json:"sort-order,omitempty"`
	SortOrderID *int `json:"sort-order-id,omitempty"`
	RefName string `json:"ref-name,omitempty"`
	SnapshotID *int64 `json:"snapshot-id,omitempty"`
	Updates map[string]string `json:"updates,omitempty"`
	Removals []string `json:"removals,omitempty"`
	Location string `json:"location,omitempty"`
	Snapshot *wireSnapshot `json:"snapshot,omitempty"`
}

type wireSnapshot struct {
	SnapshotID int64 `json:"snapshot-id"`
	ParentSnapshotID *int64 `json:"parent-snapshot-id,omitempty"`
	SequenceNumber int64 `json:"sequence-number"`
	TimestampMS int64 `json:"timestamp-ms"`
	ManifestList string `json:"manifest-list"`
	Summary map[string]string `json:"summary,omitempty"`
	SchemaID *int `json:"schema-id,omitempty"`
}

func decodeRequirements(raw []json.RawMessage) ([]lifecycle.Requirement, error) {
	out := make([]lifecycle.Requirement, 0, len(raw))

	for _, r := range raw {
		var w wireRequirement
		if err := json.Unmarshal(r, &w); err != nil {
			return nil, domain.ValidationError{Code: "malformed_requirement", Message: "malformed commit requirement", Err: err}
		}

		kind := lifecycle.RequirementKind(w.Type)

		switch kind {
		case lifecycle.RequireAssertCreate, lifecycle.RequireAssertTableUUID, lifecycle.RequireAssertCurrentSchemaID,
			lifecycle.RequireAssertRefSnapshotID, lifecycle.RequireAssertDefaultSpecID,
			lifecycle.RequireAssertDefaultSortOrderID, lifecycle.RequireAssertLastAssignedFieldID:
		default:
			return nil, domain.ValidationError{Code: "unknown_commit_requirement", Message: fmt.Sprintf("unknown commit requirement %q", w.Type)}
		}

		out = append(out, lifecycle.Requirement{
			Kind: kind,
			UUID: w.UUID,
			SchemaID: w.SchemaID,
			SpecID: w.SpecID,
			SortID: w.SortID,
			FieldID: w.FieldID,
			Ref: w.Ref,
			SnapshotID: w.SnapshotID,
		})
	}

	return out, nil
}

func decodeUpdates(raw []json.RawMessage) ([]lifecycle.Update, error) {
	out := make([]lifecycle.Update, 0, len(raw))

	for _, r := range raw {
		var w wireUpdate
		if err := json.Unmarshal(r, &w); err != nil {
			return nil, domain.ValidationError{Code: "malformed_update", Message: "malformed commit update", Err: err}
		}

		u := lifecycle.Update{
			Kind: lifecycle.UpdateKind(w.Action),
			SchemaID: w.SchemaID,
			SpecID: w.SpecID,
			SortOrderID: w.SortOrderID,
			RefName: w.RefName,
			SnapshotID: w.SnapshotID,
			Properties: w.Updates,
			PropertyKeys: w.Removals,
			Location: w.Location,
		}

		if w.Schema != nil {
			s := schemaFromDTO(*w.Schema)
			u.Schema = &s
		}

		if w.Spec != nil {
			p := partitionSpecFromDTO(*w.Spec)
			u.PartitionSpec = &p
		}

		if w.SortOrder != nil {
			so := sortOrderFromDTO(*w.SortOrder)
			u.SortOrder = &so
		}

		if w.Snapshot != nil {
			u.Snapshot = &domain.Snapshot{
				SnapshotID: w.Snapshot.SnapshotID,
				ParentSnapshotID: w.Snapshot.ParentSnapshotID,
				SequenceNumber: w.Snapshot.SequenceNumber,
				TimestampMS: w.Snapshot.TimestampMS,
				Summary: w.Snapshot.Summary,
				ManifestListPath: w.Snapshot.ManifestList,
				SchemaID: w.Snapshot.SchemaID,
			}
		}

		switch u.Kind {
		case lifecycle.UpdateAddSchema, lifecycle.UpdateSetCurrentSchema, lifecycle.UpdateAddPartitionSpec,
			lifecycle.UpdateSetDefaultSpec, lifecycle.UpdateAddSortOrder, lifecycle.UpdateSetDefaultSortOrder,
			lifecycle.UpdateAddSnapshot, lifecycle.UpdateSetSnapshotRef, lifecycle.UpdateRemoveSnapshotRef,
			lifecycle.UpdateSetProperties, lifecycle.UpdateRemoveProperties, lifecycle.UpdateSetLocation:
		default:
			return nil, domain.ValidationError{Code: "unknown_commit_update", Message: fmt.Sprintf("unknown commit update action %q", w.Action)}
		}

		out = append(out, u)
	}

	return out, nil
}

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironlake-data/catalog/internal/domain"
)

func intPtr(i int) *int     { return &i }
func i64Ptr(i int64) *int64 { return &i }

func TestEvaluateTableRequirements_AssertCreate(t *testing.T) {
	assert.NoError(t, evaluateTableRequirements([]Requirement{{Kind: RequireAssertCreate}}, nil, false))

	err := evaluateTableRequirements([]Requirement{{Kind: RequireAssertCreate}}, &domain.TableMetadata{}, true)
	assert.Error(t, err)
	assert.IsType(t, domain.ConflictError{}, err)
}

func TestEvaluateTableRequirements_RequiresExistingTable(t *testing.T) {
	err := evaluateTableRequirements([]Requirement{{Kind: RequireAssertTableUUID, UUID: "abc"}}, nil, false)

	assert.Error(t, err)
	assert.IsType(t, domain.ConflictError{}, err)
}

func TestEvaluateTableRequirements_AssertTableUUID(t *testing.T) {
	current := &domain.TableMetadata{TableUUID: "abc"}

	assert.NoError(t, evaluateTableRequirements([]Requirement{{Kind: RequireAssertTableUUID, UUID: "abc"}}, current, true))

	err := evaluateTableRequirements([]Requirement{{Kind: RequireAssertTableUUID, UUID: "other"}}, current, true)
	assert.Error(t, err)
}

func TestEvaluateTableRequirements_AssertCurrentSchemaID(t *testing.T) {
	current := &domain.TableMetadata{CurrentSchemaID: 2}

	assert.NoError(t, evaluateTableRequirements([]Requirement{{Kind: RequireAssertCurrentSchemaID, SchemaID: intPtr(2)}}, current, true))
	assert.Error(t, evaluateTableRequirements([]Requirement{{Kind: RequireAssertCurrentSchemaID, SchemaID: intPtr(3)}}, current, true))
	assert.Error(t, evaluateTableRequirements([]Requirement{{Kind: RequireAssertCurrentSchemaID}}, current, true))
}

func TestEvaluateTableRequirements_AssertRefSnapshotID(t *testing.T) {
	current := &domain.TableMetadata{Refs: map[string]domain.SnapshotRef{
		"main": {Name: "main", SnapshotID: 10},
	}}

	testCases := []struct {
		name    string
		req     Requirement
		wantErr bool
	}{
		{
			name:    "matching ref",
			req:     Requirement{Kind: RequireAssertRefSnapshotID, Ref: "main", SnapshotID: i64Ptr(10)},
			wantErr: false,
		},
		{
			name:    "mismatched ref",
			req:     Requirement{Kind: RequireAssertRefSnapshotID, Ref: "main", SnapshotID: i64Ptr(99)},
			wantErr: true,
		},
		{
			name:    "ref must not exist but does",
			req:     Requirement{Kind: RequireAssertRefSnapshotID, Ref: "main", SnapshotID: nil},
			wantErr: true,
		},
		{
			name:    "ref must not exist and doesn't",
			req:     Requirement{Kind: RequireAssertRefSnapshotID, Ref: "nope", SnapshotID: nil},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := evaluateTableRequirements([]Requirement{tc.req}, current, true)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateTableRequirements_UnknownKind(t *testing.T) {
	current := &domain.TableMetadata{}

	err := evaluateTableRequirements([]Requirement{{Kind: "bogus"}}, current, true)

	assert.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

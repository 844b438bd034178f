package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlake-data/catalog/internal/domain"
)

func TestApplyTableUpdates_AddSchemaAndSetCurrent(t *testing.T) {
	md := &domain.TableMetadata{}
	schema := domain.Schema{SchemaID: 1, Fields: []domain.SchemaField{{ID: 5, Name: "id"}}}

	err := applyTableUpdates(md, []Update{
		{Kind: UpdateAddSchema, Schema: &schema},
		{Kind: UpdateSetCurrentSchema, SchemaID: intPtr(1)},
	})

	require.NoError(t, err)
	assert.Len(t, md.Schemas, 1)
	assert.Equal(t, 1, md.CurrentSchemaID)
	assert.NotZero(t, md.LastUpdatedMS)
}

func TestApplyTableUpdates_SetCurrentSchema_UnknownID(t *testing.T) {
	md := &domain.TableMetadata{}

	err := applyTableUpdates(md, []Update{{Kind: UpdateSetCurrentSchema, SchemaID: intPtr(9)}})

	assert.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestApplyTableUpdates_SnapshotRefLifecycle(t *testing.T) {
	md := &domain.TableMetadata{}
	snapshot := domain.Snapshot{SnapshotID: 100, SequenceNumber: 1, TimestampMS: 42}

	err := applyTableUpdates(md, []Update{
		{Kind: UpdateAddSnapshot, Snapshot: &snapshot},
		{Kind: UpdateSetSnapshotRef, RefName: "main", SnapshotID: i64Ptr(100)},
	})
	require.NoError(t, err)

	require.NotNil(t, md.CurrentSnapshotID)
	assert.Equal(t, int64(100), *md.CurrentSnapshotID)
	assert.Equal(t, "branch", md.Refs["main"].Type)
	assert.Len(t, md.SnapshotLog, 1)

	err = applyTableUpdates(md, []Update{{Kind: UpdateRemoveSnapshotRef, RefName: "main"}})
	require.NoError(t, err)
	assert.Nil(t, md.CurrentSnapshotID)
	_, exists := md.Refs["main"]
	assert.False(t, exists)
}

func TestApplyTableUpdates_SetAndRemoveProperties(t *testing.T) {
	md := &domain.TableMetadata{}

	err := applyTableUpdates(md, []Update{
		{Kind: UpdateSetProperties, Properties: map[string]string{"owner": "team-a", "tier": "gold"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "team-a", md.Properties["owner"])

	err = applyTableUpdates(md, []Update{{Kind: UpdateRemoveProperties, PropertyKeys: []string{"tier"}}})
	require.NoError(t, err)
	_, exists := md.Properties["tier"]
	assert.False(t, exists)
	assert.Equal(t, "team-a", md.Properties["owner"])
}

func TestApplyTableUpdates_SetLocation_RequiresValue(t *testing.T) {
	md := &domain.TableMetadata{}

	err := applyTableUpdates(md, []Update{{Kind: UpdateSetLocation, Location: ""}})
	assert.Error(t, err)

	err = applyTableUpdates(md, []Update{{Kind: UpdateSetLocation, Location: "s3://bucket/path"}})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/path", md.Location)
}

func TestApplyTableUpdates_UnknownKind(t *testing.T) {
	md := &domain.TableMetadata{}

	err := applyTableUpdates(md, []Update{{Kind: "bogus"}})

	assert.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestNewTableUUID_IsUnique(t *testing.T) {
	a := newTableUUID()
	b := newTableUUID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

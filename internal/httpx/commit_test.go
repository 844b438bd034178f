package httpx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/lifecycle"
)

func rawJSON(t *testing.T, s string) json.RawMessage {
	t.Helper()
	return json.RawMessage(s)
}

func TestDecodeRequirements_KnownKind(t *testing.T) {
	reqs, err := decodeRequirements([]json.RawMessage{
		rawJSON(t, `{"type":"assert-table-uuid","uuid":"abc-123"}`),
	})

	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, lifecycle.RequireAssertTableUUID, reqs[0].Kind)
	assert.Equal(t, "abc-123", reqs[0].UUID)
}

func TestDecodeRequirements_UnknownKind(t *testing.T) {
	_, err := decodeRequirements([]json.RawMessage{rawJSON(t, `{"type":"assert-something-exotic"}`)})

	require.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestDecodeRequirements_Malformed(t *testing.T) {
	_, err := decodeRequirements([]json.RawMessage{rawJSON(t, `not json`)})

	require.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestDecodeUpdates_SetProperties(t *testing.T) {
	updates, err := decodeUpdates([]json.RawMessage{
		rawJSON(t, `{"action":"set-properties","updates":{"owner":"team-a"}}`),
	})

	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, lifecycle.UpdateSetProperties, updates[0].Kind)
	assert.Equal(t, "team-a", updates[0].Properties["owner"])
}

func TestDecodeUpdates_AddSchema(t *testing.T) {
	updates, err := decodeUpdates([]json.RawMessage{
		rawJSON(t, `{"action":"add-schema","schema":{"schema-id":1,"fields":[{"id":1,"name":"id","type":"long","required":true}]}}`),
	})

	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Schema)
	assert.Equal(t, 1, updates[0].Schema.SchemaID)
	assert.Len(t, updates[0].Schema.Fields, 1)
}

func TestDecodeUpdates_UnknownAction(t *testing.T) {
	_, err := decodeUpdates([]json.RawMessage{rawJSON(t, `{"action":"do-something-unsupported"}`)})

	require.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestDecodeUpdates_Malformed(t *testing.T) {
	_, err := decodeUpdates([]json.RawMessage{rawJSON(t, `not json`)})

	require.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

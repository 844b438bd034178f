package reqctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlake-data/catalog/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestRequireProjectID_ExplicitWins(t *testing.T) {
	rc := &RequestContext{PreferredProjectID: "from-header"}

	got, err := RequireProjectID(strPtr("explicit"), rc, "default")

	require.NoError(t, err)
	assert.Equal(t, "explicit", got)
}

func TestRequireProjectID_FallsBackToPreferred(t *testing.T) {
	rc := &RequestContext{PreferredProjectID: "from-header"}

	got, err := RequireProjectID(nil, rc, "default")

	require.NoError(t, err)
	assert.Equal(t, "from-header", got)
}

func TestRequireProjectID_FallsBackToDefault(t *testing.T) {
	got, err := RequireProjectID(nil, nil, "default")

	require.NoError(t, err)
	assert.Equal(t, "default", got)
}

func TestRequireProjectID_NoneConfigured(t *testing.T) {
	_, err := RequireProjectID(nil, nil, "")

	require.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)
}

func TestRequireProjectID_ExplicitEmptyStringIgnored(t *testing.T) {
	got, err := RequireProjectID(strPtr(""), nil, "default")

	require.NoError(t, err)
	assert.Equal(t, "default", got)
}

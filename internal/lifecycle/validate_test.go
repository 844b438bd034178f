package lifecycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironlake-data/catalog/internal/domain"
)

func TestValidateIdentifierName(t *testing.T) {
	testCases := []struct {
		name    string
		ident   string
		wantErr bool
	}{
		{name: "valid", ident: "orders", wantErr: false},
		{name: "empty", ident: "", wantErr: true},
		{name: "reserved separator", ident: "orders\x1fraw", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateIdentifierName(tc.ident)
			if tc.wantErr {
				assert.Error(t, err)
				assert.IsType(t, domain.ValidationError{}, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNamespaceDepth(t *testing.T) {
	shallow := domain.NamespaceIdent{"a", "b"}
	deep := make(domain.NamespaceIdent, MaxNamespaceDepth+1)
	for i := range deep {
		deep[i] = "x"
	}

	assert.NoError(t, validateNamespaceDepth(shallow, false))

	err := validateNamespaceDepth(deep, false)
	assert.Error(t, err)
	assert.IsType(t, domain.ValidationError{}, err)

	overflowErr := validateNamespaceDepth(deep, true)
	assert.Error(t, overflowErr)
	assert.IsType(t, domain.NotFoundError{}, overflowErr)
}

func TestReservedNameChars_MatchesUnitSeparator(t *testing.T) {
	assert.True(t, strings.Contains(reservedNameChars, "\x1f"))
}

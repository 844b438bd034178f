package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	testCases := []struct {
		name     string
		err      ValidationError
		expected string
	}{
		{
			name:     "uses Message when set",
			err:      ValidationError{Message: "bad namespace"},
			expected: "bad namespace",
		},
		{
			name:     "falls back to wrapped error",
			err:      ValidationError{Err: errors.New("wrapped")},
			expected: "wrapped",
		},
		{
			name:     "falls back to generic text",
			err:      ValidationError{},
			expected: "validation failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestNotFoundError_Message(t *testing.T) {
	err := NotFoundError{EntityType: "Table"}
	assert.Equal(t, "Table not found", err.Error())

	wrapped := NotFoundError{Err: errors.New("row missing")}
	assert.Equal(t, "row missing", wrapped.Error())

	assert.Equal(t, "not found", NotFoundError{}.Error())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("root cause")

	testCases := []error{
		ValidationError{Err: cause},
		NotFoundError{Err: cause},
		ConflictError{Err: cause},
		ActionForbiddenError{Err: cause},
		AuthenticationRequiredError{Err: cause},
		BackendUnavailableError{Err: cause},
		InternalInvariantError{Err: cause},
	}

	for _, err := range testCases {
		assert.True(t, errors.Is(err, cause), "%T should unwrap to cause", err)
	}
}

func TestAuthorizationCountMismatchError(t *testing.T) {
	err := AuthorizationCountMismatchError(3, 1)

	assert.Contains(t, err.Message, "3")
	assert.Contains(t, err.Message, "1")
}

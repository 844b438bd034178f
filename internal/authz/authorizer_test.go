package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironlake-data/catalog/internal/domain"
)

// fakeBackend is a hand-rolled Backend double keyed by principal, since the
// decision surface (one bool per check, same order) is simple enough that a
// generated mock would add indirection without adding coverage.
type fakeBackend struct {
	decisions map[string][]bool
	err       error
	calls     []string
}

func (f *fakeBackend) BatchCheck(_ context.Context, principal string, checks []Check) ([]bool, error) {
	f.calls = append(f.calls, principal)

	if f.err != nil {
		return nil, f.err
	}

	d, ok := f.decisions[principal]
	if !ok {
		return make([]bool, len(checks)), nil
	}

	return d, nil
}

func tableCheck(id string) []Check {
	return []Check{{Resource: Resource{Kind: ResourceTable, ID: id}, Action: ActionReadTable}}
}

func TestAuthorizer_AreAllowed_Anonymous(t *testing.T) {
	backend := &fakeBackend{}
	a := New(backend)

	decisions, err := a.AreAllowed(context.Background(), domain.NewAnonymousActor(), tableCheck("t1"))

	require.NoError(t, err)
	assert.Equal(t, []bool{false}, decisions)
	assert.Empty(t, backend.calls, "anonymous actors never reach the backend")
}

func TestAuthorizer_AreAllowed_Admin(t *testing.T) {
	backend := &fakeBackend{}
	a := New(backend)

	actor := domain.Actor{Kind: domain.ActorPrincipal, UserID: "u1", AdminPrivileges: true}

	decisions, err := a.AreAllowed(context.Background(), actor, append(tableCheck("t1"), tableCheck("t2")...))

	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, decisions)
	assert.Empty(t, backend.calls, "admin shortcut never reaches the backend")
}

func TestAuthorizer_AreAllowed_Principal(t *testing.T) {
	backend := &fakeBackend{decisions: map[string][]bool{"u1": {true}}}
	a := New(backend)

	decisions, err := a.AreAllowed(context.Background(), domain.NewPrincipalActor("u1"), tableCheck("t1"))

	require.NoError(t, err)
	assert.Equal(t, []bool{true}, decisions)
	assert.Equal(t, []string{"u1"}, backend.calls)
}

func TestAuthorizer_AreAllowed_RoleAssumption_RequiresBoth(t *testing.T) {
	testCases := []struct {
		name      string
		decisions map[string][]bool
		expected  []bool
	}{
		{
			name:      "both allow",
			decisions: map[string][]bool{"u1": {true}, "role:r1": {true}},
			expected:  []bool{true},
		},
		{
			name:      "principal denies",
			decisions: map[string][]bool{"u1": {false}, "role:r1": {true}},
			expected:  []bool{false},
		},
		{
			name:      "role denies",
			decisions: map[string][]bool{"u1": {true}, "role:r1": {false}},
			expected:  []bool{false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{decisions: tc.decisions}
			a := New(backend)

			decisions, err := a.AreAllowed(context.Background(), domain.NewRoleActor("u1", "r1"), tableCheck("t1"))

			require.NoError(t, err)
			assert.Equal(t, tc.expected, decisions)
			assert.ElementsMatch(t, []string{"u1", "role:r1"}, backend.calls)
		})
	}
}

func TestAuthorizer_AreAllowed_BackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	a := New(backend)

	_, err := a.AreAllowed(context.Background(), domain.NewPrincipalActor("u1"), tableCheck("t1"))

	var unavailable domain.BackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "authz", unavailable.Backend)
}

// countMismatchBackend returns a decisions slice of the wrong length,
// exercising the InternalInvariantError path AreAllowed guards against.
type countMismatchBackend struct{}

func (countMismatchBackend) BatchCheck(context.Context, string, []Check) ([]bool, error) {
	return []bool{true, true}, nil
}

func TestAuthorizer_AreAllowed_CountMismatch(t *testing.T) {
	a := New(countMismatchBackend{})

	_, err := a.AreAllowed(context.Background(), domain.NewPrincipalActor("u1"), tableCheck("t1"))

	var invariant domain.InternalInvariantError
	require.ErrorAs(t, err, &invariant)
}

func TestAuthorizer_RequireAction_VisibleDenied(t *testing.T) {
	backend := &fakeBackend{decisions: map[string][]bool{"u1": {false}}}
	a := New(backend)

	err := a.RequireAction(context.Background(), domain.NewPrincipalActor("u1"), Resource{Kind: ResourceTable, ID: "t1"}, ActionReadTable, true)

	var forbidden domain.ActionForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestAuthorizer_RequireAction_HiddenDenied(t *testing.T) {
	backend := &fakeBackend{decisions: map[string][]bool{"u1": {false}}}
	a := New(backend)

	err := a.RequireAction(context.Background(), domain.NewPrincipalActor("u1"), Resource{Kind: ResourceTable, ID: "t1"}, ActionReadTable, false)

	var notFound domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestAuthorizer_RequireAction_Allowed(t *testing.T) {
	backend := &fakeBackend{decisions: map[string][]bool{"u1": {true}}}
	a := New(backend)

	err := a.RequireAction(context.Background(), domain.NewPrincipalActor("u1"), Resource{Kind: ResourceTable, ID: "t1"}, ActionReadTable, true)

	assert.NoError(t, err)
}

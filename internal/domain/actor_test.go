package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActor_Constructors(t *testing.T) {
	anon := NewAnonymousActor()
	assert.True(t, anon.IsAnonymous())
	assert.False(t, anon.AssumesRole())

	principal := NewPrincipalActor("user-1")
	assert.False(t, principal.IsAnonymous())
	assert.Equal(t, "user-1", principal.Principal())
	assert.False(t, principal.AssumesRole())

	role := NewRoleActor("user-1", "role-1")
	assert.True(t, role.AssumesRole())
	assert.Equal(t, "user-1", role.Principal())
}

func TestActor_AssumesRole_RequiresRoleID(t *testing.T) {
	actor := Actor{Kind: ActorRole, UserID: "user-1"}
	assert.False(t, actor.AssumesRole(), "role kind with no assumed role id is not actually assuming a role")
}

func TestActor_IsAdmin(t *testing.T) {
	assert.True(t, Actor{AdminPrivileges: true}.IsAdmin())
	assert.False(t, Actor{}.IsAdmin())
}

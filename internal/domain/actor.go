package domain

// ActorKind distinguishes the three shapes an authenticated (or unauthenticated)
// caller can take.
type ActorKind string

const (
	ActorAnonymous ActorKind = "anonymous"
	ActorPrincipal ActorKind = "principal"
	ActorRole ActorKind = "role"
)

// Actor is the identity behind a request. A role-assumed actor carries both
// the underlying principal and the assumed role; both must separately
// authorize an action.
type Actor struct {
	Kind ActorKind
	UserID string
	AssumedRoleID string
	AdminPrivileges bool
}

// IsAnonymous reports whether the actor carries no authenticated identity.
func (a Actor) IsAnonymous() bool { return a.Kind == ActorAnonymous }

// Principal returns the user id backing this actor, whether acting directly
// or through an assumed role.
func (a Actor) Principal() string { return a.UserID }

// AssumesRole reports whether this actor is currently acting under a role.
func (a Actor) AssumesRole() bool { return a.Kind == ActorRole && a.AssumedRoleID != "" }

// IsAdmin reports whether the actor's request metadata declared admin
// privileges.
func (a Actor) IsAdmin() bool { return a.AdminPrivileges }

func NewAnonymousActor() Actor { return Actor{Kind: ActorAnonymous} }

func NewPrincipalActor(userID string) Actor {
	return Actor{Kind: ActorPrincipal, UserID: userID}
}

func NewRoleActor(userID, roleID string) Actor {
	return Actor{Kind: ActorRole, UserID: userID, AssumedRoleID: roleID}
}

package domain

import "time"

// Server is the process-wide singleton representing this deployment. No
// code in this module performs a bootstrap or sets these fields, and there
// is no CatalogAlreadyBootstrapped error.
type Server struct {
	ID string
	Bootstrapped bool
	TermsAccepted bool
	BootstrappedAt *time.Time
}

// Project owns warehouses, users and roles.
type Project struct {
	ID string
	Name string
	CreatedAt time.Time
	UpdatedAt time.Time
}

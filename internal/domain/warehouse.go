package domain

import "time"

// WarehouseStatus is the activation state of a warehouse.
type WarehouseStatus string

const (
	WarehouseActive WarehouseStatus = "active"
	WarehouseInactive WarehouseStatus = "inactive"
)

// DeleteProfileKind distinguishes hard-delete (no soft-delete state, no
// retention window) from soft-delete (deleted tabulars enter a retention
// window before expiration purges them).
type DeleteProfileKind string

const (
	DeleteProfileHard DeleteProfileKind = "hard"
	DeleteProfileSoft DeleteProfileKind = "soft"
)

// TabularDeleteProfile is the warehouse-level policy governing how dropped
// tables/views are retired.
type TabularDeleteProfile struct {
	Kind DeleteProfileKind
	RetentionDuration time.Duration // only meaningful when Kind == DeleteProfileSoft
}

func HardDeleteProfile() TabularDeleteProfile {
	return TabularDeleteProfile{Kind: DeleteProfileHard}
}

func SoftDeleteProfile(retention time.Duration) TabularDeleteProfile {
	return TabularDeleteProfile{Kind: DeleteProfileSoft, RetentionDuration: retention}
}

func (p TabularDeleteProfile) IsSoft() bool { return p.Kind == DeleteProfileSoft }

// Warehouse binds a storage profile to an isolated namespace space within a
// project.
type Warehouse struct {
	ID string
	Name string
	ProjectID string
	StorageProfile StorageProfile
	StorageSecretID *string
	Status WarehouseStatus
	TabularDeleteProfile TabularDeleteProfile
	Protected bool
	Version int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Warehouse) IsActive() bool { return w.Status == WarehouseActive }

// CacheVersion satisfies catalogstore.Versioned.
func (w Warehouse) CacheVersion() int64 { return w.Version }

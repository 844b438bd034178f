package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// CreateWarehouseInput is the management-endpoint payload for creating a
// warehouse.
type CreateWarehouseInput struct {
	ProjectID string
	Name string
	StorageProfile domain.StorageProfile
	StorageSecretID *string
	TabularDeleteProfile domain.TabularDeleteProfile
}

// CreateWarehouse binds a storage profile to a new, isolated namespace
// space within a project.
func (s *Service) CreateWarehouse(ctx context.Context, actor domain.Actor, in CreateWarehouseInput) (*domain.Warehouse, error) {
	if err := validateIdentifierName(in.Name); err != nil {
		return nil, err
	}

	if _, err := s.store.Projects.Get(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceProject, ID: in.ProjectID}, authz.ActionCreateWarehouse, true); err != nil {
		return nil, err
	}

	wh := &domain.Warehouse{
		ID: uuid.NewString(),
		Name: in.Name,
		ProjectID: in.ProjectID,
		StorageProfile: in.StorageProfile,
		StorageSecretID: in.StorageSecretID,
		Status: domain.WarehouseActive,
		TabularDeleteProfile: in.TabularDeleteProfile,
	}

	created, err := s.store.Warehouses.Create(ctx, wh)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventWarehouseCreated, WarehouseID: created.ID, EntityID: created.ID})

	return created, nil
}

// GetWarehouse resolves and authorizes read access to a single warehouse.
// Unlike resolveWarehouse (used internally by tabular operations), this
// does not reject an inactive warehouse — the management API must still be
// able to read one in order to reactivate it.
func (s *Service) GetWarehouse(ctx context.Context, actor domain.Actor, projectID, warehouseID string) (*domain.Warehouse, error) {
	wh, err := s.store.Warehouses.Get(ctx, projectID, warehouseID)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: warehouseID}, authz.ActionReadWarehouse, visible); authErr != nil {
		return nil, authErr
	}

	return wh, err
}

// ListWarehouses returns every warehouse in a project, optionally filtered
// to a single status, authorizing at the project level.
func (s *Service) ListWarehouses(ctx context.Context, actor domain.Actor, projectID string, status *domain.WarehouseStatus) ([]*domain.Warehouse, error) {
	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceProject, ID: projectID}, authz.ActionListWarehouses, true); err != nil {
		return nil, err
	}

	return s.store.Warehouses.List(ctx, projectID, status)
}

// UpdateWarehouseStatus activates or deactivates a warehouse.
func (s *Service) UpdateWarehouseStatus(ctx context.Context, actor domain.Actor, projectID, warehouseID string, status domain.WarehouseStatus) error {
	wh, err := s.GetWarehouse(ctx, actor, projectID, warehouseID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: warehouseID}, authz.ActionUpdateWarehouse, true); err != nil {
		return err
	}

	if err := s.store.Warehouses.UpdateStatus(ctx, warehouseID, status, wh.Version); err != nil {
		return err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventWarehouseUpdated, WarehouseID: warehouseID, EntityID: warehouseID})

	return nil
}

// UpdateWarehouseStorageProfile replaces a warehouse's storage profile.
// Callers are responsible for ensuring the new profile still resolves the
// data already written under the old one.
func (s *Service) UpdateWarehouseStorageProfile(ctx context.Context, actor domain.Actor, projectID, warehouseID string, profile domain.StorageProfile) error {
	wh, err := s.GetWarehouse(ctx, actor, projectID, warehouseID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: warehouseID}, authz.ActionUpdateWarehouse, true); err != nil {
		return err
	}

	if err := s.store.Warehouses.UpdateStorageProfile(ctx, warehouseID, profile, wh.Version); err != nil {
		return err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventWarehouseUpdated, WarehouseID: warehouseID, EntityID: warehouseID})

	return nil
}

// SetWarehouseProtected toggles delete-protection.
func (s *Service) SetWarehouseProtected(ctx context.Context, actor domain.Actor, projectID, warehouseID string, protected bool) error {
	wh, err := s.GetWarehouse(ctx, actor, projectID, warehouseID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: warehouseID}, authz.ActionUpdateWarehouse, true); err != nil {
		return err
	}

	return s.store.Warehouses.SetProtected(ctx, warehouseID, protected, wh.Version)
}

// DeleteWarehouse removes a warehouse. The store's foreign-key constraints
// restrict deletion while live namespaces remain, surfaced as a
// ConflictError to the caller.
func (s *Service) DeleteWarehouse(ctx context.Context, actor domain.Actor, projectID, warehouseID string) error {
	wh, err := s.GetWarehouse(ctx, actor, projectID, warehouseID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: warehouseID}, authz.ActionDeleteWarehouse, true); err != nil {
		return err
	}

	if wh.Protected {
		return domain.ValidationError{Code: "warehouse_protected", Message: "warehouse is protected from deletion"}
	}

	if err := s.store.Warehouses.Delete(ctx, warehouseID); err != nil {
		return err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventWarehouseDeleted, WarehouseID: warehouseID, EntityID: warehouseID})

	return nil
}

package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// CreateNamespaceInput is the caller-supplied half of CreateNamespace.
type CreateNamespaceInput struct {
	ProjectID string
	WarehouseID string
	Path domain.NamespaceIdent
	Properties map[string]string
}

// CreateNamespace has no object-store footprint of its own: a namespace is
// pure catalog-store metadata, so this skips the CompensationGuard/FileIO
// machinery table/view creation needs.
func (s *Service) CreateNamespace(ctx context.Context, actor domain.Actor, in CreateNamespaceInput) (*domain.Namespace, error) {
	if in.Path.Depth() == 0 {
		return nil, domain.ValidationError{Code: "empty_namespace", Message: "namespace identifier must have at least one component"}
	}

	for _, seg := range in.Path {
		if err := validateIdentifierName(seg); err != nil {
			return nil, err
		}
	}

	if err := validateNamespaceDepth(in.Path, false); err != nil {
		return nil, err
	}

	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	// Namespaces persist their full path rather than an explicit parent fk,
	// so the only reason to load the parent here is to authorize against it.
	if in.Path.Depth() > 1 {
		parent, err := s.store.Namespaces.Get(ctx, wh.ID, in.Path[:len(in.Path)-1])
		if err != nil {
			return nil, err
		}

		if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: parent.ID}, authz.ActionCreateNamespace, true); err != nil {
			return nil, err
		}
	} else {
		if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: wh.ID}, authz.ActionCreateNamespace, true); err != nil {
			return nil, err
		}
	}

	ns := &domain.Namespace{
		ID: uuid.NewString(),
		WarehouseID: wh.ID,
		Path: in.Path,
		Properties: in.Properties,
	}

	created, err := s.store.Namespaces.Create(ctx, ns)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventNamespaceCreated, WarehouseID: wh.ID, EntityID: created.ID})

	return created, nil
}

// GetNamespace loads a namespace's metadata, authorizing read access.
func (s *Service) GetNamespace(ctx context.Context, actor domain.Actor, projectID, warehouseID string, path domain.NamespaceIdent) (*domain.Namespace, error) {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return nil, err
	}

	if err := validateNamespaceDepth(path, true); err != nil {
		return nil, err
	}

	ns, err := s.store.Namespaces.Get(ctx, wh.ID, path)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: namespaceIDOrPath(ns, path)}, authz.ActionReadNamespace, visible); authErr != nil {
		return nil, authErr
	}

	return ns, err
}

// NamespaceExists backs the protocol's HEAD endpoint: existence plus
// visibility, no metadata returned.
func (s *Service) NamespaceExists(ctx context.Context, actor domain.Actor, projectID, warehouseID string, path domain.NamespaceIdent) error {
	_, err := s.GetNamespace(ctx, actor, projectID, warehouseID, path)
	return err
}

// ListNamespaces returns the immediate children of parent (empty parent
// lists roots), authorizing against the warehouse or the parent namespace.
func (s *Service) ListNamespaces(ctx context.Context, actor domain.Actor, projectID, warehouseID string, parent domain.NamespaceIdent, page catalogstore.Page) ([]*domain.Namespace, error) {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return nil, err
	}

	if parent.Depth() > 0 {
		parentNS, err := s.store.Namespaces.Get(ctx, wh.ID, parent)
		if err != nil {
			return nil, err
		}

		if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: parentNS.ID}, authz.ActionListNamespace, true); err != nil {
			return nil, err
		}
	} else {
		if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceWarehouse, ID: wh.ID}, authz.ActionListNamespace, true); err != nil {
			return nil, err
		}
	}

	return s.store.Namespaces.ListChildren(ctx, wh.ID, parent, page)
}

// UpdateNamespaceProperties applies a partial update.
func (s *Service) UpdateNamespaceProperties(ctx context.Context, actor domain.Actor, projectID, warehouseID string, path domain.NamespaceIdent, removals []string, updates map[string]string) (*domain.Namespace, error) {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return nil, err
	}

	ns, err := s.store.Namespaces.Get(ctx, wh.ID, path)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: namespaceIDOrPath(ns, path)}, authz.ActionUpdateNamespace, visible); authErr != nil {
		return nil, authErr
	}

	if err != nil {
		return nil, err
	}

	props := make(map[string]string, len(ns.Properties)+len(updates))
	for k, v := range ns.Properties {
		props[k] = v
	}

	for _, k := range removals {
		delete(props, k)
	}

	for k, v := range updates {
		props[k] = v
	}

	if err := s.store.Namespaces.UpdateProperties(ctx, ns.ID, props, ns.Version); err != nil {
		return nil, err
	}

	ns.Properties = props
	ns.Version++

	return ns, nil
}

// DropNamespace removes an empty namespace.
func (s *Service) DropNamespace(ctx context.Context, actor domain.Actor, projectID, warehouseID string, path domain.NamespaceIdent) error {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return err
	}

	ns, err := s.store.Namespaces.Get(ctx, wh.ID, path)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: namespaceIDOrPath(ns, path)}, authz.ActionDeleteNamespace, visible); authErr != nil {
		return authErr
	}

	if err != nil {
		return err
	}

	if ns.Protected {
		return domain.ValidationError{Code: "namespace_protected", Message: "namespace is protected from deletion"}
	}

	if err := s.store.Namespaces.Delete(ctx, ns.ID); err != nil {
		return err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventNamespaceDropped, WarehouseID: wh.ID, EntityID: ns.ID})

	return nil
}

func namespaceIDOrPath(ns *domain.Namespace, fallback domain.NamespaceIdent) string {
	if ns != nil {
		return ns.ID
	}

	return fallback.String()
}

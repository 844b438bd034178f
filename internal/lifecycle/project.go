package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// CreateProject provisions a project, the top-level ownership boundary for
// warehouses, roles and users.
func (s *Service) CreateProject(ctx context.Context, actor domain.Actor, name string) (*domain.Project, error) {
	if err := validateIdentifierName(name); err != nil {
		return nil, err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceServer}, authz.ActionCreateProject, true); err != nil {
		return nil, err
	}

	p := &domain.Project{ID: uuid.NewString(), Name: name}

	created, err := s.store.Projects.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventProjectCreated, EntityID: created.ID})

	return created, nil
}

// GetProject loads a single project.
func (s *Service) GetProject(ctx context.Context, actor domain.Actor, id string) (*domain.Project, error) {
	p, err := s.store.Projects.Get(ctx, id)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceProject, ID: id}, authz.ActionReadProject, visible); authErr != nil {
		return nil, authErr
	}

	return p, err
}

// ListProjects returns every project visible to actor. The authorization
// backend, not this service, decides per-actor visibility; a principal who
// administers no projects simply authorizes none of them.
func (s *Service) ListProjects(ctx context.Context, actor domain.Actor) ([]*domain.Project, error) {
	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceServer}, authz.ActionListProjects, true); err != nil {
		return nil, err
	}

	return s.store.Projects.List(ctx)
}

// DeleteProject removes a project once it owns no warehouses (enforced by
// the store's foreign-key restrict, surfaced here as a ConflictError).
func (s *Service) DeleteProject(ctx context.Context, actor domain.Actor, id string) error {
	if _, err := s.GetProject(ctx, actor, id); err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceProject, ID: id}, authz.ActionDeleteProject, true); err != nil {
		return err
	}

	if err := s.store.Projects.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventProjectDeleted, EntityID: id})

	return nil
}

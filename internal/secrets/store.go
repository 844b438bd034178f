// Package secrets implements the Secret store component. Secrets are opaque past this package: the catalog
// never inspects a payload, only hands it to the storage credential vendor.
package secrets

import (
	"context"

	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
)

// Store is the full port the secret-management endpoints need: read,
// create-or-replace, and delete. lifecycle.SecretStore is the narrower
// read-only subset the tabular lifecycle consumes.
type Store interface {
	Get(ctx context.Context, id string) (*domain.Secret, error)
	Put(ctx context.Context, secret *domain.Secret) error
	Delete(ctx context.Context, id string) error
}

// CachedStore wraps a primary Store with a read-through cache.
// Mutations invalidate rather than populate, so a concurrent reader never
// observes a half-written payload.
type CachedStore struct {
	primary Store
	cache *catalogstore.Cache
}

// NewCachedStore wires cache in front of primary. cache may be nil, in
// which case CachedStore degrades to calling primary directly — the same
// "cache is an optimization, never a source of truth" posture as the
// catalog store's own warehouse cache.
func NewCachedStore(primary Store, cache *catalogstore.Cache) *CachedStore {
	return &CachedStore{primary: primary, cache: cache}
}

func (s *CachedStore) Get(ctx context.Context, id string) (*domain.Secret, error) {
	if s.cache != nil {
		if v, ok := catalogstore.Get[domain.Secret](ctx, s.cache, "secret", id, catalogstore.PolicyUse, 0); ok {
			return &v, nil
		}
	}

	secret, err := s.primary.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		catalogstore.Put(ctx, s.cache, "secret", id, *secret)
	}

	return secret, nil
}

func (s *CachedStore) Put(ctx context.Context, secret *domain.Secret) error {
	if err := s.primary.Put(ctx, secret); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, "secret", secret.ID)
	}

	return nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.primary.Delete(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, "secret", id)
	}

	return nil
}

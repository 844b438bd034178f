package lifecycle

import (
	"context"
	"time"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/applog"
	"github.com/ironlake-data/catalog/internal/storage"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// SecretStore is the narrow read port this service needs from the secret
// store component: resolving a warehouse's storage-secret reference into
// the payload the credential vendor signs with. The concrete Mongo/Secrets
// Manager-backed implementations live in internal/secrets.
type SecretStore interface {
	Get(ctx context.Context, id string) (*domain.Secret, error)
}

// Service implements the tabular lifecycle orchestration: it is the only
// component that calls into the catalog store, storage binding,
// authorization layer and task queue within a single operation.
type Service struct {
	store *catalogstore.Store
	authorizer *authz.Authorizer
	queue *taskqueue.Queue
	events *taskqueue.EventPublisher
	secrets SecretStore
	credVendor *storage.CredentialVendor
	log applog.Logger
}

func NewService(
	store *catalogstore.Store,
	authorizer *authz.Authorizer,
	queue *taskqueue.Queue,
	events *taskqueue.EventPublisher,
	secrets SecretStore,
	credVendor *storage.CredentialVendor,
	log applog.Logger,
) *Service {
	return &Service{
		store: store,
		authorizer: authorizer,
		queue: queue,
		events: events,
		secrets: secrets,
		credVendor: credVendor,
		log: log,
	}
}

// resolveWarehouse loads and validates the warehouse named by id is active.
func (s *Service) resolveWarehouse(ctx context.Context, projectID, warehouseID string) (*domain.Warehouse, error) {
	wh, err := s.store.Warehouses.Get(ctx, projectID, warehouseID)
	if err != nil {
		return nil, err
	}

	if !wh.IsActive() {
		return nil, domain.ValidationError{Code: "warehouse_not_active", Message: "warehouse is not active"}
	}

	return wh, nil
}

// resolveNamespace loads the containing namespace.
func (s *Service) resolveNamespace(ctx context.Context, warehouseID string, path domain.NamespaceIdent) (*domain.Namespace, error) {
	return s.store.Namespaces.Get(ctx, warehouseID, path)
}

// namespaceLocation derives the default object-store location for a
// namespace: the warehouse's base location joined with the namespace path.
// Namespaces do not persist an explicit location column; it is always
// computed from the warehouse.
func namespaceLocation(wh *domain.Warehouse, path domain.NamespaceIdent) string {
	base := wh.StorageProfile.BaseLocation
	for _, seg := range path {
		base = base + "/" + seg
	}

	return base
}

// fileIOFor builds a FileIO for wh, vending scoped credentials through the
// secret store when the warehouse has one on file and the provider
// supports STS.
func (s *Service) fileIOFor(ctx context.Context, wh *domain.Warehouse) (storage.FileIO, error) {
	creds, err := s.vendCredentials(ctx, wh, wh.StorageProfile.BaseLocation, storage.PermissionReadWriteDelete)
	if err != nil {
		return nil, err
	}

	return storage.NewFileIO(ctx, wh.StorageProfile, creds.Credentials)
}

func (s *Service) vendCredentials(ctx context.Context, wh *domain.Warehouse, location string, perm storage.Permission) (*storage.TableConfig, error) {
	var secret *domain.Secret

	if wh.StorageSecretID != nil && s.secrets != nil {
		sec, err := s.secrets.Get(ctx, *wh.StorageSecretID)
		if err != nil {
			return nil, err
		}

		secret = sec
	}

	return s.credVendor.GenerateTableConfig(ctx, wh.StorageProfile, secret, location, perm)
}

func nowMillis() int64 { return time.Now().UTC().UnixMilli() }

package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/authz"
	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/storage"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// CreateViewInput is the caller-supplied half of CreateView. Unlike tables,
// views are never staged : a metadata file is always
// written as part of creation.
type CreateViewInput struct {
	ProjectID string
	WarehouseID string
	Namespace domain.NamespaceIdent
	Name string
	Schema domain.Schema
	Query string
	Dialect string
	Properties map[string]string
	Location string
}

// CreateView mirrors CreateTable's skeleton without the staged-create
// branch.
func (s *Service) CreateView(ctx context.Context, actor domain.Actor, in CreateViewInput) (*domain.View, error) {
	if err := validateIdentifierName(in.Name); err != nil {
		return nil, err
	}

	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	ns, err := s.resolveNamespace(ctx, wh.ID, in.Namespace)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: ns.ID}, authz.ActionCreateView, true); err != nil {
		return nil, err
	}

	if _, err := s.store.Tabulars.GetTable(ctx, ns.ID, in.Name); err == nil {
		return nil, domain.ConflictError{Code: "tabular_kind_collision", Message: "a table with this name already exists"}
	}

	view := &domain.View{
		ID: uuid.NewString(),
		WarehouseID: wh.ID,
		NamespaceID: ns.ID,
		Name: in.Name,
	}

	loc := in.Location
	if loc == "" {
		defaultLoc, err := storage.DefaultTabularLocation(namespaceLocation(wh, ns.Path), view.ID)
		if err != nil {
			return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
		}

		loc = string(defaultLoc)
	}

	view.FSLocation = loc

	codec, err := storage.ParseCodec(in.Properties["write.metadata.compression-codec"])
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_property", Message: err.Error(), Err: err}
	}

	metadata := freshViewMetadata(view.FSLocation, in.Schema, in.Query, in.Dialect, in.Namespace, in.Properties)

	metadataLoc, err := storage.DefaultMetadataLocation(view.FSLocation, codec, uuid.NewString(), 0)
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal initial view metadata", Err: err}
	}

	fio, err := s.fileIOFor(ctx, wh)
	if err != nil {
		return nil, err
	}

	guard := NewCompensationGuard(ctx, s.log)
	defer guard.Close()

	if err := storage.WriteFile(ctx, fio, metadataLoc, codec, encoded); err != nil {
		return nil, domain.BackendUnavailableError{Backend: "object-store", Message: "write initial view metadata", Err: err}
	}

	guard.OnRollback(func(ctx context.Context) error { return fio.Delete(ctx, metadataLoc) })

	view.MetadataFileLocation = string(metadataLoc)
	view.Metadata = metadata

	var created *domain.View

	err = s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		v, err := tx.Tabulars.CreateView(ctx, view)
		if err != nil {
			return err
		}

		created = v

		return nil
	})
	if err != nil {
		return nil, err
	}

	guard.Disarm()

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventViewCreated, WarehouseID: wh.ID, EntityID: created.ID})

	return created, nil
}

// LoadView resolves a view for reading.
func (s *Service) LoadView(ctx context.Context, actor domain.Actor, projectID, warehouseID string, ident domain.NamespaceIdent, name string) (*domain.View, error) {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return nil, err
	}

	ns, err := s.resolveNamespace(ctx, wh.ID, ident)
	if err != nil {
		return nil, err
	}

	view, err := s.store.Tabulars.GetView(ctx, ns.ID, name)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceView, ID: resourceIDOrNameView(view, name)}, authz.ActionReadView, visible); authErr != nil {
		return nil, authErr
	}

	return view, err
}

// CommitViewInput replaces a view's current version wholesale: views do not
// carry requirement predicates the way tables do (no concurrent-writer
// reconciliation), only an expected version for optimistic concurrency.
type CommitViewInput struct {
	ProjectID string
	WarehouseID string
	Namespace domain.NamespaceIdent
	Name string
	ExpectedVersion int64
	Schema domain.Schema
	Query string
	Dialect string
	Properties map[string]string
}

// CommitView appends a new ViewVersion and performs the conditional swap.
func (s *Service) CommitView(ctx context.Context, actor domain.Actor, in CommitViewInput) (*domain.View, error) {
	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	ns, err := s.resolveNamespace(ctx, wh.ID, in.Namespace)
	if err != nil {
		return nil, err
	}

	view, err := s.store.Tabulars.GetView(ctx, ns.ID, in.Name)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceView, ID: resourceIDOrNameView(view, in.Name)}, authz.ActionCommitView, visible); authErr != nil {
		return nil, authErr
	}

	if err != nil {
		return nil, err
	}

	if view.Version != in.ExpectedVersion {
		return nil, domain.ConflictError{Code: "view_version_mismatch", Message: "view was modified concurrently", Retryable: true}
	}

	schemaID := len(view.Metadata.Schemas)
	view.Metadata.Schemas = append(view.Metadata.Schemas, withSchemaID(in.Schema, schemaID))

	versionID := view.Metadata.CurrentVersionID + 1
	view.Metadata.Versions = append(view.Metadata.Versions, domain.ViewVersion{
		VersionID: versionID,
		TimestampMS: nowMillis(),
		SchemaID: schemaID,
		Representations: []domain.ViewRepresentation{
			{Type: "sql", SQL: in.Query, Dialect: in.Dialect},
		},
		DefaultNS: in.Namespace,
	})
	view.Metadata.CurrentVersionID = versionID
	view.Metadata.VersionLog = append(view.Metadata.VersionLog, domain.SnapshotLogEntry{TimestampMS: nowMillis(), SnapshotID: int64(versionID)})

	if view.Metadata.Properties == nil {
		view.Metadata.Properties = map[string]string{}
	}

	for k, v := range in.Properties {
		view.Metadata.Properties[k] = v
	}

	codec, err := storage.ParseCodec(view.Metadata.Properties["write.metadata.compression-codec"])
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_property", Message: err.Error(), Err: err}
	}

	metadataLoc, err := storage.DefaultMetadataLocation(view.FSLocation, codec, uuid.NewString(), versionID)
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
	}

	encoded, err := json.Marshal(view.Metadata)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal view metadata", Err: err}
	}

	fio, err := s.fileIOFor(ctx, wh)
	if err != nil {
		return nil, err
	}

	guard := NewCompensationGuard(ctx, s.log)
	defer guard.Close()

	if err := storage.WriteFile(ctx, fio, metadataLoc, codec, encoded); err != nil {
		return nil, domain.BackendUnavailableError{Backend: "object-store", Message: "write view commit metadata", Err: err}
	}

	guard.OnRollback(func(ctx context.Context) error { return fio.Delete(ctx, metadataLoc) })

	err = s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		return tx.Tabulars.CommitView(ctx, view.ID, view.Metadata, string(metadataLoc), view.Version)
	})
	if err != nil {
		return nil, err
	}

	guard.Disarm()

	view.MetadataFileLocation = string(metadataLoc)
	view.Version++

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventViewCommit, WarehouseID: wh.ID, EntityID: view.ID})

	return view, nil
}

// DropView mirrors DropTable's retention-policy branch.
func (s *Service) DropView(ctx context.Context, actor domain.Actor, projectID, warehouseID string, ns domain.NamespaceIdent, name string, purge bool) error {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return err
	}

	namespace, err := s.resolveNamespace(ctx, wh.ID, ns)
	if err != nil {
		return err
	}

	view, err := s.store.Tabulars.GetView(ctx, namespace.ID, name)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceView, ID: resourceIDOrNameView(view, name)}, authz.ActionDropView, visible); authErr != nil {
		return authErr
	}

	if err != nil {
		return err
	}

	if view.Protected {
		return domain.ValidationError{Code: "tabular_protected", Message: "view is protected from deletion"}
	}

	if wh.TabularDeleteProfile.IsSoft() {
		if err := s.store.Tabulars.SoftDelete(ctx, view.ID, view.Version); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"tabular_kind": domain.TabularView,
			"tabular_id": view.ID,
			"purge_after": purge,
		})

		if _, _, err := s.queue.Enqueue(ctx, domain.QueueTabularExpiration, domain.TaskInput{
			ProjectID: projectID,
			WarehouseID: &wh.ID,
			EntityID: &view.ID,
			IdempotencyKey: "expire-" + view.ID,
			ScheduledFor: time.Now().UTC().Add(wh.TabularDeleteProfile.RetentionDuration),
			Payload: payload,
			MaxRetries: 5,
		}); err != nil {
			return err
		}
	} else {
		if err := s.store.Tabulars.HardDelete(ctx, view.ID); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"tabular_kind": domain.TabularView,
			"tabular_id": view.ID,
			"fs_location": view.FSLocation,
			"warehouse_id": wh.ID,
		})

		if _, _, err := s.queue.Enqueue(ctx, domain.QueueTabularPurge, domain.TaskInput{
			ProjectID: projectID,
			WarehouseID: &wh.ID,
			EntityID: &view.ID,
			IdempotencyKey: "purge-" + view.ID,
			ScheduledFor: time.Now().UTC(),
			Payload: payload,
			MaxRetries: 5,
		}); err != nil {
			return err
		}
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventViewDropped, WarehouseID: wh.ID, EntityID: view.ID})

	return nil
}

// RenameView mirrors RenameTable, rejecting collision with a same-named
// table.
func (s *Service) RenameView(ctx context.Context, actor domain.Actor, in RenameTableInput) error {
	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return err
	}

	srcNS, err := s.resolveNamespace(ctx, wh.ID, in.SourceNS)
	if err != nil {
		return err
	}

	view, err := s.store.Tabulars.GetView(ctx, srcNS.ID, in.SourceName)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceView, ID: resourceIDOrNameView(view, in.SourceName)}, authz.ActionRenameView, visible); authErr != nil {
		return authErr
	}

	if err != nil {
		return err
	}

	if in.SourceNS.Equal(in.DestinationNS) && in.SourceName == in.DestinationNam {
		return nil
	}

	dstNS, err := s.resolveNamespace(ctx, wh.ID, in.DestinationNS)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: dstNS.ID}, authz.ActionCreateView, true); err != nil {
		return err
	}

	if _, err := s.store.Tabulars.GetTable(ctx, dstNS.ID, in.DestinationNam); err == nil {
		return domain.ConflictError{Code: "tabular_kind_collision", Message: "destination name is occupied by a table"}
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		return tx.Tabulars.Rename(ctx, view.ID, dstNS.ID, in.DestinationNam, view.Version)
	})
}

// UndropView mirrors UndropTable.
func (s *Service) UndropView(ctx context.Context, actor domain.Actor, projectID, warehouseID, viewID string) error {
	if _, err := s.resolveWarehouse(ctx, projectID, warehouseID); err != nil {
		return err
	}

	view, err := s.store.Tabulars.GetViewByID(ctx, viewID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceView, ID: view.ID}, authz.ActionUndropView, true); err != nil {
		return err
	}

	if err := s.store.Tabulars.Undrop(ctx, view.ID); err != nil {
		return err
	}

	return s.queue.Cancel(ctx, domain.QueueTabularExpiration, "expire-"+view.ID, true)
}

func resourceIDOrNameView(view *domain.View, fallback string) string {
	if view != nil {
		return view.ID
	}

	return fallback
}

func withSchemaID(s domain.Schema, id int) domain.Schema {
	s.SchemaID = id
	return s
}

func freshViewMetadata(location string, schema domain.Schema, query, dialect string, ns domain.NamespaceIdent, props map[string]string) domain.ViewMetadata {
	return domain.ViewMetadata{
		FormatVersion: 1,
		ViewUUID: uuid.NewString(),
		Location: location,
		CurrentVersionID: 1,
		Schemas: []domain.Schema{withSchemaID(schema, 0)},
		Versions: []domain.ViewVersion{
			{
				VersionID: 1,
				TimestampMS: nowMillis(),
				SchemaID: 0,
				Representations: []domain.ViewRepresentation{
					{Type: "sql", SQL: query, Dialect: dialect},
				},
				DefaultNS: ns,
			},
		},
		VersionLog: []domain.SnapshotLogEntry{{TimestampMS: nowMillis(), SnapshotID: 1}},
		Properties: props,
	}
}

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

// CreateTableInput is the caller-supplied half of CreateTable.
type CreateTableInput struct {
	ProjectID string
	WarehouseID string
	Namespace domain.NamespaceIdent
	Name string
	Schema domain.Schema
	PartitionSpec domain.PartitionSpec
	SortOrder domain.SortOrder
	Properties map[string]string
	StageCreate bool
	Location string // empty means derive the default
}

// CreateTable executes the standard orchestration for table creation:
// validate, resolve warehouse/namespace, authorize against the namespace,
// write the initial metadata file (unless staged) before the transaction,
// then insert the catalog row inside one transaction, with a
// CompensationGuard deleting the written file if the insert fails.
func (s *Service) CreateTable(ctx context.Context, actor domain.Actor, in CreateTableInput) (*domain.Table, error) {
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

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: ns.ID}, authz.ActionCreateTable, true); err != nil {
		return nil, err
	}

	if _, err := s.store.Tabulars.GetView(ctx, ns.ID, in.Name); err == nil {
		return nil, domain.ConflictError{Code: "tabular_kind_collision", Message: "a view with this name already exists"}
	}

	guard := NewCompensationGuard(ctx, s.log)
	defer guard.Close()

	table := &domain.Table{
		ID: uuid.NewString(),
		WarehouseID: wh.ID,
		NamespaceID: ns.ID,
		Name: in.Name,
	}

	loc := in.Location
	if loc == "" {
		defaultLoc, err := storage.DefaultTabularLocation(namespaceLocation(wh, ns.Path), table.ID)
		if err != nil {
			return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
		}

		loc = string(defaultLoc)
	}

	table.FSLocation = loc

	fio, err := s.fileIOFor(ctx, wh)
	if err != nil {
		return nil, err
	}

	if !in.StageCreate {
		codec, err := storage.ParseCodec(in.Properties["write.metadata.compression-codec"])
		if err != nil {
			return nil, domain.ValidationError{Code: "invalid_property", Message: err.Error(), Err: err}
		}

		metadata := freshTableMetadata(table.FSLocation, in.Schema, in.PartitionSpec, in.SortOrder, in.Properties)
		metadataLoc, err := storage.DefaultMetadataLocation(table.FSLocation, codec, uuid.NewString(), 0)
		if err != nil {
			return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
		}

		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, domain.InternalInvariantError{Message: "marshal initial table metadata", Err: err}
		}

		if err := storage.WriteFile(ctx, fio, metadataLoc, codec, encoded); err != nil {
			return nil, domain.BackendUnavailableError{Backend: "object-store", Message: "write initial table metadata", Err: err}
		}

		guard.OnRollback(func(ctx context.Context) error { return fio.Delete(ctx, metadataLoc) })

		loc := string(metadataLoc)
		table.MetadataFileLocation = &loc
		table.Metadata = metadata
	}

	var created *domain.Table

	err = s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		t, stagedReplacedID, err := tx.Tabulars.CreateTable(ctx, table)
		if err != nil {
			return err
		}

		if stagedReplacedID != "" {
			s.log.Infof("table create replaced staged row %s for %s/%s", stagedReplacedID, ns.ID, in.Name)
		}

		created = t

		return nil
	})
	if err != nil {
		return nil, err
	}

	guard.Disarm()

	s.events.Publish(ctx, taskqueue.Event{
		Kind: taskqueue.EventTableCreated,
		WarehouseID: wh.ID,
		EntityID: created.ID,
	})

	return created, nil
}

// LoadTable resolves a table for reading and vends scoped storage
// credentials alongside it.
func (s *Service) LoadTable(ctx context.Context, actor domain.Actor, projectID, warehouseID string, ident domain.NamespaceIdent, name string) (*domain.Table, *storage.TableConfig, error) {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return nil, nil, err
	}

	ns, err := s.resolveNamespace(ctx, wh.ID, ident)
	if err != nil {
		return nil, nil, err
	}

	table, err := s.store.Tabulars.GetTable(ctx, ns.ID, name)
	visible := err == nil

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceTable, ID: resourceIDOrName(table, name)}, authz.ActionReadTable, visible); err != nil {
		return nil, nil, err
	}

	if err != nil {
		return nil, nil, err
	}

	if table.IsStaged() {
		return nil, nil, domain.NotFoundError{EntityType: "Table", Message: "table is staged and not yet loadable"}
	}

	cfg, err := s.vendCredentials(ctx, wh, table.FSLocation, storage.PermissionRead)
	if err != nil {
		return nil, nil, err
	}

	return table, cfg, nil
}

// CommitTableInput carries one Iceberg `(requirements, updates)` commit
// request.
type CommitTableInput struct {
	ProjectID string
	WarehouseID string
	Namespace domain.NamespaceIdent
	Name string
	Requirements []Requirement
	Updates []Update
}

// CommitTable loads current metadata before and outside the write
// transaction, evaluates requirements, applies updates deterministically,
// writes the new metadata file, and performs the conditional swap via
// optimistic version CAS against the row version read at load time, so a
// commit that lands in between makes the swap fail.
func (s *Service) CommitTable(ctx context.Context, actor domain.Actor, in CommitTableInput) (*domain.Table, error) {
	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	ns, err := s.resolveNamespace(ctx, wh.ID, in.Namespace)
	if err != nil {
		return nil, err
	}

	table, err := s.store.Tabulars.GetTable(ctx, ns.ID, in.Name)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceTable, ID: resourceIDOrName(table, in.Name)}, authz.ActionCommitTable, visible); authErr != nil {
		return nil, authErr
	}

	if err != nil {
		return nil, err
	}

	exists := !table.IsStaged()

	var current *domain.TableMetadata
	if exists {
		current = &table.Metadata
	}

	if err := evaluateTableRequirements(in.Requirements, current, exists); err != nil {
		return nil, err
	}

	next := table.Metadata
	if !exists {
		next = freshTableMetadata(table.FSLocation, domain.Schema{}, domain.PartitionSpec{}, domain.SortOrder{}, map[string]string{})
	}

	if err := applyTableUpdates(&next, in.Updates); err != nil {
		return nil, err
	}

	codec, err := storage.ParseCodec(next.Properties["write.metadata.compression-codec"])
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_property", Message: err.Error(), Err: err}
	}

	sequence := len(next.MetadataLog) + 1

	metadataLoc, err := storage.DefaultMetadataLocation(table.FSLocation, codec, uuid.NewString(), sequence)
	if err != nil {
		return nil, domain.ValidationError{Code: "invalid_location", Message: err.Error(), Err: err}
	}

	next.MetadataLog = append(next.MetadataLog, domain.MetadataLogEntry{
		TimestampMS: nowMillis(),
		MetadataFilePath: string(metadataLoc),
	})

	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal table metadata", Err: err}
	}

	fio, err := s.fileIOFor(ctx, wh)
	if err != nil {
		return nil, err
	}

	guard := NewCompensationGuard(ctx, s.log)
	defer guard.Close()

	if err := storage.WriteFile(ctx, fio, metadataLoc, codec, encoded); err != nil {
		return nil, domain.BackendUnavailableError{Backend: "object-store", Message: "write commit metadata", Err: err}
	}

	guard.OnRollback(func(ctx context.Context) error { return fio.Delete(ctx, metadataLoc) })

	err = s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		return tx.Tabulars.CommitTable(ctx, table.ID, next, string(metadataLoc), table.Version)
	})
	if err != nil {
		return nil, err
	}

	guard.Disarm()

	table.Metadata = next
	loc := string(metadataLoc)
	table.MetadataFileLocation = &loc
	table.Version++

	s.events.Publish(ctx, taskqueue.Event{
		Kind: taskqueue.EventTableCommit,
		WarehouseID: wh.ID,
		EntityID: table.ID,
	})

	return table, nil
}

// RenameTableInput carries a rename request.
type RenameTableInput struct {
	ProjectID string
	WarehouseID string
	SourceNS domain.NamespaceIdent
	SourceName string
	DestinationNS domain.NamespaceIdent
	DestinationNam string
}

// RenameTable authorizes rename on the source, authorizes create on the
// destination namespace, treats a same-(namespace, name) rename as a no-op
// success, and rejects colliding with a view of the same name.
func (s *Service) RenameTable(ctx context.Context, actor domain.Actor, in RenameTableInput) error {
	wh, err := s.resolveWarehouse(ctx, in.ProjectID, in.WarehouseID)
	if err != nil {
		return err
	}

	srcNS, err := s.resolveNamespace(ctx, wh.ID, in.SourceNS)
	if err != nil {
		return err
	}

	table, err := s.store.Tabulars.GetTable(ctx, srcNS.ID, in.SourceName)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceTable, ID: resourceIDOrName(table, in.SourceName)}, authz.ActionRenameTable, visible); authErr != nil {
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

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceNamespace, ID: dstNS.ID}, authz.ActionCreateTable, true); err != nil {
		return err
	}

	if _, err := s.store.Tabulars.GetView(ctx, dstNS.ID, in.DestinationNam); err == nil {
		return domain.ConflictError{Code: "tabular_kind_collision", Message: "destination name is occupied by a view"}
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx *catalogstore.Store) error {
		return tx.Tabulars.Rename(ctx, table.ID, dstNS.ID, in.DestinationNam, table.Version)
	})
}

// DropTable implements soft-delete / undrop semantics: soft profile marks
// deleted_at and schedules expiration; hard profile removes the row and
// purges storage without a retention window.
func (s *Service) DropTable(ctx context.Context, actor domain.Actor, projectID, warehouseID string, ns domain.NamespaceIdent, name string, purge bool) error {
	wh, err := s.resolveWarehouse(ctx, projectID, warehouseID)
	if err != nil {
		return err
	}

	namespace, err := s.resolveNamespace(ctx, wh.ID, ns)
	if err != nil {
		return err
	}

	table, err := s.store.Tabulars.GetTable(ctx, namespace.ID, name)
	visible := err == nil

	if authErr := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceTable, ID: resourceIDOrName(table, name)}, authz.ActionDropTable, visible); authErr != nil {
		return authErr
	}

	if err != nil {
		return err
	}

	if table.Protected {
		return domain.ValidationError{Code: "tabular_protected", Message: "table is protected from deletion"}
	}

	if wh.TabularDeleteProfile.IsSoft() {
		if err := s.store.Tabulars.SoftDelete(ctx, table.ID, table.Version); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"tabular_kind": domain.TabularTable,
			"tabular_id": table.ID,
			"purge_after": purge,
		})

		_, _, err := s.queue.Enqueue(ctx, domain.QueueTabularExpiration, domain.TaskInput{
			ProjectID: projectID,
			WarehouseID: &wh.ID,
			EntityID: &table.ID,
			IdempotencyKey: "expire-" + table.ID,
			ScheduledFor: time.Now().UTC().Add(wh.TabularDeleteProfile.RetentionDuration),
			Payload: payload,
			MaxRetries: 5,
		})
		if err != nil {
			return err
		}
	} else {
		if err := s.store.Tabulars.HardDelete(ctx, table.ID); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"tabular_kind": domain.TabularTable,
			"tabular_id": table.ID,
			"fs_location": table.FSLocation,
			"warehouse_id": wh.ID,
		})

		if _, _, err := s.queue.Enqueue(ctx, domain.QueueTabularPurge, domain.TaskInput{
			ProjectID: projectID,
			WarehouseID: &wh.ID,
			EntityID: &table.ID,
			IdempotencyKey: "purge-" + table.ID,
			ScheduledFor: time.Now().UTC(),
			Payload: payload,
			MaxRetries: 5,
		}); err != nil {
			return err
		}
	}

	s.events.Publish(ctx, taskqueue.Event{Kind: taskqueue.EventTableDropped, WarehouseID: wh.ID, EntityID: table.ID})

	return nil
}

// UndropTable reverses a soft delete within the retention window: clears
// deleted_at and cancels the pending expiration task.
func (s *Service) UndropTable(ctx context.Context, actor domain.Actor, projectID, warehouseID, tableID string) error {
	if _, err := s.resolveWarehouse(ctx, projectID, warehouseID); err != nil {
		return err
	}

	table, err := s.store.Tabulars.GetTableByID(ctx, tableID)
	if err != nil {
		return err
	}

	if err := s.authorizer.RequireAction(ctx, actor, authz.Resource{Kind: authz.ResourceTable, ID: table.ID}, authz.ActionUndropTable, true); err != nil {
		return err
	}

	if err := s.store.Tabulars.Undrop(ctx, table.ID); err != nil {
		return err
	}

	return s.queue.Cancel(ctx, domain.QueueTabularExpiration, "expire-"+table.ID, true)
}

func resourceIDOrName(table *domain.Table, fallback string) string {
	if table != nil {
		return table.ID
	}

	return fallback
}

func freshTableMetadata(location string, schema domain.Schema, spec domain.PartitionSpec, order domain.SortOrder, props map[string]string) domain.TableMetadata {
	now := nowMillis()

	if len(schema.Fields) == 0 {
		schema = domain.Schema{SchemaID: 0}
	}

	return domain.TableMetadata{
		FormatVersion: 2,
		TableUUID: newTableUUID(),
		Location: location,
		LastSequenceNumber: 0,
		LastUpdatedMS: now,
		LastColumnID: maxFieldID(schema),
		Schemas: []domain.Schema{schema},
		CurrentSchemaID: schema.SchemaID,
		PartitionSpecs: []domain.PartitionSpec{spec},
		DefaultSpecID: spec.SpecID,
		SortOrders: []domain.SortOrder{order},
		DefaultSortOrderID: order.OrderID,
		Properties: props,
		Refs: map[string]domain.SnapshotRef{},
	}
}

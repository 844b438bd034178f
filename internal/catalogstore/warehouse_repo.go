package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/otelx"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

// WarehouseRepository persists Warehouse entities.
type WarehouseRepository struct {
	conn *postgres.Connection
	q querier
	cache *Cache
}

func (r *WarehouseRepository) db(ctx context.Context) (querier, error) {
	return dbOrPool(ctx, r.conn, r.q)
}

// Create inserts a new warehouse at version 1.
func (r *WarehouseRepository) Create(ctx context.Context, w *domain.Warehouse) (*domain.Warehouse, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.create")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	profile, err := json.Marshal(w.StorageProfile)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal storage profile", Err: err}
	}

	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt, w.Version = now, now, 1

	var retentionSeconds *int64
	if w.TabularDeleteProfile.IsSoft() {
		s := int64(w.TabularDeleteProfile.RetentionDuration.Seconds())
		retentionSeconds = &s
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO warehouse
			(id, project_id, name, storage_profile, storage_secret_id, status,
			 delete_profile_kind, delete_profile_retention_seconds, protected,
			 version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		w.ID, w.ProjectID, w.Name, profile, w.StorageSecretID, string(w.Status),
		string(w.TabularDeleteProfile.Kind), retentionSeconds, w.Protected,
		w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		otelx.RecordError(span, "insert warehouse", err)

		if isUniqueViolation(err) {
			return nil, domain.ConflictError{Code: "warehouse_name_taken", Message: "a warehouse with this name already exists in the project"}
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "create warehouse", Err: err}
	}

	return w, nil
}

// Get fetches a warehouse by ID within a project, read-through a cache when
// one is attached.
func (r *WarehouseRepository) Get(ctx context.Context, projectID, id string) (*domain.Warehouse, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.get")
	defer span.End()

	if r.cache != nil {
		if w, ok := Get[domain.Warehouse](ctx, r.cache, "warehouse", id, PolicyUse, 0); ok && w.ProjectID == projectID {
			return &w, nil
		}
	}

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, project_id, name, storage_profile, storage_secret_id, status,
		 delete_profile_kind, delete_profile_retention_seconds, protected,
		 version, created_at, updated_at
		FROM warehouse WHERE project_id = $1 AND id = $2`, projectID, id)

	w, err := scanWarehouse(row)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		Put(ctx, r.cache, "warehouse", id, *w)
	}

	return w, nil
}

// GetByID fetches a warehouse by id alone, for callers that only know the
// warehouse (task handlers, the fileIOFor closure the worker pool uses),
// not the owning project, since warehouse ids are globally unique UUIDs.
func (r *WarehouseRepository) GetByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.get_by_id")
	defer span.End()

	if r.cache != nil {
		if w, ok := Get[domain.Warehouse](ctx, r.cache, "warehouse", id, PolicyUse, 0); ok {
			return &w, nil
		}
	}

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, project_id, name, storage_profile, storage_secret_id, status,
		 delete_profile_kind, delete_profile_retention_seconds, protected,
		 version, created_at, updated_at
		FROM warehouse WHERE id = $1`, id)

	w, err := scanWarehouse(row)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		Put(ctx, r.cache, "warehouse", id, *w)
	}

	return w, nil
}

// GetByName fetches a warehouse by its unique (project, name) pair.
func (r *WarehouseRepository) GetByName(ctx context.Context, projectID, name string) (*domain.Warehouse, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.get_by_name")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, project_id, name, storage_profile, storage_secret_id, status,
		 delete_profile_kind, delete_profile_retention_seconds, protected,
		 version, created_at, updated_at
		FROM warehouse WHERE project_id = $1 AND name = $2`, projectID, name)

	return scanWarehouse(row)
}

// List returns every warehouse in a project, optionally filtered by status.
func (r *WarehouseRepository) List(ctx context.Context, projectID string, status *domain.WarehouseStatus) ([]*domain.Warehouse, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.list")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	sb := squirrel.Select(
		"id", "project_id", "name", "storage_profile", "storage_secret_id", "status",
		"delete_profile_kind", "delete_profile_retention_seconds", "protected",
		"version", "created_at", "updated_at",
	).From("warehouse").Where(squirrel.Eq{"project_id": projectID}).OrderBy("name").PlaceholderFormat(squirrel.Dollar)

	if status != nil {
		sb = sb.Where(squirrel.Eq{"status": string(*status)})
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "build warehouse list query", Err: err}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		otelx.RecordError(span, "list warehouses", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list warehouses", Err: err}
	}
	defer rows.Close()

	var out []*domain.Warehouse

	for rows.Next() {
		w, err := scanWarehouseRows(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, w)
	}

	return out, rows.Err()
}

// UpdateStatus transitions a warehouse's active/inactive flag, enforcing
// optimistic concurrency against expectedVersion.
func (r *WarehouseRepository) UpdateStatus(ctx context.Context, id string, status domain.WarehouseStatus, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, "status = $1", string(status))
}

// UpdateStorageProfile persists a changed storage profile, bumping version.
func (r *WarehouseRepository) UpdateStorageProfile(ctx context.Context, id string, profile domain.StorageProfile, expectedVersion int64) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return domain.InternalInvariantError{Message: "marshal storage profile", Err: err}
	}

	return r.casUpdate(ctx, id, expectedVersion, "storage_profile = $1", b)
}

// SetProtected toggles the delete-protection flag.
func (r *WarehouseRepository) SetProtected(ctx context.Context, id string, protected bool, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, "protected = $1", protected)
}

func (r *WarehouseRepository) casUpdate(ctx context.Context, id string, expectedVersion int64, setClause string, arg any) error {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.cas_update")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	query := `UPDATE warehouse SET ` + setClause + `, version = version + 1, updated_at = now()
	 WHERE id = $2 AND version = $3`

	res, err := db.ExecContext(ctx, query, arg, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "update warehouse", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "update warehouse", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "warehouse_version_mismatch", Message: "warehouse was modified concurrently", Retryable: true}
	}

	if r.cache != nil {
		r.cache.Invalidate(ctx, "warehouse", id)
	}

	return nil
}

// Delete removes a warehouse. Service layer must ensure it is empty of live
// namespaces first.
func (r *WarehouseRepository) Delete(ctx context.Context, id string) error {
	ctx, span := otelx.Start(ctx, "catalogstore.warehouse.delete")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM warehouse WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ConflictError{Code: "warehouse_not_empty", Message: "warehouse still has namespaces"}
		}

		otelx.RecordError(span, "delete warehouse", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "delete warehouse", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.NotFoundError{EntityType: "Warehouse", Message: "warehouse not found"}
	}

	if r.cache != nil {
		r.cache.Invalidate(ctx, "warehouse", id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest...any) error
}

func scanWarehouse(row rowScanner) (*domain.Warehouse, error) {
	w, err := scanWarehouseInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{EntityType: "Warehouse", Message: "warehouse not found"}
	}

	return w, err
}

func scanWarehouseRows(rows *sql.Rows) (*domain.Warehouse, error) {
	return scanWarehouseInto(rows)
}

func scanWarehouseInto(row rowScanner) (*domain.Warehouse, error) {
	w := &domain.Warehouse{}

	var (
		profileRaw []byte
		status string
		deleteKind string
		retentionSeconds *int64
	)

	if err := row.Scan(
		&w.ID, &w.ProjectID, &w.Name, &profileRaw, &w.StorageSecretID, &status,
		&deleteKind, &retentionSeconds, &w.Protected, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan warehouse", Err: err}
	}

	if err := json.Unmarshal(profileRaw, &w.StorageProfile); err != nil {
		return nil, domain.InternalInvariantError{Message: "corrupt storage profile json", Err: err}
	}

	w.Status = domain.WarehouseStatus(status)

	if domain.DeleteProfileKind(deleteKind) == domain.DeleteProfileSoft && retentionSeconds != nil {
		w.TabularDeleteProfile = domain.SoftDeleteProfile(time.Duration(*retentionSeconds) * time.Second)
	} else {
		w.TabularDeleteProfile = domain.HardDeleteProfile()
	}

	return w, nil
}

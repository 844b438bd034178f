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

// TabularRepository persists both Table and View entities: the two share
// one `tabular` storage row distinguished by `kind`, since most operations
// (rename, drop, expire, purge) treat a table and a view alike.
type TabularRepository struct {
	conn *postgres.Connection
	q querier
}

func (r *TabularRepository) db(ctx context.Context) (querier, error) {
	return dbOrPool(ctx, r.conn, r.q)
}

// CreateTable inserts a staged or committed table row. A staged row already
// occupying the same (namespace_id, name) — one whose
// metadata_file_location is still NULL — is deleted first so the insert
// never collides with tabular_name_live_uq; its id is returned as
// stagedReplacedID so callers can log the overwrite. Both statements run
// against the same querier, so when CreateTable is called inside
// Store.WithTx (as lifecycle.CreateTable always does) the delete and the
// insert are atomic.
func (r *TabularRepository) CreateTable(ctx context.Context, t *domain.Table) (table *domain.Table, stagedReplacedID string, err error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.create_table")
	defer span.End()

	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, "", domain.InternalInvariantError{Message: "marshal table metadata", Err: err}
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt, t.Version = now, now, 1

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, "", err
	}

	var replaced sql.NullString

	err = db.QueryRowContext(ctx, `
		DELETE FROM tabular
		WHERE namespace_id = $1 AND name = $2 AND kind = 'table' AND metadata_file_location IS NULL
		RETURNING id`,
		t.NamespaceID, t.Name,
	).Scan(&replaced)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		otelx.RecordError(span, "delete staged table", err)
		return nil, "", domain.BackendUnavailableError{Backend: "postgres", Message: "create table", Err: err}
	}

	if replaced.Valid {
		stagedReplacedID = replaced.String
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO tabular
			(id, warehouse_id, namespace_id, kind, name, fs_location, metadata_file_location,
			 metadata, protected, deleted_at, version, created_at, updated_at)
		VALUES ($1,$2,$3,'table',$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.WarehouseID, t.NamespaceID, t.Name, t.FSLocation, t.MetadataFileLocation,
		metadata, t.Protected, t.DeletedAt, t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		otelx.RecordError(span, "insert table", err)

		if isUniqueViolation(err) {
			return nil, "", domain.ConflictError{Code: "table_already_exists", Message: "table already exists"}
		}

		return nil, "", domain.BackendUnavailableError{Backend: "postgres", Message: "create table", Err: err}
	}

	return t, stagedReplacedID, nil
}

// GetTable fetches a live (non-deleted) table by namespace+name.
func (r *TabularRepository) GetTable(ctx context.Context, namespaceID, name string) (*domain.Table, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.get_table")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, namespace_id, name, fs_location, metadata_file_location, metadata,
		 protected, deleted_at, version, created_at, updated_at
		FROM tabular WHERE namespace_id = $1 AND name = $2 AND kind = 'table' AND deleted_at IS NULL`,
		namespaceID, name)

	return scanTable(row)
}

// GetTableByID fetches a table regardless of deletion state, used by undrop
// and the tabular_purge task.
func (r *TabularRepository) GetTableByID(ctx context.Context, id string) (*domain.Table, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.get_table_by_id")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, namespace_id, name, fs_location, metadata_file_location, metadata,
		 protected, deleted_at, version, created_at, updated_at
		FROM tabular WHERE id = $1 AND kind = 'table'`, id)

	return scanTable(row)
}

// ListTables returns live table names under a namespace, paginated.
func (r *TabularRepository) ListTables(ctx context.Context, namespaceID string, page Page) ([]*domain.Table, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.list_tables")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	sb := applyPage(squirrel.Select(
		"id", "warehouse_id", "namespace_id", "name", "fs_location", "metadata_file_location",
		"metadata", "protected", "deleted_at", "version", "created_at", "updated_at",
	).From("tabular").
		Where(squirrel.Eq{"namespace_id": namespaceID, "kind": "table"}).
		Where("deleted_at IS NULL").
		OrderBy("name").
		PlaceholderFormat(squirrel.Dollar), page)

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "build table list query", Err: err}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		otelx.RecordError(span, "list tables", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list tables", Err: err}
	}
	defer rows.Close()

	var out []*domain.Table

	for rows.Next() {
		t, err := scanTableInto(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

// CommitTable persists new metadata under optimistic concurrency, the core
// of the Iceberg commit protocol.
// A nil prior metadataFileLocation (staged table) transitions to the first
// committed location; callers compare-and-swap on expectedVersion.
func (r *TabularRepository) CommitTable(ctx context.Context, id string, metadata domain.TableMetadata, metadataFileLocation string, expectedVersion int64) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.commit_table")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		return domain.InternalInvariantError{Message: "marshal table metadata", Err: err}
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tabular
		SET metadata = $1, metadata_file_location = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND kind = 'table' AND version = $4 AND deleted_at IS NULL`,
		b, metadataFileLocation, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "commit table", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "commit table", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "table_metadata_location_mismatch", Message: "concurrent commit won the race", Retryable: true}
	}

	return nil
}

// Rename moves a tabular (table or view) to a new namespace/name under
// optimistic concurrency.
func (r *TabularRepository) Rename(ctx context.Context, id, newNamespaceID, newName string, expectedVersion int64) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.rename")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tabular SET namespace_id = $1, name = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4 AND deleted_at IS NULL`,
		newNamespaceID, newName, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "rename tabular", err)

		if isUniqueViolation(err) {
			return domain.ConflictError{Code: "tabular_already_exists", Message: "a tabular with the destination name already exists"}
		}

		return domain.BackendUnavailableError{Backend: "postgres", Message: "rename tabular", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "tabular_version_mismatch", Message: "tabular was modified concurrently", Retryable: true}
	}

	return nil
}

// SoftDelete marks a tabular deleted without removing its row, used by
// warehouses with a soft delete profile.
func (r *TabularRepository) SoftDelete(ctx context.Context, id string, expectedVersion int64) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.soft_delete")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tabular SET deleted_at = now(), version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL`, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "soft delete tabular", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "soft delete tabular", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "tabular_version_mismatch", Message: "tabular was modified concurrently", Retryable: true}
	}

	return nil
}

// Undrop reverses a soft delete within the warehouse's retention window.
func (r *TabularRepository) Undrop(ctx context.Context, id string) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.undrop")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tabular SET deleted_at = NULL, version = version + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		otelx.RecordError(span, "undrop tabular", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "undrop tabular", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.NotFoundError{EntityType: "Tabular", Message: "no soft-deleted tabular found to undrop"}
	}

	return nil
}

// HardDelete removes a tabular row entirely. Drop under a hard-delete profile
// and the tabular_expiration task call it before any tabular_purge task for
// the row runs.
func (r *TabularRepository) HardDelete(ctx context.Context, id string) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.hard_delete")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM tabular WHERE id = $1`, id)
	if err != nil {
		otelx.RecordError(span, "hard delete tabular", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "hard delete tabular", Err: err}
	}

	return nil
}

// --- views ---

// CreateView inserts a new view row (views are never staged).
func (r *TabularRepository) CreateView(ctx context.Context, v *domain.View) (*domain.View, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.create_view")
	defer span.End()

	metadata, err := json.Marshal(v.Metadata)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal view metadata", Err: err}
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt, v.Version = now, now, 1

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO tabular
			(id, warehouse_id, namespace_id, kind, name, fs_location, metadata_file_location,
			 metadata, protected, deleted_at, version, created_at, updated_at)
		VALUES ($1,$2,$3,'view',$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.WarehouseID, v.NamespaceID, v.Name, v.FSLocation, v.MetadataFileLocation,
		metadata, v.Protected, v.DeletedAt, v.Version, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		otelx.RecordError(span, "insert view", err)

		if isUniqueViolation(err) {
			return nil, domain.ConflictError{Code: "view_already_exists", Message: "view already exists"}
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "create view", Err: err}
	}

	return v, nil
}

// GetView fetches a live view by namespace+name.
func (r *TabularRepository) GetView(ctx context.Context, namespaceID, name string) (*domain.View, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.get_view")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, namespace_id, name, fs_location, metadata_file_location, metadata,
		 protected, deleted_at, version, created_at, updated_at
		FROM tabular WHERE namespace_id = $1 AND name = $2 AND kind = 'view' AND deleted_at IS NULL`,
		namespaceID, name)

	return scanView(row)
}

// GetViewByID fetches a view regardless of deletion state, used by undrop.
func (r *TabularRepository) GetViewByID(ctx context.Context, id string) (*domain.View, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.get_view_by_id")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, namespace_id, name, fs_location, metadata_file_location, metadata,
		 protected, deleted_at, version, created_at, updated_at
		FROM tabular WHERE id = $1 AND kind = 'view'`, id)

	return scanView(row)
}

// ListViews returns live view names under a namespace, paginated.
func (r *TabularRepository) ListViews(ctx context.Context, namespaceID string, page Page) ([]*domain.View, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.list_views")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	sb := applyPage(squirrel.Select(
		"id", "warehouse_id", "namespace_id", "name", "fs_location", "metadata_file_location",
		"metadata", "protected", "deleted_at", "version", "created_at", "updated_at",
	).From("tabular").
		Where(squirrel.Eq{"namespace_id": namespaceID, "kind": "view"}).
		Where("deleted_at IS NULL").
		OrderBy("name").
		PlaceholderFormat(squirrel.Dollar), page)

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "build view list query", Err: err}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		otelx.RecordError(span, "list views", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list views", Err: err}
	}
	defer rows.Close()

	var out []*domain.View

	for rows.Next() {
		v, err := scanViewInto(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, rows.Err()
}

// CommitView persists a new view version under optimistic concurrency.
func (r *TabularRepository) CommitView(ctx context.Context, id string, metadata domain.ViewMetadata, metadataFileLocation string, expectedVersion int64) error {
	ctx, span := otelx.Start(ctx, "catalogstore.tabular.commit_view")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		return domain.InternalInvariantError{Message: "marshal view metadata", Err: err}
	}

	res, err := db.ExecContext(ctx, `
		UPDATE tabular
		SET metadata = $1, metadata_file_location = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND kind = 'view' AND version = $4 AND deleted_at IS NULL`,
		b, metadataFileLocation, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "commit view", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "commit view", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "view_version_mismatch", Message: "concurrent commit won the race", Retryable: true}
	}

	return nil
}

func scanTable(row rowScanner) (*domain.Table, error) {
	t, err := scanTableInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{EntityType: "Table", Message: "table not found"}
	}

	return t, err
}

func scanTableInto(row rowScanner) (*domain.Table, error) {
	t := &domain.Table{}

	var metadataRaw []byte

	if err := row.Scan(&t.ID, &t.WarehouseID, &t.NamespaceID, &t.Name, &t.FSLocation, &t.MetadataFileLocation,
		&metadataRaw, &t.Protected, &t.DeletedAt, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan table", Err: err}
	}

	if err := json.Unmarshal(metadataRaw, &t.Metadata); err != nil {
		return nil, domain.InternalInvariantError{Message: "corrupt table metadata json", Err: err}
	}

	return t, nil
}

func scanView(row rowScanner) (*domain.View, error) {
	v, err := scanViewInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{EntityType: "View", Message: "view not found"}
	}

	return v, err
}

func scanViewInto(row rowScanner) (*domain.View, error) {
	v := &domain.View{}

	var (
		metadataRaw []byte
		metadataFileLoc sql.NullString
	)

	if err := row.Scan(&v.ID, &v.WarehouseID, &v.NamespaceID, &v.Name, &v.FSLocation, &metadataFileLoc,
		&metadataRaw, &v.Protected, &v.DeletedAt, &v.Version, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan view", Err: err}
	}

	v.MetadataFileLocation = metadataFileLoc.String

	if err := json.Unmarshal(metadataRaw, &v.Metadata); err != nil {
		return nil, domain.InternalInvariantError{Message: "corrupt view metadata json", Err: err}
	}

	return v, nil
}

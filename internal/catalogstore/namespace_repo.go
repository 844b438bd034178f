package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/otelx"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

// NamespaceRepository persists Namespace entities.
type NamespaceRepository struct {
	conn *postgres.Connection
	q querier
}

func (r *NamespaceRepository) db(ctx context.Context) (querier, error) {
	return dbOrPool(ctx, r.conn, r.q)
}

// Create inserts a new namespace at version 1.
func (r *NamespaceRepository) Create(ctx context.Context, n *domain.Namespace) (*domain.Namespace, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.create")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	props, err := json.Marshal(n.Properties)
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "marshal namespace properties", Err: err}
	}

	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt, n.Version = now, now, 1

	_, err = db.ExecContext(ctx, `
		INSERT INTO namespace (id, warehouse_id, path, properties, protected, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.WarehouseID, pq.Array([]string(n.Path)), props, n.Protected, n.Version, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		otelx.RecordError(span, "insert namespace", err)

		if isUniqueViolation(err) {
			return nil, domain.ConflictError{Code: "namespace_already_exists", Message: "namespace already exists"}
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "create namespace", Err: err}
	}

	return n, nil
}

// Get fetches a namespace by its identifier path.
func (r *NamespaceRepository) Get(ctx context.Context, warehouseID string, path domain.NamespaceIdent) (*domain.Namespace, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.get")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, path, properties, protected, version, created_at, updated_at
		FROM namespace WHERE warehouse_id = $1 AND path = $2`,
		warehouseID, pq.Array([]string(path)))

	return scanNamespace(row)
}

// GetByID fetches a namespace by its primary key.
func (r *NamespaceRepository) GetByID(ctx context.Context, id string) (*domain.Namespace, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.get_by_id")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, warehouse_id, path, properties, protected, version, created_at, updated_at
		FROM namespace WHERE id = $1`, id)

	return scanNamespace(row)
}

// ListChildren returns namespaces one level below parent (empty parent means
// top-level namespaces), paginated.
func (r *NamespaceRepository) ListChildren(ctx context.Context, warehouseID string, parent domain.NamespaceIdent, page Page) ([]*domain.Namespace, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.list_children")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	depth := len(parent) + 1

	sb := squirrel.Select("id", "warehouse_id", "path", "properties", "protected", "version", "created_at", "updated_at").
		From("namespace").
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		Where("array_length(path, 1) = ?", depth).
		OrderBy("path").
		PlaceholderFormat(squirrel.Dollar)

	if len(parent) > 0 {
		sb = sb.Where("path[1:?] = ?", len(parent), pq.Array([]string(parent)))
	}

	sb = applyPage(sb, page)

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, domain.InternalInvariantError{Message: "build namespace list query", Err: err}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		otelx.RecordError(span, "list namespaces", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list namespaces", Err: err}
	}
	defer rows.Close()

	var out []*domain.Namespace

	for rows.Next() {
		n, err := scanNamespaceInto(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, rows.Err()
}

// UpdateProperties replaces a namespace's property map under optimistic
// concurrency control.
func (r *NamespaceRepository) UpdateProperties(ctx context.Context, id string, properties map[string]string, expectedVersion int64) error {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.update_properties")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	b, err := json.Marshal(properties)
	if err != nil {
		return domain.InternalInvariantError{Message: "marshal namespace properties", Err: err}
	}

	res, err := db.ExecContext(ctx, `
		UPDATE namespace SET properties = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3`, b, id, expectedVersion)
	if err != nil {
		otelx.RecordError(span, "update namespace", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "update namespace properties", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.ConflictError{Code: "namespace_version_mismatch", Message: "namespace was modified concurrently", Retryable: true}
	}

	return nil
}

// Delete removes a namespace. A namespace that still holds tabular rows
// (soft-deleted ones included) fails the foreign key and is reported as a
// namespace_not_empty ConflictError.
func (r *NamespaceRepository) Delete(ctx context.Context, id string) error {
	ctx, span := otelx.Start(ctx, "catalogstore.namespace.delete")
	defer span.End()

	db, err := r.db(ctx)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM namespace WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ConflictError{Code: "namespace_not_empty", Message: "namespace still has tabulars"}
		}

		otelx.RecordError(span, "delete namespace", err)

		return domain.BackendUnavailableError{Backend: "postgres", Message: "delete namespace", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if affected == 0 {
		return domain.NotFoundError{EntityType: "Namespace", Message: "namespace not found"}
	}

	return nil
}

func scanNamespace(row rowScanner) (*domain.Namespace, error) {
	n, err := scanNamespaceInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{EntityType: "Namespace", Message: "namespace not found"}
	}

	return n, err
}

func scanNamespaceInto(row rowScanner) (*domain.Namespace, error) {
	n := &domain.Namespace{}

	var (
		path pq.StringArray
		propsRaw []byte
	)

	if err := row.Scan(&n.ID, &n.WarehouseID, &path, &propsRaw, &n.Protected, &n.Version, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan namespace", Err: err}
	}

	n.Path = domain.NamespaceIdent(path)

	if err := json.Unmarshal(propsRaw, &n.Properties); err != nil {
		return nil, domain.InternalInvariantError{Message: "corrupt namespace properties json", Err: err}
	}

	return n, nil
}

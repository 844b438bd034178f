package catalogstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/platform/otelx"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

// ProjectRepository persists Project entities.
type ProjectRepository struct {
	conn *postgres.Connection
	q querier
}

// Create inserts a new project, generating its ID if unset.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.project.create")
	defer span.End()

	db, err := dbOrPool(ctx, r.conn, r.q)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err = db.ExecContext(ctx,
		`INSERT INTO project (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		otelx.RecordError(span, "insert project", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "create project", Err: err}
	}

	return p, nil
}

// Get fetches a project by ID.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.project.get")
	defer span.End()

	db, err := dbOrPool(ctx, r.conn, r.q)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM project WHERE id = $1`, id)

	p := &domain.Project{}
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{EntityType: "Project", Message: "project not found"}
		}

		otelx.RecordError(span, "scan project", err)

		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "get project", Err: err}
	}

	return p, nil
}

// List returns every project, ordered by creation time.
func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	ctx, span := otelx.Start(ctx, "catalogstore.project.list")
	defer span.End()

	db, err := dbOrPool(ctx, r.conn, r.q)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM project ORDER BY created_at`)
	if err != nil {
		otelx.RecordError(span, "list projects", err)
		return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "list projects", Err: err}
	}
	defer rows.Close()

	var out []*domain.Project

	for rows.Next() {
		p := &domain.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.BackendUnavailableError{Backend: "postgres", Message: "scan project", Err: err}
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// Delete removes a project. Callers must have already verified there are no
// warehouses left under it.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := otelx.Start(ctx, "catalogstore.project.delete")
	defer span.End()

	db, err := dbOrPool(ctx, r.conn, r.q)
	if err != nil {
		otelx.RecordError(span, "get connection", err)
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM project WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ConflictError{Code: "project_not_empty", Message: "project still has warehouses"}
		}

		otelx.RecordError(span, "delete project", err)
		return domain.BackendUnavailableError{Backend: "postgres", Message: "delete project", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.BackendUnavailableError{Backend: "postgres", Message: "rows affected", Err: err}
	}

	if n == 0 {
		return domain.NotFoundError{EntityType: "Project", Message: "project not found"}
	}

	return nil
}

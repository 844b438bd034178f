// Package catalogstore implements the postgres-backed repositories for
// projects, warehouses, namespaces and tabulars, plus an optional redis
// read-through cache layer in front of them, following a standard
// repository-per-entity pattern with shared pagination helpers.
package catalogstore

import (
	"context"
	"database/sql"

	"github.com/ironlake-data/catalog/internal/platform/otelx"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

// Store bundles every repository the catalog needs, all sharing one
// connection pool so a caller can compose them inside one transaction via
// WithTx.
type Store struct {
	conn *postgres.Connection

	Projects *ProjectRepository
	Warehouses *WarehouseRepository
	Namespaces *NamespaceRepository
	Tabulars *TabularRepository
}

// New builds a Store bound to conn. The connection must already be
// reachable; New does not call Connect itself.
func New(conn *postgres.Connection) *Store {
	return &Store{
		conn: conn,
		Projects: &ProjectRepository{conn: conn},
		Warehouses: &WarehouseRepository{conn: conn},
		Namespaces: &NamespaceRepository{conn: conn},
		Tabulars: &TabularRepository{conn: conn},
	}
}

// AttachWarehouseCache wires a read-through cache in front of
// WarehouseRepository.Get. Optional: a Store
// built without one (tests, or a deployment with no redis) falls straight
// through to postgres on every read.
func (s *Store) AttachWarehouseCache(cache *Cache) {
	s.Warehouses.cache = cache
}

// querier is satisfied by both dbresolver.DB and *sql.Tx, letting repository
// methods run against either the pool or an open transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args...any) *sql.Row
}

// WithTx runs fn inside one postgres transaction, committing on success and
// rolling back on error or panic. The scoped *Store handed to fn must be
// used for every statement that needs transactional isolation.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	_, span := otelx.Start(ctx, "catalogstore.with_tx")
	defer span.End()

	db, err := s.conn.DB(ctx)
	if err != nil {
		otelx.RecordError(span, "failed to get database connection", err)
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		otelx.RecordError(span, "failed to begin transaction", err)
		return err
	}

	scoped := &Store{
		conn: s.conn,
		Projects: &ProjectRepository{q: tx},
		Warehouses: &WarehouseRepository{q: tx, cache: s.Warehouses.cache},
		Namespaces: &NamespaceRepository{q: tx},
		Tabulars: &TabularRepository{q: tx},
	}

	if err := fn(ctx, scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			otelx.RecordError(span, "failed to roll back after error", rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		otelx.RecordError(span, "failed to commit transaction", err)
		return err
	}

	return nil
}

// db returns whichever querier a repository should use: the explicit one
// set up by WithTx, or the pool resolved lazily from conn.
func dbOrPool(ctx context.Context, conn *postgres.Connection, q querier) (querier, error) {
	if q != nil {
		return q, nil
	}

	pool, err := conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	return pool, nil
}

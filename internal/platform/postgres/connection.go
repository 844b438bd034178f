// Package postgres is the catalog database connection hub: a primary/replica
// pool pair plus schema migrations, grounded on common/mpostgres/postgres.go.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Connection is a hub dealing with the catalog's primary/write and
// replica/read connections.
type Connection struct {
	PrimaryDSN string
	ReplicaDSN string
	DBName     string

	pool      dbresolver.DB
	connected bool
}

// Connect opens the primary and replica pools and pings them; it does not
// run migrations (see Migrate). It is idempotent: a second call is a no-op
// once connected.
func (c *Connection) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("open primary: %w", err)
	}

	replicaDSN := c.ReplicaDSN
	if replicaDSN == "" {
		replicaDSN = c.PrimaryDSN
	}

	replica, err := sql.Open("pgx", replicaDSN)
	if err != nil {
		return fmt.Errorf("open replica: %w", err)
	}

	pool := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	c.pool = pool
	c.connected = true

	return nil
}

// DB returns the resolver pool, connecting lazily if necessary.
func (c *Connection) DB(ctx context.Context) (dbresolver.DB, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.pool, nil
}

// Migrate applies every pending migration from MigrationsFS against the
// primary database. Used by the `migrate` CLI subcommand; server startup does
// not call it.
func (c *Connection) Migrate(ctx context.Context) error {
	if _, err := c.DB(ctx); err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("open primary for migration: %w", err)
	}
	defer primary.Close()

	driver, err := migratepg.WithInstance(primary, &migratepg.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.DBName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, c.DBName, driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Ping is used by the `wait-for-db` CLI subcommand and the healthcheck probe.
func (c *Connection) Ping(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}

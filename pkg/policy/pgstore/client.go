// Package pgstore is the Postgres-backed implementation of the
// store.* interfaces: hand-written jackc/pgx/v5 queries over
// golang-migrate-managed tables, rather than ent codegen.
package pgstore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used for migrations only
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds the connection settings for the policy metadata store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Client wraps a pooled pgx connection and exposes every store.*
// implementation backed by it.
type Client struct {
	pool *pgxpool.Pool

	Policies        *Policies
	Evaluations     *Evaluations
	Variants        *Variants
	Jobs            *Jobs
	SessionStatuses *SessionStatuses
}

// NewClient opens a pooled connection, applies any pending migrations,
// and returns a Client wired to every per-table repository.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	return newClientFromDSN(ctx, cfg.dsn(), cfg.Database, poolTuning{
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	})
}

// NewClientFromDSN builds a Client from a raw PostgreSQL connection string
// rather than a Config — used by tests that connect to a schema-scoped DSN
// produced by testcontainers (search_path baked into the connection
// string itself, so there is no separate Config to assemble). migrationName
// identifies this run to golang-migrate's lock table; pass the schema name
// so concurrent per-test schemas don't contend for the same lock.
func NewClientFromDSN(ctx context.Context, dsn, migrationName string) (*Client, error) {
	return newClientFromDSN(ctx, dsn, migrationName, poolTuning{})
}

type poolTuning struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func newClientFromDSN(ctx context.Context, dsn, migrationName string, tuning poolTuning) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	if tuning.MaxConns > 0 {
		poolCfg.MaxConns = tuning.MaxConns
	}
	if tuning.MinConns > 0 {
		poolCfg.MinConns = tuning.MinConns
	}
	if tuning.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = tuning.MaxConnLifetime
	}
	if tuning.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = tuning.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(dsn, migrationName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Client{
		pool:            pool,
		Policies:        &Policies{pool: pool},
		Evaluations:     &Evaluations{pool: pool},
		Variants:        &Variants{pool: pool},
		Jobs:            &Jobs{pool: pool},
		SessionStatuses: &SessionStatuses{pool: pool},
	}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// Health pings the database through the pool for readiness checks.
func (c *Client) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// runMigrations applies pending migrations using a short-lived
// database/sql connection, since golang-migrate's postgres driver
// speaks database/sql rather than pgxpool. The migration connection is
// closed as soon as migrations finish; the pgxpool.Pool used for every
// other query is entirely separate.
func runMigrations(dsn, migrationName string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("checking embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found — binary may be built incorrectly")
	}

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, migrationName, driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && len(entry.Name()) > 4 && entry.Name()[len(entry.Name())-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}

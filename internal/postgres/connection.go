// Package postgres adapts engine.Store to a PostgreSQL-backed jobs table,
// following the schema laid out in the store contract: one table, lease
// fields paired, priority in [1,10].
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for goose's database/sql handle
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PoolConfig holds PostgreSQL connection pool configuration. A zero
// MaxOpenConns or MaxIdleConns is auto-scaled from GOMAXPROCS (four times and
// once the CPU count); a zero ConnMaxLifetime or ConnMaxIdleTime defaults to
// 5 minutes or 1 minute.
type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewStore opens a connection pool against cfg.DSN and returns a Store ready
// to serve engine.Store. It does not run migrations; call Migrate first (or
// use NewStoreWithMigrations) against an environment where schema
// ownership isn't already handled by an external tool.
func NewStore(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cpus := runtime.GOMAXPROCS(0)
	maxConns := int32(cfg.MaxOpenConns)
	if maxConns <= 0 {
		maxConns = int32(cpus * 4)
	}
	minConns := int32(cfg.MaxIdleConns)
	if minConns <= 0 {
		minConns = int32(cpus)
	}
	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = time.Minute
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = connMaxLifetime
	poolConfig.MaxConnIdleTime = connMaxIdleTime
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET TIMEZONE='UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStoreFromPool(pool), nil
}

// NewStoreWithMigrations is NewStore plus an automatic run of the embedded
// goose migrations before the pool is handed back. Intended for local
// development; production deployments are expected to run migrations with
// an external tool against the same embedded SQL.
func NewStoreWithMigrations(ctx context.Context, cfg PoolConfig) (*Store, error) {
	if err := Migrate(ctx, cfg.DSN); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewStore(ctx, cfg)
}

// Migrate applies every pending embedded migration against dsn using goose.
// goose requires a database/sql handle, so this opens one transiently
// through the pgx stdlib driver rather than reusing the pgxpool.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

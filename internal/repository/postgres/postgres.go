// Package postgres implements the repository interfaces on PostgreSQL,
// through pgx's database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a database/sql handle backed by a pgx pool.
type DB struct {
	conn *sql.DB
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New connects to databaseURL, verifies the connection and migrates.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	conn := stdlib.OpenDBFromPool(pool)
	if err := migrate(conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	db := newDB(conn)
	db.pool = pool
	return db, nil
}

func newDB(conn *sql.DB) *DB {
	return &DB{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close closes the sql handle and the underlying pool.
func (db *DB) Close() error {
	err := db.conn.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Ping checks the database is reachable. Used by the health check.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

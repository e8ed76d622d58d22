// Package postgres implements the Postgres target using pgx v5.
//
// Statements arrive MySQL-escaped ('It\'s'), so every session runs with
// standard_conforming_strings=off and statements are sent over the simple
// query protocol through pgconn, which passes them through untouched.
package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maintenanceDB is connected to for CREATE DATABASE.
const maintenanceDB = "postgres"

// Config holds Postgres repository configuration.
type Config struct {
	DSN            string // pgx connection string or URL
	Database       string // overrides the DSN database when set
	CreateDatabase bool
	Password       string // used when the DSN has none
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// poolConfig parses cfg into a pool configuration with the session settings
// MySQL dump statements need.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	cc := pc.ConnConfig
	if cfg.Database != "" {
		cc.Database = cfg.Database
	}
	if cc.Password == "" && cfg.Password != "" {
		cc.Password = cfg.Password
	}
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	cc.RuntimeParams["standard_conforming_strings"] = "off"
	cc.RuntimeParams["escape_string_warning"] = "off"
	cc.RuntimeParams["application_name"] = "wp-import"
	return pc, nil
}

// NewRepository connects (creating the database first when configured) and
// returns the Repository plus its close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.CreateDatabase {
		if err := ensureDatabase(ctx, pc.ConnConfig); err != nil {
			return nil, nil, err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping %s: %w", pc.ConnConfig.Database, err)
	}
	return &Repository{pool: pool, cfg: cfg}, pool.Close, nil
}

// ensureDatabase creates the database named in cc unless it exists.
func ensureDatabase(ctx context.Context, cc *pgx.ConnConfig) error {
	name := cc.Database
	admin := cc.Copy()
	admin.Database = maintenanceDB

	conn, err := pgx.ConnectConfig(ctx, admin)
	if err != nil {
		return fmt.Errorf("postgres: connect %s: %w", maintenanceDB, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: lookup database %s: %w", name, err)
	}
	if exists {
		return nil
	}
	log.Printf("postgres: create database %s", name)
	if err := simpleExec(ctx, conn.PgConn(), "CREATE DATABASE "+pgIdent(name)); err != nil {
		return fmt.Errorf("postgres: create database %s: %w", name, err)
	}
	return nil
}

// simpleExec runs sql, which may hold several statements, as one simple
// query. Postgres executes a multi-statement simple query in a single
// implicit transaction.
func simpleExec(ctx context.Context, conn *pgconn.PgConn, sql string) error {
	_, err := conn.Exec(ctx, sql).ReadAll()
	return err
}

func (r *Repository) withConn(ctx context.Context, fn func(*pgconn.PgConn) error) error {
	c, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire: %w", err)
	}
	defer c.Release()
	return fn(c.Conn().PgConn())
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	return r.withConn(ctx, func(pc *pgconn.PgConn) error { return simpleExec(ctx, pc, sql) })
}

// ExecBatch implements storage.Repository. The batch goes out as a single
// simple query, so it commits or fails as a whole.
func (r *Repository) ExecBatch(ctx context.Context, stmts []string) (int64, error) {
	if len(stmts) == 0 {
		return 0, nil
	}
	err := r.withConn(ctx, func(pc *pgconn.PgConn) error {
		return simpleExec(ctx, pc, joinStatements(stmts))
	})
	if err != nil {
		return 0, err
	}
	return int64(len(stmts)), nil
}

// TableExists implements storage.Repository for the current schema.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)",
		table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: table exists %s: %w", table, err)
	}
	return exists, nil
}

// joinStatements terminates each statement with ';' and a newline.
func joinStatements(stmts []string) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s)
		if !strings.HasSuffix(s, ";") {
			b.WriteByte(';')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// pgIdent quotes a single identifier for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

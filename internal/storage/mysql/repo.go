// Package mysql implements the MySQL target on database/sql with
// go-sql-driver/mysql. Sessions run with sql_mode ANSI_QUOTES so that the
// double-quoted identifiers the pipeline emits are understood.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN            string // go-sql-driver DSN, user:pass@tcp(host:3306)/db
	Database       string
	CreateDatabase bool
	Password       string
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// driverConfig parses cfg.DSN and applies the overrides of cfg.
func driverConfig(cfg Config) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	if cfg.Database != "" {
		mc.DBName = cfg.Database
	}
	if mc.Passwd == "" && cfg.Password != "" {
		mc.Passwd = cfg.Password
	}
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	mc.Params["sql_mode"] = "'ANSI_QUOTES'"
	mc.ParseTime = false
	return mc, nil
}

// NewRepository opens the database (creating it first when configured) and
// returns the Repository plus its close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := driverConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if mc.DBName == "" {
		return nil, nil, fmt.Errorf("mysql: no database in DSN or config")
	}
	if cfg.CreateDatabase {
		if err := ensureDatabase(ctx, mc); err != nil {
			return nil, nil, err
		}
	}

	db, err := openPinged(ctx, mc)
	if err != nil {
		return nil, nil, err
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

func openPinged(ctx context.Context, mc *mysql.Config) (*sql.DB, error) {
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping %s: %w", mc.DBName, err)
	}
	return db, nil
}

// ensureDatabase connects without a default database and creates mc.DBName.
func ensureDatabase(ctx context.Context, mc *mysql.Config) error {
	admin := mc.Clone()
	admin.DBName = ""
	db, err := openPinged(ctx, admin)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Printf("mysql: create database %s", mc.DBName)
	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(mc.DBName)+" CHARACTER SET utf8mb4"); err != nil {
		return fmt.Errorf("mysql: create database %s: %w", mc.DBName, err)
	}
	return nil
}

// Exec implements storage.Repository.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// ExecBatch implements storage.Repository.
func (r *Repository) ExecBatch(ctx context.Context, stmts []string) (int64, error) {
	if len(stmts) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	for i, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: statement %d of batch: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return int64(len(stmts)), nil
}

// TableExists implements storage.Repository.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("mysql: table exists %s: %w", table, err)
	}
	return n > 0, nil
}

// quoteIdent quotes with backticks, which work in every sql_mode.
func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/transformer"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
	stages   = map[string][]transformer.Stage{}
)

// RegisterDDL registers the DDL dialect of a storage kind. Backends call it
// from init next to Register.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// RegisterStatementStages registers rewrites that statements need before a
// backend of kind can execute them.
func RegisterStatementStages(kind string, s ...transformer.Stage) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	stages[kind] = s
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, error) {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	d, ok := dialects[kind]
	if !ok {
		return ddl.Dialect{}, fmt.Errorf("no DDL dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

// StatementStages returns the statement rewrites for kind, possibly none.
func StatementStages(kind string) []transformer.Stage {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	return stages[kind]
}

// CreateBareTable creates t without primary key or indexes.
func CreateBareTable(ctx context.Context, repo Repository, d ddl.Dialect, t ddl.TableDef) error {
	stmt, err := ddl.CreateTable(d, t)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return nil
}

// DropTable drops table if it exists.
func DropTable(ctx context.Context, repo Repository, d ddl.Dialect, table string) error {
	if err := repo.Exec(ctx, ddl.DropTable(d, table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// AddKeys adds the primary key and indexes of t to a loaded table. Each
// failure (duplicate rows in a dump are common) is logged and skipped; the
// number of failed statements is returned.
func AddKeys(ctx context.Context, repo Repository, d ddl.Dialect, t ddl.TableDef) int {
	failed := 0
	if pk := ddl.AddPrimaryKey(d, t); pk != "" {
		if err := repo.Exec(ctx, pk); err != nil {
			log.Printf("ddl: table=%s could not create primary key: %v", t.Name, err)
			failed++
		}
	}
	log.Printf("ddl: table=%s create indexes n=%d", t.Name, len(t.Indexes))
	for _, stmt := range ddl.CreateIndexes(d, t) {
		if err := repo.Exec(ctx, stmt); err != nil {
			log.Printf("ddl: table=%s index failed: %v", t.Name, err)
			failed++
		}
	}
	return failed
}

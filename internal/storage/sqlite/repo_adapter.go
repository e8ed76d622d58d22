package sqlite

import (
	"context"
	"strings"

	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/storage"
	"github.com/JoKnopp/wp-import/internal/transformer"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adds a Close method that calls the cleanup function returned
// by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Dialect renders DDL for SQLite. SQLite cannot add a primary key to an
// existing table, so a unique index stands in for it.
var Dialect = ddl.Dialect{
	Name:       "sqlite",
	Quote:      ddl.DoubleQuote,
	MapType:    mapType,
	PrimaryKey: ddl.UniqueIndexAsPrimaryKey,
}

func mapType(kind string) string {
	switch strings.ToLower(kind) {
	case ddl.KindInt, ddl.KindBigInt:
		return "INTEGER"
	case ddl.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:      cfg.DSN,
			Database: cfg.Database,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("sqlite", Dialect)
	// SQLite has no backslash escapes in string literals.
	storage.RegisterStatementStages("sqlite", transformer.StandardStrings())
}

package mysql

import (
	"context"
	"strings"

	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect renders DDL for MySQL. Rewritten timestamps carry a trailing 'Z'
// that DATETIME rejects in strict mode, so they are stored as text.
var Dialect = ddl.Dialect{
	Name:    "mysql",
	Quote:   ddl.DoubleQuote,
	MapType: mapType,
}

func mapType(kind string) string {
	switch strings.ToLower(kind) {
	case ddl.KindInt:
		return "INT"
	case ddl.KindBigInt:
		return "BIGINT"
	case ddl.KindFloat:
		return "DOUBLE"
	case ddl.KindString:
		return "VARCHAR(255)"
	case ddl.KindTimestamp:
		return "VARCHAR(20)"
	default:
		return "MEDIUMTEXT"
	}
}

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:            cfg.DSN,
			Database:       cfg.Database,
			CreateDatabase: cfg.CreateDatabase,
			Password:       cfg.Password,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mysql", Dialect)
}

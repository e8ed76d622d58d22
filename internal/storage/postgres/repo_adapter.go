package postgres

import (
	"context"
	"strings"

	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adds a Close that calls the function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect renders DDL for Postgres.
var Dialect = ddl.Dialect{
	Name:    "postgres",
	Quote:   pgIdent,
	MapType: mapType,
}

func mapType(kind string) string {
	switch strings.ToLower(kind) {
	case ddl.KindInt:
		return "INTEGER"
	case ddl.KindBigInt:
		return "BIGINT"
	case ddl.KindFloat:
		return "DOUBLE PRECISION"
	case ddl.KindTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("postgres", Dialect)
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/JoKnopp/wp-import/internal/config"
	"github.com/JoKnopp/wp-import/internal/credentials"
	"github.com/JoKnopp/wp-import/internal/importer"

	"github.com/jackc/pgx/v5/pgconn"
)

// passwordFunc returns the per-database pgpass lookup for Postgres
// targets, or nil when the DSN carries a password or no passfile applies.
//
// An explicitly configured passfile must exist and match; the default one
// is optional.
func passwordFunc(s config.Storage) (importer.PasswordFunc, error) {
	if s.Kind != "postgres" {
		return nil, nil
	}
	pc, err := pgconn.ParseConfig(s.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if pc.Password != "" {
		return nil, nil
	}

	explicit := s.PassFile != ""
	path := s.PassFile
	if !explicit {
		path = credentials.DefaultPath()
	}
	entries, err := credentials.ParseFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	want := credentials.Want{Host: pc.Host, Port: strconv.Itoa(int(pc.Port)), User: pc.User}
	return func(database string) (string, error) {
		w := want
		w.Database = database
		if w.Database == "" {
			w.Database = pc.Database
		}
		pw, err := credentials.Lookup(entries, w)
		if err != nil && !explicit && errors.Is(err, credentials.ErrNoMatch) {
			return "", nil
		}
		return pw, err
	}, nil
}

// Package all wires the built-in storage backends into the storage factory.
//
// It exists for side effects only: importing it runs the init functions of
// each backend, which register their factory, DDL dialect and statement
// stages. After that the kinds below are available to storage.New:
//
//   - "postgres" (internal/storage/postgres)
//   - "mysql"    (internal/storage/mysql)
//   - "sqlite"   (internal/storage/sqlite)
//
// A binary that needs only a subset can import the backends one by one
// instead.
package all

import (
	_ "github.com/JoKnopp/wp-import/internal/storage/mysql"
	_ "github.com/JoKnopp/wp-import/internal/storage/postgres"
	_ "github.com/JoKnopp/wp-import/internal/storage/sqlite"
)

// Package sqlite implements a SQLite-backed storage.Repository on the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"path/filepath"
	"strings"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a database file, a ":memory:" or "file:" URI, or, when
	// Database is set, the directory that holds one file per database.
	DSN string

	// Database names the file <DSN>/<Database>.sqlite.
	Database string
}

// Path returns the DSN handed to the driver.
func (c Config) Path() string {
	if c.Database == "" || strings.HasPrefix(c.DSN, ":memory:") || strings.HasPrefix(c.DSN, "file:") {
		return c.DSN
	}
	return filepath.Join(c.DSN, c.Database+".sqlite")
}

// Package config defines the importer configuration and loads it from JSON,
// YAML or HCL files.
//
// Example (YAML):
//
//	job: wpimport
//	languages: [de, fr]
//	storage:
//	  kind: postgres
//	  dsn: postgresql://wikipedia@localhost:5432/postgres
//	  database: wikipedia_${language}
//	  create_database: true
//	runtime:
//	  workers: 4
//	  batch_size: 500
package config

import (
	"slices"

	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/parser/sqldump"
)

// AllLanguages in Config.Languages enables every language.
const AllLanguages = "*"

// Config is the top-level importer configuration.
type Config struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	// DumpPattern matches dump file names and must define the language,
	// date and table groups.
	DumpPattern string `json:"dump_pattern" yaml:"dump_pattern"`

	// Languages lists the wiki languages to import ("de", "fr", ...).
	// Dumps of other languages are skipped.
	Languages []string `json:"languages" yaml:"languages"`

	// Encoding of the dump text, "utf8" unless set.
	Encoding string `json:"encoding" yaml:"encoding"`

	// DecodeMode handles lines that fail to decode: "rows" salvages the
	// good tuples of a multi-row INSERT, "lines" drops the whole line.
	DecodeMode string `json:"decode_mode" yaml:"decode_mode"`

	// Reimport drops and reloads tables that already exist.
	Reimport bool `json:"reimport" yaml:"reimport"`

	// Converter is the command that turns a pages-articles XML dump on
	// stdin into page.sql, revision.sql and text.sql in the directory given
	// as its last argument. Empty skips pages-articles dumps.
	Converter []string `json:"converter" yaml:"converter"`

	Storage Storage       `json:"storage" yaml:"storage"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// Storage selects the target database.
type Storage struct {
	// Kind is a registered storage kind: postgres, mysql or sqlite.
	Kind string `json:"kind" yaml:"kind" hcl:"kind,optional"`

	// DSN is the connection string of the backend.
	DSN string `json:"dsn" yaml:"dsn" hcl:"dsn,optional"`

	// Database is a template for the per-language database name,
	// expanded with the dump fields, e.g. "wikipedia_${language}".
	Database string `json:"database" yaml:"database" hcl:"database,optional"`

	// CreateDatabase creates missing databases.
	CreateDatabase bool `json:"create_database" yaml:"create_database" hcl:"create_database,optional"`

	// PassFile is a pgpass file consulted when the DSN has no password.
	PassFile string `json:"passfile" yaml:"passfile" hcl:"passfile,optional"`
}

// RuntimeConfig controls concurrency and batching.
type RuntimeConfig struct {
	// Workers is the number of dump files of one language loaded at once.
	Workers int `json:"workers" yaml:"workers" hcl:"workers,optional"`
	// BatchSize is the number of statements per transaction.
	BatchSize int `json:"batch_size" yaml:"batch_size" hcl:"batch_size,optional"`
}

// Defaults returns the configuration used for fields a file leaves out.
func Defaults() Config {
	return Config{
		Job:         "wpimport",
		DumpPattern: dump.DefaultPattern,
		Encoding:    sqldump.DefaultEncoding,
		DecodeMode:  string(sqldump.ModeRows),
		Storage: Storage{
			Kind:     "postgres",
			Database: "wikipedia_${language}",
		},
		Runtime: RuntimeConfig{
			Workers:   2,
			BatchSize: 500,
		},
	}
}

// LanguageEnabled reports whether dumps of lang are imported.
func (c Config) LanguageEnabled(lang string) bool {
	return slices.Contains(c.Languages, AllLanguages) || slices.Contains(c.Languages, lang)
}

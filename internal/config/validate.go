package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/parser/sqldump"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config, e.g. "storage.database".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// knownStorageKinds are the backends shipped with wp-import. Others are
// warnings since a build may register more.
var knownStorageKinds = []string{"mysql", "postgres", "sqlite"}

// Validate lints c without mutating it.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}
	if _, err := dump.CompilePattern(c.DumpPattern); err != nil {
		add(SeverityError, "dump_pattern", "%v", err)
	}
	if len(c.Languages) == 0 {
		add(SeverityWarning, "languages", "no language enabled; every dump will be skipped (use %q for all)", AllLanguages)
	}
	if _, err := sqldump.LookupEncoding(c.Encoding); err != nil {
		add(SeverityError, "encoding", "%v", err)
	}
	if _, err := sqldump.ParseMode(c.DecodeMode); err != nil {
		add(SeverityError, "decode_mode", "%v", err)
	}
	if len(c.Converter) > 0 && strings.TrimSpace(c.Converter[0]) == "" {
		add(SeverityError, "converter[0]", "converter command must not be empty")
	}

	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	switch {
	case strings.TrimSpace(s.Kind) == "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
	case !slices.Contains(knownStorageKinds, s.Kind):
		issues = append(issues, Issue{SeverityWarning, "storage.kind",
			fmt.Sprintf("unknown storage kind %q; known kinds are %s", s.Kind, strings.Join(knownStorageKinds, ", "))})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "storage.dsn must not be empty"})
	}

	if strings.TrimSpace(s.Database) == "" {
		issues = append(issues, Issue{SeverityWarning, "storage.database",
			"no database template; all languages load into the database of the DSN"})
	} else if _, err := (dump.Info{}).Expand(s.Database); err != nil {
		issues = append(issues, Issue{SeverityError, "storage.database", err.Error()})
	} else if !strings.Contains(s.Database, "$") {
		issues = append(issues, Issue{SeverityWarning, "storage.database",
			"database template has no placeholder; all languages share one database"})
	}

	if s.CreateDatabase && s.Kind == "sqlite" {
		issues = append(issues, Issue{SeverityWarning, "storage.create_database",
			"sqlite creates database files on open; create_database has no effect"})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers <= 0 {
		issues = append(issues, Issue{SeverityError, "runtime.workers", "runtime.workers must be > 0"})
	}
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityError, "runtime.batch_size", "runtime.batch_size must be > 0"})
	}
	return issues
}

// HasErrors reports whether issues contains an error-severity issue.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

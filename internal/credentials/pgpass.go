// Package credentials looks up database passwords in pgpass files
// (host:port:database:user:password, one entry per line).
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Wildcard matches any value in a pgpass field.
const Wildcard = "*"

var (
	// ErrNoMatch is returned when no entry matches the requested connection.
	ErrNoMatch = errors.New("no matching pgpass entry")
	// ErrMalformed reports a line without exactly five fields.
	ErrMalformed = errors.New("malformed pgpass line")
)

// Entry is one pgpass line.
type Entry struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// Want is the connection a password is looked up for. Empty fields only
// match wildcard entries.
type Want struct {
	Host     string
	Port     string
	Database string
	User     string
}

// Parse reads pgpass entries in file order. Blank lines and '#' comments
// are skipped; `\:` and `\\` escapes are honored.
func Parse(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := splitFields(line)
		if len(f) != 5 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformed, lineNo, len(f))
		}
		out = append(out, Entry{Host: f[0], Port: f[1], Database: f[2], User: f[3], Password: f[4]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pgpass: %w", err)
	}
	return out, nil
}

// ParseFile parses the pgpass file at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pgpass: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// DefaultPath returns $PGPASSFILE or ~/.pgpass.
func DefaultPath() string {
	if p := os.Getenv("PGPASSFILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pgpass"
	}
	return filepath.Join(home, ".pgpass")
}

func splitFields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// specificity counts exact (non-wildcard) field matches of e for w, or -1
// when e does not match w at all.
func (e Entry) specificity(w Want) int {
	score := 0
	for _, p := range [][2]string{
		{e.Host, w.Host},
		{e.Port, w.Port},
		{e.Database, w.Database},
		{e.User, w.User},
	} {
		switch p[0] {
		case Wildcard:
		case p[1]:
			score++
		default:
			return -1
		}
	}
	return score
}

// Lookup returns the password of the most specific entry matching w. An
// exact field beats a wildcard; among equally specific entries the first
// one wins.
func Lookup(entries []Entry, w Want) (string, error) {
	best, bestScore := -1, -1
	for i, e := range entries {
		if s := e.specificity(w); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return "", fmt.Errorf("%w for %s@%s:%s/%s", ErrNoMatch, w.User, w.Host, w.Port, w.Database)
	}
	return entries[best].Password, nil
}

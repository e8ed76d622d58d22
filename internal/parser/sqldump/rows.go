package sqldump

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPatternMismatch is returned when an INSERT line does not start with
// `INSERT INTO <q>name<q>` quoted by backticks or double quotes.
var ErrPatternMismatch = errors.New("statement does not match INSERT INTO pattern")

// insertHeader captures the table name; group 1 is backtick quoted, group 2
// double quoted. Only the leading INSERT is case sensitive, matching the
// line filter.
var insertHeader = regexp.MustCompile("^INSERT(?i:\\s+INTO\\s+)(?:`([\\w-]+)`|\"([\\w-]+)\")")

// valuesKeyword follows the table name in a MySQL multi-row INSERT.
var valuesKeyword = regexp.MustCompile(`(?i)^\s+VALUES\s*`)

// rowTuple is the shape every kept row has to match as a whole.
var rowTuple = regexp.MustCompile(`(?s)^\(.+\)$`)

// Multirow is a parsed `INSERT INTO <q>table<q> VALUES (...),(...);` line.
type Multirow struct {
	Table string
	// Quote is the identifier quote used by the source, '`' or '"'.
	Quote byte
	// Rows holds the tuples that matched `^\(.+\)$`, parentheses included.
	Rows []string
}

// Statement rebuilds a single INSERT from the given rows using the table
// name and quote character of m.
func (m Multirow) Statement(rows []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteByte(m.Quote)
	b.WriteString(m.Table)
	b.WriteByte(m.Quote)
	b.WriteString(" VALUES ")
	b.WriteString(strings.Join(rows, ","))
	b.WriteByte(';')
	return b.String()
}

// ParseMultirow splits stmt into its row tuples. stmt may contain bytes that
// are invalid in any encoding; only ASCII structure is inspected.
func ParseMultirow(stmt string) (Multirow, error) {
	loc := insertHeader.FindStringSubmatchIndex(stmt)
	if loc == nil {
		return Multirow{}, fmt.Errorf("%w: %.60q", ErrPatternMismatch, stmt)
	}
	m := Multirow{Quote: '`'}
	if loc[2] >= 0 {
		m.Table = stmt[loc[2]:loc[3]]
	} else {
		m.Table = stmt[loc[4]:loc[5]]
		m.Quote = '"'
	}

	rest := stmt[loc[1]:]
	kw := valuesKeyword.FindStringIndex(rest)
	if kw == nil {
		return Multirow{}, fmt.Errorf("%w: missing VALUES for table %s", ErrPatternMismatch, m.Table)
	}
	rest = strings.TrimSpace(rest[kw[1]:])
	rest = strings.TrimSpace(strings.TrimSuffix(rest, ";"))

	for _, seg := range splitRows(rest) {
		seg = strings.TrimSpace(seg)
		if rowTuple.MatchString(seg) {
			m.Rows = append(m.Rows, seg)
		}
	}
	return m, nil
}

// SingleRows returns the row tuples of a multi-row INSERT, in order.
func SingleRows(stmt string) ([]string, error) {
	m, err := ParseMultirow(stmt)
	if err != nil {
		return nil, err
	}
	return m.Rows, nil
}

// splitRows cuts a VALUES list at commas that sit outside parentheses and
// outside single-quoted literals, so `('a),(b',1)` stays one tuple.
// Backslash escapes inside literals are honored.
func splitRows(values string) []string {
	var (
		out     []string
		start   int
		depth   int
		inQuote bool
		escaped bool
	)
	for i := 0; i < len(values); i++ {
		c := values[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '\'':
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, values[start:i])
				start = i + 1
			}
		}
	}
	if start < len(values) {
		out = append(out, values[start:])
	}
	return out
}

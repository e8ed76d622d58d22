package transformer

import (
	"regexp"
	"strings"
)

// mwTimestamp matches a MediaWiki 14-digit timestamp preceded by a value
// opener. The closer is checked by hand so that it stays available as the
// opener of a following timestamp.
var mwTimestamp = regexp.MustCompile(`[,(](\d{4})([01]\d)([0-3]\d)([0-5]\d)([0-5]\d)([0-5]\d)`)

// TimestampsToISO8601 rewrites bare YYYYMMDDHHMMSS values into quoted
// 'YYYY-MM-DDTHH:MM:SSZ' literals. A value only qualifies when it is a whole
// field: opened by ',' or '(' and closed by ',' or ')'.
func TimestampsToISO8601() Stage { return Map(RewriteTimestamps) }

// RewriteTimestamps is the per-statement form of TimestampsToISO8601.
func RewriteTimestamps(s string) string {
	matches := mwTimestamp.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(matches)*8)
	last := 0
	for _, m := range matches {
		end := m[1]
		if end >= len(s) || (s[end] != ',' && s[end] != ')') {
			continue
		}
		// keep the opener
		b.WriteString(s[last : m[0]+1])
		b.WriteByte('\'')
		b.WriteString(s[m[2]:m[3]])
		b.WriteByte('-')
		b.WriteString(s[m[4]:m[5]])
		b.WriteByte('-')
		b.WriteString(s[m[6]:m[7]])
		b.WriteByte('T')
		b.WriteString(s[m[8]:m[9]])
		b.WriteByte(':')
		b.WriteString(s[m[10]:m[11]])
		b.WriteByte(':')
		b.WriteString(s[m[12]:m[13]])
		b.WriteString("Z'")
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

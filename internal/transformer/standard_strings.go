package transformer

import "strings"

// StandardStrings rewrites MySQL backslash escapes inside single-quoted
// literals into standard SQL, for targets that treat backslash as an
// ordinary character (SQLite). Text outside literals is left alone.
func StandardStrings() Stage { return Map(UnescapeMySQL) }

// UnescapeMySQL is the per-statement form of StandardStrings.
//
// \0 is dropped since SQLite text values end at NUL.
func UnescapeMySQL(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inQuote {
			if c == '\'' {
				inQuote = true
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\'':
			inQuote = false
			b.WriteByte(c)
		case '\\':
			if i+1 >= len(s) {
				b.WriteByte(c)
				continue
			}
			i++
			switch n := s[i]; n {
			case '\'':
				b.WriteString("''")
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'Z':
				b.WriteByte(0x1a)
			case '0':
			case '%', '_':
				// MySQL keeps the backslash for LIKE wildcards.
				b.WriteByte('\\')
				b.WriteByte(n)
			default:
				b.WriteByte(n)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

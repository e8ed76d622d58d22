// Package dump describes MediaWiki dump files by what their names encode:
// wiki language, dump date and database table.
package dump

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultPattern matches names such as dewiki-20091023-categorylinks.sql.gz.
const DefaultPattern = `(?P<language>\w+)wiki-(?P<date>\d{8})-(?P<table>[\w_-]+).*`

// ErrPatternMismatch is returned for file names the pattern does not match.
var ErrPatternMismatch = errors.New("file name does not match dump pattern")

// PagesArticlesGlob selects XML page dumps that need external conversion.
const PagesArticlesGlob = "*pages-articles.xml.bz2"

// Info is what a dump's location tells about its content.
type Info struct {
	Path     string
	Filename string
	Language string
	Date     string
	Table    string
}

// CompilePattern compiles a dump file pattern and checks it defines the
// language, date and table groups.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("dump pattern: %w", err)
	}
	for _, group := range []string{"language", "date", "table"} {
		if re.SubexpIndex(group) < 0 {
			return nil, fmt.Errorf("dump pattern %q: missing group %q", expr, group)
		}
	}
	return re, nil
}

// Classify extracts language, date and table from the base name of
// location, which may be a file path or an http(s) URL. The pattern must
// match at the start of the name.
func Classify(location string, pattern *regexp.Regexp) (Info, error) {
	name := BaseName(location)
	m := pattern.FindStringSubmatchIndex(name)
	if m == nil || m[0] != 0 {
		return Info{}, fmt.Errorf("%w: %s", ErrPatternMismatch, name)
	}
	group := func(g string) string {
		i := pattern.SubexpIndex(g)
		if i < 0 || m[2*i] < 0 {
			return ""
		}
		return name[m[2*i]:m[2*i+1]]
	}
	return Info{
		Path:     location,
		Filename: name,
		Language: group("language"),
		Date:     group("date"),
		Table:    group("table"),
	}, nil
}

// BaseName returns the last element of a path or of a URL's path.
func BaseName(location string) string {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if u, err := url.Parse(location); err == nil {
			return path.Base(u.Path)
		}
	}
	return filepath.Base(location)
}

// IsPagesArticles reports whether the dump is an XML pages-articles dump.
func (i Info) IsPagesArticles() bool {
	ok, _ := filepath.Match(PagesArticlesGlob, i.Filename)
	return ok
}

// Field returns the named attribute for name templates: language, date,
// table, filename or path.
func (i Info) Field(name string) (string, bool) {
	switch name {
	case "language":
		return i.Language, true
	case "date":
		return i.Date, true
	case "table":
		return i.Table, true
	case "filename":
		return i.Filename, true
	case "path":
		return i.Path, true
	}
	return "", false
}

// Expand substitutes $name and ${name} in tmpl with the fields of i, e.g.
// "wikipedia_${language}". Unknown names are an error.
func (i Info) Expand(tmpl string) (string, error) {
	var unknown []string
	out := os.Expand(tmpl, func(name string) string {
		v, ok := i.Field(name)
		if !ok {
			unknown = append(unknown, name)
		}
		return v
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("template %q: unknown field(s) %s", tmpl, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Package ddl models table definitions and renders them as DDL for the
// supported target dialects.
//
// Tables are created bare, loaded, and only then given their primary key
// and indexes; the renderers follow that split.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect holds what differs between target databases.
type Dialect struct {
	Name string
	// Quote quotes one identifier.
	Quote func(string) string
	// MapType maps a logical column kind to a SQL type.
	MapType func(kind string) string
	// PrimaryKey renders the statement adding a primary key to a loaded
	// table. Nil selects ALTER TABLE ... ADD PRIMARY KEY.
	PrimaryKey func(d Dialect, table string, cols []string) string
}

// DoubleQuote quotes an identifier the standard SQL way.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (d Dialect) quoteAll(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = d.Quote(id)
	}
	return strings.Join(out, ", ")
}

// CreateTable renders CREATE TABLE IF NOT EXISTS without keys or indexes.
func CreateTable(d Dialect, t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s: at least one column is required", name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		if strings.TrimSpace(c.Kind) == "" {
			return "", fmt.Errorf("ddl: column %s.%s missing kind", name, cname)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(cname))
		sb.WriteByte(' ')
		sb.WriteString(d.MapType(c.Kind))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", d.Quote(name), strings.Join(cols, ",\n  ")), nil
}

// DropTable renders DROP TABLE IF EXISTS.
func DropTable(d Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table)
}

// AddPrimaryKey renders the primary key statement, or "" if t has none.
func AddPrimaryKey(d Dialect, t TableDef) string {
	if len(t.PrimaryKey) == 0 {
		return ""
	}
	if d.PrimaryKey != nil {
		return d.PrimaryKey(d, t.Name, t.PrimaryKey)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", d.Quote(t.Name), d.quoteAll(t.PrimaryKey))
}

// UniqueIndexAsPrimaryKey emulates a primary key with a unique index, for
// engines that cannot add one to an existing table.
func UniqueIndexAsPrimaryKey(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", d.Quote(table+"_pkey"), d.Quote(table), d.quoteAll(cols))
}

// CreateIndexes renders one CREATE INDEX per index of t.
func CreateIndexes(d Dialect, t TableDef) []string {
	out := make([]string, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		kw := "INDEX"
		if ix.Unique {
			kw = "UNIQUE INDEX"
		}
		out = append(out, fmt.Sprintf("CREATE %s %s ON %s (%s)",
			kw, d.Quote(t.Name+"_"+ix.Name), d.Quote(t.Name), d.quoteAll(ix.Columns)))
	}
	return out
}

package ddl

// Logical column kinds. Dialects map them to concrete SQL types.
const (
	KindInt       = "int"
	KindBigInt    = "bigint"
	KindFloat     = "float"
	KindString    = "string" // short, indexable text (titles, keys)
	KindText      = "text"   // unbounded text, never indexed
	KindTimestamp = "timestamp"
)

// ColumnDef describes one column. Name is unquoted; quoting happens at
// render time.
type ColumnDef struct {
	Name     string
	Kind     string
	Nullable bool
	// Default is a raw SQL expression, emitted as-is.
	Default string
}

// IndexDef is a secondary index. Name is unique per table; renderers prefix
// it with the table name.
type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
}

// TableDef is a table with its keys. PrimaryKey and Indexes are applied
// separately from CREATE TABLE so that bulk loads run without them.
type TableDef struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey []string
	Indexes    []IndexDef
}

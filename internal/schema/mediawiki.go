// Package schema is the catalog of MediaWiki tables that appear as SQL
// dumps, as of the 1.15 era dump format.
package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/JoKnopp/wp-import/internal/ddl"
)

// ErrUnknownTable is returned by Table for names not in the catalog.
var ErrUnknownTable = errors.New("unknown table")

func col(name, kind string) ddl.ColumnDef { return ddl.ColumnDef{Name: name, Kind: kind} }

func nullable(name, kind string) ddl.ColumnDef {
	return ddl.ColumnDef{Name: name, Kind: kind, Nullable: true}
}

func idx(name string, cols ...string) ddl.IndexDef { return ddl.IndexDef{Name: name, Columns: cols} }

var tables = map[string]ddl.TableDef{
	"category": {
		Name: "category",
		Columns: []ddl.ColumnDef{
			col("cat_id", ddl.KindInt),
			col("cat_title", ddl.KindString),
			col("cat_pages", ddl.KindInt),
			col("cat_subcats", ddl.KindInt),
			col("cat_files", ddl.KindInt),
			col("cat_hidden", ddl.KindInt),
		},
		PrimaryKey: []string{"cat_id"},
		Indexes: []ddl.IndexDef{
			{Name: "cat_title", Columns: []string{"cat_title"}, Unique: true},
			idx("cat_pages", "cat_pages"),
		},
	},
	"categorylinks": {
		Name: "categorylinks",
		Columns: []ddl.ColumnDef{
			col("cl_from", ddl.KindInt),
			col("cl_to", ddl.KindString),
			col("cl_sortkey", ddl.KindString),
			nullable("cl_timestamp", ddl.KindTimestamp),
		},
		PrimaryKey: []string{"cl_from", "cl_to"},
		Indexes: []ddl.IndexDef{
			idx("cl_sortkey", "cl_to", "cl_sortkey", "cl_from"),
			idx("cl_timestamp", "cl_to", "cl_timestamp"),
		},
	},
	"externallinks": {
		Name: "externallinks",
		Columns: []ddl.ColumnDef{
			col("el_from", ddl.KindInt),
			col("el_to", ddl.KindText),
			col("el_index", ddl.KindText),
		},
		Indexes: []ddl.IndexDef{idx("el_from", "el_from")},
	},
	"imagelinks": {
		Name: "imagelinks",
		Columns: []ddl.ColumnDef{
			col("il_from", ddl.KindInt),
			col("il_to", ddl.KindString),
		},
		PrimaryKey: []string{"il_from", "il_to"},
		Indexes:    []ddl.IndexDef{idx("il_to", "il_to", "il_from")},
	},
	"langlinks": {
		Name: "langlinks",
		Columns: []ddl.ColumnDef{
			col("ll_from", ddl.KindInt),
			col("ll_lang", ddl.KindString),
			col("ll_title", ddl.KindString),
		},
		PrimaryKey: []string{"ll_from", "ll_lang"},
		Indexes:    []ddl.IndexDef{idx("ll_lang_title", "ll_lang", "ll_title")},
	},
	"page": {
		Name: "page",
		Columns: []ddl.ColumnDef{
			col("page_id", ddl.KindInt),
			col("page_namespace", ddl.KindInt),
			col("page_title", ddl.KindString),
			col("page_restrictions", ddl.KindText),
			col("page_counter", ddl.KindBigInt),
			col("page_is_redirect", ddl.KindInt),
			col("page_is_new", ddl.KindInt),
			col("page_random", ddl.KindFloat),
			col("page_touched", ddl.KindString),
			col("page_latest", ddl.KindInt),
			col("page_len", ddl.KindInt),
		},
		PrimaryKey: []string{"page_id"},
		Indexes: []ddl.IndexDef{
			{Name: "name_title", Columns: []string{"page_namespace", "page_title"}, Unique: true},
			idx("page_len", "page_len"),
		},
	},
	"pagelinks": {
		Name: "pagelinks",
		Columns: []ddl.ColumnDef{
			col("pl_from", ddl.KindInt),
			col("pl_namespace", ddl.KindInt),
			col("pl_title", ddl.KindString),
		},
		PrimaryKey: []string{"pl_from", "pl_namespace", "pl_title"},
		Indexes:    []ddl.IndexDef{idx("pl_namespace", "pl_namespace", "pl_title", "pl_from")},
	},
	"redirect": {
		Name: "redirect",
		Columns: []ddl.ColumnDef{
			col("rd_from", ddl.KindInt),
			col("rd_namespace", ddl.KindInt),
			col("rd_title", ddl.KindString),
		},
		PrimaryKey: []string{"rd_from"},
		Indexes:    []ddl.IndexDef{idx("rd_ns_title", "rd_namespace", "rd_title", "rd_from")},
	},
	// revision and text come from converted pages-articles XML dumps.
	"revision": {
		Name: "revision",
		Columns: []ddl.ColumnDef{
			col("rev_id", ddl.KindInt),
			col("rev_page", ddl.KindInt),
			col("rev_text_id", ddl.KindInt),
			col("rev_comment", ddl.KindText),
			col("rev_user", ddl.KindInt),
			col("rev_user_text", ddl.KindString),
			col("rev_timestamp", ddl.KindString),
			col("rev_minor_edit", ddl.KindInt),
			col("rev_deleted", ddl.KindInt),
			nullable("rev_len", ddl.KindInt),
			nullable("rev_parent_id", ddl.KindInt),
		},
		PrimaryKey: []string{"rev_id"},
		Indexes: []ddl.IndexDef{
			{Name: "rev_page_id", Columns: []string{"rev_page", "rev_id"}, Unique: true},
			idx("rev_timestamp", "rev_timestamp"),
			idx("page_timestamp", "rev_page", "rev_timestamp"),
		},
	},
	"text": {
		Name: "text",
		Columns: []ddl.ColumnDef{
			col("old_id", ddl.KindInt),
			col("old_text", ddl.KindText),
			col("old_flags", ddl.KindText),
		},
		PrimaryKey: []string{"old_id"},
	},
	"templatelinks": {
		Name: "templatelinks",
		Columns: []ddl.ColumnDef{
			col("tl_from", ddl.KindInt),
			col("tl_namespace", ddl.KindInt),
			col("tl_title", ddl.KindString),
		},
		PrimaryKey: []string{"tl_from", "tl_namespace", "tl_title"},
		Indexes:    []ddl.IndexDef{idx("tl_namespace", "tl_namespace", "tl_title", "tl_from")},
	},
}

// Table returns the definition for a MediaWiki table name.
func Table(name string) (ddl.TableDef, error) {
	t, ok := tables[name]
	if !ok {
		return ddl.TableDef{}, fmt.Errorf("schema: %w %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Tables lists the known table names in sorted order.
func Tables() []string {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

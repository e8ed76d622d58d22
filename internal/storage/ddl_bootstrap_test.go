package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/transformer"
)

var testDialect = ddl.Dialect{
	Name:    "fake",
	Quote:   ddl.DoubleQuote,
	MapType: func(string) string { return "TEXT" },
}

var testTable = ddl.TableDef{
	Name:       "redirect",
	Columns:    []ddl.ColumnDef{{Name: "rd_from", Kind: ddl.KindInt}, {Name: "rd_title", Kind: ddl.KindString}},
	PrimaryKey: []string{"rd_from"},
	Indexes:    []ddl.IndexDef{{Name: "rd_title", Columns: []string{"rd_title"}}},
}

func TestDialectRegistry(t *testing.T) {
	t.Parallel()

	RegisterDDL("fake-ddl", testDialect)
	RegisterStatementStages("fake-ddl", transformer.StandardStrings())

	d, err := DialectFor("fake-ddl")
	if err != nil || d.Name != "fake" {
		t.Fatalf("DialectFor() = %+v, %v", d, err)
	}
	if len(StatementStages("fake-ddl")) != 1 {
		t.Fatalf("StatementStages() len = %d, want 1", len(StatementStages("fake-ddl")))
	}
	if len(StatementStages("nothing-registered")) != 0 {
		t.Fatalf("StatementStages(unknown) not empty")
	}
	if _, err := DialectFor("nothing-registered"); err == nil {
		t.Fatalf("DialectFor(unknown) error = nil")
	}
}

func TestTableLifecycle(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	ctx := context.Background()

	if err := CreateBareTable(ctx, repo, testDialect, testTable); err != nil {
		t.Fatalf("CreateBareTable() error = %v", err)
	}
	if err := DropTable(ctx, repo, testDialect, "redirect"); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}
	if failed := AddKeys(ctx, repo, testDialect, testTable); failed != 0 {
		t.Fatalf("AddKeys() failed = %d, want 0", failed)
	}

	if len(repo.execs) != 4 {
		t.Fatalf("execs = %q, want 4 statements", repo.execs)
	}
	if strings.Contains(repo.execs[0], "PRIMARY KEY") {
		t.Fatalf("bare table carries a key: %s", repo.execs[0])
	}
	wantTail := []string{
		`DROP TABLE IF EXISTS "redirect"`,
		`ALTER TABLE "redirect" ADD PRIMARY KEY ("rd_from")`,
		`CREATE INDEX "redirect_rd_title" ON "redirect" ("rd_title")`,
	}
	if !slices.Equal(repo.execs[1:], wantTail) {
		t.Fatalf("execs = %q, want %q", repo.execs[1:], wantTail)
	}
}

func TestAddKeys_FailuresAreCountedNotFatal(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{failOn: func(sql string) error {
		if strings.Contains(sql, "PRIMARY KEY") {
			return errors.New("could not create unique index: duplicate key")
		}
		return nil
	}}
	if failed := AddKeys(context.Background(), repo, testDialect, testTable); failed != 1 {
		t.Fatalf("AddKeys() failed = %d, want 1", failed)
	}
	if len(repo.execs) != 1 || !strings.HasPrefix(repo.execs[0], "CREATE INDEX") {
		t.Fatalf("execs = %q, want the index to be created anyway", repo.execs)
	}
}

package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/JoKnopp/wp-import/internal/config"
	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/storage"
	_ "github.com/JoKnopp/wp-import/internal/storage/sqlite"
)

const fakeKind = "importer-fake"

func init() {
	storage.RegisterDDL(fakeKind, ddl.Dialect{
		Name:    fakeKind,
		Quote:   ddl.DoubleQuote,
		MapType: func(string) string { return "TEXT" },
	})
}

// fakeRepo tracks tables by the DDL it sees and counts INSERTs per table.
type fakeRepo struct {
	mu        sync.Mutex
	tables    map[string]bool
	inserts   map[string]int
	failTable string
	closed    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tables: map[string]bool{}, inserts: map[string]int{}}
}

var quotedName = regexp.MustCompile(`"([^"]+)"`)

func (f *fakeRepo) Exec(_ context.Context, stmt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := ""
	if m := quotedName.FindStringSubmatch(stmt); m != nil {
		name = m[1]
	}
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		f.tables[name] = true
	case strings.HasPrefix(stmt, "DROP TABLE"):
		delete(f.tables, name)
	}
	return nil
}

func (f *fakeRepo) ExecBatch(_ context.Context, stmts []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range stmts {
		m := quotedName.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("no table in %q", s)
		}
		if m[1] == f.failTable {
			return 0, errors.New("duplicate key")
		}
		f.inserts[m[1]]++
	}
	return int64(len(stmts)), nil
}

func (f *fakeRepo) TableExists(_ context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table], nil
}

func (f *fakeRepo) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

// useFakeRepo routes storage.New to repo and records the configs asked for.
func useFakeRepo(t *testing.T, repo *fakeRepo) *[]storage.Config {
	t.Helper()
	orig := newRepositoryFn
	t.Cleanup(func() { newRepositoryFn = orig })
	var got []storage.Config
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		got = append(got, cfg)
		return repo, nil
	}
	return &got
}

// copyFixtures copies dump fixtures into a fresh directory, optionally
// under new names.
func copyFixtures(t *testing.T, names map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for src, dst := range names {
		b, err := os.ReadFile(filepath.Join("..", "pipeline", "testdata", src))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, dst), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testConfig(kind, dsn string) config.Config {
	cfg := config.Defaults()
	cfg.Languages = []string{"de"}
	cfg.Storage.Kind = kind
	cfg.Storage.DSN = dsn
	cfg.Storage.Database = "wp_${language}"
	cfg.Runtime.BatchSize = 1
	return cfg
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := copyFixtures(t, map[string]string{
		"dewiki-20091023-redirect.sql":          "dewiki-20091023-redirect.sql",
		"dewiki-20091023-categorylinks.sql.bz2": "dewiki-20091023-categorylinks.sql.bz2",
		"dewiki-20091023-redirect.sql.bz2":      "frwiki-20091101-redirect.sql.bz2",
	})
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("not a dump"), 0o644); err != nil {
		t.Fatal(err)
	}

	im, err := New(testConfig(fakeKind, "x"), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	infos, err := im.Discover(dir, filepath.Join(dir, "dewiki-20091023-redirect.sql"), "https://dumps.example.org/dewiki/20091023/dewiki-20091023-langlinks.sql.gz")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	var got []string
	for _, i := range infos {
		got = append(got, i.Language+"/"+i.Table+"/"+i.Date)
	}
	want := []string{"de/categorylinks/20091023", "de/langlinks/20091023", "de/redirect/20091023", "fr/redirect/20091101"}
	if !slices.Equal(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}

	if _, err := im.Discover(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Discover(missing) error = %v, want os.ErrNotExist", err)
	}
	if _, err := im.Discover("https://dumps.example.org/latest.sql.gz"); !errors.Is(err, dump.ErrPatternMismatch) {
		t.Fatalf("Discover(bad url) error = %v, want dump.ErrPatternMismatch", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	cfg := testConfig(fakeKind, "x")
	cfg.DumpPattern = "("
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatalf("New(bad pattern) error = nil")
	}
	cfg = testConfig(fakeKind, "x")
	cfg.Encoding = "klingon"
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatalf("New(bad encoding) error = nil")
	}
	cfg = testConfig(fakeKind, "x")
	cfg.DecodeMode = "tuples"
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatalf("New(bad decode mode) error = nil")
	}
	cfg = testConfig(fakeKind, "x")
	cfg.Runtime.BatchSize = 0
	if _, err := New(cfg, Options{}); err == nil {
		t.Fatalf("New(batch 0) error = nil")
	}
}

func TestStatements_DecodeMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join("..", "pipeline", "testdata", "dewiki-20091023-categorylinks.sql")
	for _, tt := range []struct {
		mode        string
		wantStmts   int
		wantDropped int64
	}{
		{"rows", 2, 1},
		{"lines", 1, 1},
	} {
		cfg := testConfig(fakeKind, "x")
		cfg.DecodeMode = tt.mode
		im, err := New(cfg, Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		n := 0
		for _, err := range im.Statements(context.Background(), path) {
			if err != nil {
				t.Fatalf("Statements(%s) error = %v", tt.mode, err)
			}
			n++
		}
		if n != tt.wantStmts {
			t.Fatalf("Statements(%s) = %d statements, want %d", tt.mode, n, tt.wantStmts)
		}
		if got := im.Summary().Dropped; got != tt.wantDropped {
			t.Fatalf("Summary().Dropped(%s) = %d, want %d", tt.mode, got, tt.wantDropped)
		}
	}
}

// TestImportDumps_SQLite loads the fixtures into real SQLite files, one
// per language.
func TestImportDumps_SQLite(t *testing.T) {
	t.Parallel()

	src := copyFixtures(t, map[string]string{
		"dewiki-20091023-redirect.sql.bz2":  "dewiki-20091023-redirect.sql.bz2",
		"dewiki-20091023-categorylinks.sql": "dewiki-20091023-categorylinks.sql",
		"dewiki-20091023-redirect.sql":      "frwiki-20091023-redirect.sql",
	})
	dbDir := t.TempDir()
	cfg := testConfig("sqlite", dbDir)
	cfg.Runtime.Workers = 2

	im, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sum, err := im.ImportDumps(context.Background(), src)
	if err != nil {
		t.Fatalf("ImportDumps() error = %v", err)
	}
	if sum.Dumps != 3 || sum.Tables != 2 || sum.Skipped != 1 || sum.Failed != 0 {
		t.Fatalf("Summary = %+v, want 3 dumps, 2 tables, 1 skipped", sum)
	}
	if sum.Statements != 4 || sum.Dropped != 1 {
		t.Fatalf("Summary = %+v, want 4 statements and 1 dropped row", sum)
	}
	if _, err := os.Stat(filepath.Join(dbDir, "wp_fr.sqlite")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("fr database created although fr is not enabled")
	}

	db, err := sql.Open("sqlite", filepath.Join(dbDir, "wp_de.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM redirect`).Scan(&n); err != nil || n != 3 {
		t.Fatalf("redirect rows = %d, %v, want 3", n, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM categorylinks`).Scan(&n); err != nil || n != 3 {
		t.Fatalf("categorylinks rows = %d, %v, want 3", n, err)
	}
	var sortkey, ts string
	if err := db.QueryRow(`SELECT cl_sortkey, cl_timestamp FROM categorylinks WHERE cl_from = 141`).Scan(&sortkey, &ts); err != nil {
		t.Fatalf("select: %v", err)
	}
	if sortkey != "It's fine" || ts != "2009-10-23T00:00:00Z" {
		t.Fatalf("row 141 = %q, %q", sortkey, ts)
	}

	// second run leaves existing tables alone
	im2, _ := New(cfg, Options{})
	sum, err = im2.ImportDumps(context.Background(), src)
	if err != nil {
		t.Fatalf("ImportDumps() again error = %v", err)
	}
	if sum.Tables != 0 || sum.Skipped != 3 {
		t.Fatalf("second Summary = %+v, want 0 tables, 3 skipped", sum)
	}

	cfg.Reimport = true
	im3, _ := New(cfg, Options{})
	sum, err = im3.ImportDumps(context.Background(), src)
	if err != nil {
		t.Fatalf("ImportDumps(reimport) error = %v", err)
	}
	if sum.Tables != 2 {
		t.Fatalf("reimport Summary = %+v, want 2 tables", sum)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM redirect`).Scan(&n); err != nil || n != 3 {
		t.Fatalf("redirect rows after reimport = %d, %v, want 3", n, err)
	}
}

func TestImportDumps_FailedLoadDropsTable(t *testing.T) {
	repo := newFakeRepo()
	repo.failTable = "redirect"
	got := useFakeRepo(t, repo)

	src := copyFixtures(t, map[string]string{
		"dewiki-20091023-redirect.sql":      "dewiki-20091023-redirect.sql",
		"dewiki-20091023-categorylinks.sql": "dewiki-20091023-categorylinks.sql",
	})
	var asked []string
	im, err := New(testConfig(fakeKind, "dsn"), Options{
		Password: func(db string) (string, error) {
			asked = append(asked, db)
			return "Ni!", nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sum, err := im.ImportDumps(context.Background(), src)
	if err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("ImportDumps() error = %v, want duplicate key", err)
	}
	if sum.Failed != 1 || sum.Tables != 1 {
		t.Fatalf("Summary = %+v, want 1 failed, 1 loaded", sum)
	}
	if repo.tables["redirect"] || !repo.tables["categorylinks"] {
		t.Fatalf("tables = %v, want only categorylinks", repo.tables)
	}
	if repo.inserts["categorylinks"] != 2 {
		t.Fatalf("categorylinks inserts = %d, want 2", repo.inserts["categorylinks"])
	}
	if repo.closed != 1 {
		t.Fatalf("repo closed %d times, want 1", repo.closed)
	}
	if len(*got) != 1 || (*got)[0].Database != "wp_de" || (*got)[0].Password != "Ni!" {
		t.Fatalf("storage configs = %+v", *got)
	}
	if !slices.Equal(asked, []string{"wp_de"}) {
		t.Fatalf("password asked for %v", asked)
	}
}

func TestImportDumps_PasswordError(t *testing.T) {
	useFakeRepo(t, newFakeRepo())

	src := copyFixtures(t, map[string]string{"dewiki-20091023-redirect.sql": "dewiki-20091023-redirect.sql"})
	errNoPass := errors.New("no password")
	im, _ := New(testConfig(fakeKind, "dsn"), Options{
		Password: func(string) (string, error) { return "", errNoPass },
	})
	if _, err := im.ImportDumps(context.Background(), src); !errors.Is(err, errNoPass) {
		t.Fatalf("ImportDumps() error = %v, want %v", err, errNoPass)
	}
}

func TestImportDumps_PagesArticles(t *testing.T) {
	repo := newFakeRepo()
	useFakeRepo(t, repo)

	origConvert := convertFn
	defer func() { convertFn = origConvert }()
	var gotCommand []string
	convertFn = func(ctx context.Context, command []string, in io.Reader, dir string) error {
		gotCommand = command
		if _, err := io.Copy(io.Discard, in); err != nil {
			return err
		}
		for _, table := range pagesArticlesTables {
			stmt := fmt.Sprintf("INSERT INTO `%s` VALUES (1,'x');\n", table)
			if err := os.WriteFile(filepath.Join(dir, table+".sql"), []byte(stmt), 0o644); err != nil {
				return err
			}
		}
		return nil
	}

	src := copyFixtures(t, map[string]string{
		"dewiki-20091023-redirect.sql.bz2": "dewiki-20091023-pages-articles.xml.bz2",
	})

	cfg := testConfig(fakeKind, "dsn")
	// without a converter the dump is skipped
	im, _ := New(cfg, Options{})
	sum, err := im.ImportDumps(context.Background(), src)
	if err != nil || sum.Skipped != 1 || gotCommand != nil {
		t.Fatalf("ImportDumps(no converter) = %+v, %v", sum, err)
	}

	cfg.Converter = []string{"xml2sql", "--postgresql=8.4"}
	im, _ = New(cfg, Options{})
	sum, err = im.ImportDumps(context.Background(), src)
	if err != nil {
		t.Fatalf("ImportDumps() error = %v", err)
	}
	if !slices.Equal(gotCommand, cfg.Converter) {
		t.Fatalf("converter command = %v, want %v", gotCommand, cfg.Converter)
	}
	if sum.Tables != 3 {
		t.Fatalf("Summary = %+v, want 3 tables", sum)
	}
	for _, table := range pagesArticlesTables {
		if !repo.tables[table] || repo.inserts[table] != 1 {
			t.Fatalf("table %s: exists=%v inserts=%d", table, repo.tables[table], repo.inserts[table])
		}
	}

	// all three tables exist now
	gotCommand = nil
	im, _ = New(cfg, Options{})
	sum, err = im.ImportDumps(context.Background(), src)
	if err != nil || sum.Skipped != 1 || gotCommand != nil {
		t.Fatalf("ImportDumps(existing) = %+v, %v, converter %v", sum, err, gotCommand)
	}
}

func TestConvertPagesArticles(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	// the script copies stdin to page.sql in the directory passed last
	cmd := []string{"/bin/sh", "-c", `cat > "$0/page.sql"`}
	if err := convertPagesArticles(context.Background(), cmd, strings.NewReader("<mediawiki/>"), dir); err != nil {
		t.Fatalf("convertPagesArticles() error = %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "page.sql"))
	if err != nil || string(b) != "<mediawiki/>" {
		t.Fatalf("page.sql = %q, %v", b, err)
	}

	if err := convertPagesArticles(context.Background(), []string{"/bin/sh", "-c", "exit 3"}, strings.NewReader(""), dir); err == nil {
		t.Fatalf("convertPagesArticles(exit 3) error = nil")
	}
	if err := convertPagesArticles(context.Background(), nil, strings.NewReader(""), dir); err == nil {
		t.Fatalf("convertPagesArticles(nil) error = nil")
	}
}

func TestGroupBy(t *testing.T) {
	t.Parallel()

	in := []string{"de:a", "de:b", "fr:a", "nds:x"}
	var keys []string
	var sizes []int
	for k, g := range groupBy(in, func(s string) string { return strings.SplitN(s, ":", 2)[0] }) {
		keys = append(keys, k)
		sizes = append(sizes, len(g))
	}
	if !slices.Equal(keys, []string{"de", "fr", "nds"}) || !slices.Equal(sizes, []int{2, 1, 1}) {
		t.Fatalf("groupBy() = %v %v", keys, sizes)
	}
}

// Package importer loads MediaWiki dump files into one database per wiki
// language.
//
// Dumps are discovered under the given paths, classified by file name and
// grouped by language. Each table is created bare, loaded through the
// statement pipeline and only then given its primary key and indexes.
package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/JoKnopp/wp-import/internal/config"
	"github.com/JoKnopp/wp-import/internal/datasource"
	"github.com/JoKnopp/wp-import/internal/datasource/file"
	"github.com/JoKnopp/wp-import/internal/datasource/httpds"
	"github.com/JoKnopp/wp-import/internal/ddl"
	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/metrics"
	"github.com/JoKnopp/wp-import/internal/parser/sqldump"
	"github.com/JoKnopp/wp-import/internal/pipeline"
	"github.com/JoKnopp/wp-import/internal/schema"
	"github.com/JoKnopp/wp-import/internal/storage"
	"github.com/JoKnopp/wp-import/internal/transformer"

	"golang.org/x/sync/errgroup"
)

// Test seams.
var (
	newRepositoryFn = storage.New
	convertFn       = convertPagesArticles
)

// PasswordFunc returns the password for a target database, typically from
// a pgpass file.
type PasswordFunc func(database string) (string, error)

// Options carries collaborators that do not belong in the config file.
type Options struct {
	// Password is consulted once per database. Nil leaves it empty.
	Password PasswordFunc
	// Client fetches http(s) dumps; nil builds a default one.
	Client *httpds.Client
}

// Summary counts what a run did.
type Summary struct {
	Dumps      int   // dump files discovered
	Tables     int   // tables loaded
	Skipped    int   // dumps or tables left alone
	Failed     int   // tables whose load failed and were dropped
	Statements int64 // INSERT statements executed
	Dropped    int64 // lines, rows and statements lost to decoding
}

// Importer runs imports for one configuration. It is safe for use by one
// ImportDumps call at a time.
type Importer struct {
	cfg     config.Config
	pattern *regexp.Regexp
	mode    sqldump.Mode
	opts    Options

	mu      sync.Mutex
	summary Summary
}

// New checks the parts of cfg the importer depends on and returns an
// Importer.
func New(cfg config.Config, opts Options) (*Importer, error) {
	pattern, err := dump.CompilePattern(cfg.DumpPattern)
	if err != nil {
		return nil, err
	}
	if _, err := sqldump.LookupEncoding(cfg.Encoding); err != nil {
		return nil, err
	}
	mode, err := sqldump.ParseMode(cfg.DecodeMode)
	if err != nil {
		return nil, err
	}
	if cfg.Runtime.BatchSize <= 0 {
		return nil, fmt.Errorf("importer: batch size must be > 0, got %d", cfg.Runtime.BatchSize)
	}
	if cfg.Runtime.Workers <= 0 {
		cfg.Runtime.Workers = 1
	}
	return &Importer{cfg: cfg, pattern: pattern, mode: mode, opts: opts}, nil
}

// Summary returns the counters accumulated so far.
func (im *Importer) Summary() Summary {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.summary
}

func (im *Importer) count(fn func(*Summary)) {
	im.mu.Lock()
	fn(&im.summary)
	im.mu.Unlock()
}

// Discover returns the dumps at or beneath paths, sorted by language,
// table, date and path. http(s) URLs are taken as single dumps.
func (im *Importer) Discover(paths ...string) ([]dump.Info, error) {
	var local, remote []string
	for _, p := range paths {
		if datasource.IsRemote(p) {
			remote = append(remote, p)
		} else {
			local = append(local, p)
		}
	}

	var locations []string
	if len(local) > 0 {
		found, err := file.DumpFilePaths(im.pattern, local...)
		if err != nil {
			return nil, err
		}
		locations = found
	}
	locations = append(locations, remote...)

	infos := make([]dump.Info, 0, len(locations))
	for _, loc := range locations {
		info, err := dump.Classify(loc, im.pattern)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b dump.Info) int {
		return cmp.Or(
			cmp.Compare(a.Language, b.Language),
			cmp.Compare(a.Table, b.Table),
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.Path, b.Path),
		)
	})
	return slices.CompactFunc(infos, func(a, b dump.Info) bool { return a.Path == b.Path }), nil
}

// ImportDumps imports every dump found at or beneath paths. Failures of
// single tables are logged, counted and joined into the returned error;
// the run carries on with the remaining dumps.
func (im *Importer) ImportDumps(ctx context.Context, paths ...string) (Summary, error) {
	infos, err := im.Discover(paths...)
	if err != nil {
		return im.Summary(), err
	}
	im.count(func(s *Summary) { s.Dumps += len(infos) })
	log.Printf("importer: discovered dumps=%d", len(infos))

	var errs []error
	for lang, group := range groupBy(infos, func(i dump.Info) string { return i.Language }) {
		if !im.cfg.LanguageEnabled(lang) {
			log.Printf("importer: language=%s not enabled; skipping dumps=%d", lang, len(group))
			im.count(func(s *Summary) { s.Skipped += len(group) })
			continue
		}
		if err := im.importLanguage(ctx, lang, group); err != nil {
			errs = append(errs, fmt.Errorf("language %s: %w", lang, err))
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return im.Summary(), errors.Join(errs...)
}

// target is an open language database.
type target struct {
	db      string
	repo    storage.Repository
	dialect ddl.Dialect
	stages  []transformer.Stage
}

func (im *Importer) importLanguage(ctx context.Context, lang string, group []dump.Info) error {
	log.Printf("importer: processing language=%s dumps=%d", lang, len(group))

	t, closeFn, err := im.openTarget(ctx, group[0])
	if err != nil {
		return err
	}
	defer closeFn()

	var sqlDumps, xmlDumps []dump.Info
	for _, info := range group {
		if info.IsPagesArticles() {
			xmlDumps = append(xmlDumps, info)
		} else {
			sqlDumps = append(sqlDumps, info)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.cfg.Runtime.Workers)
	// Dumps of one table run in order on one worker.
	for _, files := range groupBy(sqlDumps, func(i dump.Info) string { return i.Table }) {
		g.Go(func() error {
			for _, info := range files {
				if err := im.importSQLDump(gctx, t, info); err != nil {
					if gctx.Err() != nil {
						return err
					}
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	// pages-articles writes the page table, so it runs after the SQL dumps.
	for _, info := range xmlDumps {
		if ctx.Err() != nil {
			break
		}
		if err := im.importPagesArticles(ctx, t, info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openTarget connects to the database of the language of info.
func (im *Importer) openTarget(ctx context.Context, info dump.Info) (*target, func(), error) {
	sc := im.cfg.Storage
	db := ""
	if sc.Database != "" {
		var err error
		if db, err = info.Expand(sc.Database); err != nil {
			return nil, nil, err
		}
	}

	password := ""
	if im.opts.Password != nil {
		var err error
		if password, err = im.opts.Password(db); err != nil {
			return nil, nil, err
		}
	}

	dialect, err := storage.DialectFor(sc.Kind)
	if err != nil {
		return nil, nil, err
	}
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:           sc.Kind,
		DSN:            sc.DSN,
		Database:       db,
		CreateDatabase: sc.CreateDatabase,
		Password:       password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database %s: %w", sc.Kind, db, err)
	}
	if db == "" {
		db = sc.Kind
	}
	t := &target{db: db, repo: repo, dialect: dialect, stages: storage.StatementStages(sc.Kind)}
	return t, repo.Close, nil
}

func (im *Importer) importSQLDump(ctx context.Context, t *target, info dump.Info) error {
	log.Printf("importer: processing %s", info.Filename)
	td, err := schema.Table(info.Table)
	if err != nil {
		log.Printf("importer: %s.%s: no table definition; skipping %s", t.db, info.Table, info.Filename)
		im.count(func(s *Summary) { s.Skipped++ })
		return nil
	}
	return im.loadTable(ctx, t, td, info.Path, info.Filename)
}

// loadTable (re)creates td without keys, loads the statements of the dump
// at location and adds the keys. A failed load drops the table again.
func (im *Importer) loadTable(ctx context.Context, t *target, td ddl.TableDef, location, label string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(im.cfg.Job, "import_"+td.Name, err, time.Since(start)) }()

	exists, err := t.repo.TableExists(ctx, td.Name)
	if err != nil {
		return err
	}
	if exists && !im.cfg.Reimport {
		log.Printf("importer: %s.%s: skipped import of %s", t.db, td.Name, label)
		im.count(func(s *Summary) { s.Skipped++ })
		return nil
	}
	if exists {
		if err := storage.DropTable(ctx, t.repo, t.dialect, td.Name); err != nil {
			return err
		}
	}
	if err := storage.CreateBareTable(ctx, t.repo, t.dialect, td); err != nil {
		return err
	}

	log.Printf("importer: %s.%s: importing data from %s", t.db, td.Name, label)
	stmts := pipeline.InsertStatements(ctx, location, im.pipelineOptions(t.stages))
	res, err := storage.LoadStatements(ctx, stmts, im.cfg.Runtime.BatchSize, t.repo.ExecBatch)
	metrics.RecordStatements(im.cfg.Job, td.Name, res.Statements)
	metrics.RecordBatches(im.cfg.Job, res.Batches)
	im.count(func(s *Summary) { s.Statements += res.Statements })
	if err != nil {
		log.Printf("importer: %s.%s: import failed, drop table: %v", t.db, td.Name, err)
		if derr := storage.DropTable(context.WithoutCancel(ctx), t.repo, t.dialect, td.Name); derr != nil {
			log.Printf("importer: %s.%s: %v", t.db, td.Name, derr)
		}
		im.count(func(s *Summary) { s.Failed++ })
		return fmt.Errorf("%s.%s: %w", t.db, td.Name, err)
	}

	if failed := storage.AddKeys(ctx, t.repo, t.dialect, td); failed > 0 {
		log.Printf("importer: %s.%s: %d key statement(s) failed", t.db, td.Name, failed)
	}
	im.count(func(s *Summary) { s.Tables++ })
	return nil
}

// Statements yields the statements of one dump as they would be loaded
// into the configured storage kind.
func (im *Importer) Statements(ctx context.Context, location string) iter.Seq2[string, error] {
	return pipeline.InsertStatements(ctx, location, im.pipelineOptions(storage.StatementStages(im.cfg.Storage.Kind)))
}

func (im *Importer) pipelineOptions(stages []transformer.Stage) pipeline.Options {
	return pipeline.Options{
		Encoding: im.cfg.Encoding,
		Mode:     im.mode,
		OnDrop:   im.onDrop,
		Stages:   stages,
		Client:   im.opts.Client,
	}
}

func (im *Importer) onDrop(d sqldump.Drop) {
	sqldump.LogDrop(d)
	metrics.RecordDrop(im.cfg.Job, d.Kind)
	im.count(func(s *Summary) { s.Dropped++ })
}

// groupBy yields runs of consecutive elements with the same key. in must
// be sorted by key for each key to appear once.
func groupBy[T any](in []T, key func(T) string) iter.Seq2[string, []T] {
	return func(yield func(string, []T) bool) {
		for start := 0; start < len(in); {
			k := key(in[start])
			end := start + 1
			for end < len(in) && key(in[end]) == k {
				end++
			}
			if !yield(k, in[start:end]) {
				return
			}
			start = end
		}
	}
}

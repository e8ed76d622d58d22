// Command wpimport loads MediaWiki SQL dumps into Postgres, MySQL or SQLite,
// one database per wiki language.
//
//	wpimport -config wp-import.yaml /srv/dumps
//	wpimport -dump dewiki-20091023-categorylinks.sql.gz > categorylinks.sql
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JoKnopp/wp-import/internal/config"
	"github.com/JoKnopp/wp-import/internal/credentials"
	"github.com/JoKnopp/wp-import/internal/datasource/file"
	"github.com/JoKnopp/wp-import/internal/importer"
	"github.com/JoKnopp/wp-import/internal/metrics"
	"github.com/JoKnopp/wp-import/internal/metrics/datadog"
	"github.com/JoKnopp/wp-import/internal/metrics/prompush"
	"github.com/JoKnopp/wp-import/internal/pipeline"

	"github.com/joho/godotenv"

	// register all backends with the storage factory.
	_ "github.com/JoKnopp/wp-import/internal/storage/all"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitMissingFile = 3
	exitCredentials = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	cfgPath        string
	envFile        string
	metricsBackend string
	pushGatewayURL string
	statsdAddr     string
	listFile       string
	languages      string
	validate       bool
	reimport       bool
	dump           bool
	digest         bool
	verbose        bool
}

// run is main without the process exit, for tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	var o options
	fs := flag.NewFlagSet("wpimport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cfgPath, "config", "", "config file (.json, .yaml or .hcl); defaults apply when empty")
	fs.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	fs.StringVar(&o.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&o.statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_URL)")
	fs.StringVar(&o.listFile, "list", "", "file listing dump paths, one per line")
	fs.StringVar(&o.languages, "languages", "", "comma separated languages to import, overrides the config")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.reimport, "reimport", false, "drop and reload tables that already exist")
	fs.BoolVar(&o.dump, "dump", false, "write the statements of the given dumps to stdout instead of importing")
	fs.BoolVar(&o.digest, "digest", false, "print an xxh3 digest and count of each dump's statements")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: wpimport [flags] <dump file or directory>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if o.verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	if err := loadEnvFile(o.envFile, isFlagSet(fs, "env-file")); err != nil {
		log.Printf("env: %v", err)
		return exitMissingFile
	}

	cfg, err := loadConfig(o)
	if err != nil {
		log.Printf("%v", err)
		if errors.Is(err, os.ErrNotExist) {
			return exitMissingFile
		}
		return exitUsage
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	needsDB := !o.dump && !o.digest
	if config.HasErrors(issues) && (needsDB || o.validate) {
		log.Printf("configuration is invalid: %v", o.cfgPath)
		return exitUsage
	}
	if o.validate {
		log.Printf("configuration is valid: %v", o.cfgPath)
		return exitOK
	}

	paths := fs.Args()
	if o.listFile != "" {
		listed, err := file.ReadList(o.listFile)
		if err != nil {
			log.Printf("%v", err)
			return exitMissingFile
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		fs.Usage()
		return exitUsage
	}

	var opts importer.Options
	if needsDB {
		pw, err := passwordFunc(cfg.Storage)
		if err != nil {
			log.Printf("credentials: %v", err)
			return exitCredentials
		}
		opts.Password = pw
	}

	im, err := importer.New(cfg, opts)
	if err != nil {
		log.Printf("%v", err)
		return exitUsage
	}

	if o.dump || o.digest {
		return writeStatements(ctx, im, paths, o.digest, stdout)
	}

	if flush := setupMetrics(o, cfg.Job); flush != nil {
		defer flush()
	}

	start := time.Now()
	if o.verbose {
		log.Printf("wpimport: storage=%s database=%s languages=%v workers=%d batch=%d reimport=%v",
			cfg.Storage.Kind, cfg.Storage.Database, cfg.Languages, cfg.Runtime.Workers, cfg.Runtime.BatchSize, cfg.Reimport)
	}
	sum, err := im.ImportDumps(ctx, paths...)
	log.Printf("wpimport: done dumps=%d tables=%d skipped=%d failed=%d statements=%d dropped=%d elapsed=%s",
		sum.Dumps, sum.Tables, sum.Skipped, sum.Failed, sum.Statements, sum.Dropped,
		time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		log.Printf("wpimport: %v", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, credentials.ErrNoMatch):
		return exitCredentials
	case errors.Is(err, os.ErrNotExist):
		return exitMissingFile
	}
	return exitFailure
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadEnvFile loads path into the environment without overriding set
// variables. A missing default file is fine.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// loadConfig reads the config file and applies environment and flag
// overrides: flag → env → file → default.
func loadConfig(o options) (config.Config, error) {
	cfg := config.Defaults()
	if o.cfgPath != "" {
		var err error
		if cfg, err = config.Load(o.cfgPath); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv("WPIMPORT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("WPIMPORT_STORAGE_KIND"); v != "" {
		cfg.Storage.Kind = v
	}
	if o.languages != "" {
		cfg.Languages = splitList(o.languages)
	} else if v := os.Getenv("WPIMPORT_LANGUAGES"); v != "" {
		cfg.Languages = splitList(v)
	}
	if o.reimport {
		cfg.Reimport = true
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// writeStatements implements -dump and -digest.
func writeStatements(ctx context.Context, im *importer.Importer, locations []string, digest bool, stdout io.Writer) int {
	w := bufio.NewWriter(stdout)
	defer w.Flush()

	for _, loc := range locations {
		if digest {
			sum, n, err := pipeline.Digest(im.Statements(ctx, loc))
			if err != nil {
				log.Printf("%s: %v", loc, err)
				return exitCode(err)
			}
			fmt.Fprintf(w, "%016x %d %s\n", sum, n, loc)
			continue
		}
		for stmt, err := range im.Statements(ctx, loc) {
			if err != nil {
				w.Flush()
				log.Printf("%s: %v", loc, err)
				return exitCode(err)
			}
			w.WriteString(stmt)
			w.WriteByte('\n')
		}
	}
	return exitOK
}

// setupMetrics installs the selected backend and returns its flush
// function, or nil when metrics are off. Settings resolve flag → env →
// default.
func setupMetrics(o options, job string) func() {
	name := o.metricsBackend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "pushgateway":
		gwURL := firstNonEmpty(o.pushGatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err = prompush.NewBackend(job, gwURL)
		log.Printf("metrics: backend=%s url=%s job_name=%s", name, gwURL, job)
	case "datadog", "statsd":
		addr := firstNonEmpty(o.statsdAddr, os.Getenv("DD_DOGSTATSD_URL"), "127.0.0.1:8125")
		b, err = datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "wpimport.", GlobalTags: []string{"job:" + job}})
		log.Printf("metrics: backend=%s addr=%s job_name=%s", name, addr, job)
	case "", "none":
		return nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return nil
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", name, err)
		return nil
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

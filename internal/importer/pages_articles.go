package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/JoKnopp/wp-import/internal/datasource"
	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/schema"
)

// pagesArticlesTables are written by the XML converter, in load order.
var pagesArticlesTables = []string{"page", "revision", "text"}

// importPagesArticles converts an XML pages-articles dump with the
// configured converter and loads the resulting page, revision and text
// dumps.
func (im *Importer) importPagesArticles(ctx context.Context, t *target, info dump.Info) error {
	log.Printf("importer: processing %s", info.Filename)
	if len(im.cfg.Converter) == 0 {
		log.Printf("importer: %s: no converter configured; skipping %s", t.db, info.Filename)
		im.count(func(s *Summary) { s.Skipped++ })
		return nil
	}

	if !im.cfg.Reimport {
		present := 0
		for _, name := range pagesArticlesTables {
			ok, err := t.repo.TableExists(ctx, name)
			if err != nil {
				return err
			}
			if ok {
				present++
			}
		}
		if present == len(pagesArticlesTables) {
			log.Printf("importer: %s: page, revision and text present; skipped %s", t.db, info.Filename)
			im.count(func(s *Summary) { s.Skipped++ })
			return nil
		}
	}

	dir, err := os.MkdirTemp("", "wpimport-"+info.Language+"-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	rc, err := datasource.OpenDecompressed(ctx, datasource.ForLocation(info.Path, im.opts.Client))
	if err != nil {
		return err
	}
	err = convertFn(ctx, im.cfg.Converter, rc, dir)
	rc.Close()
	if err != nil {
		im.count(func(s *Summary) { s.Failed++ })
		return fmt.Errorf("%s: %w", info.Filename, err)
	}

	for _, name := range pagesArticlesTables {
		td, err := schema.Table(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name+".sql")
		if _, err := os.Stat(path); err != nil {
			im.count(func(s *Summary) { s.Failed++ })
			return fmt.Errorf("%s: converter output: %w", info.Filename, err)
		}
		if err := im.loadTable(ctx, t, td, path, info.Filename); err != nil {
			return err
		}
		_ = os.Remove(path)
	}
	return nil
}

// convertPagesArticles runs command with the XML dump on stdin and dir
// appended as last argument.
func convertPagesArticles(ctx context.Context, command []string, in io.Reader, dir string) error {
	if len(command) == 0 {
		return errors.New("converter: no command")
	}
	args := append(slices.Clone(command[1:]), dir)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Stdin = in
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	start := time.Now()
	err := cmd.Run()
	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	log.Printf("converter: %s [%d] exited err=%v elapsed=%s", command[0], pid, err, time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		return fmt.Errorf("converter %s: %w", command[0], err)
	}
	return nil
}

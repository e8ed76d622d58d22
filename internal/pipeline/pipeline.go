// Package pipeline assembles the per-file transformation from a MediaWiki
// MySQL dump into INSERT statements for a target database.
//
// A run is one lazy forward pass over one file:
//
//	open/decompress -> ^INSERT filter -> decode (salvage rows) -> trim
//	  -> backticks to double quotes [-> timestamps] [-> extra stages]
//
// Nothing is read before the consumer pulls the first statement and the
// file is closed as soon as iteration ends, including on early break.
package pipeline

import (
	"context"
	"io"
	"iter"
	"path/filepath"

	"github.com/JoKnopp/wp-import/internal/datasource"
	"github.com/JoKnopp/wp-import/internal/datasource/httpds"
	"github.com/JoKnopp/wp-import/internal/dump"
	"github.com/JoKnopp/wp-import/internal/parser/sqldump"
	"github.com/JoKnopp/wp-import/internal/transformer"
)

// CategorylinksGlob selects the categorylinks specialization by base name.
const CategorylinksGlob = "*categorylinks*"

// Pipeline is a named statement rewrite applied after decoding.
type Pipeline struct {
	Name  string
	stage transformer.Stage
}

// Generic trims statements and converts identifier quoting.
func Generic() Pipeline {
	return Pipeline{
		Name:  "generic",
		stage: transformer.Chain(transformer.Trim(), transformer.QuoteIdentifiers()),
	}
}

// Categorylinks is Generic followed by the MediaWiki timestamp rewrite for
// cl_timestamp values.
func Categorylinks() Pipeline {
	return Pipeline{
		Name:  "categorylinks",
		stage: transformer.Chain(Generic().stage, transformer.TimestampsToISO8601()),
	}
}

// Select picks the pipeline for a dump location by its base name.
func Select(location string) Pipeline {
	if ok, _ := filepath.Match(CategorylinksGlob, dump.BaseName(location)); ok {
		return Categorylinks()
	}
	return Generic()
}

// Run yields the statements of the dump content in r, salvaging rows of
// undecodable lines.
func (p Pipeline) Run(r io.Reader, dec *sqldump.Decoder, extra ...transformer.Stage) iter.Seq2[string, error] {
	return p.Apply(dec.Multirow(sqldump.InsertLines(r)), extra...)
}

// Apply runs the pipeline and then extra over decoded statements.
func (p Pipeline) Apply(stmts iter.Seq2[string, error], extra ...transformer.Stage) iter.Seq2[string, error] {
	stage := transformer.Chain(append([]transformer.Stage{p.stage}, extra...)...)
	return stage(stmts)
}

// Options tunes InsertStatements. The zero value decodes UTF-8 and logs
// dropped data.
type Options struct {
	Encoding string
	// Mode is the decode mode; empty salvages rows.
	Mode   sqldump.Mode
	OnDrop sqldump.DropFunc
	// Stages run after the selected pipeline, e.g. a dialect fix-up.
	Stages []transformer.Stage
	// Client is used for http(s) locations; nil builds a default one.
	Client *httpds.Client
}

// InsertStatements opens the dump at location (path or http(s) URL),
// selects the pipeline by name and yields rewritten INSERT statements in
// source order.
//
// Open, read and pattern errors are yielded once and end the sequence.
// Decode errors are recovered and reported through opts.OnDrop.
func InsertStatements(ctx context.Context, location string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		dec, err := sqldump.NewDecoder(opts.Encoding, opts.OnDrop)
		if err != nil {
			yield("", err)
			return
		}

		rc, err := openSource(ctx, location, opts.Client)
		if err != nil {
			yield("", err)
			return
		}
		defer rc.Close()

		lines := sqldump.InsertLines(contextReader{ctx: ctx, r: rc})
		for stmt, err := range Select(location).Apply(dec.Decode(opts.Mode, lines), opts.Stages...) {
			if !yield(stmt, err) || err != nil {
				return
			}
		}
	}
}

// openSource opens location with decompression applied. Tests replace it.
var openSource = func(ctx context.Context, location string, client *httpds.Client) (io.ReadCloser, error) {
	return datasource.OpenDecompressed(ctx, datasource.ForLocation(location, client))
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Package sqldump extracts INSERT statements from textual MySQL dumps of a
// MediaWiki database and decodes them into Go strings.
//
// Everything is lazy: a dump is consumed line by line through iter.Seq2
// sequences, so memory stays bounded by the longest single line (MediaWiki
// dumps pack thousands of rows into one INSERT, lines of several MB are
// normal).
package sqldump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
)

// insertLine selects the lines carrying data. Everything else in a dump
// (comments, DDL, LOCK TABLES, SET statements) is dropped.
var insertLine = regexp.MustCompile(`^INSERT`)

// readBufferSize is the initial bufio buffer; ReadBytes grows past it for
// longer lines.
const readBufferSize = 1 << 20

// FilterLines yields every line of r matching re, in source order and
// without the trailing line terminator. Lines not matching are skipped.
//
// The returned sequence is single-use. Read errors other than io.EOF are
// yielded once and end the sequence.
func FilterLines(r io.Reader, re *regexp.Regexp) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReaderSize(r, readBufferSize)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				line = bytes.TrimRight(line, "\r\n")
				if re.Match(line) && !yield(line, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read dump: %w", err))
				return
			}
		}
	}
}

// InsertLines is FilterLines with the `^INSERT` filter.
func InsertLines(r io.Reader) iter.Seq2[[]byte, error] {
	return FilterLines(r, insertLine)
}

// Package compress picks a decompressor for a dump stream from its file
// name suffix.
package compress

import (
	"compress/bzip2"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Format identifies a supported compression format.
type Format string

const (
	None  Format = ""
	Gzip  Format = "gzip"
	Bzip2 Format = "bzip2"
)

// Detect maps a file name to its compression format by suffix.
func Detect(name string) Format {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".bz2"):
		return Bzip2
	default:
		return None
	}
}

// readCloser closes both the decompressor (when it has a Close) and the
// underlying stream.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Wrap returns a reader yielding the decompressed content of rc according to
// the suffix of name. Closing the result closes rc. On error rc is closed.
//
// A broken gzip header is reported here; bzip2 only validates on first read.
func Wrap(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch Detect(name) {
	case Gzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("gzip %s: %w", name, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case Bzip2:
		return &readCloser{Reader: bzip2.NewReader(rc), closers: []io.Closer{rc}}, nil
	default:
		return rc, nil
	}
}

package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type trackingCloser struct {
	io.Reader
	closed bool
}

func (t *trackingCloser) Close() error {
	t.closed = true
	return nil
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"dewiki-20091023-redirect.sql.gz":        Gzip,
		"dewiki-20091023-redirect.sql.bz2":       Bzip2,
		"dewiki-20091023-redirect.sql":           None,
		"dewiki-20091023-pages-articles.xml.bz2": Bzip2,
		"gz":                                     None,
	}
	for name, want := range tests {
		if got := Detect(name); got != want {
			t.Errorf("Detect(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestWrap_GzipRoundTripClosesSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte("INSERT INTO `a` VALUES (1);\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	src := &trackingCloser{Reader: &buf}
	rc, err := Wrap("x.sql.gz", src)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "INSERT INTO `a` VALUES (1);\n" {
		t.Fatalf("content = %q", got)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.closed {
		t.Fatalf("source not closed")
	}
}

func TestWrap_BrokenGzipHeader(t *testing.T) {
	t.Parallel()

	src := &trackingCloser{Reader: strings.NewReader("not gzip at all")}
	if _, err := Wrap("x.sql.gz", src); err == nil {
		t.Fatalf("Wrap() error = nil, want header error")
	}
	if !src.closed {
		t.Fatalf("source not closed after header error")
	}
}

func TestWrap_PlainPassthrough(t *testing.T) {
	t.Parallel()

	src := &trackingCloser{Reader: strings.NewReader("plain")}
	rc, err := Wrap("x.sql", src)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if rc != io.ReadCloser(src) {
		t.Fatalf("Wrap() returned a wrapper for a plain file")
	}
}

package sqldump

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf8"

// ErrDecode reports bytes that are not valid in the declared encoding.
var ErrDecode = errors.New("invalid byte sequence")

// replacementUTF8 is U+FFFD encoded as UTF-8.
var replacementUTF8 = []byte("\uFFFD")

// Encoding is a named character encoding with strict and lossy decoding.
// The zero value is not usable; obtain one from LookupEncoding.
type Encoding struct {
	name string
	// enc is nil for UTF-8, which is validated without transcoding.
	enc encoding.Encoding
}

// pythonAliases maps codec spellings common in Python configs that IANA
// does not register.
var pythonAliases = map[string]encoding.Encoding{
	"latin-1":    charmap.ISO8859_1,
	"latin_1":    charmap.ISO8859_1,
	"iso8859-1":  charmap.ISO8859_1,
	"iso8859_1":  charmap.ISO8859_1,
	"iso_8859_1": charmap.ISO8859_1,
	"8859":       charmap.ISO8859_1,
	"cp819":      charmap.ISO8859_1,
	"cp1252":     charmap.Windows1252,
}

// LookupEncoding resolves an encoding name such as "utf8", "latin1" or
// "windows-1252". Python codec spellings and IANA names are tried first, so
// latin1 stays ISO-8859-1; WHATWG labels are the fallback.
func LookupEncoding(name string) (Encoding, error) {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	switch lower {
	case "", "utf8", "utf-8", "utf_8":
		return Encoding{name: DefaultEncoding}, nil
	}

	enc, ok := pythonAliases[lower]
	if !ok {
		var err error
		enc, err = ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			enc, err = htmlindex.Get(name)
			if err != nil {
				enc = nil
			}
		}
	}
	if enc == nil {
		return Encoding{}, fmt.Errorf("unknown encoding %q", name)
	}
	if enc == unicode.UTF8 {
		return Encoding{name: DefaultEncoding}, nil
	}
	return Encoding{name: name, enc: enc}, nil
}

// Name returns the name the encoding was looked up with.
func (e Encoding) Name() string { return e.name }

// Strict decodes b and fails with ErrDecode if any byte sequence is invalid.
//
// x/text decoders substitute U+FFFD instead of failing, so a decode is
// rejected when the output carries more replacement characters than the
// input already spelled out.
func (e Encoding) Strict(b []byte) (string, error) {
	if e.enc == nil {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w for %s", ErrDecode, e.name)
		}
		return string(b), nil
	}
	out, err := e.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrDecode, e.name, err)
	}
	if bytes.Count(out, replacementUTF8) > bytes.Count(b, replacementUTF8) {
		return "", fmt.Errorf("%w for %s", ErrDecode, e.name)
	}
	return string(out), nil
}

// Lossy decodes b for display only. Invalid sequences become U+FFFD.
func (e Encoding) Lossy(b []byte) string {
	dec := unicode.UTF8.NewDecoder()
	if e.enc != nil {
		dec = e.enc.NewDecoder()
	}
	out, err := dec.Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

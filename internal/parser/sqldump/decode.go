package sqldump

import (
	"fmt"
	"iter"
	"log"
	"strings"
	"unicode/utf8"
)

// Drop kinds reported to a DropFunc.
const (
	DropLine      = "line"      // whole line dropped, no salvage attempted
	DropRow       = "row"       // one tuple dropped during salvage
	DropStatement = "statement" // salvage kept no tuple at all
)

// Drop describes data discarded because it could not be decoded.
type Drop struct {
	Kind     string
	Table    string
	Encoding string
	// Text is the discarded data decoded lossily, for display.
	Text string
	Err  error
}

// DropFunc receives every Drop. It is called synchronously from the
// goroutine iterating the sequence.
type DropFunc func(Drop)

// maxLoggedText bounds how much of a dropped line ends up in the log.
const maxLoggedText = 256

// LogDrop is the default DropFunc.
func LogDrop(d Drop) {
	log.Printf("sqldump: dropped %s table=%s encoding=%s err=%v text=%q",
		d.Kind, d.Table, d.Encoding, d.Err, clip(d.Text, maxLoggedText))
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back off to a rune boundary
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Mode selects how a line that fails to decode is handled.
type Mode string

const (
	// ModeRows salvages the decodable tuples of a multi-row INSERT.
	ModeRows Mode = "rows"
	// ModeLines drops the whole line, for dumps written one row per
	// INSERT or by tools whose lines the salvage parser does not accept.
	ModeLines Mode = "lines"
)

// ParseMode resolves a mode name. Empty selects ModeRows.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return ModeRows, nil
	case ModeRows, ModeLines:
		return m, nil
	}
	return "", fmt.Errorf("unknown decode mode %q (want %q or %q)", name, ModeRows, ModeLines)
}

// Decoder turns raw dump lines into strings using one declared encoding.
// A Decoder holds no per-stream state and may be shared between goroutines
// as long as its DropFunc is safe for concurrent use.
type Decoder struct {
	enc    Encoding
	onDrop DropFunc
}

// NewDecoder looks up the named encoding. A nil onDrop selects LogDrop.
func NewDecoder(encoding string, onDrop DropFunc) (*Decoder, error) {
	enc, err := LookupEncoding(encoding)
	if err != nil {
		return nil, err
	}
	if onDrop == nil {
		onDrop = LogDrop
	}
	return &Decoder{enc: enc, onDrop: onDrop}, nil
}

// Encoding returns the encoding the decoder was built with.
func (d *Decoder) Encoding() Encoding { return d.enc }

// Decode decodes in with Lines or Multirow as selected by mode.
func (d *Decoder) Decode(mode Mode, in iter.Seq2[[]byte, error]) iter.Seq2[string, error] {
	if mode == ModeLines {
		return d.Lines(in)
	}
	return d.Multirow(in)
}

// Lines decodes every line strictly. Undecodable lines are reported and
// dropped.
func (d *Decoder) Lines(in iter.Seq2[[]byte, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for line, err := range in {
			if err != nil {
				yield("", err)
				return
			}
			s, derr := d.enc.Strict(line)
			if derr != nil {
				d.onDrop(Drop{Kind: DropLine, Encoding: d.enc.name, Text: d.enc.Lossy(line), Err: derr})
				continue
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Multirow decodes every line strictly. When a line fails, its tuples are
// decoded one by one, bad tuples are reported and dropped, and the survivors
// are emitted as a single rebuilt INSERT.
//
// A line that needs salvage but does not look like `INSERT INTO <q>t<q>`
// ends the sequence with ErrPatternMismatch. A salvaged line without any
// surviving tuple is reported as DropStatement and emits nothing.
func (d *Decoder) Multirow(in iter.Seq2[[]byte, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for line, err := range in {
			if err != nil {
				yield("", err)
				return
			}
			s, derr := d.enc.Strict(line)
			if derr == nil {
				if !yield(s, nil) {
					return
				}
				continue
			}

			stmt, ok, serr := d.salvage(line)
			if serr != nil {
				yield("", serr)
				return
			}
			if ok && !yield(stmt, nil) {
				return
			}
		}
	}
}

func (d *Decoder) salvage(line []byte) (string, bool, error) {
	m, err := ParseMultirow(string(line))
	if err != nil {
		return "", false, err
	}

	kept := make([]string, 0, len(m.Rows))
	for _, row := range m.Rows {
		s, err := d.enc.Strict([]byte(row))
		if err != nil {
			d.onDrop(Drop{Kind: DropRow, Table: m.Table, Encoding: d.enc.name, Text: d.enc.Lossy([]byte(row)), Err: err})
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		d.onDrop(Drop{Kind: DropStatement, Table: m.Table, Encoding: d.enc.name, Text: d.enc.Lossy(line), Err: ErrDecode})
		return "", false, nil
	}
	// Table name and quote are ASCII by construction of insertHeader.
	return m.Statement(kept), true, nil
}

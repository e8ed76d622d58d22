// Package transformer holds the statement-level rewrite stages applied to a
// decoded INSERT stream before it reaches the target database.
//
// A Stage wraps a lazy sequence and returns a new one. Stages never buffer
// more than one statement and never mutate their input strings.
package transformer

import (
	"iter"
	"strings"
)

// Stage rewrites a statement sequence.
type Stage func(iter.Seq2[string, error]) iter.Seq2[string, error]

// Chain composes stages left to right.
func Chain(stages ...Stage) Stage {
	return func(in iter.Seq2[string, error]) iter.Seq2[string, error] {
		out := in
		for _, s := range stages {
			if s != nil {
				out = s(out)
			}
		}
		return out
	}
}

// Map lifts a per-statement function into a Stage. Errors from upstream are
// passed through unchanged and end the sequence.
func Map(fn func(string) string) Stage {
	return func(in iter.Seq2[string, error]) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for s, err := range in {
				if err != nil {
					yield("", err)
					return
				}
				if !yield(fn(s), nil) {
					return
				}
			}
		}
	}
}

// Trim strips leading and trailing whitespace.
func Trim() Stage { return Map(strings.TrimSpace) }

// QuoteIdentifiers replaces every backtick with a double quote. Only the
// character changes; positions and count are preserved.
func QuoteIdentifiers() Stage {
	return Map(func(s string) string { return strings.ReplaceAll(s, "`", `"`) })
}

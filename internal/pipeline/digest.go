package pipeline

import (
	"iter"

	"github.com/zeebo/xxh3"
)

// Digest summarizes a statement sequence as an xxh3 hash over the
// newline-terminated statements and their count. Two sequences have the
// same digest exactly when they yield the same statements in the same order
// (barring hash collisions).
func Digest(stmts iter.Seq2[string, error]) (sum uint64, n int64, err error) {
	h := xxh3.New()
	for s, err := range stmts {
		if err != nil {
			return 0, n, err
		}
		h.WriteString(s)
		h.WriteString("\n")
		n++
	}
	return h.Sum64(), n, nil
}

// Package file implements local filesystem access for dump files: opening a
// single dump and discovering dumps beneath a set of paths.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens one dump file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the path the source was created with.
func (l *Local) Name() string { return l.path }

// Open opens the file for reading. A canceled ctx short-circuits before the
// filesystem is touched. Errors keep the os error reachable through
// errors.Is, e.g. os.ErrNotExist for a missing dump.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

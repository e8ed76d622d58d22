// Package datasource resolves dump locations to byte streams. Local paths
// and http(s) URLs are supported; compression is undone by file suffix.
package datasource

import (
	"context"
	"io"
	"strings"

	"github.com/JoKnopp/wp-import/internal/datasource/compress"
	"github.com/JoKnopp/wp-import/internal/datasource/file"
	"github.com/JoKnopp/wp-import/internal/datasource/httpds"
)

// Source is a named, openable byte stream. Name is the location the source
// was created from; its suffix selects the decompressor.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// ForLocation returns an HTTP source for URLs and a local file source
// otherwise. client may be nil; a default client is built on demand.
func ForLocation(location string, client *httpds.Client) Source {
	if IsRemote(location) {
		if client == nil {
			client = httpds.NewClient(httpds.Config{MaxRetries: 3})
		}
		return httpds.NewSource(client, location)
	}
	return file.NewLocal(location)
}

// OpenDecompressed opens src and wraps it in the decompressor matching its
// name. Closing the result releases the underlying stream.
func OpenDecompressed(ctx context.Context, src Source) (io.ReadCloser, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	return compress.Wrap(src.Name(), rc)
}

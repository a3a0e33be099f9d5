package formstate

import (
	"context"
	"path"

	"github.com/goliatone/go-formstate/internal/source"
	"github.com/goliatone/go-formstate/pkg/formdef"
)

// Source identifies where a document is read from.
type Source = source.Source

// LoaderOption configures document loading.
type LoaderOption = source.Option

var (
	// SourceFromFile points to a file on disk.
	SourceFromFile = source.File
	// SourceFromFS names an entry in the fs.FS given by WithFileSystem.
	SourceFromFS = source.FS
	// SourceFromURL points to an HTTP(S) document.
	SourceFromURL = source.URL
	// ParseSource treats http(s) prefixes as URLs and anything else as a file.
	ParseSource = source.Parse

	WithFileSystem   = source.WithFileSystem
	WithHTTPClient   = source.WithHTTPClient
	WithHTTPFallback = source.WithHTTPFallback
)

// LoadDocument returns the raw bytes of src.
func LoadDocument(ctx context.Context, src Source, opts ...LoaderOption) ([]byte, error) {
	return source.NewLoader(opts...).Load(ctx, src)
}

// LoadDefinition reads and parses the form definition at src.
func LoadDefinition(ctx context.Context, src Source, opts ...LoaderOption) (*formdef.Definition, error) {
	data, err := LoadDocument(ctx, src, opts...)
	if err != nil {
		return nil, err
	}
	return formdef.Parse(data, path.Base(src.Location()))
}

// WatchDefinition keeps the definition file at path loaded and calls apply
// with every version that parses. It returns once the current version was
// applied; the watcher stops when ctx is cancelled.
func WatchDefinition(ctx context.Context, path string, apply formdef.ApplyFunc, opts ...formdef.WatchOption) (*formdef.Watcher, error) {
	w := formdef.NewWatcher(path, apply, opts...)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

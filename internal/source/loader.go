package source

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"
)

// ErrHTTPDisabled is returned for URL sources when no HTTP client is set up.
var ErrHTTPDisabled = errors.New("source: http support disabled")

// Loader reads documents. HTTP is off unless WithHTTPClient or
// WithHTTPFallback is given.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

type options struct {
	fileSystem        fs.FS
	httpClient        *http.Client
	allowHTTPFallback bool
	requestTimeout    time.Duration
}

// Option configures a Loader.
type Option func(*options)

// WithFileSystem sets the fs.FS used by FS sources.
func WithFileSystem(files fs.FS) Option {
	return func(o *options) {
		o.fileSystem = files
	}
}

// WithHTTPClient enables URL sources through client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithHTTPFallback enables URL sources through a default client with the
// given timeout (zero means none).
func WithHTTPFallback(timeout time.Duration) Option {
	return func(o *options) {
		o.allowHTTPFallback = true
		o.requestTimeout = timeout
	}
}

// NewLoader builds a Loader.
func NewLoader(opts ...Option) *Loader {
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var client *http.Client
	switch {
	case cfg.httpClient != nil:
		clone := *cfg.httpClient
		if cfg.requestTimeout > 0 && clone.Timeout == 0 {
			clone.Timeout = cfg.requestTimeout
		}
		client = &clone
	case cfg.allowHTTPFallback:
		client = &http.Client{Timeout: cfg.requestTimeout}
	}

	return &Loader{fs: cfg.fileSystem, http: client, timeout: cfg.requestTimeout}
}

// Load returns the raw bytes of src.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind() {
	case KindFile:
		return loadFile(ctx, src.Location())
	case KindFS:
		return loadFromFS(ctx, l.fs, src.Location())
	case KindURL:
		if l.http == nil {
			return nil, ErrHTTPDisabled
		}
		return loadHTTP(ctx, l.http, src.Location(), l.timeout)
	case "":
		return nil, errors.New("source: source is empty")
	default:
		return nil, errors.New("source: unsupported source kind " + string(src.Kind()))
	}
}

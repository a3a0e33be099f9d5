// Package source reads form documents (definitions or OpenAPI specs) from
// local files, an fs.FS or HTTP.
package source

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Kind enumerates where a document is read from.
type Kind string

const (
	KindFile Kind = "file"
	KindFS   Kind = "fs"
	KindURL  Kind = "url"
)

// Source identifies a document.
type Source struct {
	kind     Kind
	location string
}

// Kind reports the source modality.
func (s Source) Kind() Kind { return s.kind }

// Location returns the path or URL.
func (s Source) Location() string { return s.location }

func (s Source) String() string {
	return string(s.kind) + ":" + s.location
}

// File returns a Source pointing to a path on disk.
func File(path string) Source {
	return Source{kind: KindFile, location: filepath.Clean(path)}
}

// FS returns a Source naming an entry inside the loader's fs.FS.
func FS(name string) Source {
	return Source{kind: KindFS, location: name}
}

// URL returns a Source for an HTTP or HTTPS endpoint.
func URL(raw string) (Source, error) {
	if raw == "" {
		return Source{}, fmt.Errorf("source: empty URL")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return Source{}, fmt.Errorf("source: invalid URL %q: %w", raw, err)
	}
	return Source{kind: KindURL, location: raw}, nil
}

// Parse picks URL for http(s) prefixes and File otherwise.
func Parse(raw string) (Source, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return Source{}, fmt.Errorf("source: location is required")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return URL(path)
	}
	return File(path), nil
}

package formstate

import (
	"io/fs"

	"github.com/goliatone/go-formstate/pkg/render"
)

// EmbeddedTemplates exposes the built-in summary templates so callers can
// copy or extend them.
func EmbeddedTemplates() fs.FS {
	return render.TemplatesFS()
}

package validation

import (
	"context"
	"strings"
)

// ValidateFunc computes a full error mapping for a values snapshot. Every
// field of the form should be present in the result; a nil slice means the
// field has no error. A non-nil error reports a fault of the validator itself.
type ValidateFunc func(ctx context.Context, values map[string]any) (map[string][]string, error)

// Schema is a validator that reports problems through a Result instead of an
// error. The returned error is reserved for faults (the schema could not run),
// never for invalid values.
type Schema interface {
	SafeParse(ctx context.Context, values map[string]any) (Result, error)
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(ctx context.Context, values map[string]any) (Result, error)

// SafeParse calls fn.
func (fn SchemaFunc) SafeParse(ctx context.Context, values map[string]any) (Result, error) {
	return fn(ctx, values)
}

// Issue represents a validation problem with optional location metadata.
// Field names the top-level form field the issue belongs to; Path keeps the
// full JSON pointer when the problem sits deeper inside a value.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Result is the discriminated outcome of a SafeParse call.
type Result struct {
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Pass returns a successful Result.
func Pass() Result {
	return Result{Success: true}
}

// Fail returns a failed Result carrying issues.
func Fail(issues ...Issue) Result {
	return Result{Success: false, Issues: issues}
}

// FieldErrors flattens the issues into per-field message lists. Only fields
// with at least one issue appear. Messages keep their order and duplicates are
// dropped.
func (r Result) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for _, issue := range r.Issues {
		field := strings.TrimSpace(issue.Field)
		if field == "" {
			continue
		}
		out[field] = append(out[field], issue.Message)
	}
	for field, messages := range out {
		out[field] = normalizeMessages(messages)
		if out[field] == nil {
			delete(out, field)
		}
	}
	return out
}

// Messages returns the messages attributable to field, or nil when none are.
func (r Result) Messages(field string) []string {
	var out []string
	for _, issue := range r.Issues {
		if issue.Field == field {
			out = append(out, issue.Message)
		}
	}
	return normalizeMessages(out)
}

// FormErrors returns the messages of issues that are not tied to a field.
func (r Result) FormErrors() []string {
	var out []string
	for _, issue := range r.Issues {
		if strings.TrimSpace(issue.Field) == "" {
			out = append(out, issue.Message)
		}
	}
	return normalizeMessages(out)
}

// fieldFromPointer returns the first segment of a JSON pointer, which is the
// form field a nested problem belongs to.
func fieldFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	first, _, _ := strings.Cut(trimmed, "/")
	return unescapePointer(first)
}

func joinPointer(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		escaped = append(escaped, segment)
	}
	return "/" + strings.Join(escaped, "/")
}

func unescapePointer(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

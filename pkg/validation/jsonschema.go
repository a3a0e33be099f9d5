package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const jsonSchemaResource = "form.schema.json"

// JSONSchema validates form values against a JSON Schema document (draft
// 2020-12 unless the document declares another $schema).
type JSONSchema struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

var _ Schema = (*JSONSchema)(nil)

// NewJSONSchema compiles raw, a JSON encoded schema.
func NewJSONSchema(raw []byte) (*JSONSchema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("validation: json schema payload is empty")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation: parse json schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(jsonSchemaResource, doc); err != nil {
		return nil, fmt.Errorf("validation: add json schema: %w", err)
	}
	schema, err := compiler.Compile(jsonSchemaResource)
	if err != nil {
		return nil, fmt.Errorf("validation: compile json schema: %w", err)
	}
	return &JSONSchema{schema: schema, printer: message.NewPrinter(language.English)}, nil
}

// SafeParse validates values. Nil entries are treated as absent properties.
func (s *JSONSchema) SafeParse(ctx context.Context, values map[string]any) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s == nil || s.schema == nil {
		return Pass(), nil
	}

	doc, err := normalizeJSON(values)
	if err != nil {
		return Result{}, fmt.Errorf("validation: normalise values: %w", err)
	}

	err = s.schema.Validate(doc)
	if err == nil {
		return Pass(), nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return Result{}, fmt.Errorf("validation: json schema: %w", err)
	}
	return Fail(s.issues(verr)...), nil
}

// issues flattens the error tree into its leaves. A missing required
// property is reported against the property itself.
func (s *JSONSchema) issues(verr *jsonschema.ValidationError) []Issue {
	if len(verr.Causes) > 0 {
		var out []Issue
		for _, cause := range verr.Causes {
			out = append(out, s.issues(cause)...)
		}
		return out
	}

	code := ""
	if path := verr.ErrorKind.KeywordPath(); len(path) > 0 {
		code = path[len(path)-1]
	}

	if required, ok := verr.ErrorKind.(*kind.Required); ok {
		missing := append([]string(nil), required.Missing...)
		sort.Strings(missing)
		out := make([]Issue, 0, len(missing))
		for _, name := range missing {
			pointer := joinPointer(append(append([]string(nil), verr.InstanceLocation...), name))
			out = append(out, Issue{
				Path:    pointer,
				Field:   fieldFromPointer(pointer),
				Code:    code,
				Message: "is required",
			})
		}
		return out
	}

	pointer := joinPointer(verr.InstanceLocation)
	return []Issue{{
		Path:    pointer,
		Field:   fieldFromPointer(pointer),
		Code:    code,
		Message: verr.ErrorKind.LocalizedString(s.printer),
	}}
}

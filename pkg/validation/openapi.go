package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPISchema validates form values against an OpenAPI object schema.
type OpenAPISchema struct {
	schema *openapi3.Schema
}

var _ Schema = (*OpenAPISchema)(nil)

// NewOpenAPISchema parses a standalone OpenAPI schema object (JSON or YAML).
// The schema must describe an object.
func NewOpenAPISchema(raw []byte) (*OpenAPISchema, error) {
	if len(raw) == 0 {
		return nil, errors.New("validation: openapi schema payload is empty")
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(wrapSchemaDocument(raw))
	if err != nil {
		return nil, fmt.Errorf("validation: load openapi schema: %w", err)
	}
	ref := doc.Components.Schemas["Form"]
	if ref == nil || ref.Value == nil {
		return nil, errors.New("validation: openapi schema is empty")
	}
	return WrapOpenAPISchema(ref.Value)
}

// OpenAPISchemaForOperation loads an OpenAPI document and returns the JSON
// request body schema of the operation identified by operationID.
func OpenAPISchemaForOperation(ctx context.Context, raw []byte, operationID string) (*OpenAPISchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(operationID)
	if id == "" {
		return nil, errors.New("validation: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("validation: load openapi document: %w", err)
	}
	if doc.Paths == nil {
		return nil, fmt.Errorf("validation: operation %q not found", id)
	}

	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op == nil || op.OperationID != id {
				continue
			}
			schema, err := requestBodySchema(op.RequestBody)
			if err != nil {
				return nil, fmt.Errorf("validation: operation %q: %w", id, err)
			}
			return WrapOpenAPISchema(schema)
		}
	}
	return nil, fmt.Errorf("validation: operation %q not found", id)
}

// WrapOpenAPISchema wraps an already loaded kin-openapi schema.
func WrapOpenAPISchema(schema *openapi3.Schema) (*OpenAPISchema, error) {
	if schema == nil {
		return nil, errors.New("validation: openapi schema is nil")
	}
	if schema.Type != nil && !schema.Type.Is(openapi3.TypeObject) {
		return nil, fmt.Errorf("validation: openapi schema must describe an object, got %v", schema.Type.Slice())
	}
	return &OpenAPISchema{schema: schema}, nil
}

// Fields returns the declared property names, sorted.
func (s *OpenAPISchema) Fields() []string {
	if s == nil || s.schema == nil {
		return nil
	}
	out := make([]string, 0, len(s.schema.Properties))
	for name := range s.schema.Properties {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Defaults returns a values map seeded from property defaults. Properties
// without a default map to nil so every declared field is present.
func (s *OpenAPISchema) Defaults() map[string]any {
	if s == nil || s.schema == nil {
		return nil
	}
	out := make(map[string]any, len(s.schema.Properties))
	for name, ref := range s.schema.Properties {
		if ref == nil || ref.Value == nil {
			out[name] = nil
			continue
		}
		out[name] = ref.Value.Default
	}
	return out
}

// Property describes a declared property of the schema.
type Property struct {
	Name        string
	Type        string
	Format      string
	Title       string
	Description string
	Enum        []string
}

// Properties lists the declared properties, sorted by name. Type is the first
// declared type ("" when unset).
func (s *OpenAPISchema) Properties() []Property {
	names := s.Fields()
	out := make([]Property, 0, len(names))
	for _, name := range names {
		prop := Property{Name: name}
		if ref := s.schema.Properties[name]; ref != nil && ref.Value != nil {
			value := ref.Value
			if value.Type != nil && len(value.Type.Slice()) > 0 {
				prop.Type = value.Type.Slice()[0]
			}
			prop.Format = value.Format
			prop.Title = value.Title
			prop.Description = value.Description
			for _, option := range value.Enum {
				prop.Enum = append(prop.Enum, fmt.Sprint(option))
			}
		}
		out = append(out, prop)
	}
	return out
}

// SafeParse validates values and converts every schema error into an Issue.
// Values are normalised to JSON types first, so Go integers, structs and
// typed slices are accepted.
func (s *OpenAPISchema) SafeParse(ctx context.Context, values map[string]any) (Result, error) {
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

	err = s.schema.VisitJSON(doc, openapi3.MultiErrors())
	if err == nil {
		return Pass(), nil
	}

	issues, ok := issuesFromSchemaError(err)
	if !ok {
		return Result{}, fmt.Errorf("validation: openapi schema: %w", err)
	}
	return Fail(issues...), nil
}

func issuesFromSchemaError(err error) ([]Issue, bool) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []Issue
		for _, inner := range multi {
			issues, ok := issuesFromSchemaError(inner)
			if !ok {
				return nil, false
			}
			out = append(out, issues...)
		}
		return out, true
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		pointer := joinPointer(schemaErr.JSONPointer())
		return []Issue{{
			Path:    pointer,
			Field:   fieldFromPointer(pointer),
			Code:    schemaErr.SchemaField,
			Message: strings.TrimSpace(schemaErr.Reason),
		}}, true
	}
	return nil, false
}

func requestBodySchema(body *openapi3.RequestBodyRef) (*openapi3.Schema, error) {
	if body == nil || body.Value == nil {
		return nil, errors.New("request body is not defined")
	}
	media := body.Value.Content.Get("application/json")
	if media == nil {
		for _, candidate := range body.Value.Content {
			media = candidate
			break
		}
	}
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, errors.New("request body has no schema")
	}
	return media.Schema.Value, nil
}

// wrapSchemaDocument embeds a bare schema in a minimal document so the
// kin-openapi loader resolves local references the same way it does for full
// documents.
func wrapSchemaDocument(raw []byte) []byte {
	var schema any
	if err := json.Unmarshal(raw, &schema); err != nil {
		// YAML input: let the loader parse it in place
		return []byte("openapi: 3.0.3\ninfo: {title: form, version: \"1\"}\npaths: {}\ncomponents:\n  schemas:\n    Form:\n" + indent(string(raw), "      "))
	}
	doc := map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "form", "version": "1"},
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{"Form": schema},
		},
	}
	out, _ := json.Marshal(doc)
	return out
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}

// normalizeJSON round-trips values through encoding/json. Nil entries are
// dropped so an unset field reads as a missing property, not a null one.
func normalizeJSON(values map[string]any) (any, error) {
	present := make(map[string]any, len(values))
	for key, value := range values {
		if isMissing(value) {
			continue
		}
		present[key] = value
	}
	raw, err := json.Marshal(present)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Package formdef loads form definitions from YAML or JSON documents.
//
// A definition lists the fields of a form with their initial state and
// validation rules:
//
//	id: signup
//	validateOnBlur: false
//	fields:
//	  - name: email
//	    label: Email
//	    initial: ""
//	    rules: { required: true, format: email }
//	  - name: age
//	    type: integer
//	    initial: 18
//	    rules: { min: 18 }
//
// Definition.Controller builds a form controller from it.
package formdef

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// FieldType controls how a field's initial value is normalised and how it is
// prompted for.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypePassword FieldType = "password"
	TypeTextArea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeAny      FieldType = "any"
)

// Definition describes a single form.
type Definition struct {
	ID               string  `json:"id" yaml:"id"`
	Title            string  `json:"title,omitempty" yaml:"title,omitempty"`
	ValidateOnChange *bool   `json:"validateOnChange,omitempty" yaml:"validateOnChange,omitempty"`
	ValidateOnBlur   *bool   `json:"validateOnBlur,omitempty" yaml:"validateOnBlur,omitempty"`
	Fields           []Field `json:"fields" yaml:"fields"`

	// Source is the path the definition was read from.
	Source string `json:"-" yaml:"-"`
}

// Field describes one form field.
type Field struct {
	Name    string           `json:"name" yaml:"name"`
	Label   string           `json:"label,omitempty" yaml:"label,omitempty"`
	Help    string           `json:"help,omitempty" yaml:"help,omitempty"`
	Type    FieldType        `json:"type,omitempty" yaml:"type,omitempty"`
	Initial any              `json:"initial,omitempty" yaml:"initial,omitempty"`
	Errors  []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
	Touched bool             `json:"touched,omitempty" yaml:"touched,omitempty"`
	Options []string         `json:"options,omitempty" yaml:"options,omitempty"`
	Rules   validation.Rules `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Load reads and parses the definition stored at path in fsys.
func Load(fsys fs.FS, path string) (*Definition, error) {
	if fsys == nil {
		return nil, fmt.Errorf("formdef: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("formdef: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadAll walks fsys and parses every JSON/YAML file as a definition, keyed by
// id. Ids must be unique across files.
func LoadAll(fsys fs.FS) (map[string]*Definition, error) {
	out := make(map[string]*Definition)
	if fsys == nil {
		return out, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		def, err := Load(fsys, path)
		if err != nil {
			return err
		}
		if existing, ok := out[def.ID]; ok {
			return fmt.Errorf("formdef: duplicate form %q (files %s and %s)", def.ID, existing.Source, path)
		}
		out[def.ID] = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Parse decodes data as JSON or YAML depending on the extension of source;
// unknown extensions try JSON first, then YAML.
func Parse(data []byte, source string) (*Definition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("formdef: file %s is empty", source)
	}

	var def Definition
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("formdef: parse %s: %w", source, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("formdef: parse %s: %w", source, err)
		}
	default:
		if err := json.Unmarshal(data, &def); err != nil {
			def = Definition{}
			if err := yaml.Unmarshal(data, &def); err != nil {
				return nil, fmt.Errorf("formdef: parse %s: invalid JSON or YAML", source)
			}
		}
	}

	def.Source = source
	if err := def.normalise(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) normalise() error {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(d.Source), filepath.Ext(d.Source))
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("formdef: form %q (file %s) defines no fields", d.ID, d.Source)
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for i := range d.Fields {
		field := &d.Fields[i]
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return fmt.Errorf("formdef: form %q (file %s) field %d has no name", d.ID, d.Source, i)
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("formdef: form %q (file %s) defines duplicate field %q", d.ID, d.Source, field.Name)
		}
		seen[field.Name] = struct{}{}

		if field.Type == "" {
			field.Type = TypeString
			if len(field.Options) > 0 || len(field.Rules.Enum) > 0 {
				field.Type = TypeSelect
			}
		}
		if field.Type == TypeSelect && len(field.Options) == 0 {
			for _, option := range field.Rules.Enum {
				field.Options = append(field.Options, fmt.Sprint(option))
			}
		}

		initial, err := coerceInitial(field.Type, field.Initial)
		if err != nil {
			return fmt.Errorf("formdef: form %q (file %s) field %q: %w", d.ID, d.Source, field.Name, err)
		}
		field.Initial = initial
	}
	return nil
}

// FieldNames returns the field names in definition order.
func (d *Definition) FieldNames() []string {
	out := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		out = append(out, field.Name)
	}
	return out
}

// Field returns the named field.
func (d *Definition) Field(name string) (Field, bool) {
	for _, field := range d.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func coerceInitial(kind FieldType, value any) (any, error) {
	switch kind {
	case TypeString, TypePassword, TypeTextArea, TypeSelect:
		if value == nil {
			return "", nil
		}
		if _, ok := value.(string); !ok {
			return fmt.Sprint(value), nil
		}
		return value, nil
	case TypeInteger:
		switch n := value.(type) {
		case nil:
			return nil, nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("initial value %v is not a whole number", n)
			}
			return int64(n), nil
		}
		return nil, fmt.Errorf("initial value %v is not a number", value)
	case TypeNumber:
		switch n := value.(type) {
		case nil:
			return nil, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, fmt.Errorf("initial value %v is not a number", value)
	case TypeBoolean:
		switch b := value.(type) {
		case nil:
			return false, nil
		case bool:
			return b, nil
		}
		return nil, fmt.Errorf("initial value %v is not a boolean", value)
	case TypeAny:
		return value, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", kind)
	}
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

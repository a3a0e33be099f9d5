package formdef

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/bind/tui"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Schema compiles the field rules into a rule schema.
func (d *Definition) Schema() (*validation.RuleSchema, error) {
	rules := make(map[string]validation.Rules, len(d.Fields))
	for _, field := range d.Fields {
		rules[field.Name] = field.Rules
	}
	schema, err := validation.NewRuleSchema(rules)
	if err != nil {
		return nil, fmt.Errorf("formdef: form %q (file %s): %w", d.ID, d.Source, err)
	}
	return schema, nil
}

// InitialValues returns the initial value of every field.
func (d *Definition) InitialValues() formstate.Values {
	out := make(formstate.Values, len(d.Fields))
	for _, field := range d.Fields {
		out[field.Name] = field.Initial
	}
	return out
}

// InitialErrors returns the seeded errors of the fields that declare some.
func (d *Definition) InitialErrors() formstate.Errors {
	out := make(formstate.Errors)
	for _, field := range d.Fields {
		if len(field.Errors) > 0 {
			out[field.Name] = append([]string(nil), field.Errors...)
		}
	}
	return out
}

// InitialTouched returns the touched flag of every field.
func (d *Definition) InitialTouched() formstate.Touched {
	out := make(formstate.Touched, len(d.Fields))
	for _, field := range d.Fields {
		out[field.Name] = field.Touched
	}
	return out
}

// Options returns the controller options the definition implies: its schema,
// seeded state and validate-on flags.
func (d *Definition) Options() ([]formstate.Option, error) {
	schema, err := d.Schema()
	if err != nil {
		return nil, err
	}
	opts := []formstate.Option{
		formstate.WithSchema(schema),
		formstate.WithInitialErrors(d.InitialErrors()),
		formstate.WithInitialTouched(d.InitialTouched()),
	}
	if d.ValidateOnChange != nil {
		opts = append(opts, formstate.WithValidateOnChange(*d.ValidateOnChange))
	}
	if d.ValidateOnBlur != nil {
		opts = append(opts, formstate.WithValidateOnBlur(*d.ValidateOnBlur))
	}
	return opts, nil
}

// Controller builds a controller for the definition. opts are applied after
// the definition's own options, so callers can override them.
func (d *Definition) Controller(opts ...formstate.Option) (*formstate.Controller, error) {
	base, err := d.Options()
	if err != nil {
		return nil, err
	}
	c, err := formstate.New(d.InitialValues(), append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("formdef: form %q (file %s): %w", d.ID, d.Source, err)
	}
	return c, nil
}

// Prompts returns terminal prompts for the fields, in definition order.
func (d *Definition) Prompts() []tui.FieldPrompt {
	out := make([]tui.FieldPrompt, 0, len(d.Fields))
	for _, field := range d.Fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		out = append(out, tui.FieldPrompt{
			Field:   field.Name,
			Label:   label,
			Help:    field.Help,
			Kind:    promptKind(field.Type),
			Options: append([]string(nil), field.Options...),
		})
	}
	return out
}

func promptKind(kind FieldType) tui.Kind {
	switch kind {
	case TypeInteger:
		return tui.KindInteger
	case TypeNumber:
		return tui.KindNumber
	case TypeBoolean:
		return tui.KindConfirm
	case TypePassword:
		return tui.KindPassword
	case TypeTextArea:
		return tui.KindTextArea
	case TypeSelect:
		return tui.KindSelect
	default:
		return tui.KindText
	}
}

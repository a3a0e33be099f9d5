// Package formstate is the entry point of the module. It re-exports the
// controller from pkg/formstate and adds constructors that build one from a
// form definition or an OpenAPI operation.
package formstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/formdef"
	pkgformstate "github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type (
	// Controller owns the state of one form.
	Controller = pkgformstate.Controller
	// Option configures a Controller.
	Option = pkgformstate.Option
	// Values maps field names to values.
	Values = pkgformstate.Values
	// Errors maps field names to their error messages.
	Errors = pkgformstate.Errors
	// Touched maps field names to their touched flag.
	Touched = pkgformstate.Touched
	// Bag is a snapshot of the controller handed to submit callbacks.
	Bag = pkgformstate.Bag
	// ResetArgs selects the state ResetForm restores.
	ResetArgs = pkgformstate.ResetArgs
)

// Controller options.
var (
	WithInitialErrors    = pkgformstate.WithInitialErrors
	WithInitialTouched   = pkgformstate.WithInitialTouched
	WithSchema           = pkgformstate.WithSchema
	WithValidateFunc     = pkgformstate.WithValidateFunc
	WithValidateOnChange = pkgformstate.WithValidateOnChange
	WithValidateOnBlur   = pkgformstate.WithValidateOnBlur
	WithOnSubmit         = pkgformstate.WithOnSubmit
	WithErrorHandler     = pkgformstate.WithErrorHandler
)

// New builds a controller over initialValues.
func New(initialValues Values, opts ...Option) (*Controller, error) {
	return pkgformstate.New(initialValues, opts...)
}

// FromDefinition builds a controller from a parsed form definition. opts are
// applied after the definition's own settings.
func FromDefinition(def *formdef.Definition, opts ...Option) (*Controller, error) {
	if def == nil {
		return nil, errors.New("formstate: definition is required")
	}
	return def.Controller(opts...)
}

// FromOpenAPI builds a controller for the JSON request body of operationID.
// Property defaults become the initial values and the body schema validates
// the form.
func FromOpenAPI(ctx context.Context, document []byte, operationID string, opts ...Option) (*Controller, *validation.OpenAPISchema, error) {
	schema, err := validation.OpenAPISchemaForOperation(ctx, document, operationID)
	if err != nil {
		return nil, nil, err
	}
	defaults := schema.Defaults()
	if len(defaults) == 0 {
		return nil, nil, fmt.Errorf("formstate: operation %q declares no properties", operationID)
	}

	ctl, err := pkgformstate.New(defaults, append([]Option{pkgformstate.WithSchema(schema)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return ctl, schema, nil
}

// WithController returns a copy of ctx carrying c.
func WithController(ctx context.Context, c *Controller) context.Context {
	return pkgformstate.WithController(ctx, c)
}

// FromContext returns the controller stored in ctx.
func FromContext(ctx context.Context) (*Controller, error) {
	return pkgformstate.FromContext(ctx)
}

// MustFromContext is like FromContext but panics when no controller is set.
func MustFromContext(ctx context.Context) *Controller {
	return pkgformstate.MustFromContext(ctx)
}

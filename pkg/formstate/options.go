package formstate

import "github.com/goliatone/go-formstate/pkg/validation"

// config holds construction options for a Controller.
type config struct {
	initialErrors    Errors
	initialTouched   Touched
	schema           validation.Schema
	validateFn       validation.ValidateFunc
	validateOnChange bool
	validateOnBlur   bool
	onSubmit         SubmitFunc
	onError          ErrorHandler
}

// Option configures a Controller.
type Option func(*config)

// WithInitialErrors seeds the errors state. Fields left out start without
// errors.
func WithInitialErrors(errs Errors) Option {
	return func(c *config) {
		c.initialErrors = errs
	}
}

// WithInitialTouched seeds the touched state. Fields left out start untouched.
func WithInitialTouched(touched Touched) Option {
	return func(c *config) {
		c.initialTouched = touched
	}
}

// WithSchema configures a schema validator. Field validations merge only the
// named field's messages; full validations merge every field.
func WithSchema(schema validation.Schema) Option {
	return func(c *config) {
		c.schema = schema
	}
}

// WithValidateFunc configures a function validator. Its result replaces the
// whole errors state. When both a function and a schema are configured the
// function wins.
func WithValidateFunc(fn validation.ValidateFunc) Option {
	return func(c *config) {
		c.validateFn = fn
	}
}

// WithValidateOnChange sets the default for the shouldValidate argument of
// SetFieldValue and SetValues. Default: true.
func WithValidateOnChange(enabled bool) Option {
	return func(c *config) {
		c.validateOnChange = enabled
	}
}

// WithValidateOnBlur sets the default for the shouldValidate argument of
// SetFieldTouched and SetTouched. Default: true.
func WithValidateOnBlur(enabled bool) Option {
	return func(c *config) {
		c.validateOnBlur = enabled
	}
}

// WithOnSubmit registers the callback HandleSubmit invokes once validation
// passes.
func WithOnSubmit(fn SubmitFunc) Option {
	return func(c *config) {
		c.onSubmit = fn
	}
}

// WithErrorHandler receives validator faults from background validations.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *config) {
		c.onError = fn
	}
}

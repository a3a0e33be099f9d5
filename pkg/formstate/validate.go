package formstate

import (
	"context"

	"github.com/zoobzio/capitan"
)

const (
	validatorFunction = "function"
	validatorSchema   = "schema"
)

// Validate runs a full-form validation. See ValidateField.
func (c *Controller) Validate(ctx context.Context) (Errors, error) {
	return c.ValidateField(ctx, "")
}

// ValidateField runs the configured validator against a snapshot of the
// current values and writes the outcome into the errors state.
//
// A function validator always sees the full values and its result replaces
// the whole errors state; field is ignored. A schema validator merges only
// field's messages when field is set, or every field's messages when it is
// empty. Without a validator the call is a no-op.
//
// The returned map is a copy of the errors state after the write. Validator
// faults are returned as *ValidatorError and leave the errors state as is.
func (c *Controller) ValidateField(ctx context.Context, field string) (Errors, error) {
	if field != "" && !c.Has(field) {
		return nil, unknownField(field)
	}

	switch {
	case c.validateFn != nil:
		return c.runValidateFunc(ctx, field)
	case c.schema != nil:
		return c.runSchema(ctx, field)
	default:
		return c.errors.Get().clone(), nil
	}
}

func (c *Controller) runValidateFunc(ctx context.Context, field string) (Errors, error) {
	capitan.Emit(ctx, ValidationStarted, KeyField.Field(field), KeyValidator.Field(validatorFunction))

	result, err := c.validateFn(ctx, c.values.Get().clone())
	if err != nil {
		return c.fault(ctx, field, validatorFunction, err)
	}

	next := make(Errors, len(c.fields))
	for _, name := range c.fields {
		next[name] = cloneMessages(result[name])
	}
	c.errors.Set(next)

	return c.completed(ctx, field, validatorFunction), nil
}

func (c *Controller) runSchema(ctx context.Context, field string) (Errors, error) {
	capitan.Emit(ctx, ValidationStarted, KeyField.Field(field), KeyValidator.Field(validatorSchema))

	result, err := c.schema.SafeParse(ctx, c.values.Get().clone())
	if err != nil {
		return c.fault(ctx, field, validatorSchema, err)
	}

	if field != "" {
		var messages []string
		if !result.Success {
			messages = cloneMessages(result.Messages(field))
		}
		c.errors.Update(func(e Errors) Errors {
			next := e.clone()
			next[field] = messages
			return next
		})
		return c.completed(ctx, field, validatorSchema), nil
	}

	if result.Success {
		c.errors.Update(func(e Errors) Errors {
			next := e.clone()
			for _, name := range c.fields {
				next[name] = nil
			}
			return next
		})
		return c.completed(ctx, field, validatorSchema), nil
	}

	// Fields the failure report does not mention keep their current entry.
	fieldErrors := result.FieldErrors()
	c.errors.Update(func(e Errors) Errors {
		next := e.clone()
		for name, messages := range fieldErrors {
			if c.Has(name) {
				next[name] = cloneMessages(messages)
			}
		}
		return next
	})
	return c.completed(ctx, field, validatorSchema), nil
}

func (c *Controller) completed(ctx context.Context, field, kind string) Errors {
	errs := c.errors.Get().clone()
	capitan.Emit(ctx, ValidationCompleted,
		KeyField.Field(field),
		KeyValidator.Field(kind),
		KeyErrorCount.Field(len(errs.Fields())),
	)
	return errs
}

func (c *Controller) fault(ctx context.Context, field, kind string, err error) (Errors, error) {
	capitan.Emit(ctx, ValidationFaulted,
		KeyField.Field(field),
		KeyValidator.Field(kind),
		KeyError.Field(err.Error()),
	)
	return c.errors.Get().clone(), &ValidatorError{Field: field, Err: err}
}

package formstate

import (
	"context"

	"github.com/zoobzio/capitan"
)

// HandleSubmit runs the submission pipeline:
//
//  1. ev.PreventDefault when an event is given
//  2. count the attempt and raise the submitting and validating flags
//  3. run a full validation and wait for it
//  4. lower the validating flag
//  5. stop, counting a failure, when any field holds an error
//  6. call the submit callback with a snapshot bag
//  7. mark every field untouched
//  8. lower the submitting flag
//
// Validation failures are not errors: HandleSubmit returns nil and the
// failure shows up in the errors state and SubmitFailureCount. Validator
// faults are returned as *ValidatorError and callback errors as *SubmitError;
// neither updates the failure or success counters.
func (c *Controller) HandleSubmit(ctx context.Context, ev SubmitEvent) error {
	if ev != nil {
		ev.PreventDefault()
	}

	attempt := 0
	c.submitAttemptCount.Update(func(n int) int {
		attempt = n + 1
		return attempt
	})
	c.isSubmitting.Set(true)
	c.isValidating.Set(true)
	capitan.Emit(ctx, SubmitAttempted, KeyAttempt.Field(attempt))

	errs, err := c.Validate(ctx)
	c.isValidating.Set(false)
	if err != nil {
		c.isSubmitting.Set(false)
		return err
	}

	if errs.HasErrors() {
		c.submitFailureCount.Update(func(n int) int { return n + 1 })
		c.isSubmitting.Set(false)
		capitan.Emit(ctx, SubmitFailed,
			KeyAttempt.Field(attempt),
			KeyErrorCount.Field(len(errs.Fields())),
		)
		return nil
	}

	if c.onSubmit != nil {
		if err := c.onSubmit(ctx, c.Bag()); err != nil {
			c.isSubmitting.Set(false)
			capitan.Emit(ctx, SubmitFaulted, KeyAttempt.Field(attempt), KeyError.Field(err.Error()))
			return &SubmitError{Err: err}
		}
	}

	// Written directly, not through SetTouched, so no validation follows.
	c.touched.Set(c.untouched())
	c.isSubmitting.Set(false)
	capitan.Emit(ctx, SubmitSucceeded, KeyAttempt.Field(attempt))
	return nil
}

// SubmitForm runs the submission pipeline only when the form is currently
// valid. The check reads IsValid as it is now, so a validation still running
// in the background is not taken into account. When the form is invalid it
// returns ErrInvalidForm without counting an attempt.
func (c *Controller) SubmitForm(ctx context.Context) error {
	if !c.isValid.Get() {
		return ErrInvalidForm
	}
	return c.HandleSubmit(ctx, nil)
}

package formstate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFields is returned when a controller is built without initial values.
	ErrNoFields = errors.New("formstate: initial values must define at least one field")
	// ErrUnknownField is returned when an operation names a field that was not
	// part of the initial values.
	ErrUnknownField = errors.New("formstate: unknown field")
	// ErrInvalidForm is returned by SubmitForm when the form is currently
	// invalid; the submission pipeline does not run.
	ErrInvalidForm = errors.New("formstate: form is invalid")
	// ErrNoController is returned when no controller was published on a context.
	ErrNoController = errors.New("formstate: no controller in context")
)

// ValidatorError reports a fault of the validator itself (as opposed to
// invalid values, which are recorded in the errors state).
type ValidatorError struct {
	Field string
	Err   error
}

func (e *ValidatorError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("formstate: validator failed: %v", e.Err)
	}
	return fmt.Sprintf("formstate: validator failed for field %q: %v", e.Field, e.Err)
}

func (e *ValidatorError) Unwrap() error {
	return e.Err
}

// SubmitError reports an error returned by the submit callback.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("formstate: submit callback failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

func unknownField(field string) error {
	return fmt.Errorf("%w %q", ErrUnknownField, field)
}

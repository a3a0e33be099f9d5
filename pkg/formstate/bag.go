package formstate

import "context"

// Actions is the mutation surface of a controller, as handed to submit
// callbacks and binding adapters.
type Actions interface {
	SetFieldValue(ctx context.Context, field string, value any, shouldValidate ...bool) error
	SetFieldTouched(ctx context.Context, field string, isTouched bool, shouldValidate ...bool) error
	SetValues(ctx context.Context, fields Values, shouldValidate ...bool) error
	SetTouched(ctx context.Context, fields Touched, shouldValidate ...bool) error
	SetErrors(fields Errors) error
	SetFieldError(field string, errs []string) error
	ResetForm(next *ResetArgs) error
	ValidateField(ctx context.Context, field string) (Errors, error)
	Validate(ctx context.Context) (Errors, error)
	HandleSubmit(ctx context.Context, ev SubmitEvent) error
	SubmitForm(ctx context.Context) error
	IncrementSubmitSuccess()
}

// Bag is a point-in-time snapshot of a controller. Every map is a copy.
type Bag struct {
	Values  Values  `json:"values"`
	Errors  Errors  `json:"errors"`
	Touched Touched `json:"touched"`
	IsValid bool    `json:"isValid"`
	IsDirty bool    `json:"isDirty"`
	SubmissionState

	Actions Actions `json:"-"`
}

// Bag returns a snapshot of the controller's current state together with its
// actions.
func (c *Controller) Bag() Bag {
	return Bag{
		Values:          c.values.Get().clone(),
		Errors:          c.errors.Get().clone(),
		Touched:         c.touched.Get().clone(),
		IsValid:         c.isValid.Get(),
		IsDirty:         c.isDirty.Get(),
		SubmissionState: c.Submission(),
		Actions:         c,
	}
}

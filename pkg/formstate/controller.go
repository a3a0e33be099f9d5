package formstate

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/capitan"

	"github.com/goliatone/go-formstate/pkg/observable"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// Controller owns the state of a single form: values, errors, touched flags
// and submission counters. The set of fields is fixed at construction.
//
// All operations are safe for concurrent use. Validations started by the
// setters run in the background and write their result when they finish;
// overlapping validations are not ordered, so the last one to finish wins.
type Controller struct {
	fields []string
	known  map[string]struct{}

	initialValues  Values
	initialErrors  Errors
	initialTouched Touched

	schema           validation.Schema
	validateFn       validation.ValidateFunc
	validateOnChange bool
	validateOnBlur   bool
	onSubmit         SubmitFunc
	onError          ErrorHandler

	values  *observable.Value[Values]
	errors  *observable.Value[Errors]
	touched *observable.Value[Touched]

	isSubmitting       *observable.Value[bool]
	isValidating       *observable.Value[bool]
	submitAttemptCount *observable.Value[int]
	submitFailureCount *observable.Value[int]
	submitSuccessCount *observable.Value[int]

	isValid *observable.Derived[bool]
	isDirty *observable.Derived[bool]

	inflight sync.WaitGroup
}

var _ Actions = (*Controller)(nil)

// New builds a Controller for initialValues. The keys of initialValues define
// the form's fields for the controller's whole lifetime.
func New(initialValues Values, opts ...Option) (*Controller, error) {
	if len(initialValues) == 0 {
		return nil, ErrNoFields
	}

	cfg := &config{
		validateOnChange: true,
		validateOnBlur:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	c := &Controller{
		known:            make(map[string]struct{}, len(initialValues)),
		schema:           cfg.schema,
		validateFn:       cfg.validateFn,
		validateOnChange: cfg.validateOnChange,
		validateOnBlur:   cfg.validateOnBlur,
		onSubmit:         cfg.onSubmit,
		onError:          cfg.onError,
	}
	for field := range initialValues {
		name := strings.TrimSpace(field)
		if name == "" || name != field {
			return nil, unknownField(field)
		}
		c.known[field] = struct{}{}
		c.fields = append(c.fields, field)
	}
	sort.Strings(c.fields)

	c.initialValues = initialValues.clone()

	initialErrors, err := c.fillErrors(cfg.initialErrors, nil)
	if err != nil {
		return nil, err
	}
	c.initialErrors = initialErrors

	initialTouched, err := c.fillTouched(cfg.initialTouched, nil)
	if err != nil {
		return nil, err
	}
	c.initialTouched = initialTouched

	c.values = observable.NewValue(c.initialValues.clone())
	c.errors = observable.NewValue(c.initialErrors.clone())
	c.touched = observable.NewValue(c.initialTouched.clone())

	c.isSubmitting = observable.NewValue(false)
	c.isValidating = observable.NewValue(false)
	c.submitAttemptCount = observable.NewValue(0)
	c.submitFailureCount = observable.NewValue(0)
	c.submitSuccessCount = observable.NewValue(0)

	c.isValid = observable.Derive(func() bool {
		return !c.errors.Get().HasErrors()
	}, observable.Watch[Errors](c.errors))
	c.isDirty = observable.Derive(func() bool {
		return !deepEqual(c.values.Get(), c.initialValues)
	}, observable.Watch[Values](c.values))

	return c, nil
}

// Fields returns the form's field names, sorted.
func (c *Controller) Fields() []string {
	return append([]string(nil), c.fields...)
}

// Has reports whether field is one of the form's fields.
func (c *Controller) Has(field string) bool {
	_, ok := c.known[field]
	return ok
}

// Values returns an observable view of the values. Every read returns a copy.
func (c *Controller) Values() observable.Readable[Values] {
	return readOnly[Values]{src: c.values, clone: Values.clone}
}

// Errors returns an observable view of the errors. Every read returns a copy.
func (c *Controller) Errors() observable.Readable[Errors] {
	return readOnly[Errors]{src: c.errors, clone: Errors.clone}
}

// Touched returns an observable view of the touched flags. Every read returns
// a copy.
func (c *Controller) Touched() observable.Readable[Touched] {
	return readOnly[Touched]{src: c.touched, clone: Touched.clone}
}

// IsSubmitting reports whether the submission pipeline is running.
func (c *Controller) IsSubmitting() observable.Readable[bool] { return c.isSubmitting }

// IsValidating reports whether the submission pipeline is validating.
func (c *Controller) IsValidating() observable.Readable[bool] { return c.isValidating }

// SubmitAttemptCount counts HandleSubmit invocations.
func (c *Controller) SubmitAttemptCount() observable.Readable[int] { return c.submitAttemptCount }

// SubmitFailureCount counts submissions blocked by validation errors.
func (c *Controller) SubmitFailureCount() observable.Readable[int] { return c.submitFailureCount }

// SubmitSuccessCount is owned by callers; see IncrementSubmitSuccess.
func (c *Controller) SubmitSuccessCount() observable.Readable[int] { return c.submitSuccessCount }

// IsValid is true while no field holds an error.
func (c *Controller) IsValid() observable.Readable[bool] { return c.isValid }

// IsDirty is true while the values differ from the initial values.
func (c *Controller) IsDirty() observable.Readable[bool] { return c.isDirty }

// Submission returns the current submission flags and counters.
func (c *Controller) Submission() SubmissionState {
	return SubmissionState{
		IsSubmitting:       c.isSubmitting.Get(),
		IsValidating:       c.isValidating.Get(),
		SubmitAttemptCount: c.submitAttemptCount.Get(),
		SubmitFailureCount: c.submitFailureCount.Get(),
		SubmitSuccessCount: c.submitSuccessCount.Get(),
	}
}

// IncrementSubmitSuccess bumps the success counter. The controller never does
// this on its own; callers decide what counts as a successful submission.
func (c *Controller) IncrementSubmitSuccess() {
	c.submitSuccessCount.Update(func(n int) int { return n + 1 })
}

// SetFieldValue writes one field's value. When shouldValidate (default: the
// validate-on-change option) is true, a validation of that field starts in
// the background.
func (c *Controller) SetFieldValue(ctx context.Context, field string, value any, shouldValidate ...bool) error {
	if !c.Has(field) {
		return unknownField(field)
	}

	c.values.Update(func(v Values) Values {
		next := v.clone()
		next[field] = value
		return next
	})
	capitan.Emit(ctx, FieldChanged, KeyField.Field(field))

	if resolveFlag(shouldValidate, c.validateOnChange) {
		c.validateInBackground(ctx, field)
	}
	return nil
}

// SetFieldTouched writes one field's touched flag. When the field becomes
// touched and shouldValidate (default: the validate-on-blur option) is true, a
// validation of that field starts in the background.
func (c *Controller) SetFieldTouched(ctx context.Context, field string, isTouched bool, shouldValidate ...bool) error {
	if !c.Has(field) {
		return unknownField(field)
	}

	c.touched.Update(func(t Touched) Touched {
		next := t.clone()
		next[field] = isTouched
		return next
	})
	capitan.Emit(ctx, FieldTouched, KeyField.Field(field))

	if isTouched && resolveFlag(shouldValidate, c.validateOnBlur) {
		c.validateInBackground(ctx, field)
	}
	return nil
}

// SetValues merges fields into the values. When shouldValidate (default: the
// validate-on-change option) is true, a full validation starts in the
// background. Unknown fields reject the whole call.
func (c *Controller) SetValues(ctx context.Context, fields Values, shouldValidate ...bool) error {
	if err := c.checkKeys(keysOf(fields)); err != nil {
		return err
	}

	c.values.Update(func(v Values) Values {
		next := v.clone()
		for field, value := range fields {
			next[field] = value
		}
		return next
	})
	capitan.Emit(ctx, FieldChanged)

	if resolveFlag(shouldValidate, c.validateOnChange) {
		c.validateInBackground(ctx, "")
	}
	return nil
}

// SetTouched merges fields into the touched flags. When shouldValidate
// (default: the validate-on-blur option) is true, a full validation starts in
// the background. Unknown fields reject the whole call.
func (c *Controller) SetTouched(ctx context.Context, fields Touched, shouldValidate ...bool) error {
	if err := c.checkKeys(keysOf(fields)); err != nil {
		return err
	}

	c.touched.Update(func(t Touched) Touched {
		next := t.clone()
		for field, touched := range fields {
			next[field] = touched
		}
		return next
	})
	capitan.Emit(ctx, FieldTouched)

	if resolveFlag(shouldValidate, c.validateOnBlur) {
		c.validateInBackground(ctx, "")
	}
	return nil
}

// SetErrors merges fields into the errors without running any validation.
// Use it to inject server-side or externally computed errors.
func (c *Controller) SetErrors(fields Errors) error {
	if err := c.checkKeys(keysOf(fields)); err != nil {
		return err
	}
	c.errors.Update(func(e Errors) Errors {
		next := e.clone()
		for field, messages := range fields {
			next[field] = cloneMessages(messages)
		}
		return next
	})
	return nil
}

// SetFieldError overwrites one field's errors without running any validation.
// An empty list clears the field's error.
func (c *Controller) SetFieldError(field string, errs []string) error {
	if !c.Has(field) {
		return unknownField(field)
	}
	c.errors.Update(func(e Errors) Errors {
		next := e.clone()
		next[field] = cloneMessages(errs)
		return next
	})
	return nil
}

// ResetForm replaces values, errors and touched flags with next's parts. A nil
// next, or a nil part, restores the snapshot taken at construction. Parts
// that leave fields out fall back to the construction snapshot for those
// fields. Submission counters are not reset.
func (c *Controller) ResetForm(next *ResetArgs) error {
	if next == nil {
		next = &ResetArgs{}
	}

	values := c.initialValues.clone()
	if next.Values != nil {
		if err := c.checkKeys(keysOf(next.Values)); err != nil {
			return err
		}
		for field, value := range next.Values {
			values[field] = value
		}
	}

	errs := c.initialErrors.clone()
	if next.Errors != nil {
		filled, err := c.fillErrors(next.Errors, c.initialErrors)
		if err != nil {
			return err
		}
		errs = filled
	}

	touched := c.initialTouched.clone()
	if next.Touched != nil {
		filled, err := c.fillTouched(next.Touched, c.initialTouched)
		if err != nil {
			return err
		}
		touched = filled
	}

	c.values.Set(values)
	c.errors.Set(errs)
	c.touched.Set(touched)
	capitan.Emit(context.Background(), FormReset)
	return nil
}

// Wait blocks until every background validation started so far has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) validateInBackground(ctx context.Context, field string) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if _, err := c.ValidateField(ctx, field); err != nil && c.onError != nil {
			c.onError(ctx, field, err)
		}
	}()
}

func (c *Controller) checkKeys(keys []string) error {
	for _, key := range keys {
		if !c.Has(key) {
			return unknownField(key)
		}
	}
	return nil
}

// fillErrors returns an Errors map holding exactly the form's fields: entries
// from src win, missing ones come from fallback (or nil).
func (c *Controller) fillErrors(src, fallback Errors) (Errors, error) {
	if err := c.checkKeys(keysOf(src)); err != nil {
		return nil, err
	}
	out := make(Errors, len(c.fields))
	for _, field := range c.fields {
		if messages, ok := src[field]; ok {
			out[field] = cloneMessages(messages)
			continue
		}
		out[field] = cloneMessages(fallback[field])
	}
	return out, nil
}

// fillTouched returns a Touched map holding exactly the form's fields.
func (c *Controller) fillTouched(src, fallback Touched) (Touched, error) {
	if err := c.checkKeys(keysOf(src)); err != nil {
		return nil, err
	}
	out := make(Touched, len(c.fields))
	for _, field := range c.fields {
		if touched, ok := src[field]; ok {
			out[field] = touched
			continue
		}
		out[field] = fallback[field]
	}
	return out, nil
}

func (c *Controller) untouched() Touched {
	out := make(Touched, len(c.fields))
	for _, field := range c.fields {
		out[field] = false
	}
	return out
}

func keysOf[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func resolveFlag(explicit []bool, fallback bool) bool {
	if len(explicit) > 0 {
		return explicit[0]
	}
	return fallback
}

func deepEqual(a, b Values) bool {
	return cmp.Equal(a, b, cmp.Exporter(func(reflect.Type) bool { return true }))
}

// readOnly exposes a container without its setters and copies every value it
// hands out, so callers cannot mutate controller state through a read.
type readOnly[T any] struct {
	src   observable.Readable[T]
	clone func(T) T
}

func (r readOnly[T]) Get() T {
	return r.clone(r.src.Get())
}

func (r readOnly[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	return r.src.Subscribe(func(v T) {
		fn(r.clone(v))
	})
}

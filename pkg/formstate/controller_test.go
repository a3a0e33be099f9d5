package formstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type submitEvent struct {
	prevented int
}

func (e *submitEvent) PreventDefault() {
	e.prevented++
}

func newController(t *testing.T, values Values, opts ...Option) *Controller {
	t.Helper()

	c, err := New(values, opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func emailSchema() validation.Schema {
	return validation.MustRuleSchema(map[string]validation.Rules{
		"email": {Required: true, Format: validation.FormatEmail},
	})
}

func TestNewDefaults(t *testing.T) {
	c := newController(t, Values{"email": "", "age": 30})

	if diff := cmp.Diff(Touched{"email": false, "age": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"email": nil, "age": nil}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if !c.IsValid().Get() {
		t.Fatalf("expected new controller to be valid")
	}
	if c.IsDirty().Get() {
		t.Fatalf("expected new controller to be clean")
	}
	if diff := cmp.Diff([]string{"age", "email"}, c.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(SubmissionState{}, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestNewWithInitialState(t *testing.T) {
	c := newController(t, Values{"email": "", "name": ""},
		WithInitialErrors(Errors{"email": {"taken"}}),
		WithInitialTouched(Touched{"name": true}),
	)

	if diff := cmp.Diff(Errors{"email": {"taken"}, "name": nil}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Touched{"email": false, "name": true}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if c.IsValid().Get() {
		t.Fatalf("expected seeded error to make the form invalid")
	}
}

func TestDirtyComparesNestedValues(t *testing.T) {
	ctx := context.Background()
	initial := testsupport.MustLoadValues(t, "testdata/profile.yaml")
	c := newController(t, initial, WithValidateOnChange(false))

	if err := c.SetFieldValue(ctx, "address", map[string]any{"city": "Porto", "zip": "1100"}); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if !c.IsDirty().Get() {
		t.Fatalf("expected nested change to make the form dirty")
	}

	if err := c.SetFieldValue(ctx, "address", map[string]any{"city": "Lisbon", "zip": "1100"}); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if c.IsDirty().Get() {
		t.Fatalf("expected equal nested value to be clean, got %v", c.Values().Get())
	}

	if err := c.SetFieldValue(ctx, "tags", []any{"b", "a"}); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if !c.IsDirty().Get() {
		t.Fatalf("expected reordered list to make the form dirty")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
	if _, err := New(Values{"email": ""}, WithInitialErrors(Errors{"phone": {"x"}})); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for initial errors, got %v", err)
	}
	if _, err := New(Values{"email": ""}, WithInitialTouched(Touched{"phone": true})); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for initial touched, got %v", err)
	}
}

func TestSetFieldValueTracksDirty(t *testing.T) {
	ctx := context.Background()
	c := newController(t, Values{"email": "", "tags": []any{"a"}}, WithValidateOnChange(false))

	if err := c.SetFieldValue(ctx, "email", "a@b.com"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if !c.IsDirty().Get() {
		t.Fatalf("expected dirty after change")
	}

	if err := c.SetFieldValue(ctx, "email", ""); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if c.IsDirty().Get() {
		t.Fatalf("expected clean after restoring the initial value")
	}

	if err := c.SetValues(ctx, Values{"tags": []any{"a", "b"}}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if !c.IsDirty().Get() {
		t.Fatalf("expected nested change to mark the form dirty")
	}

	if err := c.ResetForm(nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if c.IsDirty().Get() {
		t.Fatalf("expected clean after reset")
	}
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	ctx := context.Background()
	c := newController(t, Values{"email": ""}, WithValidateOnChange(false))

	checks := map[string]error{
		"SetFieldValue":   c.SetFieldValue(ctx, "phone", "1"),
		"SetFieldTouched": c.SetFieldTouched(ctx, "phone", true),
		"SetValues":       c.SetValues(ctx, Values{"email": "x", "phone": "1"}),
		"SetTouched":      c.SetTouched(ctx, Touched{"phone": true}),
		"SetErrors":       c.SetErrors(Errors{"phone": {"bad"}}),
		"SetFieldError":   c.SetFieldError("phone", []string{"bad"}),
		"ResetForm":       c.ResetForm(&ResetArgs{Values: Values{"phone": "1"}}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrUnknownField) {
			t.Errorf("%s: expected ErrUnknownField, got %v", name, err)
		}
	}
	if _, err := c.ValidateField(ctx, "phone"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("ValidateField: expected ErrUnknownField, got %v", err)
	}

	if diff := cmp.Diff(Values{"email": ""}, c.Values().Get()); diff != "" {
		t.Fatalf("bulk setter must not apply partial writes (-want +got):\n%s", diff)
	}
}

func TestValidateWithSchemaBlocksSubmitForm(t *testing.T) {
	ctx := context.Background()
	called := 0
	c := newController(t, Values{"email": ""},
		WithSchema(emailSchema()),
		WithOnSubmit(func(context.Context, Bag) error {
			called++
			return nil
		}),
	)

	errs, err := c.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff(Errors{"email": {"is required"}}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if c.IsValid().Get() {
		t.Fatalf("expected invalid form")
	}

	if err := c.SubmitForm(ctx); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}
	if called != 0 {
		t.Fatalf("onSubmit must not run, ran %d times", called)
	}
	if got := c.SubmitAttemptCount().Get(); got != 0 {
		t.Fatalf("SubmitForm must not count attempts on an invalid form, got %d", got)
	}
}

func TestHandleSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	var bags []Bag
	c := newController(t, Values{"email": "a@b.com"},
		WithSchema(emailSchema()),
		WithInitialTouched(Touched{"email": true}),
		WithOnSubmit(func(_ context.Context, bag Bag) error {
			bags = append(bags, bag)
			return nil
		}),
	)

	ev := &submitEvent{}
	if err := c.HandleSubmit(ctx, ev); err != nil {
		t.Fatalf("handle submit: %v", err)
	}

	if ev.prevented != 1 {
		t.Fatalf("expected PreventDefault once, got %d", ev.prevented)
	}
	if len(bags) != 1 {
		t.Fatalf("expected onSubmit once, got %d", len(bags))
	}
	bag := bags[0]
	if !bag.IsValid {
		t.Fatalf("expected bag to be valid")
	}
	if !bag.IsSubmitting || bag.IsValidating {
		t.Fatalf("expected submitting without validating inside the callback, got %+v", bag.SubmissionState)
	}
	if diff := cmp.Diff(Touched{"email": true}, bag.Touched); diff != "" {
		t.Fatalf("bag touched mismatch (-want +got):\n%s", diff)
	}
	if bag.Actions == nil {
		t.Fatalf("expected bag to carry actions")
	}

	want := SubmissionState{SubmitAttemptCount: 1}
	if diff := cmp.Diff(want, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Touched{"email": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleSubmitUntouchesWithoutValidating(t *testing.T) {
	ctx := context.Background()
	scripted := testsupport.NewScriptedValidator(map[string][]string{"email": nil})
	c := newController(t, Values{"email": "a@b.com"},
		WithValidateFunc(scripted.Func()),
		WithInitialTouched(Touched{"email": true}),
	)

	if err := c.HandleSubmit(ctx, nil); err != nil {
		t.Fatalf("handle submit: %v", err)
	}
	c.Wait()

	if got := len(scripted.Calls()); got != 1 {
		t.Fatalf("expected only the submit validation, got %d validator calls", got)
	}
	if diff := cmp.Diff(Touched{"email": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitFormRunsPipelineWhenValid(t *testing.T) {
	ctx := context.Background()
	called := 0
	c := newController(t, Values{"email": "a@b.com"},
		WithSchema(emailSchema()),
		WithOnSubmit(func(context.Context, Bag) error {
			called++
			return nil
		}),
	)

	if err := c.SubmitForm(ctx); err != nil {
		t.Fatalf("submit form: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected onSubmit once, got %d", called)
	}
	if got := c.SubmitAttemptCount().Get(); got != 1 {
		t.Fatalf("expected one attempt, got %d", got)
	}
}

func TestHandleSubmitValidationFailure(t *testing.T) {
	ctx := context.Background()
	called := 0
	c := newController(t, Values{"email": "nope"},
		WithSchema(emailSchema()),
		WithInitialTouched(Touched{"email": true}),
		WithOnSubmit(func(context.Context, Bag) error {
			called++
			return nil
		}),
	)

	for i := 0; i < 2; i++ {
		if err := c.HandleSubmit(ctx, nil); err != nil {
			t.Fatalf("handle submit: %v", err)
		}
	}

	if called != 0 {
		t.Fatalf("onSubmit must not run, ran %d times", called)
	}
	want := SubmissionState{SubmitAttemptCount: 2, SubmitFailureCount: 2}
	if diff := cmp.Diff(want, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"email": {"must be a valid email address"}}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if !c.Touched().Get()["email"] {
		t.Fatalf("touched must be kept when validation blocks the submission")
	}
}

func TestHandleSubmitCallbackError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c := newController(t, Values{"email": "a@b.com"},
		WithSchema(emailSchema()),
		WithInitialTouched(Touched{"email": true}),
		WithOnSubmit(func(context.Context, Bag) error { return boom }),
	)

	err := c.HandleSubmit(ctx, nil)
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) || !errors.Is(err, boom) {
		t.Fatalf("expected SubmitError wrapping boom, got %v", err)
	}

	want := SubmissionState{SubmitAttemptCount: 1}
	if diff := cmp.Diff(want, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	if !c.Touched().Get()["email"] {
		t.Fatalf("touched must be kept when the callback fails")
	}
}

func TestHandleSubmitValidatorFault(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("schema offline")
	scripted := testsupport.NewScriptedValidator().FailWith(boom)
	c := newController(t, Values{"email": ""}, WithValidateFunc(scripted.Func()))

	err := c.HandleSubmit(ctx, nil)
	var validatorErr *ValidatorError
	if !errors.As(err, &validatorErr) || !errors.Is(err, boom) {
		t.Fatalf("expected ValidatorError wrapping the fault, got %v", err)
	}

	want := SubmissionState{SubmitAttemptCount: 1}
	if diff := cmp.Diff(want, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFuncReplacesErrors(t *testing.T) {
	ctx := context.Background()
	scripted := testsupport.NewScriptedValidator(map[string][]string{
		"email": {"taken"},
		"extra": {"ignored"},
	})
	c := newController(t, Values{"email": "", "name": ""},
		WithInitialErrors(Errors{"name": {"stale"}}),
		WithValidateFunc(scripted.Func()),
		WithSchema(emailSchema()),
	)

	errs, err := c.ValidateField(ctx, "name")
	if err != nil {
		t.Fatalf("validate field: %v", err)
	}
	if diff := cmp.Diff(Errors{"email": {"taken"}, "name": nil}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]map[string]any{{"email": "", "name": ""}}, scripted.Calls()); diff != "" {
		t.Fatalf("validator calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaFieldValidationMergesOneField(t *testing.T) {
	ctx := context.Background()
	schema := validation.MustRuleSchema(map[string]validation.Rules{
		"email": {Required: true},
		"name":  {Required: true},
	})
	c := newController(t, Values{"email": "", "name": ""},
		WithInitialErrors(Errors{"name": {"server said no"}}),
		WithSchema(schema),
	)

	errs, err := c.ValidateField(ctx, "email")
	if err != nil {
		t.Fatalf("validate field: %v", err)
	}
	want := Errors{"email": {"is required"}, "name": {"server said no"}}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	// The parse fails on name only; email gets no messages of its own.
	if err := c.SetFieldValue(ctx, "email", "a@b.com", false); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	errs, err = c.ValidateField(ctx, "email")
	if err != nil {
		t.Fatalf("validate field: %v", err)
	}
	want = Errors{"email": nil, "name": {"server said no"}}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaFullValidation(t *testing.T) {
	ctx := context.Background()
	schema := validation.MustRuleSchema(map[string]validation.Rules{
		"email": {Required: true},
	})
	c := newController(t, Values{"email": "", "name": ""},
		WithInitialErrors(Errors{"name": {"server said no"}}),
		WithSchema(schema),
	)

	errs, err := c.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := Errors{"email": {"is required"}, "name": {"server said no"}}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("failed parse must merge (-want +got):\n%s", diff)
	}

	if err := c.SetFieldValue(ctx, "email", "a@b.com", false); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	errs, err = c.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff(Errors{"email": nil, "name": nil}, errs); diff != "" {
		t.Fatalf("passing parse must clear every field (-want +got):\n%s", diff)
	}
	if !c.IsValid().Get() {
		t.Fatalf("expected valid form")
	}
}

func TestValidateWithoutValidatorIsNoop(t *testing.T) {
	c := newController(t, Values{"email": ""}, WithInitialErrors(Errors{"email": {"x"}}))

	errs, err := c.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff(Errors{"email": {"x"}}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSettersTriggerBackgroundValidation(t *testing.T) {
	ctx := context.Background()
	c := newController(t, Values{"email": "", "name": ""}, WithSchema(emailSchema()))

	if err := c.SetFieldValue(ctx, "email", "nope"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	c.Wait()
	if diff := cmp.Diff([]string{"must be a valid email address"}, c.Errors().Get()["email"]); diff != "" {
		t.Fatalf("change validation mismatch (-want +got):\n%s", diff)
	}

	if err := c.SetFieldValue(ctx, "email", "a@b.com", false); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	c.Wait()
	if c.IsValid().Get() {
		t.Fatalf("shouldValidate=false must not validate")
	}

	if err := c.SetFieldTouched(ctx, "email", false); err != nil {
		t.Fatalf("set field touched: %v", err)
	}
	c.Wait()
	if c.IsValid().Get() {
		t.Fatalf("untouching a field must not validate")
	}

	if err := c.SetFieldTouched(ctx, "email", true); err != nil {
		t.Fatalf("set field touched: %v", err)
	}
	c.Wait()
	if !c.IsValid().Get() {
		t.Fatalf("expected blur validation to clear the error, got %v", c.Errors().Get())
	}
}

func TestValidateOnOptionsDisableDefaults(t *testing.T) {
	ctx := context.Background()
	scripted := testsupport.NewScriptedValidator(map[string][]string{"email": {"bad"}})
	c := newController(t, Values{"email": ""},
		WithValidateFunc(scripted.Func()),
		WithValidateOnChange(false),
		WithValidateOnBlur(false),
	)

	if err := c.SetFieldValue(ctx, "email", "x"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if err := c.SetFieldTouched(ctx, "email", true); err != nil {
		t.Fatalf("set field touched: %v", err)
	}
	if err := c.SetValues(ctx, Values{"email": "y"}); err != nil {
		t.Fatalf("set values: %v", err)
	}
	if err := c.SetTouched(ctx, Touched{"email": true}); err != nil {
		t.Fatalf("set touched: %v", err)
	}
	c.Wait()
	if got := len(scripted.Calls()); got != 0 {
		t.Fatalf("expected no validation, got %d calls", got)
	}

	if err := c.SetValues(ctx, Values{"email": "z"}, true); err != nil {
		t.Fatalf("set values: %v", err)
	}
	c.Wait()
	if got := len(scripted.Calls()); got != 1 {
		t.Fatalf("explicit shouldValidate must validate, got %d calls", got)
	}
}

func TestBackgroundFaultsReachErrorHandler(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	scripted := testsupport.NewScriptedValidator().FailWith(boom)

	var mu sync.Mutex
	var faults []error
	c := newController(t, Values{"email": ""},
		WithValidateFunc(scripted.Func()),
		WithErrorHandler(func(_ context.Context, field string, err error) {
			mu.Lock()
			defer mu.Unlock()
			if field != "email" {
				t.Errorf("expected field email, got %q", field)
			}
			faults = append(faults, err)
		}),
	)

	if err := c.SetFieldValue(ctx, "email", "x"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(faults) != 1 || !errors.Is(faults[0], boom) {
		t.Fatalf("expected one fault wrapping boom, got %v", faults)
	}
}

// Overlapping validations of the same field are not ordered: whichever
// finishes last writes the errors, even when it started first.
func TestOverlappingValidationsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	gated := testsupport.NewGatedSchema(emailSchema())
	c := newController(t, Values{"email": ""},
		WithSchema(gated),
		WithInitialErrors(Errors{"email": {"stale"}}),
	)

	if err := c.SetFieldValue(ctx, "email", "nope"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	first := gated.Next(t)

	if err := c.SetFieldValue(ctx, "email", "a@b.com"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	second := gated.Next(t)

	if diff := cmp.Diff(map[string]any{"email": "nope"}, first.Values); diff != "" {
		t.Fatalf("first snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"email": "a@b.com"}, second.Values); diff != "" {
		t.Fatalf("second snapshot mismatch (-want +got):\n%s", diff)
	}

	second.Release()
	waitFor(t, c, func(errs Errors) bool { return errs["email"] == nil })

	first.Release()
	c.Wait()

	want := Errors{"email": {"must be a valid email address"}}
	if diff := cmp.Diff(want, c.Errors().Get()); diff != "" {
		t.Fatalf("stale result should win by completion order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Values{"email": "a@b.com"}, c.Values().Get()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestResetForm(t *testing.T) {
	ctx := context.Background()
	initial := Values{"email": "", "name": "ann"}
	c := newController(t, initial,
		WithInitialErrors(Errors{"email": {"seeded"}}),
		WithValidateOnChange(false),
		WithValidateOnBlur(false),
	)

	mutate := func() {
		t.Helper()
		if err := c.SetValues(ctx, Values{"email": "x", "name": "bob"}); err != nil {
			t.Fatalf("set values: %v", err)
		}
		if err := c.SetTouched(ctx, Touched{"email": true, "name": true}); err != nil {
			t.Fatalf("set touched: %v", err)
		}
		if err := c.SetErrors(Errors{"email": nil, "name": {"bad"}}); err != nil {
			t.Fatalf("set errors: %v", err)
		}
	}

	mutate()
	c.IncrementSubmitSuccess()
	if err := c.ResetForm(nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff(initial, c.Values().Get()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"email": {"seeded"}, "name": nil}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Touched{"email": false, "name": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if got := c.SubmitSuccessCount().Get(); got != 1 {
		t.Fatalf("reset must keep counters, got success=%d", got)
	}

	mutate()
	if err := c.ResetForm(&ResetArgs{Values: Values{"email": "z@z.com", "name": "cy"}}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff(Values{"email": "z@z.com", "name": "cy"}, c.Values().Get()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Errors{"email": {"seeded"}, "name": nil}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors must fall back to the initial snapshot (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Touched{"email": false, "name": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched must fall back to the initial snapshot (-want +got):\n%s", diff)
	}

	if err := c.ResetForm(&ResetArgs{Values: Values{"name": "dee"}, Touched: Touched{"email": true}}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff(Values{"email": "", "name": "dee"}, c.Values().Get()); diff != "" {
		t.Fatalf("missing keys must come from the initial snapshot (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Touched{"email": true, "name": false}, c.Touched().Get()); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
}

func TestSetErrorsAndFieldError(t *testing.T) {
	c := newController(t, Values{"email": "", "name": ""})

	if err := c.SetErrors(Errors{"email": {"taken"}}); err != nil {
		t.Fatalf("set errors: %v", err)
	}
	if c.IsValid().Get() {
		t.Fatalf("expected injected error to invalidate the form")
	}
	if err := c.SetFieldError("name", []string{"too short"}); err != nil {
		t.Fatalf("set field error: %v", err)
	}
	if diff := cmp.Diff([]string{"email", "name"}, c.Errors().Get().Fields()); diff != "" {
		t.Fatalf("error fields mismatch (-want +got):\n%s", diff)
	}

	if err := c.SetFieldError("email", []string{}); err != nil {
		t.Fatalf("set field error: %v", err)
	}
	if err := c.SetFieldError("name", nil); err != nil {
		t.Fatalf("set field error: %v", err)
	}
	if diff := cmp.Diff(Errors{"email": nil, "name": nil}, c.Errors().Get()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if !c.IsValid().Get() {
		t.Fatalf("expected empty lists to clear errors")
	}
}

func TestReadOnlyViewsReturnCopies(t *testing.T) {
	c := newController(t, Values{"profile": map[string]any{"name": "ann"}})

	values := c.Values().Get()
	values["profile"].(map[string]any)["name"] = "mallory"
	values["profile"] = nil

	if diff := cmp.Diff(Values{"profile": map[string]any{"name": "ann"}}, c.Values().Get()); diff != "" {
		t.Fatalf("values leaked through a read (-want +got):\n%s", diff)
	}

	bag := c.Bag()
	bag.Touched["profile"] = true
	if c.Touched().Get()["profile"] {
		t.Fatalf("touched leaked through the bag")
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	c := newController(t, Values{"email": ""}, WithValidateOnChange(false))

	var seen []bool
	unsubscribe := c.IsDirty().Subscribe(func(dirty bool) {
		seen = append(seen, dirty)
	})

	if err := c.SetFieldValue(ctx, "email", "a"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if err := c.SetFieldValue(ctx, "email", "ab"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	unsubscribe()
	unsubscribe()
	if err := c.SetFieldValue(ctx, "email", ""); err != nil {
		t.Fatalf("set field value: %v", err)
	}

	if diff := cmp.Diff([]bool{false, true}, seen); diff != "" {
		t.Fatalf("dirty notifications mismatch (-want +got):\n%s", diff)
	}

	var values []Values
	stop := c.Values().Subscribe(func(v Values) { values = append(values, v) })
	defer stop()
	if err := c.SetFieldValue(ctx, "email", "x"); err != nil {
		t.Fatalf("set field value: %v", err)
	}
	if diff := cmp.Diff([]Values{{"email": ""}, {"email": "x"}}, values); diff != "" {
		t.Fatalf("value notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrementSubmitSuccess(t *testing.T) {
	c := newController(t, Values{"email": "a@b.com"},
		WithOnSubmit(func(ctx context.Context, bag Bag) error {
			bag.Actions.IncrementSubmitSuccess()
			return nil
		}),
	)

	if err := c.HandleSubmit(context.Background(), nil); err != nil {
		t.Fatalf("handle submit: %v", err)
	}
	want := SubmissionState{SubmitAttemptCount: 1, SubmitSuccessCount: 1}
	if diff := cmp.Diff(want, c.Submission()); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestContextHelpers(t *testing.T) {
	c := newController(t, Values{"email": ""})

	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoController) {
		t.Fatalf("expected ErrNoController, got %v", err)
	}

	ctx := WithController(context.Background(), c)
	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("from context: %v", err)
	}
	if got != c {
		t.Fatalf("expected the published controller")
	}
	if MustFromContext(ctx) != c {
		t.Fatalf("expected MustFromContext to return the published controller")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustFromContext to panic without a controller")
		}
	}()
	MustFromContext(context.Background())
}

func TestFieldKeys(t *testing.T) {
	got := []string{
		KeyField.Field("email").Key().Name(),
		KeyValidator.Field(validatorSchema).Key().Name(),
		KeyError.Field("boom").Key().Name(),
		KeyErrorCount.Field(1).Key().Name(),
		KeyAttempt.Field(1).Key().Name(),
	}
	want := []string{"field", "validator", "error", "error_count", "attempt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field keys mismatch (-want +got):\n%s", diff)
	}
}

func waitFor(t *testing.T, c *Controller, ok func(Errors) bool) {
	t.Helper()

	done := make(chan struct{})
	var once sync.Once
	stop := c.Errors().Subscribe(func(errs Errors) {
		if ok(errs) {
			once.Do(func() { close(done) })
		}
	})
	defer stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for errors, last seen %v", c.Errors().Get())
	}
}

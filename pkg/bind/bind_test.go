package bind

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type fakeElement struct {
	value     string
	listeners map[Event][]*func()
	removed   int
}

func newFakeElement(value string) *fakeElement {
	return &fakeElement{value: value, listeners: make(map[Event][]*func())}
}

func (e *fakeElement) Value() string { return e.value }

func (e *fakeElement) On(event Event, fn func()) func() {
	handler := &fn
	e.listeners[event] = append(e.listeners[event], handler)
	return func() {
		e.removed++
		kept := e.listeners[event][:0]
		for _, h := range e.listeners[event] {
			if h != handler {
				kept = append(kept, h)
			}
		}
		e.listeners[event] = kept
	}
}

func (e *fakeElement) fire(event Event) {
	for _, h := range append([]*func(){}, e.listeners[event]...) {
		(*h)()
	}
}

func newController(t *testing.T) *formstate.Controller {
	t.Helper()

	schema := validation.MustRuleSchema(map[string]validation.Rules{
		"email": {Required: true, Format: validation.FormatEmail},
	})
	c, err := formstate.New(formstate.Values{"email": "", "name": ""}, formstate.WithSchema(schema))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestAttachInputWritesAndValidates(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	el := newFakeElement("nope")

	release, err := Attach(ctx, c, el, "email")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer release()

	el.fire(EventInput)

	if got := c.Values().Get()["email"]; got != "nope" {
		t.Fatalf("expected value to be written, got %v", got)
	}
	if diff := cmp.Diff([]string{"must be a valid email address"}, c.Errors().Get()["email"]); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if c.Touched().Get()["email"] {
		t.Fatalf("input must not touch the field")
	}
}

func TestAttachBlurTouchesAndValidates(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	el := newFakeElement("a@b.com")

	release, err := Attach(ctx, c, el, "email")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer release()

	el.fire(EventBlur)
	c.Wait()

	if !c.Touched().Get()["email"] {
		t.Fatalf("expected blur to touch the field")
	}
	if got := c.Values().Get()["email"]; got != "a@b.com" {
		t.Fatalf("expected blur to write the value, got %v", got)
	}
	if !c.IsValid().Get() {
		t.Fatalf("expected valid form, got %v", c.Errors().Get())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	el := newFakeElement("x")

	release, err := Attach(ctx, c, el, "name")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	release()
	release()

	if el.removed != 2 {
		t.Fatalf("expected both listeners removed once, got %d removals", el.removed)
	}

	el.fire(EventInput)
	if got := c.Values().Get()["name"]; got != "" {
		t.Fatalf("released binding must not write, got %v", got)
	}
}

func TestAttachRejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	if _, err := Attach(ctx, nil, newFakeElement(""), "email"); !errors.Is(err, ErrNilTarget) {
		t.Fatalf("expected ErrNilTarget, got %v", err)
	}
	if _, err := Attach(ctx, c, nil, "email"); !errors.Is(err, ErrNilElement) {
		t.Fatalf("expected ErrNilElement, got %v", err)
	}
	if _, err := Attach(ctx, c, newFakeElement(""), "phone"); !errors.Is(err, formstate.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestStrictSanitizer(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	name := newFakeElement("<b>Tom</b> & Jerry")

	release, err := Attach(ctx, c, name, "name", WithStrictSanitizer())
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer release()

	name.fire(EventInput)
	if got := c.Values().Get()["name"]; got != "Tom & Jerry" {
		t.Fatalf("expected markup stripped, got %q", got)
	}
}

func TestAttachAllReleasesTogether(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	email := newFakeElement("a@b.com")
	name := newFakeElement("Ann")

	release, err := AttachAll(ctx, c, map[string]Element{"email": email, "name": name})
	if err != nil {
		t.Fatalf("attach all: %v", err)
	}

	email.fire(EventInput)
	name.fire(EventInput)
	if diff := cmp.Diff(formstate.Values{"email": "a@b.com", "name": "Ann"}, c.Values().Get()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	release()
	release()
	if email.removed != 2 || name.removed != 2 {
		t.Fatalf("expected every listener removed once, got email=%d name=%d", email.removed, name.removed)
	}

	orphan := newFakeElement("")
	if _, err := AttachAll(ctx, c, map[string]Element{"name": orphan, "zzz": newFakeElement("")}); !errors.Is(err, formstate.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if orphan.removed != 2 {
		t.Fatalf("expected earlier bindings released on failure, got %d removals", orphan.removed)
	}
}

func TestValidatorFaultsReachErrorHandler(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	c, err := formstate.New(formstate.Values{"email": ""},
		formstate.WithValidateFunc(func(context.Context, map[string]any) (map[string][]string, error) {
			return nil, boom
		}),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	var got []error
	el := newFakeElement("x")
	release, err := Attach(ctx, c, el, "email", WithErrorHandler(func(_ context.Context, field string, err error) {
		got = append(got, err)
	}))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer release()

	el.fire(EventInput)
	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Fatalf("expected one fault wrapping boom, got %v", got)
	}
}

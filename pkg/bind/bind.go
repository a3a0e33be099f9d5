// Package bind connects input elements to form controller fields.
//
// Attach listens for input and blur events on an Element and forwards them to
// the controller: input writes the element's value and validates the field,
// blur marks the field touched and then does the same. The returned Release
// removes the listeners and may be called any number of times.
package bind

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/formstate"
)

var (
	// ErrNilTarget is returned when Attach is called without a target.
	ErrNilTarget = errors.New("bind: target is required")
	// ErrNilElement is returned when Attach is called without an element.
	ErrNilElement = errors.New("bind: element is required")
)

// Event names an element event the binding listens to.
type Event string

const (
	EventInput Event = "input"
	EventBlur  Event = "blur"
)

// Element is an input the user edits. On registers fn for event and returns a
// function that removes it.
type Element interface {
	Value() string
	On(event Event, fn func()) (remove func())
}

// Target is the part of a controller the binding drives.
type Target interface {
	Has(field string) bool
	SetFieldValue(ctx context.Context, field string, value any, shouldValidate ...bool) error
	SetFieldTouched(ctx context.Context, field string, isTouched bool, shouldValidate ...bool) error
	ValidateField(ctx context.Context, field string) (formstate.Errors, error)
}

var _ Target = (*formstate.Controller)(nil)

// Release detaches a binding. Calling it more than once is a no-op.
type Release func()

// ErrorHandler receives errors raised while handling an element event.
type ErrorHandler func(ctx context.Context, field string, err error)

type config struct {
	sanitizer *bluemonday.Policy
	onError   ErrorHandler
}

// Option configures a binding.
type Option func(*config)

// WithSanitizer runs incoming text through policy before it reaches the
// controller. HTML entities produced by the policy are decoded again so plain
// text such as "Tom & Jerry" survives unchanged.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(c *config) {
		c.sanitizer = policy
	}
}

// WithStrictSanitizer strips all markup from incoming text.
func WithStrictSanitizer() Option {
	return WithSanitizer(strictSanitizer())
}

// WithErrorHandler receives controller errors raised by event handlers.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *config) {
		c.onError = fn
	}
}

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func strictSanitizer() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Attach binds el to field on target.
func Attach(ctx context.Context, target Target, el Element, field string, opts ...Option) (Release, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if el == nil {
		return nil, ErrNilElement
	}
	field = strings.TrimSpace(field)
	if !target.Has(field) {
		return nil, fmt.Errorf("bind: %w %q", formstate.ErrUnknownField, field)
	}

	cfg := &config{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	b := &binding{ctx: ctx, target: target, el: el, field: field, cfg: cfg}
	removeInput := el.On(EventInput, b.handleInput)
	removeBlur := el.On(EventBlur, b.handleBlur)

	var once sync.Once
	return func() {
		once.Do(func() {
			if removeInput != nil {
				removeInput()
			}
			if removeBlur != nil {
				removeBlur()
			}
		})
	}, nil
}

// AttachAll binds every element to the field it is keyed by. When one
// binding fails the ones already made are released.
func AttachAll(ctx context.Context, target Target, elements map[string]Element, opts ...Option) (Release, error) {
	fields := make([]string, 0, len(elements))
	for field := range elements {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	releases := make([]Release, 0, len(fields))
	releaseAll := func() {
		for _, release := range releases {
			release()
		}
	}
	for _, field := range fields {
		release, err := Attach(ctx, target, elements[field], field, opts...)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

type binding struct {
	ctx    context.Context
	target Target
	el     Element
	field  string
	cfg    *config
}

func (b *binding) handleInput() {
	value := b.value()
	if err := b.target.SetFieldValue(b.ctx, b.field, value, false); err != nil {
		b.fail(err)
		return
	}
	if _, err := b.target.ValidateField(b.ctx, b.field); err != nil {
		b.fail(err)
	}
}

func (b *binding) handleBlur() {
	if err := b.target.SetFieldTouched(b.ctx, b.field, true, false); err != nil {
		b.fail(err)
		return
	}
	b.handleInput()
}

func (b *binding) value() string {
	raw := b.el.Value()
	if b.cfg.sanitizer == nil {
		return raw
	}
	return html.UnescapeString(b.cfg.sanitizer.Sanitize(raw))
}

func (b *binding) fail(err error) {
	if b.cfg.onError != nil {
		b.cfg.onError(b.ctx, b.field, err)
	}
}

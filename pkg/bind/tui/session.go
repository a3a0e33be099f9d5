// Package tui drives a form controller from a terminal: each field is asked
// through a PromptDriver, answers are written to the controller and fields
// that fail validation are asked again before the form is submitted.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formstate/pkg/formstate"
)

// Kind selects the prompt used for a field.
type Kind string

const (
	KindText     Kind = "text"
	KindPassword Kind = "password"
	KindTextArea Kind = "textarea"
	KindConfirm  Kind = "confirm"
	KindSelect   Kind = "select"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
)

// FieldPrompt describes how to ask for one field.
type FieldPrompt struct {
	Field   string
	Label   string
	Help    string
	Kind    Kind
	Options []string
}

// Session asks for every field of a controller and submits the form.
type Session struct {
	ctl         *formstate.Controller
	driver      PromptDriver
	prompts     []FieldPrompt
	maxAttempts int
	theme       Theme
}

// NewSession builds a session over ctl. Without WithPrompts every field is
// asked as text, in the controller's field order.
func NewSession(ctl *formstate.Controller, opts ...Option) (*Session, error) {
	if ctl == nil {
		return nil, ErrNilController
	}

	s := &Session{
		ctl:         ctl,
		driver:      NewSurveyDriver(),
		maxAttempts: 3,
		theme:       Theme{ErrorPrefix: "  ! "},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}

	if len(s.prompts) == 0 {
		for _, field := range ctl.Fields() {
			s.prompts = append(s.prompts, FieldPrompt{Field: field})
		}
	}
	for _, prompt := range s.prompts {
		if !ctl.Has(prompt.Field) {
			return nil, fmt.Errorf("tui: %w %q", formstate.ErrUnknownField, prompt.Field)
		}
	}
	return s, nil
}

// Run asks every prompt, then runs the controller's submission pipeline and
// returns a snapshot of the final state. Validation errors left after the
// pipeline are reported in the bag, not as an error.
func (s *Session) Run(ctx context.Context) (formstate.Bag, error) {
	if ctx == nil {
		return formstate.Bag{}, errors.New("tui: context is required")
	}

	for _, prompt := range s.prompts {
		if err := s.ask(ctx, prompt); err != nil {
			return s.ctl.Bag(), err
		}
	}

	if err := s.ctl.HandleSubmit(ctx, nil); err != nil {
		return s.ctl.Bag(), err
	}
	bag := s.ctl.Bag()
	for _, field := range bag.Errors.Fields() {
		s.report(ctx, field, bag.Errors[field])
	}
	return bag, nil
}

func (s *Session) ask(ctx context.Context, prompt FieldPrompt) error {
	for attempt := 1; ; attempt++ {
		value, ok, err := s.prompt(ctx, prompt)
		if err != nil {
			return err
		}
		if !ok {
			if s.exhausted(attempt) {
				return fmt.Errorf("%w: %s", ErrTooManyAttempts, prompt.Field)
			}
			continue
		}

		if err := s.ctl.SetFieldValue(ctx, prompt.Field, value, false); err != nil {
			return err
		}
		if err := s.ctl.SetFieldTouched(ctx, prompt.Field, true, false); err != nil {
			return err
		}
		errs, err := s.ctl.ValidateField(ctx, prompt.Field)
		if err != nil {
			return err
		}

		messages := errs[prompt.Field]
		if len(messages) == 0 {
			return nil
		}
		s.report(ctx, prompt.Field, messages)
		if s.exhausted(attempt) {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, prompt.Field)
		}
	}
}

func (s *Session) exhausted(attempt int) bool {
	return s.maxAttempts > 0 && attempt >= s.maxAttempts
}

// prompt asks once. ok is false when the answer could not be parsed; the
// problem has already been reported.
func (s *Session) prompt(ctx context.Context, prompt FieldPrompt) (value any, ok bool, err error) {
	label := prompt.Label
	if label == "" {
		label = prompt.Field
	}
	current := s.ctl.Values().Get()[prompt.Field]

	switch prompt.Kind {
	case KindConfirm:
		def, _ := current.(bool)
		answer, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: prompt.Help})
		return answer, err == nil, err

	case KindSelect:
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      prompt.Options,
			DefaultIndex: indexOf(prompt.Options, stringify(current)),
			Help:         prompt.Help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(prompt.Options) {
			s.report(ctx, prompt.Field, []string{"invalid selection"})
			return nil, false, nil
		}
		return prompt.Options[idx], true, nil

	case KindPassword:
		answer, err := s.driver.Password(ctx, InputConfig{Message: label, Help: prompt.Help})
		return answer, err == nil, err

	case KindTextArea:
		answer, err := s.driver.TextArea(ctx, InputConfig{Message: label, Default: stringify(current), Help: prompt.Help})
		return answer, err == nil, err

	case KindInteger, KindNumber:
		answer, err := s.driver.Input(ctx, InputConfig{Message: label, Default: stringify(current), Help: prompt.Help})
		if err != nil {
			return nil, false, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return nil, true, nil
		}
		if prompt.Kind == KindInteger {
			n, err := strconv.ParseInt(answer, 10, 64)
			if err != nil {
				s.report(ctx, prompt.Field, []string{"must be a whole number"})
				return nil, false, nil
			}
			return n, true, nil
		}
		f, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			s.report(ctx, prompt.Field, []string{"must be a number"})
			return nil, false, nil
		}
		return f, true, nil

	default:
		answer, err := s.driver.Input(ctx, InputConfig{Message: label, Default: stringify(current), Help: prompt.Help})
		return answer, err == nil, err
	}
}

func (s *Session) report(ctx context.Context, field string, messages []string) {
	for _, msg := range messages {
		_ = s.driver.Info(ctx, fmt.Sprintf("%s%s: %s", s.theme.ErrorPrefix, field, msg))
	}
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

package formstate

import (
	"context"
	"sort"
)

// Values maps field names to their current values.
type Values map[string]any

// Errors maps field names to error messages. A nil entry means the field has
// no error; any non-empty list marks the field invalid.
type Errors map[string][]string

// Touched maps field names to whether the user has interacted with them.
type Touched map[string]bool

// ResetArgs carries the state ResetForm restores. Nil parts fall back to the
// snapshot taken at construction.
type ResetArgs struct {
	Values  Values
	Errors  Errors
	Touched Touched
}

// SubmissionState groups the submission lifecycle flags and counters.
type SubmissionState struct {
	IsSubmitting       bool `json:"isSubmitting"`
	IsValidating       bool `json:"isValidating"`
	SubmitAttemptCount int  `json:"submitAttemptCount"`
	SubmitFailureCount int  `json:"submitFailureCount"`
	SubmitSuccessCount int  `json:"submitSuccessCount"`
}

// SubmitEvent is the UI event that triggered a submission, if any.
type SubmitEvent interface {
	PreventDefault()
}

// SubmitFunc receives the bag once validation passed during HandleSubmit.
type SubmitFunc func(ctx context.Context, bag Bag) error

// ErrorHandler receives faults raised by validations the caller did not wait
// for (the ones started by the field setters).
type ErrorHandler func(ctx context.Context, field string, err error)

// HasErrors reports whether any entry is non-empty.
func (e Errors) HasErrors() bool {
	for _, messages := range e {
		if len(messages) > 0 {
			return true
		}
	}
	return false
}

// Fields returns the field names with at least one message, sorted.
func (e Errors) Fields() []string {
	var out []string
	for field, messages := range e {
		if len(messages) > 0 {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

func (v Values) clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = deepCopy(val)
	}
	return out
}

func (e Errors) clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for k, messages := range e {
		out[k] = cloneMessages(messages)
	}
	return out
}

func (t Touched) clone() Touched {
	if t == nil {
		return nil
	}
	out := make(Touched, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func cloneMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	return append([]string(nil), messages...)
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

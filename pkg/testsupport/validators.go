package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formstate/pkg/validation"
)

// ScriptedValidator hands out canned results in order and records the values
// it was called with. Once the script runs out, the last entry repeats.
type ScriptedValidator struct {
	mu      sync.Mutex
	results []map[string][]string
	errs    []error
	calls   []map[string]any
}

// NewScriptedValidator builds a validator that returns results in order.
func NewScriptedValidator(results ...map[string][]string) *ScriptedValidator {
	return &ScriptedValidator{results: results}
}

// FailWith queues a fault for the next call.
func (s *ScriptedValidator) FailWith(err error) *ScriptedValidator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return s
}

// Func returns the validator as a validation.ValidateFunc.
func (s *ScriptedValidator) Func() validation.ValidateFunc {
	return s.validate
}

// Calls returns the value snapshots seen so far.
func (s *ScriptedValidator) Calls() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.calls...)
}

func (s *ScriptedValidator) validate(_ context.Context, values map[string]any) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, values)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if len(s.results) == 0 {
		return nil, errors.New("testsupport: no result scripted")
	}
	out := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return out, nil
}

// Gate is one SafeParse call held by a GatedSchema.
type Gate struct {
	Values  map[string]any
	release chan struct{}
	once    sync.Once
}

// Release lets the held call run the wrapped schema and return.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// GatedSchema wraps a schema and holds every SafeParse call until the test
// releases it, so tests can choose the order overlapping validations finish
// in.
type GatedSchema struct {
	inner validation.Schema
	calls chan *Gate
}

// NewGatedSchema wraps inner.
func NewGatedSchema(inner validation.Schema) *GatedSchema {
	return &GatedSchema{inner: inner, calls: make(chan *Gate, 16)}
}

// SafeParse blocks until the matching Gate is released or ctx is done.
func (g *GatedSchema) SafeParse(ctx context.Context, values map[string]any) (validation.Result, error) {
	gate := &Gate{Values: values, release: make(chan struct{})}
	select {
	case g.calls <- gate:
	case <-ctx.Done():
		return validation.Result{}, ctx.Err()
	}
	select {
	case <-gate.release:
	case <-ctx.Done():
		return validation.Result{}, ctx.Err()
	}
	return g.inner.SafeParse(ctx, values)
}

// Next waits for the next held call.
func (g *GatedSchema) Next(t *testing.T) *Gate {
	t.Helper()
	select {
	case gate := <-g.calls:
		return gate
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for validation call")
		return nil
	}
}

package formstate

import "context"

type controllerKey struct{}

// WithController returns a context that carries c. Only code handed the
// returned context (or one derived from it) can look the controller up.
func WithController(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerKey{}, c)
}

// FromContext returns the controller published with WithController.
func FromContext(ctx context.Context) (*Controller, error) {
	if ctx == nil {
		return nil, ErrNoController
	}
	c, ok := ctx.Value(controllerKey{}).(*Controller)
	if !ok || c == nil {
		return nil, ErrNoController
	}
	return c, nil
}

// MustFromContext is like FromContext but panics when no controller was
// published.
func MustFromContext(ctx context.Context) *Controller {
	c, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return c
}

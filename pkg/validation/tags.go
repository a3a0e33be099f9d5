package validation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagSchema validates each field with a go-playground/validator tag
// expression such as "required,email" or "gte=18".
type TagSchema struct {
	validate *validator.Validate
	fields   []string
	tags     map[string]string
}

var _ Schema = (*TagSchema)(nil)

// TagOption configures a TagSchema.
type TagOption func(*TagSchema)

// WithValidator supplies a preconfigured validator instance, for example one
// with custom validations registered.
func WithValidator(v *validator.Validate) TagOption {
	return func(s *TagSchema) {
		if v != nil {
			s.validate = v
		}
	}
}

// NewTagSchema builds a TagSchema from field → tag expressions.
func NewTagSchema(tags map[string]string, opts ...TagOption) (*TagSchema, error) {
	s := &TagSchema{
		tags: make(map[string]string, len(tags)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validate == nil {
		s.validate = validator.New()
	}

	for name, tag := range tags {
		field := strings.TrimSpace(name)
		if field == "" {
			return nil, errors.New("validation: tag schema defines an empty field name")
		}
		expr := strings.TrimSpace(tag)
		if expr == "" {
			continue
		}
		s.tags[field] = expr
		s.fields = append(s.fields, field)
	}
	sort.Strings(s.fields)
	return s, nil
}

// SafeParse evaluates every tagged field. Tag violations become issues; a
// malformed tag or unsupported value surfaces as an error.
func (s *TagSchema) SafeParse(ctx context.Context, values map[string]any) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s == nil {
		return Pass(), nil
	}

	// validator panics on undefined tags; report that as a fault
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("validation: tag schema: %v", r)
		}
	}()

	var issues []Issue
	for _, field := range s.fields {
		verr := s.validate.VarCtx(ctx, values[field], s.tags[field])
		if verr == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(verr, &fieldErrs) {
			return Result{}, fmt.Errorf("validation: field %q: %w", field, verr)
		}
		for _, fe := range fieldErrs {
			issues = append(issues, Issue{
				Path:    joinPointer([]string{field}),
				Field:   field,
				Code:    fe.Tag(),
				Message: tagMessage(fe.Tag(), fe.Param()),
			})
		}
	}
	if len(issues) == 0 {
		return Pass(), nil
	}
	return Fail(issues...), nil
}

func tagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "len":
		return "must have length " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "alphanum":
		return "must contain only letters and digits"
	case "numeric", "number":
		return "must be numeric"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s=%s", tag, param)
		}
		return "failed " + tag
	}
}

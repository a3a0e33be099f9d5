package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Canonical rule identifiers, reported as Issue.Code.
const (
	RuleRequired  = "required"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleEnum      = "enum"
	RuleFormat    = "format"
	RuleType      = "type"
)

// Formats RuleSchema understands.
const (
	FormatEmail = "email"
	FormatURL   = "url"
	FormatUUID  = "uuid"
)

var formatMessages = map[string]string{
	FormatEmail: "must be a valid email address",
	FormatURL:   "must be a valid URL",
	FormatUUID:  "must be a valid UUID",
}

// patternTag is registered on every RuleSchema validator. Its parameter is the
// index of the compiled expression in RuleSchema.patterns.
const patternTag = "pattern"

// Rules lists the constraints applied to a single field. Numeric bounds apply
// to numbers; length bounds apply to strings (in characters) and to slices.
type Rules struct {
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enum      []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
	Format    string   `json:"format,omitempty" yaml:"format,omitempty"`
}

// constraint is one rule compiled to a validator tag.
type constraint struct {
	code    string
	tag     string
	message string
}

type compiledRules struct {
	required   bool
	text       []constraint
	number     []constraint
	collection []constraint
}

// RuleSchema validates values against per-field Rules. Each rule is compiled
// to a go-playground/validator tag and evaluated on its own, so a field
// reports every rule it breaks.
type RuleSchema struct {
	validate *validator.Validate
	fields   []string
	rules    map[string]compiledRules
	patterns []*regexp.Regexp
}

var _ Schema = (*RuleSchema)(nil)

// NewRuleSchema compiles the rule set. Invalid patterns, unknown formats and
// enum options the validator cannot express are reported immediately.
func NewRuleSchema(rules map[string]Rules) (*RuleSchema, error) {
	s := &RuleSchema{
		validate: validator.New(),
		rules:    make(map[string]compiledRules, len(rules)),
	}
	if err := s.validate.RegisterValidation(patternTag, s.matchPattern); err != nil {
		return nil, fmt.Errorf("validation: register pattern: %w", err)
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := strings.TrimSpace(name)
		if field == "" {
			return nil, fmt.Errorf("validation: rule set defines an empty field name")
		}
		compiled, err := s.compile(rules[name])
		if err != nil {
			return nil, fmt.Errorf("validation: field %q: %w", field, err)
		}
		s.rules[field] = compiled
		s.fields = append(s.fields, field)
	}
	sort.Strings(s.fields)
	return s, nil
}

func (s *RuleSchema) compile(r Rules) (compiledRules, error) {
	out := compiledRules{required: r.Required}

	if r.MinLength != nil {
		n := *r.MinLength
		out.text = append(out.text, constraint{RuleMinLength, "min=" + strconv.Itoa(n), fmt.Sprintf("must be at least %d characters", n)})
		out.collection = append(out.collection, constraint{RuleMinLength, "min=" + strconv.Itoa(n), fmt.Sprintf("must be at least %d items", n)})
	}
	if r.MaxLength != nil {
		n := *r.MaxLength
		out.text = append(out.text, constraint{RuleMaxLength, "max=" + strconv.Itoa(n), fmt.Sprintf("must be at most %d characters", n)})
		out.collection = append(out.collection, constraint{RuleMaxLength, "max=" + strconv.Itoa(n), fmt.Sprintf("must be at most %d items", n)})
	}
	if expr := strings.TrimSpace(r.Pattern); expr != "" {
		re, err := regexp.Compile(expr)
		if err != nil {
			return compiledRules{}, fmt.Errorf("pattern: %w", err)
		}
		s.patterns = append(s.patterns, re)
		tag := patternTag + "=" + strconv.Itoa(len(s.patterns)-1)
		out.text = append(out.text, constraint{RulePattern, tag, "does not match the required pattern"})
	}
	if format := strings.ToLower(strings.TrimSpace(r.Format)); format != "" {
		message, ok := formatMessages[format]
		if !ok {
			return compiledRules{}, fmt.Errorf("unsupported format %q", r.Format)
		}
		out.text = append(out.text, constraint{RuleFormat, format, message})
	}

	if r.Min != nil {
		out.number = append(out.number, constraint{RuleMin, "gte=" + formatNumber(*r.Min), "must be at least " + formatNumber(*r.Min)})
	}
	if r.Max != nil {
		out.number = append(out.number, constraint{RuleMax, "lte=" + formatNumber(*r.Max), "must be at most " + formatNumber(*r.Max)})
	}

	if len(r.Enum) > 0 {
		tag, err := oneOfTag(r.Enum)
		if err != nil {
			return compiledRules{}, err
		}
		enum := constraint{RuleEnum, tag, "must be one of: " + joinEnum(r.Enum)}
		out.text = append(out.text, enum)
		out.number = append(out.number, enum)
	}
	return out, nil
}

// MustRuleSchema is NewRuleSchema that panics on error. Useful for tests and
// package-level schema variables.
func MustRuleSchema(rules map[string]Rules) *RuleSchema {
	s, err := NewRuleSchema(rules)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the field names that carry rules, sorted.
func (s *RuleSchema) Fields() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.fields...)
}

// SafeParse checks every ruled field of values. Broken rules become issues;
// only a context error or a validator fault is returned as an error.
func (s *RuleSchema) SafeParse(ctx context.Context, values map[string]any) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s == nil {
		return Pass(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("validation: rule schema: %v", r)
		}
	}()

	var issues []Issue
	for _, field := range s.fields {
		found, err := s.check(ctx, s.rules[field], values[field])
		if err != nil {
			return Result{}, fmt.Errorf("validation: field %q: %w", field, err)
		}
		for _, issue := range found {
			issue.Field = field
			issue.Path = joinPointer([]string{field})
			issues = append(issues, issue)
		}
	}
	if len(issues) == 0 {
		return Pass(), nil
	}
	return Fail(issues...), nil
}

// check applies the constraints matching the kind of value. A missing value,
// a blank string or an empty collection only ever breaks the required rule.
func (s *RuleSchema) check(ctx context.Context, r compiledRules, value any) ([]Issue, error) {
	required := []Issue{{Code: RuleRequired, Message: "is required"}}
	if isMissing(value) {
		if r.required {
			return required, nil
		}
		return nil, nil
	}

	var (
		subject     any
		constraints []constraint
	)
	switch typed := value.(type) {
	case string:
		broken, err := s.breaks(ctx, strings.TrimSpace(typed), "required")
		if err != nil || broken {
			if r.required && err == nil {
				return required, nil
			}
			return nil, err
		}
		subject, constraints = typed, r.text
	case bool:
		return nil, nil
	default:
		if n, ok := toFloat(value); ok {
			subject, constraints = n, r.number
			break
		}
		switch reflect.ValueOf(value).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			broken, err := s.breaks(ctx, value, "min=1")
			if err != nil || broken {
				if r.required && err == nil {
					return required, nil
				}
				return nil, err
			}
			subject, constraints = value, r.collection
		default:
			return nil, nil
		}
	}

	var issues []Issue
	for _, c := range constraints {
		target := subject
		if c.code == RuleEnum {
			if n, ok := subject.(float64); ok {
				target = formatNumber(n)
			}
		}
		broken, err := s.breaks(ctx, target, c.tag)
		if err != nil {
			return nil, err
		}
		if broken {
			issues = append(issues, Issue{Code: c.code, Message: c.message})
		}
	}
	return issues, nil
}

// breaks reports whether value fails tag.
func (s *RuleSchema) breaks(ctx context.Context, value any, tag string) (bool, error) {
	err := s.validate.VarCtx(ctx, value, tag)
	if err == nil {
		return false, nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return true, nil
	}
	return false, err
}

func (s *RuleSchema) matchPattern(fl validator.FieldLevel) bool {
	idx, err := strconv.Atoi(fl.Param())
	if err != nil || idx < 0 || idx >= len(s.patterns) {
		return false
	}
	return s.patterns[idx].MatchString(fl.Field().String())
}

// oneOfTag renders enum options as a oneof tag. Options are quoted when they
// hold spaces; commas and pipes use the validator's hex escapes.
func oneOfTag(options []any) (string, error) {
	parts := make([]string, 0, len(options))
	for _, option := range options {
		text := enumText(option)
		if strings.Contains(text, "'") {
			return "", fmt.Errorf("enum option %q cannot contain a single quote", text)
		}
		text = strings.NewReplacer(",", "0x2C", "|", "0x7C").Replace(text)
		if text == "" || strings.ContainsAny(text, " \t\n") {
			text = "'" + text + "'"
		}
		parts = append(parts, text)
	}
	return "oneof=" + strings.Join(parts, " "), nil
}

func isMissing(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func joinEnum(options []any) string {
	parts := make([]string, 0, len(options))
	for _, option := range options {
		parts = append(parts, enumText(option))
	}
	return strings.Join(parts, ", ")
}

func enumText(option any) string {
	if f, ok := toFloat(option); ok {
		return formatNumber(f)
	}
	return fmt.Sprint(option)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

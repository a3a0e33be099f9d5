// Package render formats controller snapshots as text through pongo2
// templates.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/formstate"
)

//go:embed templates/*.tpl
var builtinTemplates embed.FS

const summaryTemplate = "summary"

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
	defaultEngineErr  error
)

// TemplatesFS returns the built-in templates, rooted at the template
// directory ("summary.tpl").
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(builtinTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("render: builtin templates: %v", err))
	}
	return sub
}

func builtinEngine() (*Engine, error) {
	defaultEngineOnce.Do(func() {
		defaultEngine, defaultEngineErr = NewEngine(WithFS(TemplatesFS()))
	})
	return defaultEngine, defaultEngineErr
}

// Option configures Summary.
type Option func(*summaryConfig)

type summaryConfig struct {
	title    string
	order    []string
	template string
	engine   *Engine
}

// WithTitle sets the first line of the summary. Default: "Form".
func WithTitle(title string) Option {
	return func(c *summaryConfig) {
		c.title = title
	}
}

// WithFieldOrder lists fields in the given order; fields left out follow in
// alphabetical order.
func WithFieldOrder(fields ...string) Option {
	return func(c *summaryConfig) {
		c.order = append([]string(nil), fields...)
	}
}

// WithTemplate renders src instead of the builtin summary template.
func WithTemplate(src string) Option {
	return func(c *summaryConfig) {
		c.template = src
	}
}

// WithEngine renders through engine. Combined with WithTemplate, src is
// rendered as a string; otherwise engine must provide a "summary" template.
func WithEngine(engine *Engine) Option {
	return func(c *summaryConfig) {
		c.engine = engine
	}
}

// Summary renders bag as text. The template receives:
//
//	title                   string
//	fields                  list of {name, value, touched, errors}
//	valid, dirty            "yes" or "no"
//	submitting, validating  "yes" or "no"
//	attempts, failures, successes  counters
//
// Values are rendered as JSON.
func Summary(bag formstate.Bag, opts ...Option) (string, error) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, bag, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteSummary renders bag to w. See Summary.
func WriteSummary(w io.Writer, bag formstate.Bag, opts ...Option) error {
	cfg := &summaryConfig{title: "Form"}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	engine := cfg.engine
	if engine == nil {
		var err error
		if engine, err = builtinEngine(); err != nil {
			return err
		}
	}

	data, err := summaryData(bag, cfg)
	if err != nil {
		return err
	}

	var out string
	if cfg.template != "" {
		out, err = engine.RenderString(cfg.template, data)
	} else {
		out, err = engine.RenderTemplate(summaryTemplate, data)
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, strings.TrimRight(out, "\n")+"\n")
	return err
}

type fieldRow struct {
	Name    string   `json:"name"`
	Value   string   `json:"value"`
	Touched bool     `json:"touched"`
	Errors  []string `json:"errors"`
}

func summaryData(bag formstate.Bag, cfg *summaryConfig) (map[string]any, error) {
	rows := make([]fieldRow, 0, len(bag.Values))
	for _, name := range fieldOrder(bag.Values, cfg.order) {
		value, err := formatValue(bag.Values[name])
		if err != nil {
			return nil, fmt.Errorf("render: field %q: %w", name, err)
		}
		rows = append(rows, fieldRow{
			Name:    name,
			Value:   value,
			Touched: bag.Touched[name],
			Errors:  append([]string{}, bag.Errors[name]...),
		})
	}

	return map[string]any{
		"title":      cfg.title,
		"fields":     rows,
		"valid":      yesNo(bag.IsValid),
		"dirty":      yesNo(bag.IsDirty),
		"submitting": yesNo(bag.IsSubmitting),
		"validating": yesNo(bag.IsValidating),
		"attempts":   strconv.Itoa(bag.SubmitAttemptCount),
		"failures":   strconv.Itoa(bag.SubmitFailureCount),
		"successes":  strconv.Itoa(bag.SubmitSuccessCount),
	}, nil
}

func fieldOrder(values formstate.Values, preferred []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, name := range preferred {
		if _, ok := values[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var rest []string
	for name := range values {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func formatValue(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

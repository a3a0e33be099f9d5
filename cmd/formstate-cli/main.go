package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/zoobzio/capitan"

	formstate "github.com/goliatone/go-formstate"
	"github.com/goliatone/go-formstate/pkg/bind/tui"
	pkgformstate "github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func main() {
	form := flag.String("form", "", "form definition path or URL (YAML or JSON)")
	document := flag.String("openapi", "", "OpenAPI document path or URL, used with -operation")
	opID := flag.String("operation", "", "operation ID whose request body describes the form")
	output := flag.String("output", "", "write submitted values as JSON to this file")
	templatePath := flag.String("template", "", "pongo2 template used for the summary")
	jsonSchemaPath := flag.String("schema", "", "JSON Schema file that replaces the form's own validation")
	attempts := flag.Int("attempts", 3, "answers accepted per field before giving up")
	timeout := flag.Duration("timeout", 10*time.Second, "timeout for remote documents")
	verbose := flag.Bool("verbose", false, "log controller signals")
	flag.Parse()

	if (*form == "") == (*document == "") {
		log.Fatal("exactly one of -form or -openapi is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *verbose {
		hookSignals()
	}
	defer capitan.Shutdown()

	var submitted formstate.Values
	onSubmit := pkgformstate.WithOnSubmit(func(_ context.Context, bag formstate.Bag) error {
		submitted = bag.Values
		if *output != "" {
			data, err := json.MarshalIndent(bag.Values, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(*output, append(data, '\n'), 0o644); err != nil {
				return err
			}
		}
		bag.Actions.IncrementSubmitSuccess()
		return nil
	})
	onError := pkgformstate.WithErrorHandler(func(_ context.Context, field string, err error) {
		log.Printf("validation of %q failed: %v", field, err)
	})

	formOpts := []formstate.Option{onSubmit, onError}
	if *jsonSchemaPath != "" {
		raw, err := os.ReadFile(*jsonSchemaPath)
		if err != nil {
			log.Fatalf("Failed to read schema: %v", err)
		}
		schema, err := validation.NewJSONSchema(raw)
		if err != nil {
			log.Fatalf("Failed to compile schema: %v", err)
		}
		formOpts = append(formOpts, pkgformstate.WithSchema(schema))
	}

	f, err := loadForm(ctx, *form, *document, *opID, *timeout, formOpts...)
	if err != nil {
		log.Fatalf("Failed to load form: %v", err)
	}

	session, err := tui.NewSession(f.ctl,
		tui.WithPromptDriver(tui.NewSurveyDriver()),
		tui.WithPrompts(f.prompts...),
		tui.WithMaxAttempts(*attempts),
	)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	bag, err := session.Run(ctx)
	if errors.Is(err, tui.ErrAborted) {
		log.Println("aborted")
		return
	}
	if err != nil {
		log.Fatalf("Session failed: %v", err)
	}
	f.ctl.Wait()

	summaryOpts := []render.Option{render.WithTitle(f.title), render.WithFieldOrder(f.order...)}
	if *templatePath != "" {
		src, err := os.ReadFile(*templatePath)
		if err != nil {
			log.Fatalf("Failed to read template: %v", err)
		}
		summaryOpts = append(summaryOpts, render.WithTemplate(string(src)))
	}
	summary, err := render.Summary(bag, summaryOpts...)
	if err != nil {
		log.Fatalf("Failed to render summary: %v", err)
	}
	fmt.Print(summary)

	if submitted != nil && *output != "" {
		fmt.Printf("Values written to %s\n", *output)
	}
}

type loadedForm struct {
	ctl     *formstate.Controller
	prompts []tui.FieldPrompt
	title   string
	order   []string
}

func loadForm(ctx context.Context, form, document, opID string, timeout time.Duration, opts ...formstate.Option) (*loadedForm, error) {
	loaderOpts := []formstate.LoaderOption{formstate.WithHTTPFallback(timeout)}

	if form != "" {
		src, err := formstate.ParseSource(form)
		if err != nil {
			return nil, err
		}
		def, err := formstate.LoadDefinition(ctx, src, loaderOpts...)
		if err != nil {
			return nil, err
		}
		ctl, err := formstate.FromDefinition(def, opts...)
		if err != nil {
			return nil, err
		}
		title := def.Title
		if title == "" {
			title = def.ID
		}
		return &loadedForm{ctl: ctl, prompts: def.Prompts(), title: title, order: def.FieldNames()}, nil
	}

	if strings.TrimSpace(opID) == "" {
		return nil, errors.New("-operation is required with -openapi")
	}
	src, err := formstate.ParseSource(document)
	if err != nil {
		return nil, err
	}
	raw, err := formstate.LoadDocument(ctx, src, loaderOpts...)
	if err != nil {
		return nil, err
	}
	ctl, schema, err := formstate.FromOpenAPI(ctx, raw, opID, opts...)
	if err != nil {
		return nil, err
	}
	return &loadedForm{ctl: ctl, prompts: openAPIPrompts(schema), title: opID, order: schema.Fields()}, nil
}

func openAPIPrompts(schema *validation.OpenAPISchema) []tui.FieldPrompt {
	props := schema.Properties()
	out := make([]tui.FieldPrompt, 0, len(props))
	for _, prop := range props {
		prompt := tui.FieldPrompt{Field: prop.Name, Label: prop.Title, Help: prop.Description}
		if prompt.Label == "" {
			prompt.Label = prop.Name
		}
		switch {
		case len(prop.Enum) > 0:
			prompt.Kind = tui.KindSelect
			prompt.Options = prop.Enum
		case prop.Type == "integer":
			prompt.Kind = tui.KindInteger
		case prop.Type == "number":
			prompt.Kind = tui.KindNumber
		case prop.Type == "boolean":
			prompt.Kind = tui.KindConfirm
		case prop.Format == "password":
			prompt.Kind = tui.KindPassword
		default:
			prompt.Kind = tui.KindText
		}
		out = append(out, prompt)
	}
	return out
}

func hookSignals() {
	logAs := func(name string) func(context.Context, *capitan.Event) {
		return func(_ context.Context, e *capitan.Event) {
			parts := []string{name}
			if field, ok := pkgformstate.KeyField.From(e); ok && field != "" {
				parts = append(parts, "field="+field)
			}
			if attempt, ok := pkgformstate.KeyAttempt.From(e); ok {
				parts = append(parts, fmt.Sprintf("attempt=%d", attempt))
			}
			if count, ok := pkgformstate.KeyErrorCount.From(e); ok {
				parts = append(parts, fmt.Sprintf("errors=%d", count))
			}
			if msg, ok := pkgformstate.KeyError.From(e); ok {
				parts = append(parts, "error="+msg)
			}
			log.Println(strings.Join(parts, " "))
		}
	}

	capitan.Hook(pkgformstate.FieldChanged, logAs("field changed"))
	capitan.Hook(pkgformstate.FieldTouched, logAs("field touched"))
	capitan.Hook(pkgformstate.FormReset, logAs("form reset"))
	capitan.Hook(pkgformstate.ValidationStarted, logAs("validation started"))
	capitan.Hook(pkgformstate.ValidationCompleted, logAs("validation completed"))
	capitan.Hook(pkgformstate.ValidationFaulted, logAs("validation faulted"))
	capitan.Hook(pkgformstate.SubmitAttempted, logAs("submit attempted"))
	capitan.Hook(pkgformstate.SubmitFailed, logAs("submit failed"))
	capitan.Hook(pkgformstate.SubmitSucceeded, logAs("submit succeeded"))
	capitan.Hook(pkgformstate.SubmitFaulted, logAs("submit faulted"))
}

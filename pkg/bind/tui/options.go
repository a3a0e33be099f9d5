package tui

// Theme captures optional formatting hints applied to messages the session
// prints.
type Theme struct {
	ErrorPrefix string
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithPrompts sets the prompts to ask, in order. Fields of the controller
// without a prompt are not asked.
func WithPrompts(prompts ...FieldPrompt) Option {
	return func(s *Session) {
		s.prompts = append([]FieldPrompt(nil), prompts...)
	}
}

// WithMaxAttempts bounds how often a single field is asked again while it
// holds errors. Zero or less means no bound.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		s.maxAttempts = n
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

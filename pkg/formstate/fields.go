package formstate

import "github.com/zoobzio/capitan"

// Field keys for controller events.
var (
	// KeyField is the field a change or validation applies to. Empty for
	// full-form validations.
	KeyField = capitan.NewStringKey("field")

	// KeyValidator names the validator kind: "function" or "schema".
	KeyValidator = capitan.NewStringKey("validator")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyErrorCount is the number of fields holding errors after a validation.
	KeyErrorCount = capitan.NewIntKey("error_count")

	// KeyAttempt is the submit attempt counter value.
	KeyAttempt = capitan.NewIntKey("attempt")
)

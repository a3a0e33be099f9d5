package formstate

import "github.com/zoobzio/capitan"

// State change signals.
var (
	// FieldChanged is emitted when a field value is written.
	FieldChanged = capitan.NewSignal(
		"formstate.field.changed",
		"Field value written",
	)

	// FieldTouched is emitted when a field touched flag is written.
	FieldTouched = capitan.NewSignal(
		"formstate.field.touched",
		"Field touched flag written",
	)

	// FormReset is emitted when ResetForm restores a snapshot.
	FormReset = capitan.NewSignal(
		"formstate.reset",
		"Form state reset",
	)
)

// Validation signals.
var (
	// ValidationStarted is emitted before the validator runs.
	ValidationStarted = capitan.NewSignal(
		"formstate.validation.started",
		"Validation started",
	)

	// ValidationCompleted is emitted after the validator result was written.
	ValidationCompleted = capitan.NewSignal(
		"formstate.validation.completed",
		"Validation result written",
	)

	// ValidationFaulted is emitted when the validator itself fails.
	ValidationFaulted = capitan.NewSignal(
		"formstate.validation.faulted",
		"Validator failed",
	)
)

// Submission signals.
var (
	// SubmitAttempted is emitted when the submission pipeline starts.
	SubmitAttempted = capitan.NewSignal(
		"formstate.submit.attempted",
		"Submission attempted",
	)

	// SubmitFailed is emitted when validation blocks a submission.
	SubmitFailed = capitan.NewSignal(
		"formstate.submit.failed",
		"Submission blocked by validation errors",
	)

	// SubmitSucceeded is emitted after the submit callback returned.
	SubmitSucceeded = capitan.NewSignal(
		"formstate.submit.succeeded",
		"Submission completed",
	)

	// SubmitFaulted is emitted when the submit callback returns an error.
	SubmitFaulted = capitan.NewSignal(
		"formstate.submit.faulted",
		"Submit callback failed",
	)
)

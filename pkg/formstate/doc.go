// Package formstate tracks the state of a single form: field values, error
// lists, touched flags and the submission lifecycle.
//
// A Controller is built from the form's initial values, whose keys fix the
// set of fields. Values, errors and touched flags are exposed as observables
// (see package observable) so views can subscribe to them; IsValid and
// IsDirty are derived and cannot be set.
//
// Validation is delegated to a collaborator from package validation: either a
// ValidateFunc, whose result replaces the whole errors state, or a Schema,
// whose result is merged per field. Field setters start validations in the
// background; HandleSubmit runs a full validation and waits for it before
// calling the submit callback.
//
// Lifecycle events are emitted as capitan signals (FieldChanged,
// ValidationCompleted, SubmitFailed, ...) so hosts can observe the controller
// without wrapping it.
package formstate

// Package validation defines the validator collaborators a form controller
// consults. Two shapes exist: a ValidateFunc that returns a complete error
// mapping for all fields, and a Schema whose SafeParse reports problems as a
// Result of issues keyed by field.
//
// Four Schema implementations ship with the package. RuleSchema evaluates the
// canonical field constraints (required, min/max, minLength/maxLength,
// pattern, enum, email/url/uuid format) through go-playground/validator.
// JSONSchema validates against a JSON Schema document. OpenAPISchema
// validates values against an object schema loaded with kin-openapi,
// typically the JSON request body of an operation. TagSchema evaluates go-playground/validator tag expressions per
// field.
//
// MapErrorPayload normalises server-side error payloads (JSON pointers,
// dotted paths, wrapper segments such as "body" or "data") onto known field
// names so they can be injected into a controller with SetErrors.
package validation

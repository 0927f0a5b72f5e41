// Package validation checks inbound requests and configuration.
//
// Struct tags on request bodies are checked with go-playground/validator
// and reported as INVALID_INPUT AppErrors carrying a "fields" detail:
//
//	type JobRequest struct {
//	    Source string `json:"source" validate:"required,max=4096,no_control_chars"`
//	}
//	err := validation.Validate(req)
//
// Config sections collect field errors with Validator:
//
//	return validation.New().
//	    OneOf("backend", c.Backend, backends).
//	    NonNegative("timeout", c.Timeout).
//	    Err()
package validation

package source

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/mediascribe/validation"
)

func init() {
	names := make([]string, 0, len(Selectors()))
	for _, sel := range Selectors() {
		names = append(names, sel.String())
	}
	// Accepts what ParseSelector accepts, so "Small" and " tiny " pass too.
	validation.MustRegisterValidation("model_selector", "must be one of: "+strings.Join(names, ", "),
		func(fl validator.FieldLevel) bool {
			_, err := ParseSelector(fl.Field().String())
			return err == nil
		})
}

// Request is a transcription request as submitted by a caller. Source is a
// URL or a local file path; which one is decided by Classify.
type Request struct {
	Source string `json:"source" yaml:"source" validate:"required,max=4096,no_control_chars"`
	Model  string `json:"model,omitempty" yaml:"model" validate:"model_selector"`
}

// Validate checks the request shape. It returns an INVALID_INPUT AppError.
func (r Request) Validate() error {
	return validation.Validate(r)
}

// Selector returns the parsed model selector.
func (r Request) Selector() (Selector, error) {
	return ParseSelector(r.Model)
}

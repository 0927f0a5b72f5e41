package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/mediascribe/errors"
)

var (
	structs     *validator.Validate
	structsOnce sync.Once

	messagesMu sync.RWMutex
	messages   = map[string]string{
		"no_control_chars": "must not contain control characters",
	}
)

func structValidator() *validator.Validate {
	structsOnce.Do(func() {
		structs = validator.New(validator.WithRequiredStructEnabled())
		_ = structs.RegisterValidation("no_control_chars", noControlChars)
		structs.RegisterTagNameFunc(jsonName)
	})
	return structs
}

// RegisterValidation adds a custom tag and the message shown when it fails.
// Packages that own a vocabulary register their tag from init, as source
// does for "model_selector".
func RegisterValidation(tag, message string, fn validator.Func) error {
	if err := structValidator().RegisterValidation(tag, fn); err != nil {
		return err
	}
	messagesMu.Lock()
	messages[tag] = message
	messagesMu.Unlock()
	return nil
}

// MustRegisterValidation is RegisterValidation for package init; it panics
// when the tag cannot be registered.
func MustRegisterValidation(tag, message string, fn validator.Func) {
	if err := RegisterValidation(tag, message, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Validate checks s against its validate tags. Every failing field is
// listed in one INVALID_INPUT AppError, whose "fields" detail holds them as
// FieldErrors named by their JSON keys.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	failed, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	v := New()
	for _, fe := range failed {
		v.AddError(fe.Field(), describe(fe))
	}
	return errors.Validation(v.Err().Error()).WithDetail("fields", v.Errors())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	messagesMu.RLock()
	defer messagesMu.RUnlock()
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	return "is invalid"
}

// jsonName names fields by the key clients send, falling back to the snake
// case of the Go name.
func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return toSnakeCase(fld.Name)
	}
	return name
}

// toSnakeCase turns MaxWait into max_wait.
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func noControlChars(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}

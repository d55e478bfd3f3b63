package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength bounds todo titles
	MaxTitleLength = 500
	// MaxDescriptionLength bounds todo descriptions
	MaxDescriptionLength = 10000
	// MaxUsernameLength bounds login names
	MaxUsernameLength = 100
	// MaxChatMessageLength bounds a single chat message
	MaxChatMessageLength = 2000
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	if err := Validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
	if err := Validate.RegisterValidation("chat_action", validateChatAction); err != nil {
		panic(fmt.Sprintf("failed to register chat_action validator: %v", err))
	}
}

// validateNotBlank rejects strings that are empty after trimming
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateChatAction accepts any non-blank label. Quick-reply labels are
// free text, so only emptiness and size are checked.
func validateChatAction(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	return value != "" && len(value) <= 200
}

// FirstError renders the first field failure of a validator error as a
// short client-facing message.
func FirstError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "notblank":
			return fmt.Sprintf("%s is required", field)
		case "max":
			return fmt.Sprintf("%s exceeds maximum length of %s characters", field, fe.Param())
		default:
			return fmt.Sprintf("Validation failed: %s", fe.Error())
		}
	}
	return "Validation failed"
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// SanitizeOptional applies SanitizeText to an optional field and maps an
// empty result to nil.
func SanitizeOptional(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := SanitizeText(*text)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

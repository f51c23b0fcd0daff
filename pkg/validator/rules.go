package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagTrimmed  = "trimmed"  // no leading or trailing whitespace
	TagNotBlank = "notblank" // at least one non-whitespace character
)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagTrimmed, validateTrimmed)
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
}

func validateTrimmed(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == strings.TrimSpace(value)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

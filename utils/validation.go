// utils/validation.go
package utils

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(CleanPhone(phone))
}

// CleanPhone strips spaces, dashes and brackets
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(phone)
}

// RegisterValidators adds the custom binding rules to gin's validator
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String())
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := ParseClock(fl.Field().String())
		return err == nil
	})
}

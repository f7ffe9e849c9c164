package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var passwordStrength = regexp.MustCompile(`[A-Z0-9]`)

// NewValidator returns a validator with the shop's custom rules:
// ke_phone accepts anything that normalizes to 254XXXXXXXXX and
// password_strength requires an uppercase letter or a digit.
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("ke_phone", func(fl validator.FieldLevel) bool {
		return IsValidMsisdn(NormalizePhone(fl.Field().String()))
	})
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return passwordStrength.MatchString(fl.Field().String())
	})

	return v
}

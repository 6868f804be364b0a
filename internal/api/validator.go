// validator.go - Request struct validation for Echo
package api

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Usage: e.Validator = api.NewRequestValidator()
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator that reads `validate` struct tags.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

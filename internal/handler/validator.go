package handler

import "github.com/go-playground/validator/v10"

// RequestValidator plugs go-playground/validator into echo.Echo.Validator so
// handlers can call c.Validate on bound request structs.
type RequestValidator struct {
	v *validator.Validate
}

// NewValidator returns a validator with required-struct checking enabled.
func NewValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate runs the `validate` tags of i.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// validator.go - Request body validation
package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Usage: e.Validator = api.NewRequestValidator()
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator reporting json field names.
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate returns a VALIDATION_ERROR naming the first failing field.
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewBadRequestError("invalid request", err)
	}

	apiErr := NewValidationError(verrs[0].Field())
	var rules []string
	for _, fe := range verrs {
		rules = append(rules, fe.Field()+":"+fe.Tag())
	}
	apiErr.Details = strings.Join(rules, ", ")
	return apiErr
}

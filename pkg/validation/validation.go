package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a rejected input field. It is always reported to the caller and never retried.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Required(field string) *Error {
	return &Error{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

func Invalid(field string, message string) *Error {
	return &Error{Field: field, Message: message}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their wire names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Struct checks the `validate` tags of s and returns the first failing field as an *Error
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}

	fieldError := fieldErrors[0]
	if fieldError.Tag() == "required" {
		return Required(fieldError.Field())
	}

	return Invalid(fieldError.Field(), fmt.Sprintf("%s is invalid", fieldError.Field()))
}

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xelth-com/mprgo/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks value against its validate tags
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(err)
	}
	return value, nil
}

// ValidateValue checks a single value against a tag expression
func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ValidationErrorToString(err)
	}
	return nil
}

// ValidationErrorToString turns validator field errors into a Validation error
// naming each offending JSON path
func ValidationErrorToString(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if field == "" {
			field = fe.Field()
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", field, fe.Tag()))
		}
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// DecodeJSON reads one JSON document into dst
func DecodeJSON(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// BindJSON decodes and validates a request body
func BindJSON[T any](r io.Reader) (T, error) {
	var v T
	if err := DecodeJSON(r, &v); err != nil {
		return v, err
	}
	return Validate(v)
}

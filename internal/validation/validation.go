// Package validation binds and validates request data.
//
// Payload types carry `validate` struct tags and implement Validatable by
// calling Struct. BindAndValidate runs both steps and reports failures as a
// 400 *errs.HTTPError with field-level errors keyed by JSON name.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/deppfellow/postboard/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validatable is implemented by request payloads that validate themselves.
type Validatable interface {
	Validate() error
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names in its errors are the
// JSON names ("user_id", not "UserID").
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return Validator().Struct(s)
}

// BindAndValidate binds path params and body into payload and validates it.
//
// Bind failures (malformed JSON, wrong types, non-integer path ids) and
// validation failures both come back as a 4xx *errs.HTTPError.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return bindError(err)
	}

	if msg, fieldErrors := validateStruct(payload); fieldErrors != nil {
		return errs.NewBadRequestError(msg, true, nil, fieldErrors)
	}

	return nil
}

// bindError converts echo binder errors. Path and query binding failures
// arrive as *echo.BindingError, body decoding failures as *echo.HTTPError.
func bindError(err error) error {
	var bindingErr *echo.BindingError
	if errors.As(err, &bindingErr) {
		fieldErrors := []errs.FieldError{{
			Field: bindingErr.Field,
			Error: "has an invalid value",
		}}
		return errs.NewBadRequestError(fmt.Sprintf("Invalid %s", bindingErr.Field), true, nil, fieldErrors).WithCause(err)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := fmt.Sprint(httpErr.Message)
		if httpErr.Code != http.StatusBadRequest {
			return &errs.HTTPError{
				Code:     errs.MakeUpperCaseWithUnderscores(http.StatusText(httpErr.Code)),
				Message:  message,
				Status:   httpErr.Code,
				Override: true,
				Cause:    err,
			}
		}
		return errs.NewBadRequestError(message, false, nil, nil).WithCause(err)
	}

	return errs.NewBadRequestError("Invalid request", false, nil, nil).WithCause(err)
}

func validateStruct(v Validatable) (string, []errs.FieldError) {
	if err := v.Validate(); err != nil {
		return extractValidationError(err)
	}
	return "", nil
}

func extractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Validation failed", []errs.FieldError{{Error: err.Error()}}
	}

	for _, fe := range validationErrors {
		field := fe.Field()
		var msg string

		switch fe.Tag() {
		case "required":
			msg = "is required"

		default:
			if fe.Param() != "" {
				msg = fmt.Sprintf("%s: %s:%s", field, fe.Tag(), fe.Param())
			} else {
				msg = fmt.Sprintf("%s: %s", field, fe.Tag())
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{Field: field, Error: msg})
	}

	return "Validation failed", fieldErrors
}

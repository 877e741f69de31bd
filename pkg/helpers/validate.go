package helpers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator creates a new validator. Struct tag names are reported by
// their json tag rather than the Go field name, so a failing
// PresentationDefinition or AuthorizationRequest check reads the way the
// wire document does.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	return validate, nil
}

// CheckSimple runs struct-tag validation (the "validate" tags on
// pkg/model's Definition/Request/Response types and on
// pkg/configuration's Cfg, which Load checks) and wraps any failure as
// *Error.
func CheckSimple(s any) error {
	validate, err := NewValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(s); err != nil {
		return NewErrorFromError(err)
	}

	return nil
}

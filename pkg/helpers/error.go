package helpers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"
)

var (
	// ErrInvalidDefinition is an *Error titled INVALID_DEFINITION.
	// CheckSimple does not return it; its struct-validation failures are
	// built by NewErrorFromError.
	ErrInvalidDefinition = NewError("INVALID_DEFINITION")

	// ErrInvalidConfiguration is an *Error titled INVALID_CONFIGURATION.
	// CheckSimple does not return it; configuration.Load returns a new
	// *Error with the same title when neither response_uri nor
	// redirect_uri is set.
	ErrInvalidConfiguration = NewError("INVALID_CONFIGURATION")

	// ErrInternalServerError error for internal server error
	ErrInternalServerError = NewError("INTERNAL_SERVER_ERROR")
)

// Error is a struct that represents an error
type Error struct {
	Title string `json:"title"`
	Err   any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("Error: [%s] %+v", e.Title, e.Err)
	}
	return fmt.Sprintf("Error: [%s]", e.Title)
}

// ErrorResponse is a struct that represents an error response in JSON from REST API
type ErrorResponse struct {
	Error *Error `json:"error"`
}

func NewError(title string) *Error {
	return &Error{Title: title}
}

func NewErrorDetails(title string, err any) *Error {
	return &Error{Title: title, Err: err}
}

// NewErrorFromError creates a new Error from an error
func NewErrorFromError(err error) *Error {
	if err == nil {
		return nil
	}

	if pbErr, ok := err.(*Error); ok {
		return pbErr
	}

	if jsonUnmarshalTypeError, ok := err.(*json.UnmarshalTypeError); ok {
		return &Error{Title: "json_type_error", Err: formatJSONUnmarshalTypeError(jsonUnmarshalTypeError)}
	}
	if jsonSyntaxError, ok := err.(*json.SyntaxError); ok {
		return &Error{Title: "json_syntax_error", Err: map[string]any{"position": jsonSyntaxError.Offset, "error": jsonSyntaxError.Error()}}
	}
	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		return &Error{Title: "validation_error", Err: formatValidationErrors(validatorErr)}
	}

	return NewErrorDetails("internal_server_error", err.Error())
}

func formatValidationErrors(err validator.ValidationErrors) []map[string]any {
	v := make([]map[string]any, 0)
	for _, e := range err {
		namespace := e.Namespace()
		if splits := strings.SplitN(namespace, ".", 2); len(splits) > 1 {
			namespace = splits[1]
		}
		v = append(v, map[string]any{
			"field":           e.Field(),
			"namespace":       namespace,
			"type":            e.Kind().String(),
			"validation":      e.Tag(),
			"validationParam": e.Param(),
			"value":           e.Value(),
		})
	}
	return v
}

func formatJSONUnmarshalTypeError(err *json.UnmarshalTypeError) []map[string]any {
	return []map[string]any{
		{
			"field":    err.Field,
			"expected": err.Type.Kind().String(),
			"actual":   err.Value,
		},
	}
}

// kindToStatus maps an Error's Title to an RFC 7807 status code, for
// deployments that surface these over HTTP.
var kindToStatus = map[string]int{
	"validation_error":      400,
	"json_type_error":       400,
	"json_syntax_error":     400,
	"INVALID_DEFINITION":    400,
	"INVALID_CONFIGURATION": 500,
	"internal_server_error": 500,
}

// ToProblem renders e as an RFC 7807 problem+json body.
func (e *Error) ToProblem() *problems.DefaultProblem {
	status, ok := kindToStatus[e.Title]
	if !ok {
		status = 500
	}
	p := problems.NewStatusProblem(status)
	p.Detail = e.Title
	return p
}

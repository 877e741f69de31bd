package oid4vperr

import "github.com/moogar0880/problems"

// OAuthError is the OAuth2/OIDC-facing view of an Error: the counterpart
// only ever sees a standard error code and a generic description, never
// Cause (per the error handling design: "without revealing internal
// detail").
type OAuthError struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	State            string `json:"state,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.ErrorDescription != "" {
		return e.ErrorCode + ": " + e.ErrorDescription
	}
	return e.ErrorCode
}

// Standard OAuth 2.0 error codes this taxonomy maps onto.
const (
	OAuthInvalidRequest = "invalid_request"
	OAuthInvalidClient  = "invalid_client"
	OAuthAccessDenied   = "access_denied"
	OAuthServerError    = "server_error"
)

// kindToOAuthCode maps each taxonomy Kind to the OAuth2 error code surfaced
// to the Wallet/Verifier counterpart.
var kindToOAuthCode = map[Kind]string{
	MalformedInput:       OAuthInvalidRequest,
	SignatureInvalid:     OAuthInvalidClient,
	TrustPolicyViolation: OAuthInvalidClient,
	PresentationMismatch: OAuthInvalidRequest,
	ReplayOrState:        OAuthAccessDenied,
	Transport:            OAuthServerError,
	Timeout:              OAuthServerError,
	Unsupported:          OAuthInvalidRequest,
}

// ToOAuthError renders e as the OAuth2 error view, with state attached by
// the caller (the Error type itself carries no protocol state).
func (e *Error) ToOAuthError(state string) *OAuthError {
	code, ok := kindToOAuthCode[e.Kind]
	if !ok {
		code = OAuthServerError
	}
	return &OAuthError{
		ErrorCode:        code,
		ErrorDescription: genericDescription(e.Kind),
		State:            state,
	}
}

// genericDescription returns a description generic enough not to leak
// which internal check failed, per the error handling design.
func genericDescription(k Kind) string {
	switch k {
	case MalformedInput:
		return "the request or response could not be parsed"
	case SignatureInvalid:
		return "a cryptographic signature check failed"
	case TrustPolicyViolation:
		return "the signer is not trusted under the active client_id_scheme"
	case PresentationMismatch:
		return "the presentation does not satisfy the requested definition"
	case ReplayOrState:
		return "the request could not be correlated to a valid exchange"
	case Transport:
		return "a network error occurred"
	case Timeout:
		return "the operation timed out"
	default:
		return "the request uses an unsupported format, algorithm, or scheme"
	}
}

// httpStatusForKind maps a Kind to the status code used in the problem+json
// rendering below.
var httpStatusForKind = map[Kind]int{
	MalformedInput:       400,
	SignatureInvalid:     401,
	TrustPolicyViolation: 403,
	PresentationMismatch: 422,
	ReplayOrState:        409,
	Transport:            502,
	Timeout:              504,
	Unsupported:          501,
}

// ToProblem renders e as an RFC 7807 problem+json body, for deployments
// that expose these errors over HTTP (the HTTP surface itself is an
// external collaborator, not core scope).
func (e *Error) ToProblem() *problems.DefaultProblem {
	status, ok := httpStatusForKind[e.Kind]
	if !ok {
		status = 500
	}
	p := problems.NewStatusProblem(status)
	p.Detail = genericDescription(e.Kind)
	return p
}

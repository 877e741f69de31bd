// Package oid4vperr implements the error taxonomy shared by the PE
// evaluator, the request/response protocol, and the verification
// orchestrator: a machine-readable Kind plus a free-text Reason, with views
// that map onto OAuth2 error codes and RFC 7807 problem+json bodies for
// callers that sit behind an HTTP boundary.
package oid4vperr

import "fmt"

// Kind is the taxonomy tag. Values match the eight kinds named in the
// error handling design: parsing failures, crypto failures, trust
// failures, submission mismatches, replay/state failures, transport,
// timeout, and unsupported features.
type Kind string

const (
	MalformedInput       Kind = "malformed_input"
	SignatureInvalid     Kind = "signature_invalid"
	TrustPolicyViolation Kind = "trust_policy_violation"
	PresentationMismatch Kind = "presentation_mismatch"
	ReplayOrState        Kind = "replay_or_state"
	Transport            Kind = "transport"
	Timeout              Kind = "timeout"
	Unsupported          Kind = "unsupported"
)

// Error is the structured error carried across component boundaries. Step
// names the verification/protocol step that failed (e.g. "parse_vp_token",
// "check_nonce"), mirroring the teacher's VerificationRejectedError /
// VerificationFailedError step+reason pattern.
type Error struct {
	Kind   Kind
	Step   string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Step, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Step, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error without a wrapped cause.
func New(kind Kind, step, reason string) *Error {
	return &Error{Kind: kind, Step: step, Reason: reason}
}

// Wrap builds an Error around a lower-level cause.
func Wrap(kind Kind, step string, cause error) *Error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return &Error{Kind: kind, Step: step, Reason: reason, Cause: cause}
}

// As extracts an *Error from any error via errors.As semantics, without
// importing the standard errors package at every call site.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

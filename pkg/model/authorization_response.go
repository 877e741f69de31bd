package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VPToken is one entry of the vp_token response field, which per OID4VP can
// be a bare JWT/SD-JWT string or a JSON object (used by formats such as
// ldp_vp). Exactly one of JWT / JSON is populated.
type VPToken struct {
	JWT  string         `json:"jwt,omitempty"`
	JSON map[string]any `json:"json,omitempty"`
}

// IsJWT reports whether this token is a compact serialization.
func (t VPToken) IsJWT() bool { return t.JWT != "" }

// AuthorizationResponse is the set of fields the Wallet returns, whether
// delivered as a direct_post form body or as the decrypted/parsed payload
// of a direct_post.jwt envelope.
type AuthorizationResponse struct {
	VPTokens                []VPToken                `json:"vp_token,omitempty"`
	PresentationSubmission  *PresentationSubmission  `json:"presentation_submission,omitempty"`
	State                   string                   `json:"state,omitempty"`
	IDToken                 string                   `json:"id_token,omitempty"`
	Error                   string                   `json:"error,omitempty"`
	ErrorDescription        string                   `json:"error_description,omitempty"`
	ErrorURI                string                   `json:"error_uri,omitempty"`
}

// UnmarshalJSON accepts vp_token as a bare string, a JSON object, or an
// array mixing either, per the OID4VP wire format (the concrete shape
// depends on the query language and format used in the request).
func (r *AuthorizationResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		VPToken                 json.RawMessage          `json:"vp_token,omitempty"`
		PresentationSubmission  *PresentationSubmission  `json:"presentation_submission,omitempty"`
		State                   string                   `json:"state,omitempty"`
		IDToken                 string                   `json:"id_token,omitempty"`
		Error                   string                   `json:"error,omitempty"`
		ErrorDescription        string                   `json:"error_description,omitempty"`
		ErrorURI                string                   `json:"error_uri,omitempty"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.PresentationSubmission = aux.PresentationSubmission
	r.State = aux.State
	r.IDToken = aux.IDToken
	r.Error = aux.Error
	r.ErrorDescription = aux.ErrorDescription
	r.ErrorURI = aux.ErrorURI

	tokens, err := ParseVPTokens(aux.VPToken)
	if err != nil {
		return err
	}
	r.VPTokens = tokens
	return nil
}

// ParseVPTokens normalizes a raw vp_token JSON value (string, object, or
// array of either) into a slice of VPToken.
func ParseVPTokens(raw json.RawMessage) ([]VPToken, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		tokens := make([]VPToken, 0, len(items))
		for _, item := range items {
			tok, err := parseOneVPToken(item)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}
		return tokens, nil
	}

	tok, err := parseOneVPToken(raw)
	if err != nil {
		return nil, err
	}
	return []VPToken{tok}, nil
}

func parseOneVPToken(item json.RawMessage) (VPToken, error) {
	if len(item) > 0 && item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return VPToken{}, fmt.Errorf("vp_token: %w", err)
		}
		return VPToken{JWT: s}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(item, &obj); err != nil {
		return VPToken{}, fmt.Errorf("vp_token is neither a string nor a JSON object: %w", err)
	}
	return VPToken{JSON: obj}, nil
}

// LooksLikeJWS reports whether s has the segment count of a compact JWS
// (3 segments) or a compact JWE (5 segments).
func LooksLikeJWS(s string) bool {
	n := strings.Count(s, ".") + 1
	return n == 3 || n == 5
}

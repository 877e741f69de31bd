// Package reqobj implements construction, signing, transport-URL assembly,
// and response decoding for OID4VP Authorization Requests and Responses.
package reqobj

import (
	"fmt"
	"net/url"

	"github.com/eidverify/oid4vp/pkg/model"
)

// BuildParams is the Verifier-supplied input to Build: definition plus the
// per-exchange values that make a request unique.
type BuildParams struct {
	ClientID       string
	ClientIDScheme string
	ResponseMode   string
	ResponseURI    string
	RedirectURI    string
	Nonce          string
	State          string
	Definition     *model.PresentationDefinition
	ClientMetadata *model.ClientMetadata
	IAT            int64
}

// Build assembles an AuthorizationRequest from the given parameters. It
// does not sign or transport the request; callers pass the result to Sign
// (for a Request Object JWS) or directly to SameDeviceURL/CrossDeviceURL.
func Build(p BuildParams) (*model.AuthorizationRequest, error) {
	if p.Definition == nil {
		return nil, fmt.Errorf("reqobj: presentation definition is required")
	}
	if err := p.Definition.Validate(); err != nil {
		return nil, fmt.Errorf("reqobj: %w", err)
	}

	req := &model.AuthorizationRequest{
		ClientID:               p.ClientID,
		ClientIDScheme:         p.ClientIDScheme,
		ResponseType:           "vp_token",
		ResponseMode:           p.ResponseMode,
		ResponseURI:            p.ResponseURI,
		RedirectURI:            p.RedirectURI,
		Nonce:                  p.Nonce,
		State:                  p.State,
		PresentationDefinition: p.Definition,
		ClientMetadata:         p.ClientMetadata,
		IAT:                    p.IAT,
	}

	if req.ResponseMode == model.ResponseModeDirectPost && req.ResponseURI != "" && req.RedirectURI != "" {
		return nil, fmt.Errorf("reqobj: response_uri and redirect_uri must not both be present under direct_post")
	}

	return req, nil
}

// SameDeviceURL builds the openid4vp://authorize URL for same-device flows,
// carrying client_id, response_type, response_mode, nonce, state,
// response_uri and redirect_uri as query parameters. It does not include
// presentation_definition, client_id_scheme, client_metadata or a request
// parameter.
func SameDeviceURL(req *model.AuthorizationRequest) (string, error) {
	u := url.URL{Scheme: "openid4vp", Host: "authorize"}
	q := u.Query()
	q.Set("client_id", req.ClientID)
	q.Set("response_type", req.ResponseType)
	if req.ResponseMode != "" {
		q.Set("response_mode", req.ResponseMode)
	}
	q.Set("nonce", req.Nonce)
	if req.State != "" {
		q.Set("state", req.State)
	}
	if req.ResponseURI != "" {
		q.Set("response_uri", req.ResponseURI)
	}
	if req.RedirectURI != "" {
		q.Set("redirect_uri", req.RedirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CrossDeviceURL builds the openid4vp://authorize URL referencing a hosted
// request object by requestURI, for cross-device (QR) flows.
func CrossDeviceURL(clientID, requestURI string) string {
	u := url.URL{Scheme: "openid4vp", Host: "authorize"}
	q := u.Query()
	q.Set("client_id", clientID)
	q.Set("request_uri", requestURI)
	u.RawQuery = q.Encode()
	return u.String()
}

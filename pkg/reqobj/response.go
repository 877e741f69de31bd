package reqobj

import (
	"fmt"
	"net/url"

	josev4 "github.com/go-jose/go-jose/v4"

	"github.com/eidverify/oid4vp/pkg/model"
)

// ParseDirectPost decodes an application/x-www-form-urlencoded direct_post
// body into an AuthorizationResponse.
func ParseDirectPost(body string) (*model.AuthorizationResponse, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("reqobj: parse direct_post body: %w", err)
	}

	resp := &model.AuthorizationResponse{
		State:            values.Get("state"),
		IDToken:          values.Get("id_token"),
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
		ErrorURI:         values.Get("error_uri"),
	}

	if raw := values.Get("vp_token"); raw != "" {
		tokens, err := model.ParseVPTokens([]byte(raw))
		if err != nil {
			// vp_token may be a bare, unquoted JWT rather than valid JSON.
			tokens = []model.VPToken{{JWT: raw}}
		}
		resp.VPTokens = tokens
	}

	if raw := values.Get("presentation_submission"); raw != "" {
		sub := &model.PresentationSubmission{}
		if err := unmarshalJSON(raw, sub); err != nil {
			return nil, fmt.Errorf("reqobj: decode presentation_submission: %w", err)
		}
		resp.PresentationSubmission = sub
	}

	return resp, nil
}

// ParseDirectPostJWT decrypts a direct_post.jwt body's `response` JWE using
// the Verifier's ephemeral private key, then decodes the decrypted payload
// as a JSON AuthorizationResponse. A payload that is itself a signed JWS is
// neither verified nor unwrapped, and fails to decode.
func ParseDirectPostJWT(body string, decryptionKey any) (*model.AuthorizationResponse, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("reqobj: parse direct_post.jwt body: %w", err)
	}
	response := values.Get("response")
	if response == "" {
		return nil, fmt.Errorf("reqobj: direct_post.jwt body missing response parameter")
	}

	jwe, err := josev4.ParseEncrypted(response, []josev4.KeyAlgorithm{
		josev4.ECDH_ES, josev4.ECDH_ES_A128KW, josev4.ECDH_ES_A192KW, josev4.ECDH_ES_A256KW,
		josev4.RSA_OAEP_256,
	}, []josev4.ContentEncryption{
		josev4.A128GCM, josev4.A192GCM, josev4.A256GCM, josev4.A128CBC_HS256, josev4.A256CBC_HS512,
	})
	if err != nil {
		return nil, fmt.Errorf("reqobj: parse response jwe: %w", err)
	}

	payload, err := jwe.Decrypt(decryptionKey)
	if err != nil {
		return nil, fmt.Errorf("reqobj: decrypt response jwe: %w", err)
	}

	resp := &model.AuthorizationResponse{}
	if err := unmarshalJSON(string(payload), resp); err != nil {
		return nil, fmt.Errorf("reqobj: decode decrypted response: %w", err)
	}
	return resp, nil
}

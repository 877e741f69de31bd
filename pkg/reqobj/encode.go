package reqobj

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/eidverify/oid4vp/pkg/model"
)

// EncodeDirectPostBody renders resp as the application/x-www-form-urlencoded
// body a Wallet posts under response_mode=direct_post.
func EncodeDirectPostBody(resp *model.AuthorizationResponse) (string, error) {
	data := url.Values{}

	switch len(resp.VPTokens) {
	case 0:
	case 1:
		if resp.VPTokens[0].IsJWT() {
			data.Set("vp_token", resp.VPTokens[0].JWT)
		} else {
			raw, err := json.Marshal(resp.VPTokens[0].JSON)
			if err != nil {
				return "", fmt.Errorf("reqobj: marshal vp_token: %w", err)
			}
			data.Set("vp_token", string(raw))
		}
	default:
		raw, err := json.Marshal(resp.VPTokens)
		if err != nil {
			return "", fmt.Errorf("reqobj: marshal vp_token array: %w", err)
		}
		data.Set("vp_token", string(raw))
	}

	if resp.State != "" {
		data.Set("state", resp.State)
	}
	if resp.IDToken != "" {
		data.Set("id_token", resp.IDToken)
	}
	if resp.PresentationSubmission != nil {
		raw, err := json.Marshal(resp.PresentationSubmission)
		if err != nil {
			return "", fmt.Errorf("reqobj: marshal presentation_submission: %w", err)
		}
		data.Set("presentation_submission", string(raw))
	}

	return data.Encode(), nil
}

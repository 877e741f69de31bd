package reqobj

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/signing"
)

// requestObjectType is the typ header OID4VP §5.2 requires on signed
// Request Objects.
const requestObjectType = "oauth-authz-req+jwt"

// Sign renders req as a signed Request Object JWS, with typ set per
// OID4VP §5.2 and an optional x5c chain for the x509_san_dns
// client_id_scheme.
func Sign(req *model.AuthorizationRequest, method jwt.SigningMethod, key any, x5c []string) (string, error) {
	if method == nil {
		return "", fmt.Errorf("reqobj: signing method is required")
	}
	if key == nil {
		return "", fmt.Errorf("reqobj: signing key is required")
	}

	header := map[string]any{
		"alg": method.Alg(),
		"typ": requestObjectType,
	}
	if len(x5c) > 0 {
		header["x5c"] = x5c
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("reqobj: marshal request object: %w", err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return "", fmt.Errorf("reqobj: build jwt claims: %w", err)
	}

	token := jwt.NewWithClaims(method, claims)
	token.Header = header

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("reqobj: sign request object: %w", err)
	}
	return signed, nil
}

// SignWithSigner renders req as a signed Request Object JWS using a
// pkg/signing.Signer rather than an in-process jwt.SigningMethod/key pair,
// so a Request Object can be signed by a PKCS#11-backed HSM key
// (pkg/signing.PKCS11Signer) the same way it is signed by a software key
// (pkg/signing.SoftwareSigner) — the signer, not the caller, determines
// which backend actually performs the cryptographic operation.
func SignWithSigner(ctx context.Context, req *model.AuthorizationRequest, signer signing.Signer, x5c []string) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("reqobj: signer is required")
	}

	header := map[string]any{
		"alg": signer.Algorithm(),
		"typ": requestObjectType,
	}
	if signer.KeyID() != "" {
		header["kid"] = signer.KeyID()
	}
	if len(x5c) > 0 {
		header["x5c"] = x5c
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("reqobj: marshal jws header: %w", err)
	}

	payloadJSON, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("reqobj: marshal request object: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)

	sig, err := signer.Sign(ctx, []byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("reqobj: sign request object: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// ParseUnverified extracts the Authorization Request fields from a Request
// Object JWS without verifying its signature, for callers that need to
// inspect client_id/client_id_scheme before key resolution.
func ParseUnverified(jws string) (*model.AuthorizationRequest, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(jws, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("reqobj: parse request object: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("reqobj: unexpected claims type")
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("reqobj: re-marshal claims: %w", err)
	}
	req := &model.AuthorizationRequest{}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, fmt.Errorf("reqobj: decode authorization request: %w", err)
	}
	return req, nil
}

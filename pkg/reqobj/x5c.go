package reqobj

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eidverify/oid4vp/pkg/pki"
)

// BuildX5C renders a leaf-first certificate chain as the x5c header value
// for Sign/SignWithSigner, for a Verifier authenticating under the
// x509_san_dns client_id_scheme.
func BuildX5C(chain []*x509.Certificate) []string {
	return pki.EncodeX5CChain(chain)
}

// ExtractX5C parses the x5c header out of a Request Object JWS (signed or
// not yet verified) and returns the leaf-first certificate chain it
// carries, for building the clientid.Evidence the x509_san_dns scheme
// needs. It returns an error if the JWS has no x5c header.
func ExtractX5C(jws string) ([]*x509.Certificate, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("reqobj: malformed jws: expected 3 dot-separated parts, got %d", len(parts))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("reqobj: decode jws header: %w", err)
	}

	var header struct {
		X5C []string `json:"x5c"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("reqobj: unmarshal jws header: %w", err)
	}
	if len(header.X5C) == 0 {
		return nil, fmt.Errorf("reqobj: jws header carries no x5c chain")
	}

	chain, err := pki.ParseX5CChain(header.X5C)
	if err != nil {
		return nil, fmt.Errorf("reqobj: %w", err)
	}
	return chain, nil
}

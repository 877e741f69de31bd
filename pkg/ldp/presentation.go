package ldp

import (
	"encoding/json"
	"fmt"
)

// ParsePresentation unmarshals a raw LDP-VP (a JSON-LD Verifiable
// Presentation) into its generic node form.
func ParsePresentation(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ldp: parse presentation: %w", err)
	}
	if !hasType(doc, "VerifiablePresentation") {
		return nil, fmt.Errorf("ldp: document is not a VerifiablePresentation")
	}
	return doc, nil
}

// EmbeddedCredential is one credential found inside a VP's
// "verifiableCredential" member, located at JSONPath index Index.
type EmbeddedCredential struct {
	Index int
	// Doc is non-nil when the credential is an embedded LDP-VC node.
	Doc map[string]any
	// JWT is non-empty when the credential is a compact JWS string (a
	// jwt_vc nested inside an ldp_vp), per spec's path_nested case.
	JWT string
	Raw []byte
}

// ExtractCredentials returns the credentials carried by a VP's
// "verifiableCredential" member, which per the VC data model may be a
// single credential or an array, each entry either an embedded LDP-VC
// object or a JWT string.
func ExtractCredentials(vp map[string]any) ([]EmbeddedCredential, error) {
	raw, ok := vp["verifiableCredential"]
	if !ok {
		return nil, nil
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	default:
		items = []any{v}
	}

	out := make([]EmbeddedCredential, 0, len(items))
	for i, item := range items {
		switch val := item.(type) {
		case string:
			out = append(out, EmbeddedCredential{Index: i, JWT: val, Raw: []byte(val)})
		case map[string]any:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("ldp: re-encode embedded credential %d: %w", i, err)
			}
			out = append(out, EmbeddedCredential{Index: i, Doc: val, Raw: encoded})
		default:
			return nil, fmt.Errorf("ldp: unsupported verifiableCredential entry type %T at index %d", item, i)
		}
	}
	return out, nil
}

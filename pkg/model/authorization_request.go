package model

import "encoding/base64"
import "encoding/json"

// client_id_scheme values, per spec §4.C trust-rule table.
const (
	SchemeRedirectURI         = "redirect_uri"
	SchemeDID                 = "did"
	SchemeX509SANDNS          = "x509_san_dns"
	SchemeVerifierAttestation = "verifier_attestation"
	SchemePreRegistered       = "pre-registered"
)

// response_mode values.
const (
	ResponseModeFragment       = "fragment"
	ResponseModeQuery          = "query"
	ResponseModeDirectPost     = "direct_post"
	ResponseModeDirectPostJWT  = "direct_post.jwt"
)

// AuthorizationRequest is the set of fields carried by an OID4VP
// Authorization Request, whether passed inline or as the payload of a
// signed Request Object JWS.
type AuthorizationRequest struct {
	ClientID       string `json:"client_id" validate:"required"`
	ClientIDScheme string `json:"client_id_scheme,omitempty" validate:"omitempty,oneof=redirect_uri did x509_san_dns verifier_attestation pre-registered"`

	ResponseType string `json:"response_type" validate:"required"`
	ResponseMode string `json:"response_mode,omitempty" validate:"omitempty,oneof=fragment query direct_post direct_post.jwt"`

	ResponseURI  string `json:"response_uri,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`

	Nonce string `json:"nonce" validate:"required,ascii"`
	State string `json:"state,omitempty"`

	PresentationDefinition    *PresentationDefinition `json:"presentation_definition,omitempty"`
	PresentationDefinitionURI string                  `json:"presentation_definition_uri,omitempty"`

	ClientMetadata    *ClientMetadata `json:"client_metadata,omitempty"`
	ClientMetadataURI string          `json:"client_metadata_uri,omitempty"`

	IAT int64 `json:"iat,omitempty"`
	AUD string `json:"aud,omitempty"`
	ISS string `json:"iss,omitempty"`

	RequestURIMethod string `json:"request_uri_method,omitempty" validate:"omitempty,oneof=get post"`

	TransactionData []string `json:"transaction_data,omitempty" validate:"omitempty,dive,base64url"`
}

// ClientMetadata carries the Verifier's encryption/signing key material and
// supported VP formats, per OID4VP §5/§8.3 (JARM).
type ClientMetadata struct {
	JWKS                              *JWKSet                    `json:"jwks,omitempty"`
	VPFormats                         map[string]Format          `json:"vp_formats,omitempty"`
	AuthorizationSignedResponseALG    string                     `json:"authorization_signed_response_alg,omitempty"`
	AuthorizationEncryptedResponseALG string                     `json:"authorization_encrypted_response_alg,omitempty" validate:"omitempty,oneof=RSA-OAEP-256 ECDH-ES A128GCMKW A256GCMKW"`
	AuthorizationEncryptedResponseENC string                     `json:"authorization_encrypted_response_enc,omitempty" validate:"omitempty,oneof=A128CBC-HS256 A256CBC-HS512 A128GCM A256GCM"`
}

// JWKSet is a bare JWKS as defined in RFC 7591.
type JWKSet struct {
	Keys []JWK `json:"keys,omitempty" validate:"omitempty,dive"`
}

// JWK is the subset of JSON Web Key fields this module needs to carry
// (full cryptographic JWK handling lives behind lestrrat-go/jwx in
// pkg/jose / pkg/keyresolver).
type JWK struct {
	KTY string `json:"kty" validate:"required,oneof=RSA EC OKP"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	CRV string `json:"crv,omitempty" validate:"omitempty,oneof=P-256 P-384 P-521 Ed25519 X25519"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	KID string `json:"kid,omitempty"`
	Use string `json:"use,omitempty" validate:"omitempty,oneof=sig enc"`
	Alg string `json:"alg,omitempty"`
}

// TransactionData is one base64url-encoded entry of AuthorizationRequest's
// transaction_data array (OID4VP §8.4).
type TransactionData struct {
	Type                     string   `json:"type" validate:"required"`
	CredentialIDs            []string `json:"credential_ids" validate:"required,dive,required"`
	TransactionDataHashesAlg []string `json:"transaction_data_hashes_alg,omitempty" validate:"omitempty,dive,oneof=sha-256 sha-384 sha-512"`
}

// Base64Encode encodes t as a base64url string suitable for the request's
// transaction_data array entry.
func (t *TransactionData) Base64Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

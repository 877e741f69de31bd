package model

// Descriptor formats recognized on the wire (Descriptor.Format /
// InputDescriptor.Format keys).
const (
	FormatJWT     = "jwt"
	FormatJWTVC   = "jwt_vc"
	FormatJWTVP   = "jwt_vp"
	FormatLDP     = "ldp"
	FormatLDPVC   = "ldp_vc"
	FormatLDPVP   = "ldp_vp"
	FormatMSOMdoc = "mso_mdoc"
	FormatSDJWT   = "sd_jwt"
	FormatVCSDJWT = "vc+sd-jwt"
)

// Descriptor maps one Input Descriptor to the location of the credential
// that fulfills it within a VP Token.
type Descriptor struct {
	ID         string      `json:"id" validate:"required"`
	Path       string      `json:"path" validate:"required"`
	PathNested *Descriptor `json:"path_nested,omitempty"`
	Format     string      `json:"format" validate:"required,oneof=jwt jwt_vc jwt_vp ldp ldp_vc ldp_vp mso_mdoc ac_vc ac_vp sd_jwt vc+sd-jwt"`
}

// PresentationSubmission is the Holder-authored artifact accompanying a VP
// Token, describing how each Input Descriptor was fulfilled.
type PresentationSubmission struct {
	ID            string       `json:"id" validate:"required"`
	DefinitionID  string       `json:"definition_id" validate:"required"`
	DescriptorMap []Descriptor `json:"descriptor_map" validate:"required,dive"`
}

// ClaimSource is the normalized view of one credential that the PE
// evaluator and Verification Orchestrator operate on, produced by a
// Credential Format Adapter (pkg/sdjwtvc, pkg/ldp, pkg/mdoc).
type ClaimSource struct {
	// Format is one of the Format* constants above.
	Format string

	// RawBytes is the original serialized credential.
	RawBytes []byte

	// Claims is the credential's claim document, decoded to a generic JSON
	// tree (map[string]any / []any / scalars). Adapters must alias `vc`
	// payload wrapping into the root, per spec: both "$.type" and
	// "$.vc.type" must resolve for a JWT-VC whose payload nests under "vc".
	Claims map[string]any

	// VerificationHandle is opaque to the PE evaluator; it is whatever the
	// producing adapter needs to verify RawBytes's signature later (e.g. a
	// parsed JWS, or a COSE_Sign1 structure).
	VerificationHandle any
}

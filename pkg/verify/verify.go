// Package verify drives end-to-end verification of an Authorization
// Response: parse the response, verify the VP Token's signature, verify
// every enclosed Verifiable Credential, replay Presentation Exchange
// matching against the received credentials, and return a structured
// Verdict. It is the single entry point a Verifier calls after receiving
// a Wallet's direct_post.
package verify

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eidverify/oid4vp/pkg/ldp"
	"github.com/eidverify/oid4vp/pkg/mdoc"
	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/oid4vperr"
	"github.com/eidverify/oid4vp/pkg/pe"
	"github.com/eidverify/oid4vp/pkg/sdjwtvc"
)

// DoS-guarding limits on an untrusted Wallet response, grounded on the
// same concern the teacher's VP validation service enforces before any
// parsing begins.
const (
	MaxPresentations    = 100
	MaxPresentationSize = 1 << 20  // 1MB
	MaxTotalPayloadSize = 10 << 20 // 10MB
)

// KeyResolver resolves a verification method (DID URL, `iss#kid`, or bare
// issuer identifier) to the public key that should have produced a given
// signature. pkg/keyresolver.Resolver satisfies this.
type KeyResolver interface {
	ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error)
}

// Orchestrator wires the Credential Format Adapters and the PE Evaluator
// into the six-step verification pipeline.
type Orchestrator struct {
	Keys     KeyResolver
	SDJWT    *sdjwtvc.Client
	LDP      *ldp.Verifier
	MDoc     *mdoc.Verifier
	Clock    func() time.Time
	SkewTime time.Duration
}

// New creates an Orchestrator. sdjwt, ldpVerifier, and mdocVerifier may be
// nil if the deployment never expects that credential format; a response
// presenting an unsupported format fails closed with oid4vperr.Unsupported.
func New(keys KeyResolver, sdjwt *sdjwtvc.Client, ldpVerifier *ldp.Verifier, mdocVerifier *mdoc.Verifier) *Orchestrator {
	return &Orchestrator{
		Keys:     keys,
		SDJWT:    sdjwt,
		LDP:      ldpVerifier,
		MDoc:     mdocVerifier,
		Clock:    time.Now,
		SkewTime: 5 * time.Minute,
	}
}

// Verify runs the full pipeline against one Authorization Response and
// returns a Verdict. A non-nil error is returned only for conditions the
// caller cannot present to a Wallet as a descriptor-level failure (e.g. a
// malformed request/response pairing); credential-level failures surface
// as Verdict.OK == false with PerDescriptor reasons, never as an error.
func (o *Orchestrator) Verify(ctx context.Context, req *model.AuthorizationRequest, resp *model.AuthorizationResponse) (*model.Verdict, error) {
	// Step 1: parse response, check state.
	if resp.Error != "" {
		return &model.Verdict{OK: false, Warnings: []string{"wallet returned error: " + resp.Error + ": " + resp.ErrorDescription}}, nil
	}
	if req.State != "" && resp.State != req.State {
		return &model.Verdict{OK: false, Warnings: []string{"state mismatch"}}, nil
	}
	if resp.PresentationSubmission == nil {
		return &model.Verdict{OK: false, Warnings: []string{"no presentation_submission in response"}}, nil
	}

	if err := guardSize(resp.VPTokens); err != nil {
		return nil, err
	}

	// Steps 2-4: extract, verify VP signature, verify enclosed VCs, and
	// build one ClaimSource per presented credential.
	sources, warnings, err := o.buildSources(ctx, req, resp.VPTokens)
	if err != nil {
		if e, ok := oid4vperr.As(err); ok {
			return &model.Verdict{OK: false, Warnings: append(warnings, e.Error())}, nil
		}
		return nil, err
	}

	// Step 5: replay PE against the received, verified credentials.
	if err := pe.Validate(req.PresentationDefinition, resp.PresentationSubmission, sources); err != nil {
		return descriptorVerdict(req.PresentationDefinition, resp.PresentationSubmission, sources, err, warnings), nil
	}

	// Step 6: surface the structured verdict.
	return descriptorVerdict(req.PresentationDefinition, resp.PresentationSubmission, sources, nil, warnings), nil
}

func guardSize(tokens []model.VPToken) error {
	if len(tokens) > MaxPresentations {
		return oid4vperr.New(oid4vperr.MalformedInput, "size_guard", fmt.Sprintf("too many presentations: maximum %d allowed", MaxPresentations))
	}

	var total int
	for i, t := range tokens {
		size := len(t.JWT)
		if t.JSON != nil {
			if encoded, err := json.Marshal(t.JSON); err == nil {
				size = len(encoded)
			}
		}
		if size > MaxPresentationSize {
			return oid4vperr.New(oid4vperr.MalformedInput, "size_guard", fmt.Sprintf("presentation at index %d exceeds maximum size of %d bytes", i, MaxPresentationSize))
		}
		total += size
		if total > MaxTotalPayloadSize {
			return oid4vperr.New(oid4vperr.MalformedInput, "size_guard", fmt.Sprintf("total payload exceeds maximum size of %d bytes", MaxTotalPayloadSize))
		}
	}
	return nil
}

// buildSources verifies every vp_token in order and flattens each into one
// or more model.ClaimSource entries. Index order matches the convention
// pkg/pe's descriptor_map path resolution expects: "$" addresses
// sources[0], "$.verifiableCredential[i]" addresses sources[i].
func (o *Orchestrator) buildSources(ctx context.Context, req *model.AuthorizationRequest, tokens []model.VPToken) ([]model.ClaimSource, []string, error) {
	var sources []model.ClaimSource
	var warnings []string

	for i, token := range tokens {
		format, raw, err := detectFormat(token)
		if err != nil {
			return nil, warnings, oid4vperr.Wrap(oid4vperr.MalformedInput, "extract_vp_token", err)
		}

		switch format {
		case model.FormatLDPVP, model.FormatLDPVC:
			srcs, w, err := o.verifyLDPPresentation(ctx, req, raw)
			if err != nil {
				return nil, warnings, oid4vperr.Wrap(oid4vperr.SignatureInvalid, "verify_vp", err)
			}
			sources = append(sources, srcs...)
			warnings = append(warnings, w...)

		case model.FormatMSOMdoc:
			src, err := o.verifyMDoc(ctx, raw)
			if err != nil {
				return nil, warnings, oid4vperr.Wrap(oid4vperr.SignatureInvalid, "verify_vp", err)
			}
			sources = append(sources, *src)

		case model.FormatVCSDJWT, model.FormatSDJWT:
			src, err := o.verifySDJWT(ctx, req, string(raw))
			if err != nil {
				return nil, warnings, oid4vperr.Wrap(oid4vperr.SignatureInvalid, "verify_vp", err)
			}
			sources = append(sources, *src)

		case model.FormatJWTVC, model.FormatJWTVP, model.FormatJWT:
			src, err := o.verifyJWTVC(ctx, req, string(raw))
			if err != nil {
				return nil, warnings, oid4vperr.Wrap(oid4vperr.SignatureInvalid, "verify_vp", err)
			}
			sources = append(sources, *src)

		default:
			return nil, warnings, oid4vperr.New(oid4vperr.Unsupported, "extract_vp_token", fmt.Sprintf("vp_token %d: unsupported format %q", i, format))
		}
	}

	return sources, warnings, nil
}

// detectFormat sniffs a VPToken's wire shape. OID4VP does not carry a
// format tag on the token itself — only the accompanying descriptor_map
// does, and a single vp_token can hold multiple differently-addressed
// credentials (an LDP-VP's verifiableCredential array) — so detection
// here is structural, and the per-credential Format on the eventual
// ClaimSource comes from the format adapter that parses it.
func detectFormat(token model.VPToken) (string, []byte, error) {
	if token.JSON != nil {
		raw, err := json.Marshal(token.JSON)
		if err != nil {
			return "", nil, err
		}
		return model.FormatLDPVP, raw, nil
	}

	if token.JWT == "" {
		return "", nil, fmt.Errorf("empty vp_token")
	}

	if strings.Contains(token.JWT, "~") {
		return model.FormatVCSDJWT, []byte(token.JWT), nil
	}

	parts := strings.Split(token.JWT, ".")
	if len(parts) == 3 {
		return model.FormatJWTVP, []byte(token.JWT), nil
	}

	if decoded, err := base64.RawURLEncoding.DecodeString(token.JWT); err == nil {
		return model.FormatMSOMdoc, decoded, nil
	}

	return "", nil, fmt.Errorf("unrecognized vp_token structure")
}

// proofVerificationMethod reads verificationMethod off a JSON-LD node's
// proof property, whether it is a single proof object or an array of them
// (the first entry's verificationMethod is used to resolve the key that
// ldp.Verifier.VerifyProof then checks every matching proof against).
func proofVerificationMethod(doc map[string]any) string {
	switch proof := doc["proof"].(type) {
	case map[string]any:
		vm, _ := proof["verificationMethod"].(string)
		return vm
	case []any:
		for _, p := range proof {
			if m, ok := p.(map[string]any); ok {
				if vm, _ := m["verificationMethod"].(string); vm != "" {
					return vm
				}
			}
		}
	}
	return ""
}

func (o *Orchestrator) verifyLDPPresentation(ctx context.Context, req *model.AuthorizationRequest, raw []byte) ([]model.ClaimSource, []string, error) {
	if o.LDP == nil {
		return nil, nil, fmt.Errorf("ldp_vp presented but no LDP verifier configured")
	}

	vp, err := ldp.ParsePresentation(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse VP: %w", err)
	}

	vm := proofVerificationMethod(vp)
	if vm == "" {
		return nil, nil, fmt.Errorf("VP proof has no verificationMethod")
	}

	key, err := o.resolveKey(ctx, vm)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve holder key: %w", err)
	}

	result, err := o.LDP.VerifyProof(vp, vm, key)
	if err != nil {
		return nil, nil, fmt.Errorf("verify VP proof: %w", err)
	}

	var warnings []string
	if result.Proof.Challenge != "" && result.Proof.Challenge != req.Nonce {
		return nil, nil, fmt.Errorf("VP proof challenge does not match request nonce")
	}
	if result.Proof.Challenge == "" {
		warnings = append(warnings, "VP proof carries no challenge to bind against the request nonce")
	}
	if result.Proof.Domain != "" && result.Proof.Domain != req.ClientID {
		return nil, nil, fmt.Errorf("VP proof domain does not match verifier client_id")
	}

	creds, err := ldp.ExtractCredentials(vp)
	if err != nil {
		return nil, nil, fmt.Errorf("extract embedded credentials: %w", err)
	}

	sources := make([]model.ClaimSource, 0, len(creds))
	for _, cred := range creds {
		if cred.JWT != "" {
			src, err := o.verifyJWTVC(ctx, req, cred.JWT)
			if err != nil {
				return nil, nil, fmt.Errorf("embedded credential %d: %w", cred.Index, err)
			}
			sources = append(sources, *src)
			continue
		}

		cvm := proofVerificationMethod(cred.Doc)
		if cvm == "" {
			return nil, nil, fmt.Errorf("embedded credential %d: proof has no verificationMethod", cred.Index)
		}
		ckey, err := o.resolveKey(ctx, cvm)
		if err != nil {
			return nil, nil, fmt.Errorf("embedded credential %d: resolve issuer key: %w", cred.Index, err)
		}
		cresult, err := o.LDP.VerifyProof(cred.Doc, cvm, ckey)
		if err != nil {
			return nil, nil, fmt.Errorf("embedded credential %d: %w", cred.Index, err)
		}
		src, err := ldp.ClaimSource(cred.Raw, cred.Doc, cresult)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, *src)
	}

	return sources, warnings, nil
}

func (o *Orchestrator) verifyMDoc(ctx context.Context, raw []byte) (*model.ClaimSource, error) {
	if o.MDoc == nil {
		return nil, fmt.Errorf("mso_mdoc presented but no mdoc verifier configured")
	}

	deviceResponse, err := mdoc.DecodeDeviceResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode device response: %w", err)
	}

	result := o.MDoc.VerifyDeviceResponseWithContext(ctx, deviceResponse)
	if !result.Valid || len(result.Documents) == 0 {
		return nil, fmt.Errorf("device response verification failed: %v", result.Errors)
	}

	doc := result.Documents[0]
	return mdoc.ClaimSource(raw, &doc)
}

func (o *Orchestrator) verifySDJWT(ctx context.Context, req *model.AuthorizationRequest, raw string) (*model.ClaimSource, error) {
	if o.SDJWT == nil {
		return nil, fmt.Errorf("sd-jwt vc presented but no SD-JWT client configured")
	}

	parsed, err := sdjwtvc.Token(raw).Parse()
	if err != nil {
		return nil, fmt.Errorf("peek SD-JWT header/claims: %w", err)
	}

	vm, err := issuerVerificationMethod(parsed.Header, parsed.Claims)
	if err != nil {
		return nil, err
	}

	key, err := o.resolveKey(ctx, vm)
	if err != nil {
		return nil, fmt.Errorf("resolve issuer key: %w", err)
	}

	result, err := o.SDJWT.ParseAndVerify(raw, key, &sdjwtvc.VerificationOptions{
		RequireKeyBinding: true,
		ExpectedNonce:     req.Nonce,
		ExpectedAudience:  req.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("verify SD-JWT VC: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("SD-JWT VC failed verification: %v", result.Errors)
	}

	return sdjwtvc.ClaimSource(raw, result)
}

func (o *Orchestrator) verifyJWTVC(ctx context.Context, req *model.AuthorizationRequest, raw string) (*model.ClaimSource, error) {
	if o.SDJWT == nil {
		return nil, fmt.Errorf("jwt_vc presented but no SD-JWT client configured")
	}

	parsed, err := sdjwtvc.Token(raw).Parse()
	if err != nil {
		return nil, fmt.Errorf("peek JWT header/claims: %w", err)
	}

	vm, err := issuerVerificationMethod(parsed.Header, parsed.Claims)
	if err != nil {
		return nil, err
	}

	key, err := o.resolveKey(ctx, vm)
	if err != nil {
		return nil, fmt.Errorf("resolve issuer key: %w", err)
	}

	result, err := o.SDJWT.ParseAndVerify(raw, key, &sdjwtvc.VerificationOptions{RequireKeyBinding: false})
	if err != nil {
		return nil, fmt.Errorf("verify JWT VC: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("JWT VC failed verification: %v", result.Errors)
	}

	if nonce, ok := result.Claims["nonce"].(string); ok && req.Nonce != "" && nonce != req.Nonce {
		return nil, fmt.Errorf("JWT nonce mismatch")
	}
	if aud, ok := result.Claims["aud"]; ok && req.ClientID != "" && !audienceMatches(aud, req.ClientID) {
		return nil, fmt.Errorf("JWT aud mismatch")
	}

	// spec §4.A round-trip law: alias the vc-wrapped payload so both "$.type"
	// and "$.vc.type" resolve for a jwt_vc whose claims nest under "vc".
	claims := result.Claims
	if vc, ok := claims["vc"].(map[string]any); ok {
		aliased := make(map[string]any, len(claims)+len(vc))
		for k, v := range claims {
			aliased[k] = v
		}
		for k, v := range vc {
			if _, exists := aliased[k]; !exists {
				aliased[k] = v
			}
		}
		claims = aliased
	}
	result.Claims = claims

	return sdjwtvc.ClaimSource(raw, result)
}

func issuerVerificationMethod(header, claims map[string]any) (string, error) {
	kid, _ := header["kid"].(string)
	iss, _ := claims["iss"].(string)
	if iss == "" {
		return "", fmt.Errorf("credential has no iss claim to resolve a key from")
	}
	if kid == "" {
		return iss, nil
	}
	if strings.HasPrefix(kid, "did:") || strings.Contains(kid, "#") {
		return kid, nil
	}
	return iss + "#" + kid, nil
}

func audienceMatches(aud any, expected string) bool {
	switch v := aud.(type) {
	case string:
		return v == expected
	case []any:
		for _, a := range v {
			if s, ok := a.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}

func (o *Orchestrator) resolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error) {
	if o.Keys == nil {
		return nil, fmt.Errorf("no key resolver configured")
	}
	return o.Keys.ResolveKey(ctx, verificationMethod)
}

func descriptorVerdict(def *model.PresentationDefinition, sub *model.PresentationSubmission, sources []model.ClaimSource, validateErr error, warnings []string) *model.Verdict {
	v := &model.Verdict{OK: validateErr == nil, Warnings: warnings}

	failedID := ""
	if e, ok := oid4vperr.As(validateErr); ok {
		failedID = descriptorIDFromError(e, sub)
	}

	covered := make(map[string]bool, len(sub.DescriptorMap))
	for _, entry := range sub.DescriptorMap {
		status := model.DescriptorOK
		reason := ""
		if validateErr != nil && (failedID == "" || failedID == entry.ID) {
			status = model.DescriptorFailed
			reason = validateErr.Error()
		}
		v.PerDescriptor = append(v.PerDescriptor, model.DescriptorResult{ID: entry.ID, Status: status, Reason: reason})
		covered[entry.ID] = true

		if status == model.DescriptorOK {
			if idx, err := claimSourceIndex(entry, len(sources)); err == nil {
				v.Claims = append(v.Claims, sources[idx].Claims)
			}
		}
	}

	if def != nil {
		for _, desc := range def.InputDescriptors {
			if !covered[desc.ID] {
				v.PerDescriptor = append(v.PerDescriptor, model.DescriptorResult{ID: desc.ID, Status: model.DescriptorMissing})
			}
		}
	}

	return v
}

func descriptorIDFromError(e *oid4vperr.Error, sub *model.PresentationSubmission) string {
	for _, entry := range sub.DescriptorMap {
		if strings.Contains(e.Reason, entry.ID) {
			return entry.ID
		}
	}
	return ""
}

func claimSourceIndex(entry model.Descriptor, n int) (int, error) {
	if entry.Path == "$" {
		if n == 0 {
			return 0, fmt.Errorf("no sources")
		}
		return 0, nil
	}
	var idx int
	if _, err := fmt.Sscanf(entry.Path, "$.verifiableCredential[%d]", &idx); err != nil {
		return 0, err
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("index out of range")
	}
	return idx, nil
}

// Package clientid resolves and authenticates the client_id_scheme trust
// rules of an Authorization Request: given the scheme a Verifier declared
// and the material accompanying the request (a signed Request Object, an
// x5c chain, a DID, an attestation JWT), it decides whether the claimed
// client_id is who it says it is, per the trust-rule table for redirect_uri,
// did, x509_san_dns, verifier_attestation and pre-registered.
package clientid

import (
	"context"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/oid4vperr"
	"github.com/eidverify/oid4vp/pkg/reqobj"
	"github.com/eidverify/oid4vp/pkg/trust"
)

// Evidence carries whatever scheme-specific material a Wallet (or the
// request transport) presented alongside client_id/client_id_scheme.
type Evidence struct {
	// X5C is the certificate chain from the Request Object JWS header,
	// leaf-first, required for x509_san_dns.
	X5C []*x509.Certificate

	// VerificationMethod is the DID URL (did:example:123#key-1) whose key
	// signed the Request Object, required for did.
	VerificationMethod string

	// AttestationJWT is the wallet-issued JWT asserting this client_id is
	// operated by an attested Verifier, required for verifier_attestation.
	AttestationJWT string
}

// Registry looks up pre-registered client metadata by client_id.
type Registry interface {
	Lookup(ctx context.Context, clientID string) (*model.ClientMetadata, bool, error)
}

// Resolver authenticates a client_id under its declared scheme.
type Resolver struct {
	trust     trust.TrustEvaluator
	resolver  trust.KeyResolver
	registry  Registry
	attesters AttestationVerifier
}

// AttestationVerifier validates a verifier_attestation JWT and returns the
// attested client_id, or an error if the attestation does not check out.
type AttestationVerifier interface {
	Verify(ctx context.Context, attestationJWT string) (clientID string, err error)
}

// New builds a Resolver. trustEval and keyResolver may be nil if the
// deployment never presents the corresponding scheme; registry and
// attesters are optional (pre-registered/verifier_attestation are then
// simply unsupported).
func New(trustEval trust.TrustEvaluator, keyResolver trust.KeyResolver, registry Registry, attesters AttestationVerifier) *Resolver {
	return &Resolver{trust: trustEval, resolver: keyResolver, registry: registry, attesters: attesters}
}

// Decision is the outcome of authenticating a client_id under its scheme.
type Decision struct {
	Trusted  bool
	Reason   string
	Metadata *model.ClientMetadata
}

// Authenticate dispatches on req.ClientIDScheme and returns whether the
// client_id is authorized to act under that scheme.
func (r *Resolver) Authenticate(ctx context.Context, req *model.AuthorizationRequest, ev Evidence) (*Decision, error) {
	switch req.ClientIDScheme {
	case "", model.SchemeRedirectURI:
		return r.authRedirectURI(req)
	case model.SchemeDID:
		return r.authDID(ctx, req, ev)
	case model.SchemeX509SANDNS:
		return r.authX509SANDNS(ctx, req, ev)
	case model.SchemeVerifierAttestation:
		return r.authVerifierAttestation(ctx, req, ev)
	case model.SchemePreRegistered:
		return r.authPreRegistered(ctx, req)
	default:
		return nil, oid4vperr.New(oid4vperr.Unsupported, "clientid.Authenticate",
			fmt.Sprintf("unsupported client_id_scheme: %s", req.ClientIDScheme))
	}
}

// authRedirectURI implements the redirect_uri scheme: the client is not
// authenticated at all, its client_id must equal the response/redirect
// destination the Wallet is told to post to, and the Request Object (if
// any) may be unsigned.
func (r *Resolver) authRedirectURI(req *model.AuthorizationRequest) (*Decision, error) {
	target := req.ResponseURI
	if target == "" {
		target = req.RedirectURI
	}
	if target == "" {
		return nil, oid4vperr.New(oid4vperr.MalformedInput, "clientid.authRedirectURI",
			"redirect_uri scheme requires response_uri or redirect_uri")
	}
	if req.ClientID != target {
		return &Decision{Trusted: false, Reason: "client_id does not equal response_uri/redirect_uri"}, nil
	}
	return &Decision{Trusted: true, Reason: "client_id matches response destination (unauthenticated)"}, nil
}

// authDID implements the did scheme: the verification method carried as
// the JWS header's kid must be a DID URL under client_id, and it must
// resolve to a key in client_id's DID Document. The Request Object's
// signature is not verified against that key here.
func (r *Resolver) authDID(ctx context.Context, req *model.AuthorizationRequest, ev Evidence) (*Decision, error) {
	if r.resolver == nil {
		return nil, oid4vperr.New(oid4vperr.Unsupported, "clientid.authDID", "no key resolver configured for did scheme")
	}
	if ev.VerificationMethod == "" {
		return nil, oid4vperr.New(oid4vperr.MalformedInput, "clientid.authDID", "missing verification method for did scheme")
	}
	did, _, ok := splitDIDURL(ev.VerificationMethod)
	if !ok || did != req.ClientID {
		return &Decision{Trusted: false, Reason: "verification method is not scoped to the declared client_id's DID"}, nil
	}
	if _, err := r.resolver.ResolveKey(ctx, ev.VerificationMethod); err != nil {
		return &Decision{Trusted: false, Reason: fmt.Sprintf("key resolution failed: %v", err)}, nil
	}
	return &Decision{Trusted: true, Reason: "verification method resolves to a key in client_id's DID document"}, nil
}

// authX509SANDNS implements the x509_san_dns scheme: the leaf certificate
// in the Request Object JWS's x5c header must carry client_id as a DNS
// Subject Alternative Name, and the chain must verify against a
// configured trust anchor.
func (r *Resolver) authX509SANDNS(ctx context.Context, req *model.AuthorizationRequest, ev Evidence) (*Decision, error) {
	if r.trust == nil {
		return nil, oid4vperr.New(oid4vperr.Unsupported, "clientid.authX509SANDNS", "no trust evaluator configured for x509_san_dns scheme")
	}
	if len(ev.X5C) == 0 {
		return nil, oid4vperr.New(oid4vperr.MalformedInput, "clientid.authX509SANDNS", "missing x5c chain for x509_san_dns scheme")
	}

	decision, err := r.trust.Evaluate(ctx, &trust.EvaluationRequest{
		SubjectID: req.ClientID,
		KeyType:   trust.KeyTypeX5C,
		Key:       trust.X5CCertChain(ev.X5C),
		Role:      trust.RoleVerifier,
	})
	if err != nil {
		return nil, oid4vperr.Wrap(oid4vperr.Transport, "clientid.authX509SANDNS", err)
	}
	return &Decision{Trusted: decision.Trusted, Reason: decision.Reason}, nil
}

// authVerifierAttestation implements the verifier_attestation scheme: a
// JWT, issued by a party the Wallet already trusts, must attest that
// client_id is an authorized Verifier.
func (r *Resolver) authVerifierAttestation(ctx context.Context, req *model.AuthorizationRequest, ev Evidence) (*Decision, error) {
	if r.attesters == nil {
		return nil, oid4vperr.New(oid4vperr.Unsupported, "clientid.authVerifierAttestation", "no attestation verifier configured")
	}
	if ev.AttestationJWT == "" {
		return nil, oid4vperr.New(oid4vperr.MalformedInput, "clientid.authVerifierAttestation", "missing verifier_attestation JWT")
	}
	attestedID, err := r.attesters.Verify(ctx, ev.AttestationJWT)
	if err != nil {
		return &Decision{Trusted: false, Reason: fmt.Sprintf("attestation invalid: %v", err)}, nil
	}
	if attestedID != req.ClientID {
		return &Decision{Trusted: false, Reason: "attestation subject does not match client_id"}, nil
	}
	return &Decision{Trusted: true, Reason: "verifier attestation verified"}, nil
}

// authPreRegistered implements the pre-registered scheme: client_id must
// be present in a local registry the Wallet and Verifier both already
// share out-of-band (no request-borne evidence is checked).
func (r *Resolver) authPreRegistered(ctx context.Context, req *model.AuthorizationRequest) (*Decision, error) {
	if r.registry == nil {
		return nil, oid4vperr.New(oid4vperr.Unsupported, "clientid.authPreRegistered", "no registry configured for pre-registered scheme")
	}
	metadata, found, err := r.registry.Lookup(ctx, req.ClientID)
	if err != nil {
		return nil, oid4vperr.Wrap(oid4vperr.Transport, "clientid.authPreRegistered", err)
	}
	if !found {
		return &Decision{Trusted: false, Reason: "client_id not found in pre-registered registry"}, nil
	}
	return &Decision{Trusted: true, Reason: "client_id found in pre-registered registry", Metadata: metadata}, nil
}

// EvidenceFromRequestObject extracts whatever scheme evidence a signed
// Request Object JWS carries in its own header: the x5c chain for
// x509_san_dns. did and verifier_attestation evidence is not recoverable
// from the JWS header alone (the verification method and attestation JWT
// arrive out of band, per the Wallet's transport) and is left zero-valued
// for the caller to fill in.
func EvidenceFromRequestObject(jws string) (Evidence, error) {
	chain, err := reqobj.ExtractX5C(jws)
	switch {
	case err == nil:
		return Evidence{X5C: chain}, nil
	case strings.Contains(err.Error(), "no x5c chain"):
		// Not an x509_san_dns request; other schemes carry their
		// evidence out of band.
		return Evidence{}, nil
	default:
		return Evidence{}, err
	}
}

// splitDIDURL splits a DID URL ("did:example:123#key-1") into its bare DID
// and fragment. ok is false if vm carries no fragment.
func splitDIDURL(vm string) (did, fragment string, ok bool) {
	for i := 0; i < len(vm); i++ {
		if vm[i] == '#' {
			return vm[:i], vm[i+1:], true
		}
	}
	return vm, "", false
}

// jwtAttestationVerifier is a minimal AttestationVerifier backed by a
// static signing key, suitable for deployments that trust a single
// attestation issuer directly rather than a federation.
type jwtAttestationVerifier struct {
	method jwt.SigningMethod
	key    any
}

// NewJWTAttestationVerifier builds an AttestationVerifier that checks the
// attestation JWT's signature against a single known key and returns its
// "sub" claim as the attested client_id.
func NewJWTAttestationVerifier(method jwt.SigningMethod, key any) AttestationVerifier {
	return &jwtAttestationVerifier{method: method, key: key}
}

func (v *jwtAttestationVerifier) Verify(ctx context.Context, attestationJWT string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(attestationJWT, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("attestation missing sub claim")
	}
	return sub, nil
}

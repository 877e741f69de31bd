package verify

import (
	"context"
	"crypto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/oid4vperr"
)

type stubKeyResolver struct {
	key crypto.PublicKey
	err error
}

func (s *stubKeyResolver) ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error) {
	return s.key, s.err
}

func TestVerify_WalletError(t *testing.T) {
	o := New(&stubKeyResolver{}, nil, nil, nil)

	resp := &model.AuthorizationResponse{Error: "access_denied", ErrorDescription: "user declined"}
	verdict, err := o.Verify(context.Background(), &model.AuthorizationRequest{}, resp)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "access_denied")
}

func TestVerify_StateMismatch(t *testing.T) {
	o := New(&stubKeyResolver{}, nil, nil, nil)

	req := &model.AuthorizationRequest{State: "abc"}
	resp := &model.AuthorizationResponse{State: "xyz"}
	verdict, err := o.Verify(context.Background(), req, resp)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Warnings, "state mismatch")
}

func TestVerify_MissingPresentationSubmission(t *testing.T) {
	o := New(&stubKeyResolver{}, nil, nil, nil)

	req := &model.AuthorizationRequest{}
	resp := &model.AuthorizationResponse{}
	verdict, err := o.Verify(context.Background(), req, resp)
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Warnings, "no presentation_submission in response")
}

func TestVerify_TooManyPresentations(t *testing.T) {
	o := New(&stubKeyResolver{}, nil, nil, nil)

	tokens := make([]model.VPToken, MaxPresentations+1)
	for i := range tokens {
		tokens[i] = model.VPToken{JWT: "x"}
	}
	req := &model.AuthorizationRequest{}
	resp := &model.AuthorizationResponse{
		VPTokens:               tokens,
		PresentationSubmission: &model.PresentationSubmission{ID: "sub", DefinitionID: "def"},
	}
	_, err := o.Verify(context.Background(), req, resp)
	require.Error(t, err)
	e, ok := oid4vperr.As(err)
	require.True(t, ok)
	assert.Equal(t, oid4vperr.MalformedInput, e.Kind)
}

func TestGuardSize_OversizedPresentation(t *testing.T) {
	big := make([]byte, MaxPresentationSize+1)
	for i := range big {
		big[i] = 'a'
	}
	err := guardSize([]model.VPToken{{JWT: string(big)}})
	require.Error(t, err)
	e, ok := oid4vperr.As(err)
	require.True(t, ok)
	assert.Equal(t, oid4vperr.MalformedInput, e.Kind)
}

func TestGuardSize_WithinLimits(t *testing.T) {
	err := guardSize([]model.VPToken{{JWT: "header.payload.sig"}})
	assert.NoError(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		token  model.VPToken
		format string
	}{
		{"ldp json", model.VPToken{JSON: map[string]any{"type": "VerifiablePresentation"}}, model.FormatLDPVP},
		{"sd-jwt", model.VPToken{JWT: "header.payload.sig~disclosure~"}, model.FormatVCSDJWT},
		{"compact jwt", model.VPToken{JWT: "header.payload.sig"}, model.FormatJWTVP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, _, err := detectFormat(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestDetectFormat_Empty(t *testing.T) {
	_, _, err := detectFormat(model.VPToken{})
	assert.Error(t, err)
}

func TestProofVerificationMethod_SingleProof(t *testing.T) {
	doc := map[string]any{
		"proof": map[string]any{"verificationMethod": "did:key:z6Mk...#key-1"},
	}
	assert.Equal(t, "did:key:z6Mk...#key-1", proofVerificationMethod(doc))
}

func TestProofVerificationMethod_ProofArray(t *testing.T) {
	doc := map[string]any{
		"proof": []any{
			map[string]any{"verificationMethod": ""},
			map[string]any{"verificationMethod": "did:web:issuer.example#key-2"},
		},
	}
	assert.Equal(t, "did:web:issuer.example#key-2", proofVerificationMethod(doc))
}

func TestProofVerificationMethod_Missing(t *testing.T) {
	assert.Equal(t, "", proofVerificationMethod(map[string]any{}))
}

func TestIssuerVerificationMethod(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]any
		claims map[string]any
		want   string
	}{
		{
			name:   "iss only",
			header: map[string]any{},
			claims: map[string]any{"iss": "https://issuer.example"},
			want:   "https://issuer.example",
		},
		{
			name:   "iss plus bare kid",
			header: map[string]any{"kid": "key-1"},
			claims: map[string]any{"iss": "https://issuer.example"},
			want:   "https://issuer.example#key-1",
		},
		{
			name:   "kid already a DID",
			header: map[string]any{"kid": "did:key:z6Mk...#key-1"},
			claims: map[string]any{"iss": "https://issuer.example"},
			want:   "did:key:z6Mk...#key-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := issuerVerificationMethod(tt.header, tt.claims)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssuerVerificationMethod_NoIssuer(t *testing.T) {
	_, err := issuerVerificationMethod(map[string]any{}, map[string]any{})
	assert.Error(t, err)
}

func TestAudienceMatches(t *testing.T) {
	assert.True(t, audienceMatches("verifier.example", "verifier.example"))
	assert.False(t, audienceMatches("other.example", "verifier.example"))
	assert.True(t, audienceMatches([]any{"a", "verifier.example"}, "verifier.example"))
	assert.False(t, audienceMatches([]any{"a", "b"}, "verifier.example"))
}

func TestClaimSourceIndex(t *testing.T) {
	idx, err := claimSourceIndex(model.Descriptor{Path: "$"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = claimSourceIndex(model.Descriptor{Path: "$.verifiableCredential[2]"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = claimSourceIndex(model.Descriptor{Path: "$.verifiableCredential[5]"}, 3)
	assert.Error(t, err)

	_, err = claimSourceIndex(model.Descriptor{Path: "$"}, 0)
	assert.Error(t, err)
}

func TestDescriptorVerdict_AllOK(t *testing.T) {
	sub := &model.PresentationSubmission{
		DescriptorMap: []model.Descriptor{{ID: "id_card", Path: "$"}},
	}
	sources := []model.ClaimSource{{Claims: map[string]any{"given_name": "John"}}}

	v := descriptorVerdict(nil, sub, sources, nil, nil)
	require.True(t, v.OK)
	require.Len(t, v.PerDescriptor, 1)
	assert.Equal(t, model.DescriptorOK, v.PerDescriptor[0].Status)
	require.Len(t, v.Claims, 1)
	assert.Equal(t, "John", v.Claims[0]["given_name"])
}

func TestDescriptorVerdict_MissingDescriptor(t *testing.T) {
	def := &model.PresentationDefinition{
		InputDescriptors: []model.InputDescriptor{{ID: "id_card"}, {ID: "proof_of_age"}},
	}
	sub := &model.PresentationSubmission{
		DescriptorMap: []model.Descriptor{{ID: "id_card", Path: "$"}},
	}
	sources := []model.ClaimSource{{Claims: map[string]any{}}}

	v := descriptorVerdict(def, sub, sources, nil, nil)
	require.Len(t, v.PerDescriptor, 2)
	statuses := map[string]string{}
	for _, d := range v.PerDescriptor {
		statuses[d.ID] = d.Status
	}
	assert.Equal(t, model.DescriptorOK, statuses["id_card"])
	assert.Equal(t, model.DescriptorMissing, statuses["proof_of_age"])
}

func TestDescriptorVerdict_FailureIsolatedToDescriptor(t *testing.T) {
	sub := &model.PresentationSubmission{
		DescriptorMap: []model.Descriptor{{ID: "id_card", Path: "$"}, {ID: "proof_of_age", Path: "$.verifiableCredential[1]"}},
	}
	sources := []model.ClaimSource{{}, {}}

	validateErr := oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", "input descriptor proof_of_age: field not found")

	v := descriptorVerdict(nil, sub, sources, validateErr, nil)
	assert.False(t, v.OK)
	statuses := map[string]string{}
	for _, d := range v.PerDescriptor {
		statuses[d.ID] = d.Status
	}
	assert.Equal(t, model.DescriptorOK, statuses["id_card"], "the failing descriptor id is matched from the error reason, confining the failure report to proof_of_age")
	assert.Equal(t, model.DescriptorFailed, statuses["proof_of_age"])
}

func TestResolveKey_NoResolverConfigured(t *testing.T) {
	o := &Orchestrator{}
	_, err := o.resolveKey(context.Background(), "did:key:z6Mk...#key-1")
	assert.Error(t, err)
}

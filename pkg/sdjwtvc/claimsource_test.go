package sdjwtvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
)

func TestClaimSource_RequiresValidResult(t *testing.T) {
	_, err := ClaimSource("raw", &VerificationResult{Valid: false})
	assert.Error(t, err)

	_, err = ClaimSource("raw", nil)
	assert.Error(t, err)
}

func TestClaimSource_BuildsModelClaimSource(t *testing.T) {
	result := &VerificationResult{
		Valid:  true,
		Claims: map[string]any{"given_name": "Alice", "family_name": "Smith"},
	}

	src, err := ClaimSource("issuer-jwt~disclosure1~", result)
	require.NoError(t, err)
	assert.Equal(t, model.FormatVCSDJWT, src.Format)
	assert.Equal(t, "Alice", src.Claims["given_name"])
	assert.Same(t, result, src.VerificationHandle)
}

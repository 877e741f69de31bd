package mdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
)

func TestClaimSource_RequiresValidDocument(t *testing.T) {
	_, err := ClaimSource([]byte("raw"), &DocumentVerificationResult{Valid: false})
	assert.Error(t, err)

	_, err = ClaimSource([]byte("raw"), nil)
	assert.Error(t, err)
}

func TestClaimSource_BuildsModelClaimSource(t *testing.T) {
	doc := &DocumentVerificationResult{
		DocType: DocType,
		Valid:   true,
		VerifiedElements: map[string]map[string]any{
			Namespace: {
				"given_name":  "Alice",
				"family_name": "Smith",
			},
		},
	}

	src, err := ClaimSource([]byte{0xa0}, doc)
	require.NoError(t, err)
	assert.Equal(t, model.FormatMSOMdoc, src.Format)
	assert.Equal(t, "Alice", src.Claims["given_name"])
	assert.Same(t, doc, src.VerificationHandle)
}

package mdoc

import (
	"fmt"

	"github.com/eidverify/oid4vp/pkg/model"
)

// ClaimSource builds the normalized model.ClaimSource the PE evaluator and
// Verification Orchestrator operate on from a verified mDL document. It must
// be called only after verifyDocumentWithContext reports Valid, since the
// claims returned here are exactly the namespace-scoped elements whose
// digests matched the MSO.
func ClaimSource(raw []byte, doc *DocumentVerificationResult) (*model.ClaimSource, error) {
	if doc == nil || !doc.Valid {
		return nil, fmt.Errorf("mdoc: cannot build claim source from unverified document")
	}

	claims := make(map[string]any)
	if ns, ok := doc.VerifiedElements[Namespace]; ok {
		for k, v := range ns {
			claims[k] = v
		}
	}

	return &model.ClaimSource{
		Format:             model.FormatMSOMdoc,
		RawBytes:           raw,
		Claims:             claims,
		VerificationHandle: doc,
	}, nil
}

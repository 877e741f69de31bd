package ldp

import (
	"fmt"

	"github.com/eidverify/oid4vp/pkg/model"
)

// ClaimSource builds the normalized model.ClaimSource the PE evaluator and
// Verification Orchestrator operate on from a verified LDP-VC. It must be
// called only after VerifyProof reports Valid, since doc is trusted as-is
// once that holds.
func ClaimSource(raw []byte, doc map[string]any, result *Result) (*model.ClaimSource, error) {
	if result == nil || !result.Valid {
		return nil, fmt.Errorf("ldp: cannot build claim source from an unverified document")
	}

	return &model.ClaimSource{
		Format:             model.FormatLDPVC,
		RawBytes:           raw,
		Claims:             doc,
		VerificationHandle: result,
	}, nil
}

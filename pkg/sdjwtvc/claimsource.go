package sdjwtvc

import (
	"fmt"

	"github.com/eidverify/oid4vp/pkg/model"
)

// ClaimSource builds the normalized model.ClaimSource the PE evaluator
// and Verification Orchestrator operate on from a verified SD-JWT VC.
// It must be called only after ParseAndVerify reports Valid, since the
// claims returned here are exactly the selectively-disclosed tree that
// verification reconstructed.
func ClaimSource(raw string, result *VerificationResult) (*model.ClaimSource, error) {
	if result == nil || !result.Valid {
		return nil, fmt.Errorf("sdjwtvc: cannot build claim source from unverified result")
	}

	return &model.ClaimSource{
		Format:             model.FormatVCSDJWT,
		RawBytes:           []byte(raw),
		Claims:             result.Claims,
		VerificationHandle: result,
	}, nil
}

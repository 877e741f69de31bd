package pe

import "fmt"

import "github.com/eidverify/oid4vp/pkg/oid4vperr"

// PENoMatch reports that no candidate ClaimSource satisfies descriptorID.
func PENoMatch(descriptorID string) error {
	return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_evaluate", "no matching credential for input descriptor "+descriptorID)
}

// PEInsufficientPick reports that a pick/all group did not reach its
// required count.
func PEInsufficientPick(group string, required, found int) error {
	return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_evaluate", fmt.Sprintf("group %s requires %d, found %d", group, required, found))
}

// PESchemaViolation wraps a malformed or inconsistent definition.
func PESchemaViolation(reason string) error {
	return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_evaluate", reason)
}

// PEPresentationMismatch reports that a descriptor_map entry's credential
// does not independently satisfy its Input Descriptor on replay.
func PEPresentationMismatch(descriptorID, reason string) error {
	return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", fmt.Sprintf("input descriptor %s: %s", descriptorID, reason))
}

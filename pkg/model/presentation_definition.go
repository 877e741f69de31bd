// Package model holds the wire-compatible data model shared by the PE
// evaluator, the request/response protocol, and the verification
// orchestrator: Presentation Definitions, Submissions, Authorization
// Requests/Responses, and the normalized ClaimSource view of a credential.
package model

import "fmt"

// PresentationDefinition is the Verifier-authored description of what
// credentials and claims it requires, per DIF Presentation Exchange v2.0.0.
type PresentationDefinition struct {
	ID                     string                   `json:"id" validate:"required"`
	Name                   string                   `json:"name,omitempty"`
	Purpose                string                   `json:"purpose,omitempty"`
	Format                 map[string]Format        `json:"format,omitempty"`
	InputDescriptors       []InputDescriptor        `json:"input_descriptors" validate:"required,dive"`
	SubmissionRequirements []SubmissionRequirement  `json:"submission_requirements,omitempty" validate:"omitempty,dive"`
}

// InputDescriptor names one credential the Verifier needs, with the
// constraints that credential must satisfy.
type InputDescriptor struct {
	ID          string            `json:"id" validate:"required"`
	Name        string            `json:"name,omitempty"`
	Purpose     string            `json:"purpose,omitempty"`
	Format      map[string]Format `json:"format,omitempty"`
	Group       []string          `json:"group,omitempty"`
	Schema      []SchemaRef       `json:"schema,omitempty"` // legacy, superseded by Constraints.Fields
	Constraints Constraints       `json:"constraints"`
}

// SchemaRef is the legacy schema[] entry on an Input Descriptor.
type SchemaRef struct {
	URI      string `json:"uri" validate:"required"`
	Required bool   `json:"required,omitempty"`
}

// Format declares, per credential format, the algorithms/proof types an
// Input Descriptor (or the definition as a whole) will accept.
type Format struct {
	Alg      []string `json:"alg,omitempty"`
	ProofType []string `json:"proof_type,omitempty"`
}

// LimitDisclosure values for Constraints.LimitDisclosure.
const (
	LimitDisclosureRequired  = "required"
	LimitDisclosurePreferred = "preferred"
	LimitDisclosureAbsent    = ""
)

// Constraints restricts which credentials satisfy an Input Descriptor.
type Constraints struct {
	LimitDisclosure string  `json:"limit_disclosure,omitempty" validate:"omitempty,oneof=required preferred"`
	Fields          []Field `json:"fields,omitempty" validate:"omitempty,dive"`
}

// Predicate values for Field.Predicate.
const (
	PredicateRequired  = "required"
	PredicatePreferred = "preferred"
)

// Field is one constrained claim path within a credential. Path holds an
// ordered list of JSONPath expressions; the first one that resolves against
// the credential's claim document is the one tested against Filter.
type Field struct {
	Name      string   `json:"name,omitempty"`
	Path      []string `json:"path" validate:"required,min=1"`
	Filter    *Filter  `json:"filter,omitempty"`
	Predicate string   `json:"predicate,omitempty" validate:"omitempty,oneof=required preferred"`
	Purpose   string   `json:"purpose,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
}

// Filter is a JSON Schema (draft-7 subset) applied to the first value a
// Field's path resolves to.
type Filter map[string]any

// Validate checks structural invariants that validator tags cannot express
// (the submission_requirements group cross-reference is checked by the PE
// evaluator, which has the full descriptor set in hand).
func (d *PresentationDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("presentation definition: id is required")
	}
	if len(d.InputDescriptors) == 0 {
		return fmt.Errorf("presentation definition %s: at least one input descriptor is required", d.ID)
	}
	seen := make(map[string]bool, len(d.InputDescriptors))
	for _, desc := range d.InputDescriptors {
		if desc.ID == "" {
			return fmt.Errorf("presentation definition %s: input descriptor with empty id", d.ID)
		}
		if seen[desc.ID] {
			return fmt.Errorf("presentation definition %s: duplicate input descriptor id %q", d.ID, desc.ID)
		}
		seen[desc.ID] = true
	}
	return nil
}

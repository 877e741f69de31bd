package pe

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/oid4vperr"
)

// Selection is the result of Evaluate: a deterministic mapping from Input
// Descriptor id to the index of the ClaimSource chosen to satisfy it, and
// the Presentation Submission ready for emission.
type Selection struct {
	Assignment map[string]int
	Submission model.PresentationSubmission
}

// Evaluate is the pure matching function: given a Presentation Definition
// and a candidate set of normalized credentials, it decides which
// credentials satisfy which Input Descriptors and returns a Selection, or
// a PresentationMismatch error naming the first unsatisfiable requirement.
func Evaluate(def *model.PresentationDefinition, sources []model.ClaimSource) (*Selection, error) {
	candidates := make(map[string][]int, len(def.InputDescriptors))
	requireDistinct := make(map[string]bool, len(def.InputDescriptors))
	satisfiable := make(map[string]bool, len(def.InputDescriptors))

	for _, desc := range def.InputDescriptors {
		var idxs []int
		for i, src := range sources {
			ok, _, err := DescriptorMatch(src, desc, def.Format)
			if err != nil {
				return nil, err
			}
			if ok {
				idxs = append(idxs, i)
			}
		}
		candidates[desc.ID] = idxs
		satisfiable[desc.ID] = len(idxs) > 0
		requireDistinct[desc.ID] = desc.Constraints.LimitDisclosure == model.LimitDisclosureRequired
	}

	selected, err := selectDescriptorIDs(def, satisfiable)
	if err != nil {
		return nil, err
	}

	assignment, err := assignSources(selected, candidates, requireDistinct)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Assignment: assignment,
		Submission: buildSubmission(def.ID, selected, assignment, sources),
	}, nil
}

// Validate is the symmetric check used by the Verification Orchestrator:
// it confirms a received Presentation Submission is consistent with def,
// replaying the same matching rules Evaluate used, without reconstructing
// the original selection.
func Validate(def *model.PresentationDefinition, sub *model.PresentationSubmission, sources []model.ClaimSource) error {
	if sub.DefinitionID != def.ID {
		return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", "presentation_submission.definition_id does not match the definition")
	}

	descByID := make(map[string]model.InputDescriptor, len(def.InputDescriptors))
	for _, d := range def.InputDescriptors {
		descByID[d.ID] = d
	}

	verified := make(map[string]bool, len(sub.DescriptorMap))
	for _, entry := range sub.DescriptorMap {
		desc, ok := descByID[entry.ID]
		if !ok {
			return oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", "descriptor_map references unknown input descriptor "+entry.ID)
		}
		idx, err := resolveDescriptorPath(entry.Path, len(sources))
		if err != nil {
			return err
		}
		ok, reason, err := DescriptorMatch(sources[idx], desc, def.Format)
		if err != nil {
			return err
		}
		if !ok {
			return PEPresentationMismatch(entry.ID, reason)
		}
		verified[entry.ID] = true
	}

	if len(def.SubmissionRequirements) == 0 {
		for _, desc := range def.InputDescriptors {
			if !verified[desc.ID] {
				return PENoMatch(desc.ID)
			}
		}
		return nil
	}

	for _, req := range def.SubmissionRequirements {
		if _, err := evaluateRequirement(def, req, verified); err != nil {
			return err
		}
	}
	return nil
}

func selectDescriptorIDs(def *model.PresentationDefinition, satisfiable map[string]bool) ([]string, error) {
	if len(def.SubmissionRequirements) == 0 {
		selected := make([]string, 0, len(def.InputDescriptors))
		for _, desc := range def.InputDescriptors {
			if !satisfiable[desc.ID] {
				return nil, PENoMatch(desc.ID)
			}
			selected = append(selected, desc.ID)
		}
		return selected, nil
	}

	seen := map[string]bool{}
	var selected []string
	for _, req := range def.SubmissionRequirements {
		ids, err := evaluateRequirement(def, req, satisfiable)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				selected = append(selected, id)
			}
		}
	}
	sort.Strings(selected)
	return selected, nil
}

// assignSources assigns each selected descriptor id to a candidate
// ClaimSource index, reusing lower indices to minimize the number of
// distinct sources used, except where requireDistinct forces every
// descriptor onto its own source (limit_disclosure = required).
func assignSources(selected []string, candidates map[string][]int, requireDistinct map[string]bool) (map[string]int, error) {
	sort.Strings(selected)
	used := map[int]bool{}
	assignment := make(map[string]int, len(selected))

	for _, id := range selected {
		idxs := candidates[id]
		chosen := -1
		if requireDistinct[id] {
			for _, idx := range idxs {
				if !used[idx] {
					chosen = idx
					break
				}
			}
		} else if len(idxs) > 0 {
			chosen = idxs[0]
		}
		if chosen == -1 {
			return nil, PENoMatch(id)
		}
		assignment[id] = chosen
		used[chosen] = true
	}
	return assignment, nil
}

func buildSubmission(defID string, selected []string, assignment map[string]int, sources []model.ClaimSource) model.PresentationSubmission {
	descMap := make([]model.Descriptor, 0, len(selected))
	for _, id := range selected {
		idx := assignment[id]
		path := "$"
		if len(sources) > 1 {
			path = fmt.Sprintf("$.verifiableCredential[%d]", idx)
		}
		descMap = append(descMap, model.Descriptor{
			ID:     id,
			Path:   path,
			Format: sources[idx].Format,
		})
	}
	return model.PresentationSubmission{
		ID:            uuid.NewString(),
		DefinitionID:  defID,
		DescriptorMap: descMap,
	}
}

var nestedCredentialPath = regexp.MustCompile(`^\$\.verifiableCredential\[(\d+)\]$`)

func resolveDescriptorPath(path string, n int) (int, error) {
	if path == "$" {
		if n == 0 {
			return 0, oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", "descriptor_map path $ but no credentials present")
		}
		return 0, nil
	}
	m := nestedCredentialPath.FindStringSubmatch(path)
	if m == nil {
		return 0, oid4vperr.New(oid4vperr.MalformedInput, "pe_validate", "unrecognized descriptor_map path "+path)
	}
	idx, _ := strconv.Atoi(m[1])
	if idx < 0 || idx >= n {
		return 0, oid4vperr.New(oid4vperr.PresentationMismatch, "pe_validate", "descriptor_map path index out of range: "+path)
	}
	return idx, nil
}

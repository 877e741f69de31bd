package pe

import "sort"

import "github.com/eidverify/oid4vp/pkg/model"

// evaluateRequirement resolves one submission_requirement node against
// satisfiable (the set of Input Descriptor ids known to have at least one
// matching ClaimSource, or, when replaying a received submission, the set
// already verified present). It returns the descriptor ids the node
// selects, post-order, per the tree evaluation design.
func evaluateRequirement(def *model.PresentationDefinition, r model.SubmissionRequirement, satisfiable map[string]bool) ([]string, error) {
	if r.IsLeaf() {
		return evaluateLeaf(def, r, satisfiable)
	}
	return evaluateNested(def, r, satisfiable)
}

func evaluateLeaf(def *model.PresentationDefinition, r model.SubmissionRequirement, satisfiable map[string]bool) ([]string, error) {
	members := groupMembers(def, r.From)

	var satisfied []string
	for _, id := range members {
		if satisfiable[id] {
			satisfied = append(satisfied, id)
		}
	}
	sort.Strings(satisfied)

	switch r.Rule {
	case model.RuleAll:
		if len(satisfied) != len(members) {
			return nil, PEInsufficientPick(r.From, len(members), len(satisfied))
		}
		return satisfied, nil
	case model.RulePick:
		min, max := r.Bounds()
		if len(satisfied) < min {
			return nil, PEInsufficientPick(r.From, min, len(satisfied))
		}
		return selectCount(satisfied, min, max), nil
	default:
		return nil, PESchemaViolation("submission requirement has unknown rule " + r.Rule)
	}
}

func evaluateNested(def *model.PresentationDefinition, r model.SubmissionRequirement, satisfiable map[string]bool) ([]string, error) {
	satisfiedCount := 0
	seen := map[string]bool{}
	var unioned []string
	var firstErr error

	for _, child := range r.FromNested {
		ids, err := evaluateRequirement(def, child, satisfiable)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		satisfiedCount++
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				unioned = append(unioned, id)
			}
		}
	}
	sort.Strings(unioned)

	switch r.Rule {
	case model.RuleAll:
		if satisfiedCount != len(r.FromNested) {
			return nil, firstErr
		}
	case model.RulePick:
		min, max := r.Bounds()
		if satisfiedCount < min || satisfiedCount > max {
			return nil, PEInsufficientPick(r.Name, min, satisfiedCount)
		}
	default:
		return nil, PESchemaViolation("submission requirement has unknown rule " + r.Rule)
	}
	return unioned, nil
}

func groupMembers(def *model.PresentationDefinition, group string) []string {
	var ids []string
	for _, d := range def.InputDescriptors {
		for _, g := range d.Group {
			if g == group {
				ids = append(ids, d.ID)
				break
			}
		}
	}
	return ids
}

// selectCount picks a deterministic n-element slice of ids (sorted) within
// [min, max], choosing the smallest satisfying count.
func selectCount(ids []string, min, max int) []string {
	n := min
	if n > len(ids) {
		n = len(ids)
	}
	if max > 0 && n > max {
		n = max
	}
	return ids[:n]
}

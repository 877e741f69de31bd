// Package pe implements the Presentation Exchange evaluator: matching
// Input Descriptors against normalized credentials, resolving
// submission_requirements, and emitting or replaying a Presentation
// Submission.
package pe

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"
	"github.com/kaptinlin/jsonschema"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/eidverify/oid4vp/pkg/oid4vperr"
)

var schemaCompiler = jsonschema.NewCompiler()

// MatchField evaluates one Field against a credential's claim document. It
// walks Path in order; the first path that resolves is the one tested
// against Filter (first-resolved-wins, not first-matching-wins). If no
// path resolves, the field is satisfied only when Optional is set.
func MatchField(claims map[string]any, f model.Field) (matched bool, resolvedPath string, err error) {
	for _, path := range f.Path {
		nodes, ok := resolveJSONPath(claims, path)
		if !ok {
			continue
		}
		for _, node := range nodes {
			ok, err := matchesFilter(node, f.Filter)
			if err != nil {
				return false, path, oid4vperr.Wrap(oid4vperr.MalformedInput, "match_field", err)
			}
			if ok {
				return true, path, nil
			}
		}
		return false, path, nil
	}
	return f.Optional, "", nil
}

// resolveJSONPath evaluates path against claims, returning every node it
// resolved to (a single-element slice for a scalar match, the elements of
// an array for a multi-node match), or ok=false if the path resolved to
// nothing.
func resolveJSONPath(claims map[string]any, path string) (nodes []any, ok bool) {
	result, err := jsonpath.Get(path, any(claims))
	if err != nil {
		return nil, false
	}
	if arr, isArr := result.([]any); isArr {
		if len(arr) == 0 {
			return nil, false
		}
		return arr, true
	}
	return []any{result}, true
}

func matchesFilter(value any, filter *model.Filter) (bool, error) {
	if filter == nil {
		return true, nil
	}
	raw, err := json.Marshal(map[string]any(*filter))
	if err != nil {
		return false, err
	}
	schema, err := schemaCompiler.Compile(raw)
	if err != nil {
		return false, err
	}
	return schema.Validate(value).IsValid(), nil
}

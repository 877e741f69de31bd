package pe

import "github.com/eidverify/oid4vp/pkg/model"

// DescriptorMatch reports whether src satisfies desc: its format is
// permitted, every non-optional field resolves and matches its filter, and
// every legacy schema[] entry marked required has its URI present in the
// credential's type/@context (entries not marked required are not checked).
func DescriptorMatch(src model.ClaimSource, desc model.InputDescriptor, defFormats map[string]model.Format) (bool, string, error) {
	if !formatPermitted(src.Format, desc.Format, defFormats) {
		return false, "credential format " + src.Format + " not permitted by input descriptor " + desc.ID, nil
	}

	for _, f := range desc.Constraints.Fields {
		matched, _, err := MatchField(src.Claims, f)
		if err != nil {
			return false, "", err
		}
		if !matched {
			return false, fieldFailureReason(desc.ID, f), nil
		}
	}

	if ok, reason := schemaURIsPresent(src.Claims, desc.Schema); !ok {
		return false, reason, nil
	}

	return true, "", nil
}

func formatPermitted(format string, descFormats map[string]model.Format, defFormats map[string]model.Format) bool {
	if len(descFormats) > 0 {
		_, ok := descFormats[format]
		return ok
	}
	if len(defFormats) > 0 {
		_, ok := defFormats[format]
		return ok
	}
	return true
}

func fieldFailureReason(descriptorID string, f model.Field) string {
	name := f.Name
	if name == "" && len(f.Path) > 0 {
		name = f.Path[0]
	}
	return "input descriptor " + descriptorID + ": field " + name + " did not resolve or match"
}

// schemaURIsPresent checks the legacy schema[] constraint: every required
// entry must be present among the credential's @context or type values
// (including a nested "vc" wrapper, per the jwt_vc aliasing rule).
func schemaURIsPresent(claims map[string]any, schema []model.SchemaRef) (bool, string) {
	if len(schema) == 0 {
		return true, ""
	}

	present := map[string]bool{}
	addAll := func(v any) {
		for _, s := range stringValues(v) {
			present[s] = true
		}
	}
	addAll(claims["@context"])
	addAll(claims["type"])
	if vc, ok := claims["vc"].(map[string]any); ok {
		addAll(vc["@context"])
		addAll(vc["type"])
	}

	for _, ref := range schema {
		if ref.Required && !present[ref.URI] {
			return false, "required schema " + ref.URI + " not present in @context/type"
		}
	}
	return true, ""
}

func stringValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

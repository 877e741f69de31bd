// Package claims maps verified credential claims onto an OIDC-shaped claim
// set. It runs after the Verification Orchestrator has produced a
// model.ClaimSource for each matched Input Descriptor; it never re-parses a
// raw VP token, since by the time it runs the format adapter has already
// decoded and verified the credential.
package claims

import (
	"fmt"
	"strings"
	"time"

	"github.com/eidverify/oid4vp/pkg/model"
)

// Mapper maps and transforms claims from verified ClaimSources.
type Mapper struct{}

// NewMapper creates a Mapper. It holds no state; mappings and transforms are
// supplied per call so the same Mapper can serve every Input Descriptor.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ExtractClaims returns the claim document of an already-verified
// ClaimSource. It exists as the single seam between the Credential Format
// Adapters and the mapping/transform pipeline below.
func (m *Mapper) ExtractClaims(source *model.ClaimSource) (map[string]any, error) {
	if source == nil {
		return nil, fmt.Errorf("claims: claim source is nil")
	}
	if source.Claims == nil {
		return nil, fmt.Errorf("claims: claim source has no claims")
	}
	return source.Claims, nil
}

// MapToOIDC maps VC claims to OIDC claims using claimMappings.
// claimMappings: key = VC claim path, value = OIDC claim name.
// The special mapping "*":"*" passes every non-internal claim through
// unchanged, under its original name.
func (m *Mapper) MapToOIDC(vcClaims map[string]any, claimMappings map[string]string) (map[string]any, error) {
	if vcClaims == nil {
		return nil, fmt.Errorf("claims: VC claims are nil")
	}
	if claimMappings == nil {
		return nil, fmt.Errorf("claims: claim mappings are nil")
	}

	oidcClaims := make(map[string]any)

	if wildcardTarget, hasWildcard := claimMappings["*"]; hasWildcard && wildcardTarget == "*" {
		for key, value := range vcClaims {
			if !isInternalClaim(key) {
				oidcClaims[key] = value
			}
		}
		return oidcClaims, nil
	}

	for vcPath, oidcName := range claimMappings {
		if vcPath == "*" {
			continue
		}

		value, err := m.extractNestedClaim(vcClaims, vcPath)
		if err != nil {
			continue
		}

		oidcClaims[oidcName] = value
	}

	return oidcClaims, nil
}

// extractNestedClaim extracts a claim value from a dotted path, e.g.
// "place_of_birth.country".
func (m *Mapper) extractNestedClaim(claims map[string]any, path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("claims: empty claim path")
	}

	parts := strings.Split(path, ".")

	current := claims
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, fmt.Errorf("claims: claim %q not found at path %q", part, path)
		}

		if i == len(parts)-1 {
			return value, nil
		}

		nextMap, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("claims: claim %q is not an object, cannot traverse further in path %q", part, path)
		}
		current = nextMap
	}

	return nil, fmt.Errorf("claims: unexpected error extracting claim at path %q", path)
}

// ApplyTransforms applies transformDefs, keyed by OIDC claim name, to an
// already-mapped claim set.
func (m *Mapper) ApplyTransforms(claims map[string]any, transformDefs map[string]TransformDef) (map[string]any, error) {
	if len(transformDefs) == 0 {
		return claims, nil
	}

	transformed := make(map[string]any, len(claims))
	for key, value := range claims {
		transformed[key] = value
	}

	for claimName, def := range transformDefs {
		value, exists := transformed[claimName]
		if !exists {
			continue
		}

		out, err := m.applyTransform(value, def)
		if err != nil {
			return nil, fmt.Errorf("claims: transform claim %q: %w", claimName, err)
		}
		transformed[claimName] = out
	}

	return transformed, nil
}

// TransformDef names a single claim transformation and its parameters.
type TransformDef struct {
	Type   string
	Params map[string]string
}

// Transform type names accepted by applyTransform.
const (
	TransformDateFormat    = "date_format"
	TransformBooleanString = "boolean_string"
	TransformUppercase     = "uppercase"
	TransformLowercase     = "lowercase"
)

func (m *Mapper) applyTransform(value any, transform TransformDef) (any, error) {
	switch transform.Type {
	case TransformDateFormat:
		return transformDateFormat(value, transform.Params)
	case TransformBooleanString:
		return transformBooleanString(value, transform.Params)
	case TransformUppercase:
		return transformUppercase(value)
	case TransformLowercase:
		return transformLowercase(value)
	default:
		return nil, fmt.Errorf("claims: unknown transform type %q", transform.Type)
	}
}

func transformDateFormat(value any, params map[string]string) (any, error) {
	dateStr, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("claims: date value is not a string: %T", value)
	}

	fromFormat := params["from"]
	toFormat := params["to"]
	if fromFormat == "" || toFormat == "" {
		return nil, fmt.Errorf("claims: date_format transform requires 'from' and 'to' parameters")
	}

	parsed, err := time.Parse(fromFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("claims: parse date %q with format %q: %w", dateStr, fromFormat, err)
	}

	return parsed.Format(toFormat), nil
}

func transformBooleanString(value any, params map[string]string) (any, error) {
	boolVal, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("claims: boolean value is not a bool: %T", value)
	}

	trueValue := params["true_value"]
	if trueValue == "" {
		trueValue = "yes"
	}
	falseValue := params["false_value"]
	if falseValue == "" {
		falseValue = "no"
	}

	if boolVal {
		return trueValue, nil
	}
	return falseValue, nil
}

func transformUppercase(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("claims: uppercase value is not a string: %T", value)
	}
	return strings.ToUpper(str), nil
}

func transformLowercase(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("claims: lowercase value is not a string: %T", value)
	}
	return strings.ToLower(str), nil
}

// isInternalClaim reports whether key is a credential-format bookkeeping
// claim that an OIDC consumer never wants, not a wallet-disclosed attribute.
func isInternalClaim(key string) bool {
	switch key {
	case "_sd", "_sd_alg", "iss", "iat", "exp", "nbf", "vct", "cnf", "status":
		return true
	default:
		return false
	}
}

// MapClaimSource runs the full pipeline — extract, map, transform — over a
// single verified ClaimSource. No other package in this module calls it.
func (m *Mapper) MapClaimSource(source *model.ClaimSource, claimMappings map[string]string, transformDefs map[string]TransformDef) (map[string]any, error) {
	vcClaims, err := m.ExtractClaims(source)
	if err != nil {
		return nil, fmt.Errorf("claims: extraction failed: %w", err)
	}

	oidcClaims, err := m.MapToOIDC(vcClaims, claimMappings)
	if err != nil {
		return nil, fmt.Errorf("claims: mapping failed: %w", err)
	}

	if len(transformDefs) > 0 {
		oidcClaims, err = m.ApplyTransforms(oidcClaims, transformDefs)
		if err != nil {
			return nil, fmt.Errorf("claims: transformation failed: %w", err)
		}
	}

	return oidcClaims, nil
}

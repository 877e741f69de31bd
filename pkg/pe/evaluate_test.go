package pe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidverify/oid4vp/pkg/model"
)

func passportSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{
			"type": []any{"VerifiableCredential", "PassportCredential"},
			"vc": map[string]any{
				"type": []any{"VerifiableCredential", "PassportCredential"},
				"credentialSubject": map[string]any{
					"given_name": "Alice",
				},
			},
		},
	}
}

func identityDefinition() *model.PresentationDefinition {
	return &model.PresentationDefinition{
		ID:   "identity_verification",
		Name: "Identity Verification",
		InputDescriptors: []model.InputDescriptor{
			{
				ID:     "identity_credential",
				Format: map[string]model.Format{model.FormatJWTVC: {Alg: []string{"ES256"}}},
				Constraints: model.Constraints{
					Fields: []model.Field{
						{Path: []string{"$.vc.credentialSubject.given_name"}},
					},
				},
			},
		},
	}
}

func TestEvaluate_SimpleIdentity(t *testing.T) {
	def := identityDefinition()
	sel, err := Evaluate(def, []model.ClaimSource{passportSource()})
	require.NoError(t, err)

	assert.Equal(t, "identity_verification", sel.Submission.DefinitionID)
	require.Len(t, sel.Submission.DescriptorMap, 1)
	assert.Equal(t, "identity_credential", sel.Submission.DescriptorMap[0].ID)
	assert.Equal(t, "$", sel.Submission.DescriptorMap[0].Path)
	assert.Equal(t, model.FormatJWTVC, sel.Submission.DescriptorMap[0].Format)

	assert.NoError(t, Validate(def, &sel.Submission, []model.ClaimSource{passportSource()}))
}

func educationSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{
			"vc": map[string]any{
				"type":              []any{"VerifiableCredential", "EducationCredential"},
				"credentialSubject": map[string]any{"degree": "BSc"},
			},
		},
	}
}

func professionalSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{
			"vc": map[string]any{
				"type":              []any{"VerifiableCredential", "ProfessionalCredential"},
				"credentialSubject": map[string]any{"license": "12345"},
			},
		},
	}
}

func comprehensiveDefinition() *model.PresentationDefinition {
	return &model.PresentationDefinition{
		ID:   "comprehensive_verification",
		Name: "Comprehensive Verification",
		InputDescriptors: []model.InputDescriptor{
			{
				ID: "identity_credential",
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.given_name"}}},
				},
			},
			{
				ID: "educational_credential",
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.degree"}}},
				},
			},
			{
				ID: "professional_credential",
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.license"}}},
				},
			},
		},
	}
}

func TestEvaluate_MultiDescriptorAllRequired(t *testing.T) {
	def := comprehensiveDefinition()
	sources := []model.ClaimSource{passportSource(), educationSource(), professionalSource()}

	sel, err := Evaluate(def, sources)
	require.NoError(t, err)
	assert.Len(t, sel.Submission.DescriptorMap, 3)
}

func TestEvaluate_MultiDescriptorMissingProfessional(t *testing.T) {
	def := comprehensiveDefinition()
	sources := []model.ClaimSource{passportSource(), educationSource()}

	_, err := Evaluate(def, sources)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "professional_credential")
}

func nestedDefinition() *model.PresentationDefinition {
	return &model.PresentationDefinition{
		ID: "complex_example",
		InputDescriptors: []model.InputDescriptor{
			{
				ID:    "given_name",
				Group: []string{"basic_info"},
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.given_name"}}},
				},
			},
			{
				ID:    "birth_date",
				Group: []string{"basic_info"},
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.birth_date"}}},
				},
			},
			{
				ID:    "drivers_license",
				Group: []string{"id_document"},
				Constraints: model.Constraints{
					Fields: []model.Field{{Path: []string{"$.vc.credentialSubject.license_number"}}},
				},
			},
		},
		SubmissionRequirements: []model.SubmissionRequirement{
			{
				Rule: model.RuleAll,
				FromNested: []model.SubmissionRequirement{
					{Rule: model.RulePick, From: "basic_info", Count: 2},
					{Rule: model.RulePick, From: "id_document", Count: 1},
				},
			},
		},
	}
}

func givenNameSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{"vc": map[string]any{"credentialSubject": map[string]any{"given_name": "Alice"}}},
	}
}

func birthDateSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{"vc": map[string]any{"credentialSubject": map[string]any{"birth_date": "2000-01-01"}}},
	}
}

func driversLicenseSource() model.ClaimSource {
	return model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{"vc": map[string]any{"credentialSubject": map[string]any{"license_number": "D1234"}}},
	}
}

func TestEvaluate_NestedSubmissionRequirement_Satisfied(t *testing.T) {
	def := nestedDefinition()
	sources := []model.ClaimSource{givenNameSource(), birthDateSource(), driversLicenseSource()}

	sel, err := Evaluate(def, sources)
	require.NoError(t, err)
	assert.Len(t, sel.Submission.DescriptorMap, 3)
}

func TestEvaluate_NestedSubmissionRequirement_InsufficientPick(t *testing.T) {
	def := nestedDefinition()
	sources := []model.ClaimSource{givenNameSource(), driversLicenseSource()}

	_, err := Evaluate(def, sources)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "basic_info")
}

func TestMatchField_JSONPathAlias(t *testing.T) {
	claims := map[string]any{
		"vc": map[string]any{
			"type": []any{"VerifiableCredential", "IdentityCredential"},
		},
	}
	field := model.Field{Path: []string{"$.type", "$.vc.type"}}

	matched, path, err := MatchField(claims, field)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "$.vc.type", path)
}

func TestMatchField_OptionalVacuousMatch(t *testing.T) {
	field := model.Field{Path: []string{"$.missing"}, Optional: true}
	matched, _, err := MatchField(map[string]any{}, field)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchField_FilterRejectsValue(t *testing.T) {
	claims := map[string]any{"age": 12}
	filter := model.Filter{"type": "integer", "minimum": 18}
	field := model.Field{Path: []string{"$.age"}, Filter: &filter}

	matched, _, err := MatchField(claims, field)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluate_LimitDisclosureForcesDistinctSources(t *testing.T) {
	def := &model.PresentationDefinition{
		ID: "distinct_example",
		InputDescriptors: []model.InputDescriptor{
			{
				ID: "a",
				Constraints: model.Constraints{
					LimitDisclosure: model.LimitDisclosureRequired,
					Fields:          []model.Field{{Path: []string{"$.vc.credentialSubject.x"}}},
				},
			},
			{
				ID: "b",
				Constraints: model.Constraints{
					LimitDisclosure: model.LimitDisclosureRequired,
					Fields:          []model.Field{{Path: []string{"$.vc.credentialSubject.x"}}},
				},
			},
		},
	}
	shared := model.ClaimSource{
		Format: model.FormatJWTVC,
		Claims: map[string]any{"vc": map[string]any{"credentialSubject": map[string]any{"x": "y"}}},
	}

	_, err := Evaluate(def, []model.ClaimSource{shared})
	require.Error(t, err, "a single source cannot satisfy two limit_disclosure=required descriptors")

	sel, err := Evaluate(def, []model.ClaimSource{shared, shared})
	require.NoError(t, err)
	assert.NotEqual(t, sel.Assignment["a"], sel.Assignment["b"])
}

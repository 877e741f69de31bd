package claims

import (
	"testing"

	"github.com/eidverify/oid4vp/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_ExtractClaims(t *testing.T) {
	m := NewMapper()

	claims, err := m.ExtractClaims(&model.ClaimSource{Claims: map[string]any{"given_name": "John"}})
	require.NoError(t, err)
	assert.Equal(t, "John", claims["given_name"])

	_, err = m.ExtractClaims(nil)
	assert.Error(t, err)

	_, err = m.ExtractClaims(&model.ClaimSource{})
	assert.Error(t, err)
}

func TestMapper_ExtractNestedClaim(t *testing.T) {
	m := NewMapper()

	tests := []struct {
		name      string
		claims    map[string]any
		path      string
		want      any
		wantError bool
	}{
		{
			name:   "simple claim",
			claims: map[string]any{"given_name": "John", "family_name": "Doe"},
			path:   "given_name",
			want:   "John",
		},
		{
			name: "nested claim - one level",
			claims: map[string]any{
				"address": map[string]any{"country": "SE", "city": "Stockholm"},
			},
			path: "address.country",
			want: "SE",
		},
		{
			name: "nested claim - two levels",
			claims: map[string]any{
				"place_of_birth": map[string]any{
					"address": map[string]any{"country": "Sweden"},
				},
			},
			path: "place_of_birth.address.country",
			want: "Sweden",
		},
		{
			name:      "claim not found",
			claims:    map[string]any{"given_name": "John"},
			path:      "family_name",
			wantError: true,
		},
		{
			name:      "nested path not found",
			claims:    map[string]any{"address": map[string]any{"country": "SE"}},
			path:      "address.city",
			wantError: true,
		},
		{
			name:      "empty path",
			claims:    map[string]any{"given_name": "John"},
			path:      "",
			wantError: true,
		},
		{
			name:      "non-object in path",
			claims:    map[string]any{"birthdate": "1990-01-01"},
			path:      "birthdate.year",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.extractNestedClaim(tt.claims, tt.path)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapper_MapToOIDC(t *testing.T) {
	m := NewMapper()

	tests := []struct {
		name          string
		vcClaims      map[string]any
		claimMappings map[string]string
		want          map[string]any
		wantError     bool
	}{
		{
			name: "simple mapping",
			vcClaims: map[string]any{
				"given_name":  "John",
				"family_name": "Doe",
				"birthdate":   "1990-01-01",
			},
			claimMappings: map[string]string{
				"given_name":  "given_name",
				"family_name": "family_name",
			},
			want: map[string]any{"given_name": "John", "family_name": "Doe"},
		},
		{
			name: "wildcard mapping filters internal claims",
			vcClaims: map[string]any{
				"given_name": "John",
				"_sd":        []string{"hash1"},
				"_sd_alg":    "sha-256",
			},
			claimMappings: map[string]string{"*": "*"},
			want:          map[string]any{"given_name": "John"},
		},
		{
			name: "renamed claims",
			vcClaims: map[string]any{
				"given_name":  "John",
				"family_name": "Doe",
			},
			claimMappings: map[string]string{
				"given_name":  "first_name",
				"family_name": "last_name",
			},
			want: map[string]any{"first_name": "John", "last_name": "Doe"},
		},
		{
			name: "nested claim mapping",
			vcClaims: map[string]any{
				"place_of_birth": map[string]any{"country": "Sweden", "city": "Stockholm"},
			},
			claimMappings: map[string]string{
				"place_of_birth.country": "birth_country",
				"place_of_birth.city":    "birth_city",
			},
			want: map[string]any{"birth_country": "Sweden", "birth_city": "Stockholm"},
		},
		{
			name:     "partial mapping ignores missing claims",
			vcClaims: map[string]any{"given_name": "John"},
			claimMappings: map[string]string{
				"given_name":  "given_name",
				"family_name": "family_name",
			},
			want: map[string]any{"given_name": "John"},
		},
		{
			name:          "nil VC claims",
			vcClaims:      nil,
			claimMappings: map[string]string{"given_name": "given_name"},
			wantError:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.MapToOIDC(tt.vcClaims, tt.claimMappings)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapper_ApplyTransforms(t *testing.T) {
	m := NewMapper()

	claims := map[string]any{
		"birthdate": "1990-01-02",
		"is_adult":  true,
		"country":   "se",
	}

	transforms := map[string]TransformDef{
		"birthdate": {Type: TransformDateFormat, Params: map[string]string{"from": "2006-01-02", "to": "02/01/2006"}},
		"is_adult":  {Type: TransformBooleanString, Params: map[string]string{"true_value": "Y", "false_value": "N"}},
		"country":   {Type: TransformUppercase},
	}

	out, err := m.ApplyTransforms(claims, transforms)
	require.NoError(t, err)
	assert.Equal(t, "02/01/1990", out["birthdate"])
	assert.Equal(t, "Y", out["is_adult"])
	assert.Equal(t, "SE", out["country"])
}

func TestMapper_ApplyTransforms_NoOpWithoutDefs(t *testing.T) {
	m := NewMapper()
	claims := map[string]any{"given_name": "John"}

	out, err := m.ApplyTransforms(claims, nil)
	require.NoError(t, err)
	assert.Equal(t, claims, out)
}

func TestMapper_ApplyTransforms_UnknownType(t *testing.T) {
	m := NewMapper()
	claims := map[string]any{"x": "y"}

	_, err := m.ApplyTransforms(claims, map[string]TransformDef{"x": {Type: "rot13"}})
	assert.Error(t, err)
}

func TestMapper_MapClaimSource(t *testing.T) {
	m := NewMapper()

	source := &model.ClaimSource{
		Format: model.FormatVCSDJWT,
		Claims: map[string]any{
			"given_name": "john",
			"is_adult":   true,
			"_sd":        []string{"hash"},
		},
	}

	out, err := m.MapClaimSource(
		source,
		map[string]string{"given_name": "given_name", "is_adult": "is_adult"},
		map[string]TransformDef{"given_name": {Type: TransformUppercase}},
	)
	require.NoError(t, err)
	assert.Equal(t, "JOHN", out["given_name"])
	assert.Equal(t, true, out["is_adult"])
	assert.NotContains(t, out, "_sd")
}

func TestMapper_MapClaimSource_NilSource(t *testing.T) {
	m := NewMapper()
	_, err := m.MapClaimSource(nil, map[string]string{"*": "*"}, nil)
	assert.Error(t, err)
}

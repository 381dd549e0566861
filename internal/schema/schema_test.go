// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ObjectForm(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {
			"tenant_name": {"type": "string", "description": "Full tenant name"},
			"monthly_rent": {"type": "number"}
		},
		"required": ["tenant_name"]
	}`)

	def, err := Parse(raw)
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	assert.Equal(t, "string", def.Properties["tenant_name"].Type)
	assert.Equal(t, []string{"tenant_name"}, def.Required)
}

func TestParse_ListForm(t *testing.T) {
	raw := json.RawMessage(`[
		{"name": "landlord", "type": "string"},
		{"name": "deposit", "type": "number", "description": "Security deposit"},
		{"name": "", "type": "string"},
		{"name": "notes"}
	]`)

	def, err := Parse(raw)
	require.NoError(t, err)
	require.NoError(t, def.Validate())

	assert.Len(t, def.Properties, 3)
	assert.Equal(t, "Extract the landlord", def.Properties["landlord"].Description)
	assert.Equal(t, "Security deposit", def.Properties["deposit"].Description)
	// Missing type defaults to string
	assert.Equal(t, "string", def.Properties["notes"].Type)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse(json.RawMessage(`"just a string"`))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{
			name: "valid",
			def: Definition{Properties: map[string]Property{
				"a": {Type: "string"},
			}},
		},
		{
			name:    "no properties",
			def:     Definition{},
			wantErr: true,
		},
		{
			name: "property without type",
			def: Definition{Properties: map[string]Property{
				"a": {},
			}},
			wantErr: true,
		},
		{
			name: "unknown type",
			def: Definition{Properties: map[string]Property{
				"a": {Type: "decimal"},
			}},
			wantErr: true,
		},
		{
			name: "required field not declared",
			def: Definition{
				Properties: map[string]Property{"a": {Type: "string"}},
				Required:   []string{"b"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustomize(t *testing.T) {
	def := Definition{
		Type: "object",
		Properties: map[string]Property{
			"rent":   {Type: "number", Description: "Monthly rent"},
			"tenant": {Type: "string"},
		},
	}

	out := def.Customize(map[string]Property{
		"rent":    {Description: "Monthly rent in EUR"},
		"unknown": {Type: "string"},
	})

	want := Definition{
		Type: "object",
		Properties: map[string]Property{
			"rent":   {Type: "number", Description: "Monthly rent in EUR"},
			"tenant": {Type: "string"},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("customized definition mismatch (-want +got):\n%s", diff)
	}
	// Original untouched
	assert.Equal(t, "Monthly rent", def.Properties["rent"].Description)
}

func TestValidateData(t *testing.T) {
	def := Definition{
		Properties: map[string]Property{
			"tenant": {Type: "string"},
			"rent":   {Type: "number"},
			"rooms":  {Type: "integer"},
			"active": {Type: "boolean"},
			"tags":   {Type: "array"},
		},
		Required: []string{"tenant"},
	}

	assert.NoError(t, def.ValidateData(map[string]any{
		"tenant": "Jane Doe",
		"rent":   float64(950.50),
		"rooms":  float64(3), // JSON decodes integers to float64
		"active": true,
		"tags":   []any{"furnished"},
		"extra":  "ignored",
	}))

	assert.Error(t, def.ValidateData(map[string]any{"rent": 950.0}), "missing required")
	assert.Error(t, def.ValidateData(map[string]any{"tenant": "x", "rooms": 2.5}), "non-integral integer")
	assert.Error(t, def.ValidateData(map[string]any{"tenant": 42}), "wrong type")
}

func TestNormalizeDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rental Agreement", "rentalagreement"},
		{"rental_agreement", "rentalagreement"},
		{"RENTAL-AGREEMENT", "rentalagreement"},
		{"Employement Contract", "employmentcontract"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDocumentType(tt.in), tt.in)
	}
}

func TestCaseVariations(t *testing.T) {
	got := CaseVariations("rental agreement")
	sort.Strings(got)

	assert.Contains(t, got, "rental agreement")
	assert.Contains(t, got, "RENTAL AGREEMENT")
	assert.Contains(t, got, "Rental Agreement")
	assert.Contains(t, got, "rentalagreement")
	assert.Contains(t, got, "rental_agreement")
	assert.Contains(t, got, "RentalAgreement")

	// No duplicates
	for i := 1; i < len(got); i++ {
		assert.NotEqual(t, got[i-1], got[i])
	}
}

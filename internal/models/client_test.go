package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *ClientProfile {
	return &ClientProfile{
		ClientGUID:      "client_meridian",
		MandateType:     "absolute_return",
		MandateText:     "Event-driven opportunities across APAC industrials",
		MandateThemes:   []string{"supply_chain"},
		Horizon:         HorizonMedium,
		ImpactThreshold: 40,
	}
}

func TestClientProfileValidate(t *testing.T) {
	require.NoError(t, validProfile().Validate())

	cases := []struct {
		name   string
		mutate func(*ClientProfile)
	}{
		{"missing client guid", func(p *ClientProfile) { p.ClientGUID = "" }},
		{"oversized mandate text", func(p *ClientProfile) { p.MandateText = strings.Repeat("x", MaxMandateTextLength+1) }},
		{"uncontrolled theme", func(p *ClientProfile) { p.MandateThemes = []string{"moon_landings"} }},
		{"unknown horizon", func(p *ClientProfile) { p.Horizon = "quarterly" }},
		{"threshold below range", func(p *ClientProfile) { p.ImpactThreshold = -1 }},
		{"threshold above range", func(p *ClientProfile) { p.ImpactThreshold = 101 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := validProfile()
			tc.mutate(profile)
			assert.ErrorIs(t, profile.Validate(), ErrValidation)
		})
	}
}

func TestClientProfileValidateAllowsEmptyOptionals(t *testing.T) {
	profile := &ClientProfile{ClientGUID: "client_meridian"}
	assert.NoError(t, profile.Validate())
}

func TestSourceValidate(t *testing.T) {
	valid := func() *Source {
		return &Source{
			SourceID:   "src_reuters",
			GroupID:    "grp_apac",
			Name:       "Reuters Asia",
			Type:       SourceNewsAgency,
			TrustLevel: TrustHigh,
		}
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Source)
	}{
		{"missing source id", func(s *Source) { s.SourceID = "" }},
		{"missing group", func(s *Source) { s.GroupID = "" }},
		{"blank name", func(s *Source) { s.Name = "   " }},
		{"unknown type", func(s *Source) { s.Type = "newspaper" }},
		{"unknown trust level", func(s *Source) { s.TrustLevel = "absolute" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := valid()
			tc.mutate(source)
			assert.ErrorIs(t, source.Validate(), ErrValidation)
		})
	}
}

func TestValidateArgs(t *testing.T) {
	type args struct {
		Title    string `json:"title" validate:"required,max=500"`
		SourceID string `json:"source_id" validate:"required"`
	}

	assert.NoError(t, ValidateArgs(&args{Title: "Pacific Truck wins contract", SourceID: "src_reuters"}))
	assert.ErrorIs(t, ValidateArgs(&args{SourceID: "src_reuters"}), ErrValidation)
	assert.ErrorIs(t, ValidateArgs(&args{Title: strings.Repeat("x", 501), SourceID: "src_reuters"}), ErrValidation)
}

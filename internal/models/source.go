package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceType categorizes a news source
type SourceType string

const (
	SourceNewsAgency SourceType = "news_agency"
	SourceInternal   SourceType = "internal"
	SourceResearch   SourceType = "research"
	SourceGovernment SourceType = "government"
	SourceCorporate  SourceType = "corporate"
	SourceSocial     SourceType = "social"
	SourceOther      SourceType = "other"
)

// ValidSourceTypes lists every accepted source type
var ValidSourceTypes = []SourceType{
	SourceNewsAgency, SourceInternal, SourceResearch,
	SourceGovernment, SourceCorporate, SourceSocial, SourceOther,
}

// TrustLevel grades a source; each level carries a ranking boost factor
type TrustLevel string

const (
	TrustHigh       TrustLevel = "high"
	TrustMedium     TrustLevel = "medium"
	TrustLow        TrustLevel = "low"
	TrustUnverified TrustLevel = "unverified"
)

// BoostFactor returns the multiplicative ranking boost for a trust level
func (t TrustLevel) BoostFactor() float64 {
	switch t {
	case TrustHigh:
		return 1.2
	case TrustMedium:
		return 1.0
	case TrustLow:
		return 0.8
	case TrustUnverified:
		return 0.6
	default:
		return 1.0
	}
}

// Source is a registered news origin. Each source belongs to exactly one
// group; deletion is a soft delete via the Active flag.
type Source struct {
	SourceID   string                 `json:"source_id" validate:"required"`
	GroupID    string                 `json:"group_id" validate:"required"`
	Name       string                 `json:"name" validate:"required"`
	Type       SourceType             `json:"type" validate:"required,oneof=news_agency internal research government corporate social other"`
	Region     string                 `json:"region,omitempty"`
	Languages  []string               `json:"languages,omitempty"`
	TrustLevel TrustLevel             `json:"trust_level" validate:"required,oneof=high medium low unverified"`
	Active     bool                   `json:"active"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	DeletedAt  *time.Time             `json:"deleted_at,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks source record invariants
func (s *Source) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: source name is required", ErrValidation)
	}
	return nil
}

// IsValidSourceType reports whether v names a known source type
func IsValidSourceType(v string) bool {
	for _, t := range ValidSourceTypes {
		if string(t) == v {
			return true
		}
	}
	return false
}

// IsValidTrustLevel reports whether v names a known trust level
func IsValidTrustLevel(v string) bool {
	switch TrustLevel(v) {
	case TrustHigh, TrustMedium, TrustLow, TrustUnverified:
		return true
	}
	return false
}

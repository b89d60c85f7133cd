package models

import (
	"strings"
)

// Horizon is a client's investment horizon
type Horizon string

const (
	HorizonShort  Horizon = "short"
	HorizonMedium Horizon = "medium"
	HorizonLong   Horizon = "long"
)

// PositionSentiment marks a holding as long or short
type PositionSentiment string

const (
	SentimentLong  PositionSentiment = "LONG"
	SentimentShort PositionSentiment = "SHORT"
)

// MaxMandateTextLength caps the free-text mandate description
const MaxMandateTextLength = 5000

// Client owns one portfolio, one watchlist, and one profile, and belongs to
// exactly one group
type Client struct {
	ClientGUID     string `json:"client_guid"`
	Name           string `json:"name"`
	ClientTypeCode string `json:"client_type_code"`
	GroupID        string `json:"group_id"`
}

// Restrictions is the structured restriction block of a client profile
type Restrictions struct {
	ExcludedIndustries     []string `json:"excluded_industries,omitempty"`
	FaithBasedRule         string   `json:"faith_based_rule,omitempty"`
	ImpactThemes           []string `json:"impact_themes,omitempty"`
	StewardshipObligations []string `json:"stewardship_obligations,omitempty"`
	Jurisdictions          []string `json:"jurisdictions,omitempty"`
	ConcentrationLimits    string   `json:"concentration_limits,omitempty"`
}

// ClientProfile captures the mandate a client's feed is personalized against.
// ESGConstrained is tri-state: nil means unset. The max tag on MandateText
// mirrors MaxMandateTextLength.
type ClientProfile struct {
	ProfileGUID      string       `json:"profile_guid"`
	ClientGUID       string       `json:"client_guid" validate:"required"`
	MandateType      string       `json:"mandate_type,omitempty"`
	MandateText      string       `json:"mandate_text,omitempty" validate:"max=5000"`
	MandateThemes    []string     `json:"mandate_themes,omitempty" validate:"dive,theme"`
	MandateEmbedding []float32    `json:"mandate_embedding,omitempty"`
	Horizon          Horizon      `json:"horizon,omitempty" validate:"omitempty,oneof=short medium long"`
	ESGConstrained   *bool        `json:"esg_constrained,omitempty"`
	Restrictions     Restrictions `json:"restrictions,omitempty"`
	ImpactThreshold  float64      `json:"impact_threshold,omitempty" validate:"gte=0,lte=100"`
	Benchmark        string       `json:"benchmark,omitempty"`
	PrimaryContact   string       `json:"primary_contact,omitempty"`
	AlertFrequency   string       `json:"alert_frequency,omitempty"`
}

// Validate checks client profile invariants; mandate themes outside the
// controlled vocabulary are a caller error, not silently dropped
func (p *ClientProfile) Validate() error {
	return validateStruct(p)
}

// Holding is a portfolio position (HOLDS edge payload)
type Holding struct {
	Ticker    string            `json:"ticker"`
	Weight    float64           `json:"weight"` // [0,1]
	Shares    float64           `json:"shares,omitempty"`
	AvgCost   float64           `json:"avg_cost,omitempty"`
	Sentiment PositionSentiment `json:"sentiment,omitempty"`
}

// WatchItem is a watchlist entry (WATCHES edge payload)
type WatchItem struct {
	Ticker         string   `json:"ticker"`
	AlertThreshold *float64 `json:"alert_threshold,omitempty"`
}

// Instrument is a tradable security issued by a company
type Instrument struct {
	Ticker         string `json:"ticker"`
	Name           string `json:"name"`
	InstrumentType string `json:"instrument_type,omitempty"`
	Exchange       string `json:"exchange,omitempty"`
	Currency       string `json:"currency,omitempty"`
	Country        string `json:"country,omitempty"`
}

// Company is an issuer with optional alias spellings and a persona blurb
type Company struct {
	Ticker  string   `json:"ticker"`
	Name    string   `json:"name"`
	Sector  string   `json:"sector,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
	Persona string   `json:"persona,omitempty"`
}

// Factor is a macro factor instruments are exposed to with a signed beta
type Factor struct {
	FactorID    string `json:"factor_id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// NormalizeTicker uppercases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

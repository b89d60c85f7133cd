package models

// Direction is the expected price direction of an instrument mention
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// EventDetection is one detected event in a document
type EventDetection struct {
	EventType  string                 `json:"event_type"`
	Confidence float64                `json:"confidence"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// InstrumentMention is one instrument the extraction believes is affected
type InstrumentMention struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Magnitude float64   `json:"magnitude,omitempty"`
}

// ExtractionResult is the structured output of the LLM extraction pass
type ExtractionResult struct {
	ImpactScore float64             `json:"impact_score"`
	ImpactTier  ImpactTier          `json:"impact_tier"`
	Events      []EventDetection    `json:"events,omitempty"`
	Instruments []InstrumentMention `json:"instruments,omitempty"`
	Companies   []string            `json:"companies,omitempty"`
	Themes      []string            `json:"themes,omitempty"`
	Regions     []string            `json:"regions,omitempty"`
	Sectors     []string            `json:"sectors,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Raw         string              `json:"-"`
}

// Tickers returns the normalized ticker set of all instrument mentions
func (r *ExtractionResult) Tickers() []string {
	if r == nil {
		return nil
	}
	tickers := make([]string, 0, len(r.Instruments))
	for _, m := range r.Instruments {
		if t := NormalizeTicker(m.Ticker); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// PrimaryEventType returns the highest-confidence event type code, or ""
func (r *ExtractionResult) PrimaryEventType() string {
	if r == nil || len(r.Events) == 0 {
		return ""
	}
	best := r.Events[0]
	for _, e := range r.Events[1:] {
		if e.Confidence > best.Confidence {
			best = e
		}
	}
	return best.EventType
}

package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// maxContentChars bounds the article text sent to the model. Extraction
// quality plateaus well before this; anything longer burns tokens.
const maxContentChars = 12000

// ChatProvider is the completion surface the extractor needs
type ChatProvider interface {
	ChatJSON(ctx context.Context, messages []interfaces.Message) (string, error)
	ModelName() string
}

// Service extracts structured market intelligence from raw documents through
// a JSON-mode completion
type Service struct {
	llm    ChatProvider
	logger arbor.ILogger
}

func NewService(llm ChatProvider, logger arbor.ILogger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Extract runs the extraction prompt against a document and returns the
// validated result. Parse failures after repair return ErrExtractionParse so
// ingestion can record a partial success instead of rolling back.
func (s *Service) Extract(ctx context.Context, doc *models.Document) (*models.ExtractionResult, error) {
	content := doc.Content
	if len([]rune(content)) > maxContentChars {
		content = string([]rune(content)[:maxContentChars])
	}

	raw, err := s.llm.ChatJSON(ctx, []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(doc.Title, content, doc.Language)},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	result, err := s.parse(raw)
	if err != nil {
		s.logger.Warn().
			Str("doc_id", doc.ID).
			Str("model", s.llm.ModelName()).
			Err(err).
			Msg("Extraction response unparseable")
		return nil, err
	}

	s.normalize(result)
	return result, nil
}

// parse unmarshals the model output, stripping markdown fences and falling
// back to JSON repair for truncated or malformed output
func (s *Service) parse(raw string) (*models.ExtractionResult, error) {
	cleaned := stripFences(raw)

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		result.Raw = cleaned
		return &result, nil
	}

	repaired, err := jsonrepair.RepairJSON(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: repair failed: %v", models.ErrExtractionParse, err)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExtractionParse, err)
	}
	result.Raw = repaired
	return &result, nil
}

// normalize enforces vocabulary and range invariants on model output
func (s *Service) normalize(result *models.ExtractionResult) {
	if result.ImpactScore < 0 {
		result.ImpactScore = 0
	}
	if result.ImpactScore > 100 {
		result.ImpactScore = 100
	}
	result.ImpactTier = models.TierForScore(result.ImpactScore)

	result.Themes = models.FilterThemes(result.Themes)
	result.Regions = models.FilterRegionCodes(upperTrimAll(result.Regions))
	result.Sectors = models.FilterSectorCodes(upperTrimAll(result.Sectors))

	for i := range result.Instruments {
		result.Instruments[i].Ticker = models.NormalizeTicker(result.Instruments[i].Ticker)
		switch result.Instruments[i].Direction {
		case models.DirectionPositive, models.DirectionNegative, models.DirectionNeutral:
		default:
			result.Instruments[i].Direction = models.DirectionNeutral
		}
		if result.Instruments[i].Magnitude < 0 {
			result.Instruments[i].Magnitude = 0
		}
		if result.Instruments[i].Magnitude > 1 {
			result.Instruments[i].Magnitude = 1
		}
	}

	events := result.Events[:0]
	for _, event := range result.Events {
		event.EventType = strings.ToUpper(strings.TrimSpace(event.EventType))
		if event.EventType == "" {
			continue
		}
		if event.Confidence < 0 {
			event.Confidence = 0
		}
		if event.Confidence > 1 {
			event.Confidence = 1
		}
		events = append(events, event)
	}
	result.Events = events
}

func upperTrimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// stripFences removes a ```json ... ``` wrapper the model sometimes adds
// despite JSON mode
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

const systemPrompt = `You are a financial news analyst extracting structured intelligence from market news for a brokerage research platform.

Respond with a single JSON object, no prose, matching this schema:
{
  "impact_score": <0-100, market significance of this news>,
  "summary": "<one or two sentence summary>",
  "events": [{"event_type": "<EARNINGS|GUIDANCE|MA|DIVIDEND|MGMT_CHANGE|PRODUCT_LAUNCH|REGULATORY|LITIGATION|RATING_CHANGE|LABOR_ACTION|SUPPLY_DISRUPTION|MACRO_DATA|CENTRAL_BANK|DEFAULT|CYBER_INCIDENT>", "confidence": <0-1>}],
  "instruments": [{"ticker": "<exchange ticker>", "direction": "<positive|negative|neutral>", "magnitude": <0-1>}],
  "companies": ["<company names mentioned>"],
  "themes": ["<investment themes>"],
  "regions": ["<region codes: AMER, EMEA, APAC, US, EU, UK, JP, CN, AU>"],
  "sectors": ["<sector codes: TECH, FINS, ENER, HLTH, INDU, CONS, MATS, UTIL, REAL, COMM>"]
}

Rules:
- impact_score reflects breadth and severity: 90+ market-moving, 75+ sector-moving, 50+ notable, 25+ minor, below 25 routine.
- Only list instruments the news directly affects, with the direction of the likely price move.
- Use empty arrays when nothing applies. Never invent tickers.`

func buildUserPrompt(title, content, language string) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(title)
	if language != "" && language != "en" {
		b.WriteString("\nLanguage: ")
		b.WriteString(language)
	}
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}

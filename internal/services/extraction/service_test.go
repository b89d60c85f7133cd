package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

type fakeChat struct {
	response string
	err      error
	messages []interfaces.Message
}

func (f *fakeChat) ChatJSON(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.messages = messages
	return f.response, f.err
}

func (f *fakeChat) ModelName() string { return "test-model" }

func testDoc() *models.Document {
	return &models.Document{
		ID:      "doc_1",
		Title:   "TSMC raises full-year guidance on AI demand",
		Content: "Taiwan Semiconductor raised its revenue outlook citing sustained AI accelerator orders.",
	}
}

func TestExtractWellFormedResponse(t *testing.T) {
	chat := &fakeChat{response: `{
		"impact_score": 82,
		"summary": "TSMC guidance raise on AI demand.",
		"events": [{"event_type": "guidance", "confidence": 0.9}],
		"instruments": [{"ticker": "tsm", "direction": "positive", "magnitude": 0.7}],
		"companies": ["Taiwan Semiconductor"],
		"themes": ["ai_compute", "not_a_real_theme"],
		"regions": ["APAC"],
		"sectors": ["TECH"]
	}`}
	service := NewService(chat, common.GetLogger())

	result, err := service.Extract(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, 82.0, result.ImpactScore)
	assert.Equal(t, models.TierGold, result.ImpactTier)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "GUIDANCE", result.Events[0].EventType)
	require.Len(t, result.Instruments, 1)
	assert.Equal(t, "TSM", result.Instruments[0].Ticker)
	assert.Equal(t, models.DirectionPositive, result.Instruments[0].Direction)

	// Off-vocabulary themes are dropped
	assert.Equal(t, []string{"ai_compute"}, result.Themes)
}

func TestExtractStripsMarkdownFences(t *testing.T) {
	chat := &fakeChat{response: "```json\n{\"impact_score\": 30, \"summary\": \"minor\"}\n```"}
	service := NewService(chat, common.GetLogger())

	result, err := service.Extract(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, 30.0, result.ImpactScore)
	assert.Equal(t, models.TierBronze, result.ImpactTier)
}

func TestExtractRepairsTruncatedJSON(t *testing.T) {
	// Missing closing braces, as happens when output is cut off
	chat := &fakeChat{response: `{"impact_score": 55, "summary": "truncated", "events": [{"event_type": "EARNINGS", "confidence": 0.8}`}
	service := NewService(chat, common.GetLogger())

	result, err := service.Extract(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, 55.0, result.ImpactScore)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "EARNINGS", result.Events[0].EventType)
}

func TestExtractUnparseableReturnsTypedError(t *testing.T) {
	chat := &fakeChat{response: "I could not process this document."}
	service := NewService(chat, common.GetLogger())

	_, err := service.Extract(context.Background(), testDoc())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtractionParse)
}

func TestExtractClampsRanges(t *testing.T) {
	chat := &fakeChat{response: `{
		"impact_score": 150,
		"instruments": [{"ticker": "AAPL", "direction": "sideways", "magnitude": 3.5}]
	}`}
	service := NewService(chat, common.GetLogger())

	result, err := service.Extract(context.Background(), testDoc())

	require.NoError(t, err)
	assert.Equal(t, 100.0, result.ImpactScore)
	assert.Equal(t, models.TierPlatinum, result.ImpactTier)
	assert.Equal(t, models.DirectionNeutral, result.Instruments[0].Direction)
	assert.Equal(t, 1.0, result.Instruments[0].Magnitude)
}

func TestExtractPropagatesProviderError(t *testing.T) {
	chat := &fakeChat{err: models.ErrLLMUnavailable}
	service := NewService(chat, common.GetLogger())

	_, err := service.Extract(context.Background(), testDoc())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLLMUnavailable)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

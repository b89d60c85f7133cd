package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

type fakeGraph struct {
	byHash        map[string]*models.Node
	byFingerprint map[string]*models.Node
}

func (f *fakeGraph) FindDocumentByContentHash(groupID, contentHash string) (*models.Node, error) {
	return f.byHash[groupID+"|"+contentHash], nil
}

func (f *fakeGraph) FindDocumentByFingerprint(groupID, fingerprint string) (*models.Node, error) {
	return f.byFingerprint[groupID+"|"+fingerprint], nil
}

type fakeVector struct {
	hits []interfaces.VectorHit
	err  error
}

func (f *fakeVector) Search(ctx context.Context, query string, opts interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error) {
	return f.hits, f.err
}

func testDoc() *models.Document {
	return &models.Document{
		ID:      "doc_new",
		GroupID: "grp_apac",
		Title:   "Samsung beats earnings estimates",
		Content: "Samsung Electronics reported quarterly operating profit well above consensus.",
	}
}

func TestCheckExactHashMatch(t *testing.T) {
	doc := testDoc()
	hash := models.ComputeContentHash(doc.Title, doc.Content)
	graph := &fakeGraph{
		byHash:        map[string]*models.Node{"grp_apac|" + hash: {GUID: "doc_existing"}},
		byFingerprint: map[string]*models.Node{},
	}
	service := NewService(graph, &fakeVector{}, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "doc_existing", result.DuplicateOf)
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, MethodHash, result.Method)
}

func TestCheckFingerprintMatch(t *testing.T) {
	doc := testDoc()
	created := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	doc.StoryFingerprint = models.ComputeStoryFingerprint([]string{"005930.KS"}, "EARNINGS", created)

	graph := &fakeGraph{
		byHash: map[string]*models.Node{},
		byFingerprint: map[string]*models.Node{
			"grp_apac|" + doc.StoryFingerprint: {GUID: "doc_wire_copy"},
		},
	}
	service := NewService(graph, &fakeVector{}, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "doc_wire_copy", result.DuplicateOf)
	// A fingerprint collision is the same story, not merely similar
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, MethodFingerprint, result.Method)
}

func TestCheckFingerprintStandalone(t *testing.T) {
	created := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fingerprint := models.ComputeStoryFingerprint([]string{"005930.KS"}, "EARNINGS", created)
	graph := &fakeGraph{
		byHash: map[string]*models.Node{},
		byFingerprint: map[string]*models.Node{
			"grp_apac|" + fingerprint: {GUID: "doc_wire_copy"},
		},
	}
	service := NewService(graph, &fakeVector{}, 0.85, common.GetLogger())

	result, err := service.CheckFingerprint("grp_apac", fingerprint, "doc_new")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "doc_wire_copy", result.DuplicateOf)
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, MethodFingerprint, result.Method)

	// The stored document's own fingerprint never flags itself
	result, err = service.CheckFingerprint("grp_apac", fingerprint, "doc_wire_copy")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	result, err = service.CheckFingerprint("grp_apac", "", "doc_new")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, MethodNone, result.Method)
}

func TestCheckCrossQuarterNotDuplicate(t *testing.T) {
	// Same tickers and event type, but straddling a quarter boundary yields
	// different fingerprints
	q1 := models.ComputeStoryFingerprint([]string{"AAPL"}, "EARNINGS", time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))
	q2 := models.ComputeStoryFingerprint([]string{"AAPL"}, "EARNINGS", time.Date(2026, 4, 1, 1, 0, 0, 0, time.UTC))
	require.NotEqual(t, q1, q2)

	doc := testDoc()
	doc.StoryFingerprint = q2
	graph := &fakeGraph{
		byHash:        map[string]*models.Node{},
		byFingerprint: map[string]*models.Node{"grp_apac|" + q1: {GUID: "doc_q1"}},
	}
	service := NewService(graph, &fakeVector{}, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), doc)

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, MethodNone, result.Method)
}

func TestCheckEmbeddingMatch(t *testing.T) {
	graph := &fakeGraph{byHash: map[string]*models.Node{}, byFingerprint: map[string]*models.Node{}}
	vector := &fakeVector{hits: []interfaces.VectorHit{
		{DocID: "doc_similar", Score: 0.91},
	}}
	service := NewService(graph, vector, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), testDoc())

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "doc_similar", result.DuplicateOf)
	assert.Equal(t, 0.91, result.Score)
	assert.Equal(t, MethodEmbedding, result.Method)
}

func TestCheckEmbeddingBelowThreshold(t *testing.T) {
	graph := &fakeGraph{byHash: map[string]*models.Node{}, byFingerprint: map[string]*models.Node{}}
	vector := &fakeVector{hits: []interfaces.VectorHit{
		{DocID: "doc_related", Score: 0.80},
	}}
	service := NewService(graph, vector, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), testDoc())

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestCheckIgnoresSelfHit(t *testing.T) {
	graph := &fakeGraph{byHash: map[string]*models.Node{}, byFingerprint: map[string]*models.Node{}}
	vector := &fakeVector{hits: []interfaces.VectorHit{
		{DocID: "doc_new", Score: 0.99},
	}}
	service := NewService(graph, vector, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), testDoc())

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestCheckVectorFailureDegrades(t *testing.T) {
	graph := &fakeGraph{byHash: map[string]*models.Node{}, byFingerprint: map[string]*models.Node{}}
	vector := &fakeVector{err: fmt.Errorf("embedding provider down: %w", models.ErrLLMUnavailable)}
	service := NewService(graph, vector, 0.85, common.GetLogger())

	result, err := service.Check(context.Background(), testDoc())

	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, MethodNone, result.Method)
}

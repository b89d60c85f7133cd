package query

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

type fakeSearcher struct {
	hits []interfaces.VectorHit
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error) {
	return f.hits, f.err
}

type fakeGraph struct {
	nodes   map[string]*models.Node
	related map[string][]interfaces.RelatedDocument
	events  map[string][]string
	affects map[string][]string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		nodes:   make(map[string]*models.Node),
		related: make(map[string][]interfaces.RelatedDocument),
		events:  make(map[string][]string),
		affects: make(map[string][]string),
	}
}

func (f *fakeGraph) GetNode(guid string) (*models.Node, error) {
	node, ok := f.nodes[guid]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", guid, models.ErrNotFound)
	}
	return node, nil
}

func (f *fakeGraph) GetEdges(fromGUID string, edgeType models.EdgeType) ([]models.Edge, error) {
	if edgeType != models.EdgeTriggeredBy {
		return nil, nil
	}
	var edges []models.Edge
	for _, code := range f.events[fromGUID] {
		guid := "evt_" + code
		f.nodes[guid] = &models.Node{GUID: guid, Label: models.LabelEventType, Key: code}
		edges = append(edges, models.Edge{FromGUID: fromGUID, ToGUID: guid, Type: edgeType})
	}
	return edges, nil
}

func (f *fakeGraph) GetRelatedDocuments(docID string, _, _ int) ([]interfaces.RelatedDocument, error) {
	return f.related[docID], nil
}

func (f *fakeGraph) GetAffectedTickers(docID string) ([]string, error) {
	return f.affects[docID], nil
}

func (f *fakeGraph) addDoc(docID, groupID, sourceID string, createdAt time.Time, props map[string]interface{}) {
	all := map[string]interface{}{
		"title":      "Doc " + docID,
		"group_id":   groupID,
		"source_id":  sourceID,
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range props {
		all[k] = v
	}
	f.nodes[docID] = &models.Node{GUID: docID, Label: models.LabelDocument, Props: all}
}

func (f *fakeGraph) addSource(sourceID string, trust models.TrustLevel) {
	f.nodes[sourceID] = &models.Node{
		GUID:  sourceID,
		Label: models.LabelSource,
		Props: map[string]interface{}{"trust_level": string(trust)},
	}
}

func defaultWeights() *common.QueryConfig {
	return &common.QueryConfig{
		WeightSemantic: 0.6,
		WeightTrust:    0.2,
		WeightRecency:  0.1,
		WeightGraph:    0.1,
		HalfLifeMin:    60,
	}
}

func newTestService(searcher *fakeSearcher, graph *fakeGraph, config *common.QueryConfig, now time.Time) *Service {
	svc := NewService(searcher, graph, config, nil, common.GetLogger())
	svc.clock = func() time.Time { return now }
	return svc
}

func TestQueryEmptyGroupsReturnsEmpty(t *testing.T) {
	svc := newTestService(&fakeSearcher{}, newFakeGraph(), defaultWeights(), time.Now())

	resp, err := svc.Query(context.Background(), Params{Query: "tariffs", GroupIDs: nil})

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Total)
}

func TestQueryRequiresText(t *testing.T) {
	svc := newTestService(&fakeSearcher{}, newFakeGraph(), defaultWeights(), time.Now())

	_, err := svc.Query(context.Background(), Params{GroupIDs: []string{"grp_apac"}})

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestQueryScoreBreakdown(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustHigh)
	// Exactly one half-life old so recency is 0.5
	graph.addDoc("doc_a", "grp_apac", "src_wire", now.Add(-60*time.Minute), map[string]interface{}{
		"impact_score": 70.0,
		"impact_tier":  "GOLD",
	})
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{
		{DocID: "doc_a", Score: 0.9, Content: "chunk text"},
	}}
	svc := newTestService(searcher, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:    "port strike",
		GroupIDs: []string{"grp_apac"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	r := resp.Results[0]
	assert.Equal(t, "doc_a", r.DocID)
	assert.Equal(t, ViaSemantic, r.DiscoveredVia)
	assert.InDelta(t, 0.6*0.9, r.Breakdown.Semantic, 0.0001)
	assert.InDelta(t, 0.2*1.2, r.Breakdown.Trust, 0.0001)
	assert.InDelta(t, 0.1*0.5, r.Breakdown.Recency, 0.0001)
	assert.Zero(t, r.Breakdown.Graph)
	assert.InDelta(t, 0.54+0.24+0.05, r.Score, 0.001)
	require.NotNil(t, r.ImpactScore)
	assert.Equal(t, 70.0, *r.ImpactScore)
	assert.Equal(t, "chunk text", r.Snippet)
}

func TestQueryNeverLeaksOtherGroups(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	graph.addDoc("doc_mine", "grp_apac", "src_wire", now, nil)
	graph.addDoc("doc_theirs", "grp_emea", "src_wire", now, nil)
	graph.related["doc_mine"] = []interfaces.RelatedDocument{
		{DocID: "doc_theirs", Title: "Doc doc_theirs", Via: "shared_source"},
	}
	// The vector layer also returning the foreign doc must not leak it
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{
		{DocID: "doc_mine", Score: 0.8},
		{DocID: "doc_theirs", Score: 0.95},
	}}
	svc := newTestService(searcher, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:       "earnings",
		GroupIDs:    []string{"grp_apac"},
		ExpandGraph: true,
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc_mine", resp.Results[0].DocID)
}

func TestQueryFiltersDuplicatesByDefault(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	graph.addDoc("doc_orig", "grp_apac", "src_wire", now, nil)
	graph.addDoc("doc_dup", "grp_apac", "src_wire", now, map[string]interface{}{
		"duplicate_of": "doc_orig",
	})
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{
		{DocID: "doc_orig", Score: 0.8},
		{DocID: "doc_dup", Score: 0.8},
	}}
	svc := newTestService(searcher, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:    "merger",
		GroupIDs: []string{"grp_apac"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc_orig", resp.Results[0].DocID)

	resp, err = svc.Query(context.Background(), Params{
		Query:    "merger",
		GroupIDs: []string{"grp_apac"},
		Filters:  Filters{IncludeDuplicates: true},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestQueryMetadataFilters(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	graph.addDoc("doc_high", "grp_apac", "src_wire", now, map[string]interface{}{
		"impact_score": 85.0,
		"impact_tier":  "PLATINUM",
		"regions":      []string{"APAC", "AU"},
		"sectors":      []string{"INDU"},
	})
	graph.addDoc("doc_low", "grp_apac", "src_wire", now.Add(-48*time.Hour), map[string]interface{}{
		"impact_score": 20.0,
		"impact_tier":  "STANDARD",
		"regions":      []string{"EMEA"},
		"sectors":      []string{"FINS"},
	})
	graph.events["doc_high"] = []string{"MA"}
	graph.affects["doc_high"] = []string{"TRUCK"}
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{
		{DocID: "doc_high", Score: 0.7},
		{DocID: "doc_low", Score: 0.7},
	}}
	svc := newTestService(searcher, graph, defaultWeights(), now)
	base := Params{Query: "logistics", GroupIDs: []string{"grp_apac"}}

	minImpact := 50.0
	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"min impact", Filters{MinImpactScore: &minImpact}, []string{"doc_high"}},
		{"impact tier", Filters{ImpactTiers: []string{"STANDARD"}}, []string{"doc_low"}},
		{"event type", Filters{EventTypes: []string{"MA"}}, []string{"doc_high"}},
		{"company ticker", Filters{Companies: []string{"truck"}}, []string{"doc_high"}},
		{"region", Filters{Regions: []string{"AU"}}, []string{"doc_high"}},
		{"sector", Filters{Sectors: []string{"FINS"}}, []string{"doc_low"}},
		{"from date", Filters{FromDate: timePtr(now.Add(-time.Hour))}, []string{"doc_high"}},
		{"to date", Filters{ToDate: timePtr(now.Add(-24 * time.Hour))}, []string{"doc_low"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			params.Filters = tt.filters
			resp, err := svc.Query(context.Background(), params)
			require.NoError(t, err)
			var got []string
			for _, r := range resp.Results {
				got = append(got, r.DocID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestQueryGraphExpansion(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	graph.addDoc("doc_seed", "grp_apac", "src_wire", now, nil)
	graph.addDoc("doc_neighbor", "grp_apac", "src_wire", now, nil)
	graph.addDoc("doc_both", "grp_apac", "src_wire", now, nil)
	graph.related["doc_seed"] = []interfaces.RelatedDocument{
		{DocID: "doc_neighbor", Via: "shared_company"},
		{DocID: "doc_both", Via: "shared_company"},
	}
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{
		{DocID: "doc_seed", Score: 0.9},
		{DocID: "doc_both", Score: 0.6},
	}}
	svc := newTestService(searcher, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:       "supply chain",
		GroupIDs:    []string{"grp_apac"},
		ExpandGraph: true,
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	byID := make(map[string]Result)
	for _, r := range resp.Results {
		byID[r.DocID] = r
	}
	assert.Equal(t, ViaSemantic, byID["doc_seed"].DiscoveredVia)
	assert.Equal(t, ViaBoth, byID["doc_both"].DiscoveredVia)
	assert.Equal(t, ViaGraph, byID["doc_neighbor"].DiscoveredVia)
	assert.InDelta(t, 0.1*1.0, byID["doc_both"].Breakdown.Graph, 0.0001)
	assert.InDelta(t, 0.1*0.5, byID["doc_neighbor"].Breakdown.Graph, 0.0001)
	assert.Zero(t, byID["doc_neighbor"].Breakdown.Semantic)
}

func TestQuerySortsAndTruncates(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	var hits []interfaces.VectorHit
	for i := 0; i < 5; i++ {
		docID := fmt.Sprintf("doc_%d", i)
		graph.addDoc(docID, "grp_apac", "src_wire", now, nil)
		hits = append(hits, interfaces.VectorHit{DocID: docID, Score: 0.5 + float64(i)*0.1})
	}
	svc := newTestService(&fakeSearcher{hits: hits}, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:    "rates",
		GroupIDs: []string{"grp_apac"},
		NResults: 2,
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc_4", resp.Results[0].DocID)
	assert.Equal(t, "doc_3", resp.Results[1].DocID)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestQueryBadWeightsFallBackToDefaults(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addSource("src_wire", models.TrustMedium)
	graph.addDoc("doc_a", "grp_apac", "src_wire", now, nil)
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{{DocID: "doc_a", Score: 1.0}}}
	bad := &common.QueryConfig{WeightSemantic: 0.9, WeightTrust: 0.9, HalfLifeMin: 60}
	svc := newTestService(searcher, graph, bad, now)

	resp, err := svc.Query(context.Background(), Params{
		Query:    "fx",
		GroupIDs: []string{"grp_apac"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 0.6, resp.Results[0].Breakdown.Semantic, 0.0001)
}

func TestQueryUnknownSourceScoresMediumTrust(t *testing.T) {
	now := time.Now().UTC()
	graph := newFakeGraph()
	graph.addDoc("doc_a", "grp_apac", "src_missing", now, nil)
	searcher := &fakeSearcher{hits: []interfaces.VectorHit{{DocID: "doc_a", Score: 0.5}}}
	svc := newTestService(searcher, graph, defaultWeights(), now)

	resp, err := svc.Query(context.Background(), Params{
		Query:    "bonds",
		GroupIDs: []string{"grp_apac"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, 0.2*1.0, resp.Results[0].Breakdown.Trust, 0.0001)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

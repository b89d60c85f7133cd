package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/audit"
)

// Discovery channels for a result
const (
	ViaSemantic = "semantic"
	ViaGraph    = "graph"
	ViaBoth     = "both"
)

const (
	defaultNResults  = 10
	candidateFactor  = 3
	minCandidates    = 30
	graphSeedLimit   = 5
	graphExpandDepth = 2
	graphExpandLimit = 20
)

// Searcher is the slice of the vector index the query service consumes
type Searcher interface {
	Search(ctx context.Context, query string, opts interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error)
}

// GraphReader is the slice of the graph index the query service consumes
type GraphReader interface {
	GetNode(guid string) (*models.Node, error)
	GetEdges(fromGUID string, edgeType models.EdgeType) ([]models.Edge, error)
	GetRelatedDocuments(docID string, depth, limit int) ([]interfaces.RelatedDocument, error)
	GetAffectedTickers(docID string) ([]string, error)
}

// Filters narrows a hybrid query after retrieval
type Filters struct {
	FromDate          *time.Time `json:"from_date,omitempty"`
	ToDate            *time.Time `json:"to_date,omitempty"`
	Sources           []string   `json:"sources,omitempty"`
	Languages         []string   `json:"languages,omitempty"`
	Companies         []string   `json:"companies,omitempty"`
	EventTypes        []string   `json:"event_types,omitempty"`
	Regions           []string   `json:"regions,omitempty"`
	Sectors           []string   `json:"sectors,omitempty"`
	ImpactTiers       []string   `json:"impact_tiers,omitempty"`
	MinImpactScore    *float64   `json:"min_impact_score,omitempty"`
	IncludeDuplicates bool       `json:"include_duplicates,omitempty"`
}

// Params is one hybrid query. GroupIDs must already be resolved to the
// caller's permitted groups; an empty list yields an empty response.
type Params struct {
	Query       string
	GroupIDs    []string
	NResults    int
	ExpandGraph bool
	Filters     Filters
	ActorGroup  string
}

// Breakdown carries the weighted score components of one result
type Breakdown struct {
	Semantic float64 `json:"semantic"`
	Trust    float64 `json:"trust"`
	Recency  float64 `json:"recency"`
	Graph    float64 `json:"graph"`
}

// Result is one scored document
type Result struct {
	DocID         string    `json:"doc_id"`
	Title         string    `json:"title"`
	GroupID       string    `json:"group_id"`
	SourceID      string    `json:"source_id"`
	Language      string    `json:"language,omitempty"`
	ImpactScore   *float64  `json:"impact_score,omitempty"`
	ImpactTier    string    `json:"impact_tier,omitempty"`
	Themes        []string  `json:"themes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Score         float64   `json:"score"`
	Breakdown     Breakdown `json:"breakdown"`
	DiscoveredVia string    `json:"discovered_via"`
	Snippet       string    `json:"snippet,omitempty"`
}

// Response is a complete query result set
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// Service ranks documents by blending vector similarity, source trust,
// recency decay, and graph proximity
type Service struct {
	vector Searcher
	graph  GraphReader
	config *common.QueryConfig
	audit  *audit.Service
	clock  func() time.Time
	logger arbor.ILogger
}

func NewService(vector Searcher, graph GraphReader, config *common.QueryConfig, auditSvc *audit.Service, logger arbor.ILogger) *Service {
	return &Service{
		vector: vector,
		graph:  graph,
		config: config,
		audit:  auditSvc,
		clock:  time.Now,
		logger: logger,
	}
}

// candidate accumulates per-document evidence before scoring
type candidate struct {
	docID    string
	semantic float64
	via      string
	snippet  string
}

// Query runs the hybrid retrieval pipeline: vector search over permitted
// groups, optional graph expansion, metadata filtering, then weighted scoring.
func (s *Service) Query(ctx context.Context, params Params) (*Response, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("%w: query text is required", models.ErrValidation)
	}
	if len(params.GroupIDs) == 0 {
		return &Response{Results: []Result{}}, nil
	}
	if params.NResults <= 0 {
		params.NResults = defaultNResults
	}

	candidateLimit := params.NResults * candidateFactor
	if candidateLimit < minCandidates {
		candidateLimit = minCandidates
	}

	hits, err := s.vector.Search(ctx, params.Query, interfaces.VectorSearchOptions{
		NResults:       candidateLimit,
		GroupIDs:       params.GroupIDs,
		SourceIDs:      params.Filters.Sources,
		Languages:      params.Filters.Languages,
		IncludeContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make(map[string]*candidate, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, ok := candidates[hit.DocID]; ok {
			continue
		}
		candidates[hit.DocID] = &candidate{
			docID:    hit.DocID,
			semantic: hit.Score,
			via:      ViaSemantic,
			snippet:  hit.Content,
		}
		order = append(order, hit.DocID)
	}

	if params.ExpandGraph {
		s.expand(order, candidates)
	}

	permitted := toSet(params.GroupIDs)
	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		node, err := s.graph.GetNode(cand.docID)
		if err != nil {
			s.logger.Warn().Str("doc_id", cand.docID).Err(err).Msg("Document node missing during query scoring")
			continue
		}
		groupID := nodeString(node, "group_id")
		if _, ok := permitted[groupID]; !ok {
			continue
		}
		if !s.passesFilters(node, cand.docID, params.Filters) {
			continue
		}
		results = append(results, s.score(node, cand))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > params.NResults {
		results = results[:params.NResults]
	}

	if s.audit != nil {
		s.audit.LogQuery(params.ActorGroup, params.Query, len(results))
	}
	s.logger.Debug().
		Str("query", params.Query).
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("Hybrid query complete")

	return &Response{Results: results, Total: len(results)}, nil
}

// expand walks graph neighbors of the strongest semantic hits. Documents
// discovered only through the graph still face the permitted-group check
// during scoring.
func (s *Service) expand(order []string, candidates map[string]*candidate) {
	seeds := order
	if len(seeds) > graphSeedLimit {
		seeds = seeds[:graphSeedLimit]
	}
	for _, docID := range seeds {
		related, err := s.graph.GetRelatedDocuments(docID, graphExpandDepth, graphExpandLimit)
		if err != nil {
			s.logger.Warn().Str("doc_id", docID).Err(err).Msg("Graph expansion failed")
			continue
		}
		for _, rel := range related {
			if existing, ok := candidates[rel.DocID]; ok {
				existing.via = ViaBoth
				continue
			}
			candidates[rel.DocID] = &candidate{
				docID: rel.DocID,
				via:   ViaGraph,
			}
		}
	}
}

func (s *Service) passesFilters(node *models.Node, docID string, f Filters) bool {
	if !f.IncludeDuplicates && nodeString(node, "duplicate_of") != "" {
		return false
	}
	createdAt := nodeTime(node, "created_at")
	if f.FromDate != nil && createdAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && createdAt.After(*f.ToDate) {
		return false
	}
	if len(f.Sources) > 0 && !contains(f.Sources, nodeString(node, "source_id")) {
		return false
	}
	if len(f.Languages) > 0 && !contains(f.Languages, nodeString(node, "language")) {
		return false
	}
	if f.MinImpactScore != nil {
		score, ok := nodeFloatOK(node, "impact_score")
		if !ok || score < *f.MinImpactScore {
			return false
		}
	}
	if len(f.ImpactTiers) > 0 && !contains(f.ImpactTiers, nodeString(node, "impact_tier")) {
		return false
	}
	if len(f.EventTypes) > 0 && !s.hasEventType(docID, f.EventTypes) {
		return false
	}
	if len(f.Regions) > 0 && !containsAny(f.Regions, nodeStrings(node, "regions")) {
		return false
	}
	if len(f.Sectors) > 0 && !containsAny(f.Sectors, nodeStrings(node, "sectors")) {
		return false
	}
	if len(f.Companies) > 0 && !s.affectsAny(docID, f.Companies) {
		return false
	}
	return true
}

func (s *Service) hasEventType(docID string, wanted []string) bool {
	edges, err := s.graph.GetEdges(docID, models.EdgeTriggeredBy)
	if err != nil {
		return false
	}
	for _, edge := range edges {
		event, err := s.graph.GetNode(edge.ToGUID)
		if err != nil {
			continue
		}
		if contains(wanted, event.Key) {
			return true
		}
	}
	return false
}

func (s *Service) affectsAny(docID string, tickers []string) bool {
	affected, err := s.graph.GetAffectedTickers(docID)
	if err != nil {
		return false
	}
	normalized := make([]string, len(tickers))
	for i, t := range tickers {
		normalized[i] = models.NormalizeTicker(t)
	}
	for _, t := range affected {
		if contains(normalized, t) {
			return true
		}
	}
	return false
}

func (s *Service) score(node *models.Node, cand *candidate) Result {
	weights := s.weights()

	semantic := cand.semantic
	trust := models.TrustLevel(s.sourceTrust(nodeString(node, "source_id"))).BoostFactor()
	recency := s.recency(nodeTime(node, "created_at"))
	graph := graphBonus(cand.via)

	breakdown := Breakdown{
		Semantic: round4(weights.WeightSemantic * semantic),
		Trust:    round4(weights.WeightTrust * trust),
		Recency:  round4(weights.WeightRecency * recency),
		Graph:    round4(weights.WeightGraph * graph),
	}

	result := Result{
		DocID:         node.GUID,
		Title:         nodeString(node, "title"),
		GroupID:       nodeString(node, "group_id"),
		SourceID:      nodeString(node, "source_id"),
		Language:      nodeString(node, "language"),
		ImpactTier:    nodeString(node, "impact_tier"),
		Themes:        nodeStrings(node, "themes"),
		CreatedAt:     nodeTime(node, "created_at"),
		Score:         round4(breakdown.Semantic + breakdown.Trust + breakdown.Recency + breakdown.Graph),
		Breakdown:     breakdown,
		DiscoveredVia: cand.via,
		Snippet:       cand.snippet,
	}
	if score, ok := nodeFloatOK(node, "impact_score"); ok {
		result.ImpactScore = &score
	}
	return result
}

// weights returns the configured score weights, falling back to defaults
// when the configured values do not sum to 1 within tolerance
func (s *Service) weights() common.QueryConfig {
	w := *s.config
	sum := w.WeightSemantic + w.WeightTrust + w.WeightRecency + w.WeightGraph
	if math.Abs(sum-1.0) > 0.01 {
		s.logger.Warn().Float64("sum", sum).Msg("Query weights do not sum to 1, using defaults")
		w = common.QueryConfig{
			WeightSemantic: 0.6,
			WeightTrust:    0.2,
			WeightRecency:  0.1,
			WeightGraph:    0.1,
			HalfLifeMin:    w.HalfLifeMin,
		}
	}
	if w.HalfLifeMin <= 0 {
		w.HalfLifeMin = 60
	}
	return w
}

// recency applies exponential decay with the configured half-life
func (s *Service) recency(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	ageMin := s.clock().Sub(createdAt).Minutes()
	if ageMin < 0 {
		ageMin = 0
	}
	halfLife := s.config.HalfLifeMin
	if halfLife <= 0 {
		halfLife = 60
	}
	return math.Exp(-math.Ln2 * ageMin / halfLife)
}

// sourceTrust reads the mirrored source node's trust level; unknown sources
// score as medium
func (s *Service) sourceTrust(sourceID string) string {
	if sourceID == "" {
		return string(models.TrustMedium)
	}
	node, err := s.graph.GetNode(sourceID)
	if err != nil {
		return string(models.TrustMedium)
	}
	trust := nodeString(node, "trust_level")
	if trust == "" {
		return string(models.TrustMedium)
	}
	return trust
}

func graphBonus(via string) float64 {
	switch via {
	case ViaBoth:
		return 1.0
	case ViaGraph:
		return 0.5
	default:
		return 0
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsAny(wanted, have []string) bool {
	for _, v := range have {
		if contains(wanted, v) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func nodeString(node *models.Node, key string) string {
	if v, ok := node.Props[key].(string); ok {
		return v
	}
	return ""
}

func nodeFloatOK(node *models.Node, key string) (float64, bool) {
	switch v := node.Props[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func nodeTime(node *models.Node, key string) time.Time {
	raw, ok := node.Props[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nodeStrings(node *models.Node, key string) []string {
	switch v := node.Props[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

package feed

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/audit"
)

// Feed channels
const (
	ChannelMaintenance = "MAINTENANCE"
	ChannelOpportunity = "OPPORTUNITY"
)

const (
	defaultLimit       = 20
	defaultWindowHours = 24
	candidateScanLimit = 500

	holdingPositionWeight   = 1.0
	watchlistPositionWeight = 0.5
)

// ScoringConfig holds the relevance-path weights derived from the
// opportunity bias dial. Rising bias tilts ranking away from held positions
// toward thematic and novel items, and slows recency decay.
type ScoringConfig struct {
	DirectHoldingBase  float64
	WatchlistBase      float64
	ThematicBase       float64
	VectorBase         float64
	CompetitorBase     float64
	SupplierBase       float64
	PeerBase           float64
	RecencyHalfLifeMin float64
}

// ScoringConfigForBias derives the path weights for a bias in [0,1];
// out-of-range values are clamped
func ScoringConfigForBias(bias float64) ScoringConfig {
	if bias < 0 {
		bias = 0
	}
	if bias > 1 {
		bias = 1
	}
	return ScoringConfig{
		DirectHoldingBase:  1.0 - 0.4*bias,
		WatchlistBase:      0.8,
		ThematicBase:       0.5 + 0.5*bias,
		VectorBase:         0.4 + 0.4*bias,
		CompetitorBase:     0.4 + 0.3*bias,
		SupplierBase:       0.6 - 0.2*bias,
		PeerBase:           0.4 + 0.2*bias,
		RecencyHalfLifeMin: 60 + 120*bias,
	}
}

// GraphReader is the slice of the graph index the feed consumes. Positions
// come back in one traversal batch.
type GraphReader interface {
	GetClientPositions(clientGUID string) (*interfaces.ClientPositions, error)
	GetDocumentsInWindow(groupIDs []string, since time.Time, limit int) ([]models.Node, error)
	GetAffectedTickers(docID string) ([]string, error)
	GetInstrumentSector(ticker string) (string, error)
}

// Item is one ranked feed entry
type Item struct {
	Channel             string   `json:"channel"`
	DocumentGUID        string   `json:"document_guid"`
	Title               string   `json:"title"`
	ImpactTier          string   `json:"impact_tier,omitempty"`
	RelevanceScore      float64  `json:"relevance_score"`
	AffectedInstruments []string `json:"affected_instruments,omitempty"`
	Themes              []string `json:"themes,omitempty"`
	Reason              string   `json:"reason"`

	// Unweighted components kept for the top-news blend
	impactNorm float64
	recency    float64
	themeFit   float64
	pathBase   float64
}

// Response is a complete two-channel feed
type Response struct {
	Maintenance []Item `json:"maintenance"`
	Opportunity []Item `json:"opportunity"`
	Combined    []Item `json:"combined"`
}

// Params selects the client and tuning for one feed generation. GroupIDs
// must already be resolved to the caller's permitted groups.
type Params struct {
	ClientGUID      string
	GroupIDs        []string
	Limit           int
	WindowHours     int
	OpportunityBias float64
	ActorGroup      string
}

// Service generates the two-channel personalized feed
type Service struct {
	graph  GraphReader
	config *common.FeedConfig
	audit  *audit.Service
	clock  func() time.Time
	logger arbor.ILogger
}

func NewService(graph GraphReader, config *common.FeedConfig, auditSvc *audit.Service, logger arbor.ILogger) *Service {
	return &Service{
		graph:  graph,
		config: config,
		audit:  auditSvc,
		clock:  time.Now,
		logger: logger,
	}
}

// GetFeed gathers the client's positions in one batch, scans documents in
// the time window, and splits them into MAINTENANCE and OPPORTUNITY. A
// document never lands in both channels; MAINTENANCE wins.
func (s *Service) GetFeed(params Params) (*Response, error) {
	if params.ClientGUID == "" {
		return nil, fmt.Errorf("%w: client_guid is required", models.ErrValidation)
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.WindowHours <= 0 {
		params.WindowHours = defaultWindowHours
	}

	positions, err := s.graph.GetClientPositions(params.ClientGUID)
	if err != nil {
		return nil, err
	}
	if !groupPermitted(positions.Client.GroupID, params.GroupIDs) {
		return nil, fmt.Errorf("client %s: %w", params.ClientGUID, models.ErrAccessDenied)
	}

	scoring := ScoringConfigForBias(params.OpportunityBias)
	positionWeights := positionWeights(positions)
	mandateThemes := mandateThemes(positions.Profile)
	threshold := impactThreshold(positions.Profile)
	excluded := excludedIndustries(positions.Profile)
	now := s.clock()

	since := now.Add(-time.Duration(params.WindowHours) * time.Hour)
	docs, err := s.graph.GetDocumentsInWindow(params.GroupIDs, since, candidateScanLimit)
	if err != nil {
		return nil, fmt.Errorf("feed candidate scan failed: %w", err)
	}

	var maintenance, opportunity []Item
	for i := range docs {
		node := &docs[i]
		if nodeString(node, "duplicate_of") != "" {
			continue
		}
		impact, hasImpact := nodeFloat(node, "impact_score")
		if !hasImpact {
			continue
		}
		affected, err := s.graph.GetAffectedTickers(node.GUID)
		if err != nil {
			s.logger.Warn().Str("doc_id", node.GUID).Err(err).Msg("Affected ticker lookup failed")
			continue
		}

		impactNorm := impact / 100
		recency := recencyDecay(now, nodeTime(node, "created_at"), scoring.RecencyHalfLifeMin)

		if item, ok := s.maintenanceItem(node, affected, positionWeights, threshold, impact, impactNorm, recency, scoring); ok {
			maintenance = append(maintenance, item)
			continue
		}
		if item, ok := s.opportunityItem(node, affected, positionWeights, mandateThemes, excluded, impactNorm, recency, scoring); ok {
			opportunity = append(opportunity, item)
		}
	}

	sortByRelevance(maintenance)
	sortByRelevance(opportunity)
	maintenance = truncate(maintenance, params.Limit)
	opportunity = truncate(opportunity, params.Limit)

	combined := make([]Item, 0, len(maintenance)+len(opportunity))
	combined = append(combined, maintenance...)
	combined = append(combined, opportunity...)
	sortByRelevance(combined)
	combined = truncate(combined, params.Limit)

	if s.audit != nil {
		s.audit.LogFeed(params.ClientGUID, params.ActorGroup, len(maintenance), len(opportunity))
	}
	s.logger.Debug().
		Str("client_guid", params.ClientGUID).
		Int("maintenance", len(maintenance)).
		Int("opportunity", len(opportunity)).
		Float64("bias", params.OpportunityBias).
		Msg("Avatar feed generated")

	return &Response{
		Maintenance: maintenance,
		Opportunity: opportunity,
		Combined:    combined,
	}, nil
}

// TopNews blends the combined feed into a single article list using the
// configured client-news weights over the unweighted item components
func (s *Service) TopNews(params Params) ([]Item, error) {
	resp, err := s.GetFeed(params)
	if err != nil {
		return nil, err
	}
	articles := make([]Item, len(resp.Combined))
	copy(articles, resp.Combined)
	for i := range articles {
		a := &articles[i]
		a.RelevanceScore = round4(s.config.WeightSemantic*a.themeFit +
			s.config.WeightGraph*a.pathBase +
			s.config.WeightImpact*a.impactNorm +
			s.config.WeightRecency*a.recency)
	}
	sortByRelevance(articles)
	return truncate(articles, params.Limit), nil
}

// maintenanceItem builds a MAINTENANCE entry when the document affects a
// position ticker and clears the client's impact threshold
func (s *Service) maintenanceItem(node *models.Node, affected []string, positionWeights map[string]float64, threshold, impact, impactNorm, recency float64, scoring ScoringConfig) (Item, bool) {
	bestTicker := ""
	bestWeight := 0.0
	for _, ticker := range affected {
		weight, ok := positionWeights[ticker]
		if !ok {
			continue
		}
		if weight > bestWeight {
			bestWeight = weight
			bestTicker = ticker
		}
	}
	if bestTicker == "" {
		return Item{}, false
	}
	if impact < threshold {
		return Item{}, false
	}

	base := scoring.DirectHoldingBase
	role := "held in portfolio"
	if bestWeight == watchlistPositionWeight {
		base = scoring.WatchlistBase
		role = "on watchlist"
	}
	relevance := round4(impactNorm * recency * bestWeight * base)

	return Item{
		Channel:             ChannelMaintenance,
		DocumentGUID:        node.GUID,
		Title:               nodeString(node, "title"),
		ImpactTier:          nodeString(node, "impact_tier"),
		RelevanceScore:      relevance,
		AffectedInstruments: affected,
		Themes:              nodeStrings(node, "themes"),
		Reason:              fmt.Sprintf("Affects %s %s", bestTicker, role),
		impactNorm:          impactNorm,
		recency:             recency,
		pathBase:            base,
	}, true
}

// opportunityItem builds an OPPORTUNITY entry when the document matches
// mandate themes, affects no position ticker, and passes restrictions
func (s *Service) opportunityItem(node *models.Node, affected []string, positionWeights map[string]float64, mandateThemes []string, excluded map[string]struct{}, impactNorm, recency float64, scoring ScoringConfig) (Item, bool) {
	if len(mandateThemes) == 0 {
		return Item{}, false
	}
	for _, ticker := range affected {
		if _, held := positionWeights[ticker]; held {
			return Item{}, false
		}
	}

	themes := nodeStrings(node, "themes")
	matched := intersect(themes, mandateThemes)
	if len(matched) == 0 {
		return Item{}, false
	}

	if len(excluded) > 0 && len(affected) > 0 {
		sector, err := s.graph.GetInstrumentSector(affected[0])
		if err == nil && sector != "" {
			if _, banned := excluded[strings.ToLower(sector)]; banned {
				return Item{}, false
			}
		}
	}

	themeFit := float64(len(matched)) / float64(len(mandateThemes))
	relevance := round4(themeFit * impactNorm * recency * scoring.ThematicBase)

	return Item{
		Channel:             ChannelOpportunity,
		DocumentGUID:        node.GUID,
		Title:               nodeString(node, "title"),
		ImpactTier:          nodeString(node, "impact_tier"),
		RelevanceScore:      relevance,
		AffectedInstruments: affected,
		Themes:              themes,
		Reason:              fmt.Sprintf("Matches mandate theme %q outside current positions", matched[0]),
		impactNorm:          impactNorm,
		recency:             recency,
		themeFit:            themeFit,
		pathBase:            scoring.ThematicBase,
	}, true
}

func positionWeights(positions *interfaces.ClientPositions) map[string]float64 {
	weights := make(map[string]float64, len(positions.Holdings)+len(positions.Watchlist))
	for _, h := range positions.Holdings {
		weights[models.NormalizeTicker(h.Ticker)] = holdingPositionWeight
	}
	for _, w := range positions.Watchlist {
		ticker := models.NormalizeTicker(w.Ticker)
		if _, held := weights[ticker]; !held {
			weights[ticker] = watchlistPositionWeight
		}
	}
	return weights
}

func mandateThemes(profile *models.ClientProfile) []string {
	if profile == nil {
		return nil
	}
	return profile.MandateThemes
}

func impactThreshold(profile *models.ClientProfile) float64 {
	if profile == nil {
		return 0
	}
	return profile.ImpactThreshold
}

func excludedIndustries(profile *models.ClientProfile) map[string]struct{} {
	if profile == nil {
		return nil
	}
	set := make(map[string]struct{}, len(profile.Restrictions.ExcludedIndustries))
	for _, industry := range profile.Restrictions.ExcludedIndustries {
		set[strings.ToLower(industry)] = struct{}{}
	}
	return set
}

func recencyDecay(now, createdAt time.Time, halfLifeMin float64) float64 {
	if createdAt.IsZero() {
		return 0
	}
	ageMin := now.Sub(createdAt).Minutes()
	if ageMin < 0 {
		ageMin = 0
	}
	if halfLifeMin <= 0 {
		halfLifeMin = 60
	}
	return math.Exp(-math.Ln2 * ageMin / halfLifeMin)
}

func groupPermitted(groupID string, permitted []string) bool {
	for _, g := range permitted {
		if g == groupID {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func sortByRelevance(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].RelevanceScore != items[j].RelevanceScore {
			return items[i].RelevanceScore > items[j].RelevanceScore
		}
		return items[i].DocumentGUID < items[j].DocumentGUID
	})
}

func truncate(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func nodeString(node *models.Node, key string) string {
	if v, ok := node.Props[key].(string); ok {
		return v
	}
	return ""
}

func nodeFloat(node *models.Node, key string) (float64, bool) {
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

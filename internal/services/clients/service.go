package clients

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// CPCS section weights
const (
	weightHoldings    = 0.35
	weightMandate     = 0.35
	weightConstraints = 0.20
	weightEngagement  = 0.10
)

// ClientGraph is the slice of the graph index the client service consumes
type ClientGraph interface {
	UpsertClient(client *models.Client) error
	GetClient(clientGUID string) (*models.Client, error)
	ListClients(groupIDs []string) ([]models.Client, error)
	UpsertClientProfile(profile *models.ClientProfile) error
	GetClientProfile(clientGUID string) (*models.ClientProfile, error)
	AddHolding(clientGUID string, holding models.Holding) error
	AddWatchItem(clientGUID string, item models.WatchItem) error
	GetClientPositions(clientGUID string) (*interfaces.ClientPositions, error)
	GetInstrument(ticker string) (*models.Instrument, error)
}

// Embedder turns mandate text into the vector the feed matches documents
// against
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completeness is the profile completeness report
type Completeness struct {
	Score         float64            `json:"score"`
	Breakdown     map[string]float64 `json:"breakdown"`
	MissingFields []string           `json:"missing_fields"`
}

// Service owns client records, portfolios, watchlists, and profile
// completeness scoring
type Service struct {
	graph    ClientGraph
	embedder Embedder
	logger   arbor.ILogger
}

func NewService(graph ClientGraph, embedder Embedder, logger arbor.ILogger) *Service {
	return &Service{graph: graph, embedder: embedder, logger: logger}
}

// CreateClient registers a client in the given group
func (s *Service) CreateClient(name, clientTypeCode, groupID string) (*models.Client, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: client name is required", models.ErrValidation)
	}
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id is required", models.ErrValidation)
	}
	client := &models.Client{
		ClientGUID:     common.NewClientID(),
		Name:           strings.TrimSpace(name),
		ClientTypeCode: clientTypeCode,
		GroupID:        groupID,
	}
	if err := s.graph.UpsertClient(client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.logger.Info().Str("client_guid", client.ClientGUID).Str("group_id", groupID).Msg("Client created")
	return client, nil
}

// GetClient loads a client, enforcing group access
func (s *Service) GetClient(clientGUID string, permittedGroups []string) (*models.Client, error) {
	client, err := s.graph.GetClient(clientGUID)
	if err != nil {
		return nil, err
	}
	if !groupPermitted(client.GroupID, permittedGroups) {
		return nil, fmt.Errorf("client %s: %w", clientGUID, models.ErrAccessDenied)
	}
	return client, nil
}

// ListClients lists the clients in the caller's permitted groups
func (s *Service) ListClients(permittedGroups []string) ([]models.Client, error) {
	if len(permittedGroups) == 0 {
		return []models.Client{}, nil
	}
	return s.graph.ListClients(permittedGroups)
}

// AddToPortfolio records a HOLDS position. The instrument must already
// exist in the seeded universe.
func (s *Service) AddToPortfolio(clientGUID string, holding models.Holding, permittedGroups []string) error {
	if _, err := s.GetClient(clientGUID, permittedGroups); err != nil {
		return err
	}
	holding.Ticker = models.NormalizeTicker(holding.Ticker)
	if holding.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", models.ErrValidation)
	}
	if holding.Weight < 0 || holding.Weight > 1 {
		return fmt.Errorf("%w: holding weight must be in [0,1]", models.ErrValidation)
	}
	if _, err := s.graph.GetInstrument(holding.Ticker); err != nil {
		return fmt.Errorf("instrument %s: %w", holding.Ticker, err)
	}
	return s.graph.AddHolding(clientGUID, holding)
}

// AddToWatchlist records a WATCHES position. The instrument must already
// exist in the seeded universe.
func (s *Service) AddToWatchlist(clientGUID string, item models.WatchItem, permittedGroups []string) error {
	if _, err := s.GetClient(clientGUID, permittedGroups); err != nil {
		return err
	}
	item.Ticker = models.NormalizeTicker(item.Ticker)
	if item.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", models.ErrValidation)
	}
	if _, err := s.graph.GetInstrument(item.Ticker); err != nil {
		return fmt.Errorf("instrument %s: %w", item.Ticker, err)
	}
	return s.graph.AddWatchItem(clientGUID, item)
}

// GetProfile loads a client's profile, enforcing group access
func (s *Service) GetProfile(clientGUID string, permittedGroups []string) (*models.ClientProfile, error) {
	if _, err := s.GetClient(clientGUID, permittedGroups); err != nil {
		return nil, err
	}
	return s.graph.GetClientProfile(clientGUID)
}

// UpdateProfile validates and stores a client's profile. Mandate text is
// embedded so the feed can match documents semantically; an embedding
// failure degrades to a profile without a mandate vector.
func (s *Service) UpdateProfile(ctx context.Context, profile *models.ClientProfile, permittedGroups []string) error {
	if _, err := s.GetClient(profile.ClientGUID, permittedGroups); err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	s.embedMandate(ctx, profile)
	if err := s.graph.UpsertClientProfile(profile); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	s.logger.Info().Str("client_guid", profile.ClientGUID).Msg("Client profile updated")
	return nil
}

func (s *Service) embedMandate(ctx context.Context, profile *models.ClientProfile) {
	text := strings.TrimSpace(profile.MandateText)
	if text == "" || s.embedder == nil {
		return
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		s.logger.Warn().
			Str("client_guid", profile.ClientGUID).
			Err(err).
			Msg("Mandate embedding unavailable, profile stored without vector")
		return
	}
	profile.MandateEmbedding = vectors[0]
}

// CalculateCompleteness scores how fully a client's profile supports feed
// personalization. Sections: holdings 0.35, mandate 0.35, constraints 0.20,
// engagement 0.10. Section scores are in [0,1], rounded to two decimals.
func (s *Service) CalculateCompleteness(clientGUID string, permittedGroups []string) (*Completeness, error) {
	if _, err := s.GetClient(clientGUID, permittedGroups); err != nil {
		return nil, err
	}
	positions, err := s.graph.GetClientPositions(clientGUID)
	if err != nil {
		return nil, err
	}
	profile := positions.Profile

	var missing []string

	holdingsScore := 0.0
	if len(positions.Holdings) > 0 || len(positions.Watchlist) > 0 {
		holdingsScore = 1.0
	} else {
		missing = append(missing, "holdings")
	}

	mandateScore := 0.0
	if profile != nil && profile.MandateType != "" {
		mandateScore += 0.5
	} else {
		missing = append(missing, "mandate_type")
	}
	if profile != nil && strings.TrimSpace(profile.MandateText) != "" {
		mandateScore += 0.5
	} else {
		missing = append(missing, "mandate_text")
	}

	constraintsScore := 0.0
	if profile != nil && profile.ESGConstrained != nil {
		constraintsScore = 1.0
	} else {
		missing = append(missing, "esg_constrained")
	}

	engagementScore := 0.0
	if profile != nil && profile.PrimaryContact != "" && profile.AlertFrequency != "" {
		engagementScore = 1.0
	} else {
		if profile == nil || profile.PrimaryContact == "" {
			missing = append(missing, "primary_contact")
		}
		if profile == nil || profile.AlertFrequency == "" {
			missing = append(missing, "alert_frequency")
		}
	}

	breakdown := map[string]float64{
		"holdings":    round2(holdingsScore),
		"mandate":     round2(mandateScore),
		"constraints": round2(constraintsScore),
		"engagement":  round2(engagementScore),
	}
	score := round2(weightHoldings*holdingsScore +
		weightMandate*mandateScore +
		weightConstraints*constraintsScore +
		weightEngagement*engagementScore)

	if missing == nil {
		missing = []string{}
	}
	return &Completeness{
		Score:         score,
		Breakdown:     breakdown,
		MissingFields: missing,
	}, nil
}

func groupPermitted(groupID string, permitted []string) bool {
	for _, g := range permitted {
		if g == groupID {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package graph

import (
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// UpsertClient writes the Client node with its Portfolio and Watchlist
// owner nodes and group membership edge
func (g *Graph) UpsertClient(client *models.Client) error {
	if client.ClientGUID == "" {
		return fmt.Errorf("%w: client_guid is required", models.ErrValidation)
	}
	// Keyed by guid, not display name; two clients may share a name
	if err := g.UpsertNode(&models.Node{
		GUID:  client.ClientGUID,
		Label: models.LabelClient,
		Key:   client.ClientGUID,
		Props: map[string]interface{}{
			"name":             client.Name,
			"client_type_code": client.ClientTypeCode,
			"group_id":         client.GroupID,
		},
	}); err != nil {
		return err
	}

	portfolioGUID := client.ClientGUID + "_portfolio"
	watchlistGUID := client.ClientGUID + "_watchlist"
	if err := g.UpsertNode(&models.Node{GUID: portfolioGUID, Label: models.LabelPortfolio}); err != nil {
		return err
	}
	if err := g.UpsertNode(&models.Node{GUID: watchlistGUID, Label: models.LabelWatchlist}); err != nil {
		return err
	}
	if err := g.UpsertEdge(&models.Edge{Type: models.EdgeOwnsPortfolio, FromGUID: client.ClientGUID, ToGUID: portfolioGUID}); err != nil {
		return err
	}
	if err := g.UpsertEdge(&models.Edge{Type: models.EdgeOwnsWatchlist, FromGUID: client.ClientGUID, ToGUID: watchlistGUID}); err != nil {
		return err
	}

	if group, err := g.groupNodeByID(client.GroupID); err == nil {
		if err := g.UpsertEdge(&models.Edge{Type: models.EdgeInGroup, FromGUID: client.ClientGUID, ToGUID: group.GUID}); err != nil {
			return err
		}
	}
	return nil
}

// GetClient loads a client by guid
func (g *Graph) GetClient(clientGUID string) (*models.Client, error) {
	node, err := g.GetNode(clientGUID)
	if err != nil {
		return nil, err
	}
	if node.Label != models.LabelClient {
		return nil, fmt.Errorf("node %s is not a client: %w", clientGUID, models.ErrNotFound)
	}
	return &models.Client{
		ClientGUID:     node.GUID,
		Name:           propString(node.Props, "name"),
		ClientTypeCode: propString(node.Props, "client_type_code"),
		GroupID:        propString(node.Props, "group_id"),
	}, nil
}

// ListClients lists clients belonging to the given groups
func (g *Graph) ListClients(groupIDs []string) ([]models.Client, error) {
	groupSet := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groupSet[id] = struct{}{}
	}

	var nodes []models.Node
	err := g.db.Store().Find(&nodes, badgerhold.Where("Label").Eq(models.LabelClient).
		And("Props").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		node, ok := ra.Record().(*models.Node)
		if !ok {
			return false, nil
		}
		if len(groupSet) == 0 {
			return true, nil
		}
		_, ok = groupSet[propString(node.Props, "group_id")]
		return ok, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	clients := make([]models.Client, 0, len(nodes))
	for _, node := range nodes {
		clients = append(clients, models.Client{
			ClientGUID:     node.GUID,
			Name:           propString(node.Props, "name"),
			ClientTypeCode: propString(node.Props, "client_type_code"),
			GroupID:        propString(node.Props, "group_id"),
		})
	}
	return clients, nil
}

// UpsertClientProfile stores the profile record and the HAS_PROFILE edge
func (g *Graph) UpsertClientProfile(profile *models.ClientProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if _, err := g.GetClient(profile.ClientGUID); err != nil {
		return err
	}
	if profile.ProfileGUID == "" {
		profile.ProfileGUID = profile.ClientGUID + "_profile"
	}

	if err := g.db.Store().Upsert(profile.ClientGUID, &profileRecord{
		ClientGUID: profile.ClientGUID,
		Profile:    *profile,
	}); err != nil {
		return fmt.Errorf("failed to store profile for %s: %w", profile.ClientGUID, err)
	}

	if err := g.UpsertNode(&models.Node{
		GUID:  profile.ProfileGUID,
		Label: models.LabelProfile,
		Props: map[string]interface{}{"client_guid": profile.ClientGUID},
	}); err != nil {
		return err
	}
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeHasProfile,
		FromGUID: profile.ClientGUID,
		ToGUID:   profile.ProfileGUID,
	})
}

// GetClientProfile loads a client's profile, or NotFound when never set
func (g *Graph) GetClientProfile(clientGUID string) (*models.ClientProfile, error) {
	var record profileRecord
	if err := g.db.Store().Get(clientGUID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("profile for client %s: %w", clientGUID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load profile for %s: %w", clientGUID, err)
	}
	profile := record.Profile
	return &profile, nil
}

// AddHolding upserts a HOLDS edge from the client's portfolio to the
// instrument. The instrument must already exist (phantom-instrument ban).
func (g *Graph) AddHolding(clientGUID string, holding models.Holding) error {
	if holding.Weight < 0 || holding.Weight > 1 {
		return fmt.Errorf("%w: holding weight must be in [0,1]", models.ErrValidation)
	}
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(holding.Ticker))
	if err != nil {
		return err
	}
	if _, err := g.GetClient(clientGUID); err != nil {
		return err
	}

	props := map[string]interface{}{"weight": holding.Weight}
	if holding.Shares > 0 {
		props["shares"] = holding.Shares
	}
	if holding.AvgCost > 0 {
		props["avg_cost"] = holding.AvgCost
	}
	sentiment := holding.Sentiment
	if sentiment == "" {
		sentiment = models.SentimentLong
	}
	props["sentiment"] = string(sentiment)

	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeHolds,
		FromGUID: clientGUID + "_portfolio",
		ToGUID:   instrument.GUID,
		Props:    props,
	})
}

// AddWatchItem upserts a WATCHES edge from the client's watchlist
func (g *Graph) AddWatchItem(clientGUID string, item models.WatchItem) error {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(item.Ticker))
	if err != nil {
		return err
	}
	if _, err := g.GetClient(clientGUID); err != nil {
		return err
	}

	props := map[string]interface{}{}
	if item.AlertThreshold != nil {
		props["alert_threshold"] = *item.AlertThreshold
	}
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeWatches,
		FromGUID: clientGUID + "_watchlist",
		ToGUID:   instrument.GUID,
		Props:    props,
	})
}

// GetClientPositions gathers everything the feed ranks against in one batch:
// client, profile, holdings, and watchlist
func (g *Graph) GetClientPositions(clientGUID string) (*interfaces.ClientPositions, error) {
	client, err := g.GetClient(clientGUID)
	if err != nil {
		return nil, err
	}

	positions := &interfaces.ClientPositions{Client: client}

	if profile, err := g.GetClientProfile(clientGUID); err == nil {
		positions.Profile = profile
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	holdEdges, err := g.GetEdges(clientGUID+"_portfolio", models.EdgeHolds)
	if err != nil {
		return nil, err
	}
	for _, edge := range holdEdges {
		node, err := g.GetNode(edge.ToGUID)
		if err != nil {
			continue
		}
		positions.Holdings = append(positions.Holdings, models.Holding{
			Ticker:    node.Key,
			Weight:    propFloat(edge.Props, "weight"),
			Shares:    propFloat(edge.Props, "shares"),
			AvgCost:   propFloat(edge.Props, "avg_cost"),
			Sentiment: models.PositionSentiment(propString(edge.Props, "sentiment")),
		})
	}

	watchEdges, err := g.GetEdges(clientGUID+"_watchlist", models.EdgeWatches)
	if err != nil {
		return nil, err
	}
	for _, edge := range watchEdges {
		node, err := g.GetNode(edge.ToGUID)
		if err != nil {
			continue
		}
		item := models.WatchItem{Ticker: node.Key}
		if _, ok := edge.Props["alert_threshold"]; ok {
			threshold := propFloat(edge.Props, "alert_threshold")
			item.AlertThreshold = &threshold
		}
		positions.Watchlist = append(positions.Watchlist, item)
	}

	return positions, nil
}

package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/models"
)

// UpsertInstrument writes the Instrument node, its ISSUED_BY link when the
// issuing company exists, and a TICKER alias pointing at the instrument
func (g *Graph) UpsertInstrument(instrument *models.Instrument, companyTicker string) error {
	ticker := models.NormalizeTicker(instrument.Ticker)
	if ticker == "" {
		return fmt.Errorf("%w: instrument ticker is required", models.ErrValidation)
	}

	guid := "instrument_" + ticker
	if existing, err := g.GetNodeByKey(models.LabelInstrument, ticker); err == nil {
		guid = existing.GUID
	}

	if err := g.UpsertNode(&models.Node{
		GUID:  guid,
		Label: models.LabelInstrument,
		Key:   ticker,
		Props: map[string]interface{}{
			"name":            instrument.Name,
			"instrument_type": instrument.InstrumentType,
			"exchange":        instrument.Exchange,
			"currency":        instrument.Currency,
			"country":         instrument.Country,
		},
	}); err != nil {
		return err
	}

	if companyTicker != "" {
		if company, err := g.GetNodeByKey(models.LabelCompany, models.NormalizeTicker(companyTicker)); err == nil {
			if err := g.UpsertEdge(&models.Edge{
				Type:     models.EdgeIssuedBy,
				FromGUID: guid,
				ToGUID:   company.GUID,
			}); err != nil {
				return err
			}
		}
	}

	return g.UpsertAlias(&models.Alias{
		Value:         ticker,
		Scheme:        models.SchemeTicker,
		CanonicalGUID: guid,
	})
}

// GetInstrument loads an instrument by ticker
func (g *Graph) GetInstrument(ticker string) (*models.Instrument, error) {
	node, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		return nil, err
	}
	return &models.Instrument{
		Ticker:         node.Key,
		Name:           propString(node.Props, "name"),
		InstrumentType: propString(node.Props, "instrument_type"),
		Exchange:       propString(node.Props, "exchange"),
		Currency:       propString(node.Props, "currency"),
		Country:        propString(node.Props, "country"),
	}, nil
}

// UpsertCompany writes the Company node and NAME_VARIANT aliases for each
// known spelling
func (g *Graph) UpsertCompany(company *models.Company) error {
	ticker := models.NormalizeTicker(company.Ticker)
	if ticker == "" {
		return fmt.Errorf("%w: company ticker is required", models.ErrValidation)
	}

	guid := "company_" + ticker
	if existing, err := g.GetNodeByKey(models.LabelCompany, ticker); err == nil {
		guid = existing.GUID
	}

	if err := g.UpsertNode(&models.Node{
		GUID:  guid,
		Label: models.LabelCompany,
		Key:   ticker,
		Props: map[string]interface{}{
			"name":    company.Name,
			"sector":  company.Sector,
			"persona": company.Persona,
		},
	}); err != nil {
		return err
	}

	for _, alias := range append([]string{company.Name}, company.Aliases...) {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		if err := g.UpsertAlias(&models.Alias{
			Value:         alias,
			Scheme:        models.SchemeNameVariant,
			CanonicalGUID: guid,
		}); err != nil {
			return err
		}
	}
	return nil
}

// UpsertGroup writes the Group node keyed by its name
func (g *Graph) UpsertGroup(group *models.Group) error {
	if group.Name == "" {
		return fmt.Errorf("%w: group name is required", models.ErrValidation)
	}
	guid := group.GroupID
	if guid == "" {
		guid = "grp_" + group.Name
	}
	return g.UpsertNode(&models.Node{
		GUID:  guid,
		Label: models.LabelGroup,
		Key:   group.Name,
		Props: map[string]interface{}{
			"group_id":    guid,
			"name":        group.Name,
			"description": group.Description,
			"active":      group.Active,
		},
	})
}

// GetGroupByName resolves a group by its unique name
func (g *Graph) GetGroupByName(name string) (*models.Group, error) {
	node, err := g.GetNodeByKey(models.LabelGroup, name)
	if err != nil {
		return nil, err
	}
	active, _ := node.Props["active"].(bool)
	return &models.Group{
		GroupID:     propString(node.Props, "group_id"),
		Name:        node.Key,
		Description: propString(node.Props, "description"),
		Active:      active,
	}, nil
}

// MirrorSource projects a source record into the graph, keeping the active
// flag in sync for ranking-time trust lookups
func (g *Graph) MirrorSource(source *models.Source) error {
	if err := g.UpsertNode(&models.Node{
		GUID:  source.SourceID,
		Label: models.LabelSource,
		Props: map[string]interface{}{
			"name":        source.Name,
			"group_id":    source.GroupID,
			"type":        string(source.Type),
			"region":      source.Region,
			"trust_level": string(source.TrustLevel),
			"active":      source.Active,
		},
	}); err != nil {
		return err
	}
	if group, err := g.groupNodeByID(source.GroupID); err == nil {
		return g.UpsertEdge(&models.Edge{
			Type:     models.EdgeInGroup,
			FromGUID: source.SourceID,
			ToGUID:   group.GUID,
		})
	}
	return nil
}

// UpsertAlias stores an alias record and an Alias node linked from the
// canonical node via HAS_ALIAS
func (g *Graph) UpsertAlias(alias *models.Alias) error {
	if alias.Value == "" || alias.CanonicalGUID == "" {
		return fmt.Errorf("%w: alias requires value and canonical_guid", models.ErrValidation)
	}
	scheme := strings.ToUpper(strings.TrimSpace(alias.Scheme))
	id := scheme + "|" + strings.ToLower(strings.TrimSpace(alias.Value))

	if err := g.db.Store().Upsert(id, &aliasRecord{
		ID: id,
		Alias: models.Alias{
			Value:         alias.Value,
			Scheme:        scheme,
			CanonicalGUID: alias.CanonicalGUID,
		},
	}); err != nil {
		return fmt.Errorf("failed to store alias %s: %w", id, err)
	}

	aliasGUID := "alias_" + id
	if err := g.UpsertNode(&models.Node{
		GUID:  aliasGUID,
		Label: models.LabelAlias,
		Props: map[string]interface{}{
			"value":          alias.Value,
			"scheme":         scheme,
			"canonical_guid": alias.CanonicalGUID,
		},
	}); err != nil {
		return err
	}
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeHasAlias,
		FromGUID: alias.CanonicalGUID,
		ToGUID:   aliasGUID,
	})
}

// ResolveAlias returns the canonical guid for (value, scheme). With an empty
// scheme, any scheme matches with TICKER tried first. Returns NotFound when
// no alias matches.
func (g *Graph) ResolveAlias(value, scheme string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("%w: alias value is required", models.ErrValidation)
	}

	schemes := []string{strings.ToUpper(strings.TrimSpace(scheme))}
	if schemes[0] == "" {
		schemes = []string{models.SchemeTicker, models.SchemeISIN, models.SchemeNameVariant}
	}

	for _, s := range schemes {
		var record aliasRecord
		err := g.db.Store().Get(s+"|"+normalized, &record)
		if err == nil {
			return record.Alias.CanonicalGUID, nil
		}
		if err != badgerhold.ErrNotFound {
			return "", fmt.Errorf("failed to resolve alias %s: %w", value, err)
		}
	}
	return "", fmt.Errorf("alias %q: %w", value, models.ErrNotFound)
}

// GetPeers returns tickers related to the given instrument via PEER_OF,
// COMPETES_WITH, or SUPPLIES_TO in either direction
func (g *Graph) GetPeers(ticker string) ([]string, error) {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	var peers []string
	for _, edgeType := range []models.EdgeType{models.EdgePeerOf, models.EdgeCompetesWith, models.EdgeSuppliesTo} {
		outgoing, err := g.GetEdges(instrument.GUID, edgeType)
		if err != nil {
			return nil, err
		}
		incoming, err := g.GetIncomingEdges(instrument.GUID, edgeType)
		if err != nil {
			return nil, err
		}
		for _, edge := range append(outgoing, incoming...) {
			other := edge.ToGUID
			if other == instrument.GUID {
				other = edge.FromGUID
			}
			node, err := g.GetNode(other)
			if err != nil || node.Key == "" {
				continue
			}
			if _, ok := seen[node.Key]; ok {
				continue
			}
			seen[node.Key] = struct{}{}
			peers = append(peers, node.Key)
		}
	}
	return peers, nil
}

// GetIndexMemberships returns the names of the market indices an instrument
// belongs to via MEMBER_OF
func (g *Graph) GetIndexMemberships(ticker string) ([]string, error) {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	edges, err := g.GetEdges(instrument.GUID, models.EdgeMemberOf)
	if err != nil {
		return nil, err
	}
	var indices []string
	for _, edge := range edges {
		node, err := g.GetNode(edge.ToGUID)
		if err != nil || node.Label != models.LabelIndex {
			continue
		}
		name := propString(node.Props, "name")
		if name == "" {
			name = node.Key
		}
		if name != "" {
			indices = append(indices, name)
		}
	}
	return indices, nil
}

// GetFactorExposures returns factor_id -> signed beta for an instrument
func (g *Graph) GetFactorExposures(ticker string) (map[string]float64, error) {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	edges, err := g.GetEdges(instrument.GUID, models.EdgeExposedTo)
	if err != nil {
		return nil, err
	}
	exposures := make(map[string]float64, len(edges))
	for _, edge := range edges {
		node, err := g.GetNode(edge.ToGUID)
		if err != nil || node.Label != models.LabelFactor {
			continue
		}
		exposures[node.Key] = propFloat(edge.Props, "beta")
	}
	return exposures, nil
}

// GetInstrumentSector returns the sector of an instrument's issuing company
func (g *Graph) GetInstrumentSector(ticker string) (string, error) {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		return "", err
	}
	issued, err := g.GetEdges(instrument.GUID, models.EdgeIssuedBy)
	if err != nil {
		return "", err
	}
	for _, edge := range issued {
		company, err := g.GetNode(edge.ToGUID)
		if err != nil {
			continue
		}
		if sector := propString(company.Props, "sector"); sector != "" {
			return sector, nil
		}
	}
	return "", nil
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/models"
)

func TestUpsertInstrumentLinksIssuerAndAlias(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertCompany(&models.Company{Ticker: "TRUCK", Name: "Pacific Truck", Sector: "Industrials"}))
	require.NoError(t, g.UpsertInstrument(&models.Instrument{
		Ticker:         "truck",
		Name:           "Pacific Truck Holdings",
		InstrumentType: "equity",
		Exchange:       "ASX",
		Currency:       "AUD",
		Country:        "AU",
	}, "TRUCK"))

	instrument, err := g.GetInstrument("TRUCK")
	require.NoError(t, err)
	assert.Equal(t, "TRUCK", instrument.Ticker)
	assert.Equal(t, "Pacific Truck Holdings", instrument.Name)
	assert.Equal(t, "ASX", instrument.Exchange)

	node, err := g.GetNodeByKey(models.LabelInstrument, "TRUCK")
	require.NoError(t, err)
	issued, err := g.GetEdges(node.GUID, models.EdgeIssuedBy)
	require.NoError(t, err)
	assert.Len(t, issued, 1)

	guid, err := g.ResolveAlias("truck", models.SchemeTicker)
	require.NoError(t, err)
	assert.Equal(t, node.GUID, guid)
}

func TestUpsertInstrumentRequiresTicker(t *testing.T) {
	g := newTestGraph(t)
	err := g.UpsertInstrument(&models.Instrument{Name: "No Ticker"}, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpsertCompanyNameVariants(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertCompany(&models.Company{
		Ticker:  "005930.KS",
		Name:    "Samsung Electronics",
		Sector:  "Information Technology",
		Aliases: []string{"Samsung", "Samsung Elec"},
	}))

	company, err := g.GetNodeByKey(models.LabelCompany, "005930.KS")
	require.NoError(t, err)

	for _, variant := range []string{"Samsung Electronics", "samsung", "SAMSUNG ELEC"} {
		guid, err := g.ResolveAlias(variant, models.SchemeNameVariant)
		require.NoError(t, err, "variant %q", variant)
		assert.Equal(t, company.GUID, guid)
	}
}

func TestResolveAliasSchemeFallback(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertCompany(&models.Company{Ticker: "TRUCK", Name: "Pacific Truck"}))
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "TRUCK"}, "TRUCK"))

	// With no scheme, TICKER wins before NAME_VARIANT
	instrument, err := g.GetNodeByKey(models.LabelInstrument, "TRUCK")
	require.NoError(t, err)
	guid, err := g.ResolveAlias("TRUCK", "")
	require.NoError(t, err)
	assert.Equal(t, instrument.GUID, guid)

	_, err = g.ResolveAlias("Unheard Of Corp", "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = g.ResolveAlias("   ", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGroupRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertGroup(&models.Group{Name: "apac_desk", Description: "APAC coverage desk", Active: true}))

	group, err := g.GetGroupByName("apac_desk")
	require.NoError(t, err)
	assert.Equal(t, "grp_apac_desk", group.GroupID)
	assert.Equal(t, "APAC coverage desk", group.Description)
	assert.True(t, group.Active)

	err = g.UpsertGroup(&models.Group{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMirrorSourceKeepsTrustInSync(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertGroup(&models.Group{GroupID: "grp_apac", Name: "apac_desk", Active: true}))

	source := &models.Source{
		SourceID:   "src_reuters",
		GroupID:    "grp_apac",
		Name:       "Reuters Asia",
		Type:       models.SourceNewsAgency,
		TrustLevel: models.TrustHigh,
		Active:     true,
	}
	require.NoError(t, g.MirrorSource(source))

	node, err := g.GetNode("src_reuters")
	require.NoError(t, err)
	assert.Equal(t, models.LabelSource, node.Label)
	assert.Equal(t, "high", node.Props["trust_level"])

	source.TrustLevel = models.TrustLow
	source.Active = false
	require.NoError(t, g.MirrorSource(source))

	node, err = g.GetNode("src_reuters")
	require.NoError(t, err)
	assert.Equal(t, "low", node.Props["trust_level"])
	assert.Equal(t, false, node.Props["active"])

	edges, err := g.GetEdges("src_reuters", models.EdgeInGroup)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestGetPeers(t *testing.T) {
	g := newTestGraph(t)
	for _, ticker := range []string{"TRUCK", "RAIL", "SHIP", "BANK"} {
		require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: ticker}, ""))
	}
	truck, err := g.GetNodeByKey(models.LabelInstrument, "TRUCK")
	require.NoError(t, err)
	rail, err := g.GetNodeByKey(models.LabelInstrument, "RAIL")
	require.NoError(t, err)
	ship, err := g.GetNodeByKey(models.LabelInstrument, "SHIP")
	require.NoError(t, err)

	// Peer in both directions plus a competitor
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgePeerOf, FromGUID: truck.GUID, ToGUID: rail.GUID}))
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgeCompetesWith, FromGUID: ship.GUID, ToGUID: truck.GUID}))

	peers, err := g.GetPeers("TRUCK")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"RAIL", "SHIP"}, peers)

	peers, err = g.GetPeers("BANK")
	require.NoError(t, err)
	assert.Empty(t, peers)

	peers, err = g.GetPeers("GHOST")
	require.NoError(t, err)
	assert.Nil(t, peers)
}

func TestGetIndexMemberships(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "TRUCK"}, ""))
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "RAIL"}, ""))
	truck, err := g.GetNodeByKey(models.LabelInstrument, "TRUCK")
	require.NoError(t, err)

	require.NoError(t, g.UpsertNode(&models.Node{
		GUID:  "index_ASX200",
		Label: models.LabelIndex,
		Key:   "ASX200",
		Props: map[string]interface{}{"name": "S&P/ASX 200"},
	}))
	require.NoError(t, g.UpsertNode(&models.Node{
		GUID:  "index_HSI",
		Label: models.LabelIndex,
		Key:   "HSI",
	}))
	require.NoError(t, g.UpsertEdge(&models.Edge{
		Type: models.EdgeMemberOf, FromGUID: truck.GUID, ToGUID: "index_ASX200",
	}))
	require.NoError(t, g.UpsertEdge(&models.Edge{
		Type: models.EdgeMemberOf, FromGUID: truck.GUID, ToGUID: "index_HSI",
	}))

	// Display name when present, falling back to the index code
	indices, err := g.GetIndexMemberships("truck")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S&P/ASX 200", "HSI"}, indices)

	indices, err = g.GetIndexMemberships("RAIL")
	require.NoError(t, err)
	assert.Empty(t, indices)

	indices, err = g.GetIndexMemberships("GHOST")
	require.NoError(t, err)
	assert.Nil(t, indices)
}

func TestGetFactorExposures(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "TRUCK"}, ""))
	truck, err := g.GetNodeByKey(models.LabelInstrument, "TRUCK")
	require.NoError(t, err)
	rates, err := g.GetNodeByKey(models.LabelFactor, "RATES")
	require.NoError(t, err)
	oil, err := g.GetNodeByKey(models.LabelFactor, "OIL")
	require.NoError(t, err)

	require.NoError(t, g.UpsertEdge(&models.Edge{
		Type: models.EdgeExposedTo, FromGUID: truck.GUID, ToGUID: rates.GUID,
		Props: map[string]interface{}{"beta": -0.6},
	}))
	require.NoError(t, g.UpsertEdge(&models.Edge{
		Type: models.EdgeExposedTo, FromGUID: truck.GUID, ToGUID: oil.GUID,
		Props: map[string]interface{}{"beta": 0.9},
	}))

	exposures, err := g.GetFactorExposures("truck")
	require.NoError(t, err)
	assert.Equal(t, -0.6, exposures["RATES"])
	assert.Equal(t, 0.9, exposures["OIL"])
}

func TestGetInstrumentSector(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertCompany(&models.Company{Ticker: "TRUCK", Name: "Pacific Truck", Sector: "Industrials"}))
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "TRUCK"}, "TRUCK"))
	require.NoError(t, g.UpsertInstrument(&models.Instrument{Ticker: "ORPHAN"}, ""))

	sector, err := g.GetInstrumentSector("TRUCK")
	require.NoError(t, err)
	assert.Equal(t, "Industrials", sector)

	sector, err = g.GetInstrumentSector("ORPHAN")
	require.NoError(t, err)
	assert.Empty(t, sector)
}

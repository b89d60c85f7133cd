package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/models"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	logger := common.GetLogger()
	db, err := NewDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	g := NewGraph(db, logger).(*Graph)
	require.NoError(t, g.InitSchema())
	return g
}

func TestInitSchemaSeedsTaxonomy(t *testing.T) {
	g := newTestGraph(t)

	event, err := g.GetNodeByKey(models.LabelEventType, "MA")
	require.NoError(t, err)
	assert.Equal(t, "Merger or Acquisition", event.Props["name"])
	assert.Equal(t, float64(80), propFloat(event.Props, "base_impact"))

	region, err := g.GetNodeByKey(models.LabelRegion, "APAC")
	require.NoError(t, err)
	assert.Equal(t, "Asia Pacific", region.Props["name"])

	_, err = g.GetNodeByKey(models.LabelFactor, "RATES")
	require.NoError(t, err)

	for _, name := range []string{models.GroupPublic, models.GroupAdmin} {
		group, err := g.GetGroupByName(name)
		require.NoError(t, err)
		assert.True(t, group.Active)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.InitSchema())

	// Re-seeding must not create a second node for the same code
	_, err := g.GetNodeByKey(models.LabelEventType, "EARNINGS")
	require.NoError(t, err)
}

func TestUpsertNodeEnforcesKeyConstraint(t *testing.T) {
	g := newTestGraph(t)

	require.NoError(t, g.UpsertNode(&models.Node{
		GUID: "node_a", Label: models.LabelCompany, Key: "TRUCK",
	}))

	// Same label+key under a different guid is rejected
	err := g.UpsertNode(&models.Node{
		GUID: "node_b", Label: models.LabelCompany, Key: "TRUCK",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Re-upserting the same guid is fine
	require.NoError(t, g.UpsertNode(&models.Node{
		GUID: "node_a", Label: models.LabelCompany, Key: "TRUCK",
		Props: map[string]interface{}{"name": "Pacific Truck"},
	}))
	node, err := g.GetNode("node_a")
	require.NoError(t, err)
	assert.Equal(t, "Pacific Truck", node.Props["name"])
}

func TestUpsertNodeRequiresGUID(t *testing.T) {
	g := newTestGraph(t)
	err := g.UpsertNode(&models.Node{Label: models.LabelCompany})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestGetNodeMissing(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.GetNode("node_ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = g.GetNodeByKey(models.LabelCompany, "GHOST")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEdgesRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertNode(&models.Node{GUID: "n1", Label: models.LabelCompany}))
	require.NoError(t, g.UpsertNode(&models.Node{GUID: "n2", Label: models.LabelCompany}))

	edge := &models.Edge{Type: models.EdgePeerOf, FromGUID: "n1", ToGUID: "n2"}
	require.NoError(t, g.UpsertEdge(edge))
	assert.Equal(t, models.EdgeID("n1", models.EdgePeerOf, "n2"), edge.ID)

	outgoing, err := g.GetEdges("n1", models.EdgePeerOf)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "n2", outgoing[0].ToGUID)

	incoming, err := g.GetIncomingEdges("n2", "")
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	// Filtered by a type that does not match
	none, err := g.GetEdges("n1", models.EdgeCompetesWith)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, g.DeleteEdge(edge.ID))
	outgoing, err = g.GetEdges("n1", "")
	require.NoError(t, err)
	assert.Empty(t, outgoing)
}

func TestUpsertEdgeRequiresEndpoints(t *testing.T) {
	g := newTestGraph(t)
	err := g.UpsertEdge(&models.Edge{Type: models.EdgePeerOf, FromGUID: "n1"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeleteNodeRemovesTouchingEdges(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.UpsertNode(&models.Node{GUID: "n1", Label: models.LabelCompany}))
	require.NoError(t, g.UpsertNode(&models.Node{GUID: "n2", Label: models.LabelCompany}))
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgePeerOf, FromGUID: "n1", ToGUID: "n2"}))
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgeCompetesWith, FromGUID: "n2", ToGUID: "n1"}))

	require.NoError(t, g.DeleteNode(models.LabelCompany, "n1"))

	_, err := g.GetNode("n1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	edges, err := g.GetEdges("n2", "")
	require.NoError(t, err)
	assert.Empty(t, edges)

	// Deleting a missing node is a no-op
	require.NoError(t, g.DeleteNode(models.LabelCompany, "n1"))

	// Label mismatch is an error
	require.NoError(t, g.UpsertNode(&models.Node{GUID: "n3", Label: models.LabelInstrument, Key: "N3"}))
	err = g.DeleteNode(models.LabelCompany, "n3")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestExploreWalksBreadthFirst(t *testing.T) {
	g := newTestGraph(t)
	for _, guid := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.UpsertNode(&models.Node{GUID: guid, Label: models.LabelCompany}))
	}
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgePeerOf, FromGUID: "a", ToGUID: "b"}))
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgePeerOf, FromGUID: "b", ToGUID: "c"}))
	require.NoError(t, g.UpsertEdge(&models.Edge{Type: models.EdgeCompetesWith, FromGUID: "c", ToGUID: "d"}))

	oneHop, err := g.Explore("a", nil, 1, 50)
	require.NoError(t, err)
	assert.Len(t, oneHop, 1)

	twoHops, err := g.Explore("a", nil, 2, 50)
	require.NoError(t, err)
	assert.Len(t, twoHops, 2)

	threeHops, err := g.Explore("a", nil, 3, 50)
	require.NoError(t, err)
	assert.Len(t, threeHops, 3)

	// Type filter drops the COMPETES_WITH hop
	peersOnly, err := g.Explore("a", []models.EdgeType{models.EdgePeerOf}, 3, 50)
	require.NoError(t, err)
	assert.Len(t, peersOnly, 2)

	// Limit truncates the walk
	capped, err := g.Explore("a", nil, 3, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestPing(t *testing.T) {
	g := newTestGraph(t)
	assert.NoError(t, g.Ping())
}

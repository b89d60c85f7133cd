package graph

import (
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

func init() {
	// Node/edge property bags are interface-valued maps; gob needs the
	// concrete types registered
	gob.Register(time.Time{})
	gob.Register([]string{})
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
}

// Graph implements the GraphIndex interface over an embedded Badger store.
// Nodes are keyed by GUID; edges by the composite from|type|to id, which
// makes edge upserts idempotent across handlers.
type Graph struct {
	db     *DB
	logger arbor.ILogger
}

// profileRecord stores a client profile as a typed record keyed by client guid
type profileRecord struct {
	ClientGUID string `badgerhold:"key"`
	Profile    models.ClientProfile
}

// aliasRecord stores an alias keyed by scheme|normalized value
type aliasRecord struct {
	ID    string `badgerhold:"key"`
	Alias models.Alias
}

// NewGraph creates a graph index over an open database connection
func NewGraph(db *DB, logger arbor.ILogger) interfaces.GraphIndex {
	return &Graph{db: db, logger: logger}
}

// InitSchema seeds the core taxonomy (regions, sectors, event types, macro
// factors) merged by stable code. Safe to run on every startup.
func (g *Graph) InitSchema() error {
	for _, region := range models.SeedRegions {
		if err := g.mergeTaxonomyNode(models.LabelRegion, region.Code, map[string]interface{}{
			"name": region.Name,
		}); err != nil {
			return fmt.Errorf("failed to seed region %s: %w", region.Code, err)
		}
	}
	for _, sector := range models.SeedSectors {
		if err := g.mergeTaxonomyNode(models.LabelSector, sector.Code, map[string]interface{}{
			"name": sector.Name,
		}); err != nil {
			return fmt.Errorf("failed to seed sector %s: %w", sector.Code, err)
		}
	}
	for _, event := range models.SeedEventTypes {
		if err := g.mergeTaxonomyNode(models.LabelEventType, event.Code, map[string]interface{}{
			"name":         event.Name,
			"category":     event.Category,
			"base_impact":  event.BaseImpact,
			"default_tier": string(event.DefaultTier),
		}); err != nil {
			return fmt.Errorf("failed to seed event type %s: %w", event.Code, err)
		}
	}
	for _, factor := range models.SeedFactors {
		if err := g.mergeTaxonomyNode(models.LabelFactor, factor.FactorID, map[string]interface{}{
			"name":     factor.Name,
			"category": factor.Category,
		}); err != nil {
			return fmt.Errorf("failed to seed factor %s: %w", factor.FactorID, err)
		}
	}

	// Reserved groups always exist
	for _, name := range []string{models.GroupPublic, models.GroupAdmin} {
		if existing, _ := g.GetGroupByName(name); existing == nil {
			if err := g.UpsertGroup(&models.Group{
				GroupID: "grp_" + name,
				Name:    name,
				Active:  true,
			}); err != nil {
				return fmt.Errorf("failed to seed group %s: %w", name, err)
			}
		}
	}

	g.logger.Debug().Msg("Graph schema seeded")
	return nil
}

// mergeTaxonomyNode upserts a taxonomy node by its stable code without
// disturbing an existing guid
func (g *Graph) mergeTaxonomyNode(label models.NodeLabel, code string, props map[string]interface{}) error {
	existing, err := g.GetNodeByKey(label, code)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if existing != nil {
		for k, v := range props {
			existing.Props[k] = v
		}
		return g.UpsertNode(existing)
	}
	return g.UpsertNode(&models.Node{
		GUID:  string(label) + "_" + code,
		Label: label,
		Key:   code,
		Props: props,
	})
}

// UpsertNode writes a node, enforcing the singleton natural-key constraint
// for labels that carry one
func (g *Graph) UpsertNode(node *models.Node) error {
	if node.GUID == "" {
		return fmt.Errorf("%w: node guid is required", models.ErrValidation)
	}
	if node.Key != "" {
		existing, err := g.GetNodeByKey(node.Label, node.Key)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if existing != nil && existing.GUID != node.GUID {
			return fmt.Errorf("%w: %s with key %q already exists as %s",
				models.ErrValidation, node.Label, node.Key, existing.GUID)
		}
	}

	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now
	if node.Props == nil {
		node.Props = map[string]interface{}{}
	}

	if err := g.db.Store().Upsert(node.GUID, node); err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", node.GUID, err)
	}
	return nil
}

// GetNode loads a node by guid
func (g *Graph) GetNode(guid string) (*models.Node, error) {
	var node models.Node
	if err := g.db.Store().Get(guid, &node); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("node %s: %w", guid, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node %s: %w", guid, err)
	}
	return &node, nil
}

// GetNodeByKey loads a node by its (label, natural key) pair
func (g *Graph) GetNodeByKey(label models.NodeLabel, key string) (*models.Node, error) {
	var nodes []models.Node
	err := g.db.Store().Find(&nodes, badgerhold.Where("Label").Eq(label).And("Key").Eq(key).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %q: %w", label, key, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s %q: %w", label, key, models.ErrNotFound)
	}
	return &nodes[0], nil
}

// DeleteNode removes a node and every edge touching it
func (g *Graph) DeleteNode(label models.NodeLabel, guid string) error {
	node, err := g.GetNode(guid)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if node.Label != label {
		return fmt.Errorf("node %s has label %s, not %s: %w", guid, node.Label, label, models.ErrValidation)
	}

	if err := g.db.Store().DeleteMatching(&models.Edge{},
		badgerhold.Where("FromGUID").Eq(guid).Or(badgerhold.Where("ToGUID").Eq(guid))); err != nil {
		return fmt.Errorf("failed to delete edges of node %s: %w", guid, err)
	}
	if err := g.db.Store().Delete(guid, &models.Node{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete node %s: %w", guid, err)
	}
	return nil
}

// UpsertEdge writes an edge under its composite id
func (g *Graph) UpsertEdge(edge *models.Edge) error {
	if edge.FromGUID == "" || edge.ToGUID == "" || edge.Type == "" {
		return fmt.Errorf("%w: edge requires from, to, and type", models.ErrValidation)
	}
	if edge.ID == "" {
		edge.ID = models.EdgeID(edge.FromGUID, edge.Type, edge.ToGUID)
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	if edge.Props == nil {
		edge.Props = map[string]interface{}{}
	}
	if err := g.db.Store().Upsert(edge.ID, edge); err != nil {
		return fmt.Errorf("failed to upsert edge %s: %w", edge.ID, err)
	}
	return nil
}

// DeleteEdge removes one edge by id
func (g *Graph) DeleteEdge(id string) error {
	if err := g.db.Store().Delete(id, &models.Edge{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete edge %s: %w", id, err)
	}
	return nil
}

// GetEdges returns outgoing edges of a node, optionally narrowed by type
func (g *Graph) GetEdges(fromGUID string, edgeType models.EdgeType) ([]models.Edge, error) {
	query := badgerhold.Where("FromGUID").Eq(fromGUID)
	if edgeType != "" {
		query = query.And("Type").Eq(edgeType)
	}
	var edges []models.Edge
	if err := g.db.Store().Find(&edges, query); err != nil {
		return nil, fmt.Errorf("failed to get edges from %s: %w", fromGUID, err)
	}
	return edges, nil
}

// GetIncomingEdges returns incoming edges of a node, optionally narrowed by type
func (g *Graph) GetIncomingEdges(toGUID string, edgeType models.EdgeType) ([]models.Edge, error) {
	query := badgerhold.Where("ToGUID").Eq(toGUID)
	if edgeType != "" {
		query = query.And("Type").Eq(edgeType)
	}
	var edges []models.Edge
	if err := g.db.Store().Find(&edges, query); err != nil {
		return nil, fmt.Errorf("failed to get edges to %s: %w", toGUID, err)
	}
	return edges, nil
}

// Explore walks edges breadth-first from a start node up to maxDepth hops,
// returning at most limit edges. Depth is capped at 3.
func (g *Graph) Explore(startGUID string, edgeTypes []models.EdgeType, maxDepth, limit int) ([]models.Edge, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 3 {
		maxDepth = 3
	}
	if limit <= 0 {
		limit = 50
	}

	typeSet := make(map[models.EdgeType]struct{}, len(edgeTypes))
	for _, t := range edgeTypes {
		typeSet[t] = struct{}{}
	}

	visited := map[string]struct{}{startGUID: {}}
	frontier := []string{startGUID}
	var result []models.Edge
	seenEdges := make(map[string]struct{})

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, guid := range frontier {
			outgoing, err := g.GetEdges(guid, "")
			if err != nil {
				return nil, err
			}
			incoming, err := g.GetIncomingEdges(guid, "")
			if err != nil {
				return nil, err
			}
			for _, edge := range append(outgoing, incoming...) {
				if len(typeSet) > 0 {
					if _, ok := typeSet[edge.Type]; !ok {
						continue
					}
				}
				if _, ok := seenEdges[edge.ID]; ok {
					continue
				}
				seenEdges[edge.ID] = struct{}{}
				result = append(result, edge)
				if len(result) >= limit {
					return result, nil
				}
				for _, neighbor := range []string{edge.FromGUID, edge.ToGUID} {
					if _, ok := visited[neighbor]; !ok {
						visited[neighbor] = struct{}{}
						next = append(next, neighbor)
					}
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Ping verifies the store is usable
func (g *Graph) Ping() error {
	var nodes []models.Node
	return g.db.Store().Find(&nodes, badgerhold.Where(badgerhold.Key).Eq("__ping__").Limit(1))
}

// Close closes the underlying database
func (g *Graph) Close() error {
	return g.db.Close()
}

// propString reads a string property with a default
func propString(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// propFloat reads a numeric property, tolerating int storage
func propFloat(props map[string]interface{}, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// propTime reads an RFC3339 timestamp property
func propTime(props map[string]interface{}, key string) time.Time {
	if v, ok := props[key].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	if v, ok := props[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// propStrings reads a string-list property tolerating []interface{} storage
func propStrings(props map[string]interface{}, key string) []string {
	switch v := props[key].(type) {
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

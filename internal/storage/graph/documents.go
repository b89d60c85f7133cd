package graph

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// CreateDocumentNode creates the Document node and attempts to link it to
// its Source and Group. Missing link targets are skipped silently; another
// component backfills them.
func (g *Graph) CreateDocumentNode(params interfaces.DocumentNodeParams) error {
	props := map[string]interface{}{
		"source_id":  params.SourceID,
		"group_id":   params.GroupID,
		"title":      params.Title,
		"language":   params.Language,
		"created_at": params.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if params.ImpactScore != nil {
		props["impact_score"] = *params.ImpactScore
	}
	if params.ImpactTier != "" {
		props["impact_tier"] = string(params.ImpactTier)
	}
	if len(params.Themes) > 0 {
		props["themes"] = params.Themes
	}
	if len(params.Regions) > 0 {
		props["regions"] = params.Regions
	}
	if len(params.Sectors) > 0 {
		props["sectors"] = params.Sectors
	}
	if params.ContentHash != "" {
		props["content_hash"] = params.ContentHash
	}
	if params.StoryFingerprint != "" {
		props["story_fingerprint"] = params.StoryFingerprint
	}
	if params.DuplicateOf != "" {
		props["duplicate_of"] = params.DuplicateOf
	}
	for k, v := range params.Metadata {
		props["meta_"+k] = v
	}

	if err := g.UpsertNode(&models.Node{
		GUID:  params.DocID,
		Label: models.LabelDocument,
		Props: props,
	}); err != nil {
		return err
	}

	// Best-effort links; the targets may not exist yet
	if _, err := g.GetNode(params.SourceID); err == nil {
		if err := g.UpsertEdge(&models.Edge{
			Type:     models.EdgeProducedBy,
			FromGUID: params.DocID,
			ToGUID:   params.SourceID,
		}); err != nil {
			return err
		}
	}
	if group, err := g.groupNodeByID(params.GroupID); err == nil {
		if err := g.UpsertEdge(&models.Edge{
			Type:     models.EdgeInGroup,
			FromGUID: params.DocID,
			ToGUID:   group.GUID,
		}); err != nil {
			return err
		}
	}
	for _, code := range params.Regions {
		if region, err := g.GetNodeByKey(models.LabelRegion, code); err == nil {
			if err := g.UpsertEdge(&models.Edge{
				Type:     models.EdgeInRegion,
				FromGUID: params.DocID,
				ToGUID:   region.GUID,
			}); err != nil {
				return err
			}
		}
	}
	for _, code := range params.Sectors {
		if sector, err := g.GetNodeByKey(models.LabelSector, code); err == nil {
			if err := g.UpsertEdge(&models.Edge{
				Type:     models.EdgeInSector,
				FromGUID: params.DocID,
				ToGUID:   sector.GUID,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateAffectsEdge links a document to an instrument (or factor) with
// direction and magnitude
func (g *Graph) CreateAffectsEdge(docID string, affects interfaces.AffectsParams) error {
	ticker := models.NormalizeTicker(affects.Ticker)
	target, err := g.GetNodeByKey(models.LabelInstrument, ticker)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			target, err = g.GetNodeByKey(models.LabelFactor, ticker)
		}
		if err != nil {
			return fmt.Errorf("affects target %s: %w", ticker, err)
		}
	}
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeAffects,
		FromGUID: docID,
		ToGUID:   target.GUID,
		Props: map[string]interface{}{
			"direction": string(affects.Direction),
			"magnitude": affects.Magnitude,
		},
	})
}

// CreateTriggeredByEdge links a document to its event type
func (g *Graph) CreateTriggeredByEdge(docID, eventTypeCode string) error {
	event, err := g.GetNodeByKey(models.LabelEventType, eventTypeCode)
	if err != nil {
		return fmt.Errorf("event type %s: %w", eventTypeCode, err)
	}
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeTriggeredBy,
		FromGUID: docID,
		ToGUID:   event.GUID,
	})
}

// CreateMentionsEdge links a document to a company node
func (g *Graph) CreateMentionsEdge(docID, companyGUID string) error {
	return g.UpsertEdge(&models.Edge{
		Type:     models.EdgeMentions,
		FromGUID: docID,
		ToGUID:   companyGUID,
	})
}

// FindDocumentByContentHash returns the first group-scoped document carrying
// the exact-duplicate hash, or nil
func (g *Graph) FindDocumentByContentHash(groupID, contentHash string) (*models.Node, error) {
	return g.findDocumentByProp(groupID, "content_hash", contentHash)
}

// FindDocumentByFingerprint returns the first group-scoped document carrying
// the story fingerprint, or nil
func (g *Graph) FindDocumentByFingerprint(groupID, fingerprint string) (*models.Node, error) {
	return g.findDocumentByProp(groupID, "story_fingerprint", fingerprint)
}

func (g *Graph) findDocumentByProp(groupID, key, value string) (*models.Node, error) {
	if value == "" {
		return nil, nil
	}
	var nodes []models.Node
	err := g.db.Store().Find(&nodes, badgerhold.Where("Label").Eq(models.LabelDocument).
		And("Props").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		node, ok := ra.Record().(*models.Node)
		if !ok {
			return false, nil
		}
		return propString(node.Props, "group_id") == groupID &&
			propString(node.Props, key) == value, nil
	}).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find document by %s: %w", key, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// GetDocumentsBySource lists document nodes produced by a source, newest first
func (g *Graph) GetDocumentsBySource(sourceID string, limit int) ([]models.Node, error) {
	docs, err := g.documentsMatching(func(node *models.Node) bool {
		return propString(node.Props, "source_id") == sourceID
	})
	if err != nil {
		return nil, err
	}
	return truncate(docs, limit), nil
}

// GetDocumentsMentioning lists documents with an AFFECTS edge to the ticker
// since the cutoff, newest first
func (g *Graph) GetDocumentsMentioning(ticker string, since time.Time, limit int) ([]models.Node, error) {
	instrument, err := g.GetNodeByKey(models.LabelInstrument, models.NormalizeTicker(ticker))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	edges, err := g.GetIncomingEdges(instrument.GUID, models.EdgeAffects)
	if err != nil {
		return nil, err
	}

	var docs []models.Node
	for _, edge := range edges {
		node, err := g.GetNode(edge.FromGUID)
		if err != nil {
			continue
		}
		if node.Label != models.LabelDocument {
			continue
		}
		if !since.IsZero() && propTime(node.Props, "created_at").Before(since) {
			continue
		}
		docs = append(docs, *node)
	}
	sortDocsNewestFirst(docs)
	return truncate(docs, limit), nil
}

// GetRelatedDocuments finds documents sharing a company mention or a source
// with the given document, deduplicated
func (g *Graph) GetRelatedDocuments(docID string, depth, limit int) ([]interfaces.RelatedDocument, error) {
	if limit <= 0 {
		limit = 20
	}
	seen := map[string]struct{}{docID: {}}
	var related []interfaces.RelatedDocument

	collect := func(neighborGUID string, edgeType models.EdgeType, via string) error {
		incoming, err := g.GetIncomingEdges(neighborGUID, edgeType)
		if err != nil {
			return err
		}
		for _, edge := range incoming {
			if _, ok := seen[edge.FromGUID]; ok {
				continue
			}
			node, err := g.GetNode(edge.FromGUID)
			if err != nil || node.Label != models.LabelDocument {
				continue
			}
			seen[edge.FromGUID] = struct{}{}
			related = append(related, interfaces.RelatedDocument{
				DocID: node.GUID,
				Title: propString(node.Props, "title"),
				Via:   via,
			})
		}
		return nil
	}

	// Shared company
	mentions, err := g.GetEdges(docID, models.EdgeMentions)
	if err != nil {
		return nil, err
	}
	for _, edge := range mentions {
		if err := collect(edge.ToGUID, models.EdgeMentions, "shared_company"); err != nil {
			return nil, err
		}
	}

	// Shared affected instrument (counts as company proximity at depth 2)
	if depth >= 2 {
		affects, err := g.GetEdges(docID, models.EdgeAffects)
		if err != nil {
			return nil, err
		}
		for _, edge := range affects {
			if err := collect(edge.ToGUID, models.EdgeAffects, "shared_company"); err != nil {
				return nil, err
			}
		}
	}

	// Shared source
	produced, err := g.GetEdges(docID, models.EdgeProducedBy)
	if err != nil {
		return nil, err
	}
	for _, edge := range produced {
		if err := collect(edge.ToGUID, models.EdgeProducedBy, "shared_source"); err != nil {
			return nil, err
		}
	}

	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

// GetDocumentsInWindow lists documents in the given groups created at or
// after the cutoff, newest first
func (g *Graph) GetDocumentsInWindow(groupIDs []string, since time.Time, limit int) ([]models.Node, error) {
	groupSet := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		groupSet[id] = struct{}{}
	}
	docs, err := g.documentsMatching(func(node *models.Node) bool {
		if len(groupSet) > 0 {
			if _, ok := groupSet[propString(node.Props, "group_id")]; !ok {
				return false
			}
		}
		return since.IsZero() || !propTime(node.Props, "created_at").Before(since)
	})
	if err != nil {
		return nil, err
	}
	sortDocsNewestFirst(docs)
	return truncate(docs, limit), nil
}

// GetAffectedTickers returns the ticker keys of a document's AFFECTS targets
func (g *Graph) GetAffectedTickers(docID string) ([]string, error) {
	edges, err := g.GetEdges(docID, models.EdgeAffects)
	if err != nil {
		return nil, err
	}
	var tickers []string
	for _, edge := range edges {
		node, err := g.GetNode(edge.ToGUID)
		if err != nil {
			continue
		}
		if node.Key != "" {
			tickers = append(tickers, node.Key)
		}
	}
	return tickers, nil
}

func (g *Graph) documentsMatching(match func(*models.Node) bool) ([]models.Node, error) {
	var nodes []models.Node
	err := g.db.Store().Find(&nodes, badgerhold.Where("Label").Eq(models.LabelDocument).
		And("Props").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		node, ok := ra.Record().(*models.Node)
		if !ok {
			return false, nil
		}
		return match(node), nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return nodes, nil
}

func sortDocsNewestFirst(docs []models.Node) {
	sort.Slice(docs, func(i, j int) bool {
		return propTime(docs[i].Props, "created_at").After(propTime(docs[j].Props, "created_at"))
	})
}

func truncate(docs []models.Node, limit int) []models.Node {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}

// groupNodeByID resolves a Group node by its group_id property or guid
func (g *Graph) groupNodeByID(groupID string) (*models.Node, error) {
	if node, err := g.GetNode(groupID); err == nil && node.Label == models.LabelGroup {
		return node, nil
	}
	var nodes []models.Node
	err := g.db.Store().Find(&nodes, badgerhold.Where("Label").Eq(models.LabelGroup).
		And("Props").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		node, ok := ra.Record().(*models.Node)
		if !ok {
			return false, nil
		}
		return propString(node.Props, "group_id") == groupID, nil
	}).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find group %s: %w", groupID, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return &nodes[0], nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/models"
)

var nodeLabels = map[string]models.NodeLabel{
	"Document":   models.LabelDocument,
	"Instrument": models.LabelInstrument,
	"Company":    models.LabelCompany,
	"Client":     models.LabelClient,
	"Factor":     models.LabelFactor,
	"EventType":  models.LabelEventType,
	"Sector":     models.LabelSector,
	"Region":     models.LabelRegion,
	"Group":      models.LabelGroup,
	"Source":     models.LabelSource,
	"Index":      models.LabelIndex,
}

func handleExploreGraph(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nodeType, err := request.RequireString("node_type")
		if err != nil || nodeType == "" {
			return validationError("node_type parameter is required"), nil
		}
		nodeID, err := request.RequireString("node_id")
		if err != nil || nodeID == "" {
			return validationError("node_id parameter is required"), nil
		}
		label, ok := nodeLabels[nodeType]
		if !ok {
			return validationError(fmt.Sprintf("unknown node_type %q", nodeType)), nil
		}
		maxDepth := request.GetInt("max_depth", 1)
		if maxDepth < 1 || maxDepth > 3 {
			return validationError("max_depth must be between 1 and 3"), nil
		}
		limit := request.GetInt("limit", 50)

		access := resolveAccess(svcs, request)

		start, err := svcs.graph.GetNode(nodeID)
		if err != nil || start.Label != label {
			start, err = svcs.graph.GetNodeByKey(label, nodeID)
			if err != nil {
				return errorResult(err), nil
			}
		}
		if start.Label == models.LabelDocument {
			groupID, _ := start.Props["group_id"].(string)
			if !access.CanRead(groupID) {
				return errorResult(fmt.Errorf("node %s: %w", nodeID, models.ErrAccessDenied)), nil
			}
		}

		var edgeTypes []models.EdgeType
		for _, raw := range request.GetStringSlice("relationship_types", nil) {
			edgeTypes = append(edgeTypes, models.EdgeType(raw))
		}

		edges, err := svcs.graph.Explore(start.GUID, edgeTypes, maxDepth, limit)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("%d relationships", len(edges)), map[string]interface{}{
			"start_node": map[string]interface{}{
				"guid":  start.GUID,
				"label": string(start.Label),
				"key":   start.Key,
				"props": start.Props,
			},
			"relationships": edges,
			"total_found":   len(edges),
		}), nil
	}
}

func handleMarketContext(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return validationError("ticker parameter is required"), nil
		}
		ticker = models.NormalizeTicker(ticker)
		daysBack := request.GetInt("days_back", 7)

		access := resolveAccess(svcs, request)

		instrument, err := svcs.graph.GetInstrument(ticker)
		if err != nil {
			return errorResult(err), nil
		}

		market := map[string]interface{}{
			"instrument": instrument,
		}
		if sector, err := svcs.graph.GetInstrumentSector(ticker); err == nil && sector != "" {
			market["sector"] = sector
		}
		if request.GetBool("include_peers", true) {
			peers, err := svcs.graph.GetPeers(ticker)
			if err != nil {
				svcs.logger.Warn().Err(err).Str("ticker", ticker).Msg("Peer lookup failed")
			} else {
				market["peers"] = peers
			}
		}
		if exposures, err := svcs.graph.GetFactorExposures(ticker); err == nil && len(exposures) > 0 {
			market["factor_exposures"] = exposures
		}
		if request.GetBool("include_indices", true) {
			indices, err := svcs.graph.GetIndexMemberships(ticker)
			if err != nil {
				svcs.logger.Warn().Err(err).Str("ticker", ticker).Msg("Index membership lookup failed")
			} else {
				market["indices"] = indices
			}
		}
		if request.GetBool("include_events", true) {
			since := time.Now().UTC().AddDate(0, 0, -daysBack)
			docs, err := svcs.graph.GetDocumentsMentioning(ticker, since, 20)
			if err != nil {
				svcs.logger.Warn().Err(err).Str("ticker", ticker).Msg("Recent document lookup failed")
			} else {
				recent := make([]map[string]interface{}, 0, len(docs))
				for _, doc := range docs {
					groupID, _ := doc.Props["group_id"].(string)
					if !access.CanRead(groupID) {
						continue
					}
					recent = append(recent, map[string]interface{}{
						"doc_id":       doc.GUID,
						"title":        doc.Props["title"],
						"impact_score": doc.Props["impact_score"],
						"impact_tier":  doc.Props["impact_tier"],
						"created_at":   doc.Props["created_at"],
					})
				}
				market["recent_documents"] = recent
			}
		}

		return successResult("", market), nil
	}
}

func handleHealthCheck(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		statuses := map[string]string{
			"graph":  "healthy",
			"vector": "healthy",
			"llm":    "healthy",
		}

		backendDown := false
		if err := svcs.graph.Ping(); err != nil {
			statuses["graph"] = "unhealthy"
			backendDown = true
		}
		if _, err := svcs.vector.Count(""); err != nil {
			statuses["vector"] = "unhealthy"
			backendDown = true
		}

		llmDown := false
		llmCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := svcs.llm.HealthCheck(llmCtx); err != nil {
			statuses["llm"] = "unhealthy"
			llmDown = true
		}

		overall := "healthy"
		switch {
		case backendDown:
			overall = "unhealthy"
		case llmDown:
			// Ingest degrades without the LLM but reads still work
			overall = "degraded"
		}

		return successResult("", map[string]interface{}{
			"status":   overall,
			"services": statuses,
			"version":  common.GetVersion(),
		}), nil
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/feed"
)

func feedParamsFromRequest(svcs *services, request mcp.CallToolRequest) (feed.Params, *mcp.CallToolResult) {
	clientID, err := request.RequireString("client_id")
	if err != nil || clientID == "" {
		return feed.Params{}, validationError("client_id parameter is required")
	}
	bias := request.GetFloat("opportunity_bias", 0)
	if bias < 0 || bias > 1 {
		return feed.Params{}, validationError("opportunity_bias must be in [0,1]")
	}

	access := resolveAccess(svcs, request)
	return feed.Params{
		ClientGUID:      clientID,
		GroupIDs:        access.GroupIDs,
		Limit:           request.GetInt("limit", 20),
		WindowHours:     request.GetInt("time_window_hours", 24),
		OpportunityBias: bias,
		ActorGroup:      primaryActor(access),
	}, nil
}

func handleClientAvatarFeed(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, invalid := feedParamsFromRequest(svcs, request)
		if invalid != nil {
			return invalid, nil
		}
		resp, err := svcs.feed.GetFeed(params)
		if err != nil {
			return errorResult(err), nil
		}
		message := fmt.Sprintf("%d maintenance, %d opportunity items",
			len(resp.Maintenance), len(resp.Opportunity))
		return successResult(message, resp), nil
	}
}

func handleTopClientNews(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, invalid := feedParamsFromRequest(svcs, request)
		if invalid != nil {
			return invalid, nil
		}
		articles, err := svcs.feed.TopNews(params)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("%d articles", len(articles)), map[string]interface{}{
			"articles": articles,
		}), nil
	}
}

func handleCreateClient(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return validationError("name parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		writeGroup, err := svcs.groups.WriteGroup(access)
		if err != nil {
			return errorResult(err), nil
		}

		client, err := svcs.clients.CreateClient(name, request.GetString("client_type_code", ""), writeGroup)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("Client %s created", client.ClientGUID), client), nil
	}
}

func handleAddToPortfolio(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clientID, err := request.RequireString("client_id")
		if err != nil || clientID == "" {
			return validationError("client_id parameter is required"), nil
		}
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return validationError("ticker parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		holding := models.Holding{
			Ticker:    ticker,
			Weight:    request.GetFloat("weight", 0),
			Sentiment: models.PositionSentiment(request.GetString("sentiment", string(models.SentimentLong))),
		}
		if err := svcs.clients.AddToPortfolio(clientID, holding, access.GroupIDs); err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("Added %s to portfolio of %s", models.NormalizeTicker(ticker), clientID), nil), nil
	}
}

func handleAddToWatchlist(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clientID, err := request.RequireString("client_id")
		if err != nil || clientID == "" {
			return validationError("client_id parameter is required"), nil
		}
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return validationError("ticker parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		item := models.WatchItem{Ticker: ticker}
		if threshold := request.GetFloat("alert_threshold", -1); threshold >= 0 {
			item.AlertThreshold = &threshold
		}
		if err := svcs.clients.AddToWatchlist(clientID, item, access.GroupIDs); err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("Added %s to watchlist of %s", models.NormalizeTicker(ticker), clientID), nil), nil
	}
}

func handleGetClientProfile(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clientID, err := request.RequireString("client_id")
		if err != nil || clientID == "" {
			return validationError("client_id parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		profile, err := svcs.clients.GetProfile(clientID, access.GroupIDs)
		if err != nil && models.CodeForError(err) != models.CodeDocumentNotFound {
			return errorResult(err), nil
		}

		completeness, err := svcs.clients.CalculateCompleteness(clientID, access.GroupIDs)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult("", map[string]interface{}{
			"profile":      profile,
			"completeness": completeness,
		}), nil
	}
}

func handleUpdateClientProfile(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clientID, err := request.RequireString("client_id")
		if err != nil || clientID == "" {
			return validationError("client_id parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		profile, err := svcs.clients.GetProfile(clientID, access.GroupIDs)
		if err != nil {
			if models.CodeForError(err) != models.CodeDocumentNotFound {
				return errorResult(err), nil
			}
			profile = &models.ClientProfile{ClientGUID: clientID}
		}

		args := request.GetArguments()
		if v := request.GetString("mandate_type", ""); v != "" {
			profile.MandateType = v
		}
		if v := request.GetString("mandate_text", ""); v != "" {
			profile.MandateText = v
		}
		if themes := request.GetStringSlice("mandate_themes", nil); themes != nil {
			profile.MandateThemes = themes
		}
		if v := request.GetString("horizon", ""); v != "" {
			profile.Horizon = models.Horizon(v)
		}
		if raw, ok := args["esg_constrained"].(bool); ok {
			profile.ESGConstrained = &raw
		}
		if industries := request.GetStringSlice("excluded_industries", nil); industries != nil {
			profile.Restrictions.ExcludedIndustries = industries
		}
		if _, ok := args["impact_threshold"]; ok {
			profile.ImpactThreshold = request.GetFloat("impact_threshold", profile.ImpactThreshold)
		}
		if v := request.GetString("primary_contact", ""); v != "" {
			profile.PrimaryContact = v
		}
		if v := request.GetString("alert_frequency", ""); v != "" {
			profile.AlertFrequency = v
		}

		if err := svcs.clients.UpdateProfile(ctx, profile, access.GroupIDs); err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("Profile for %s updated", clientID), profile), nil
	}
}

func handleListClients(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access := resolveAccess(svcs, request)
		list, err := svcs.clients.ListClients(access.GroupIDs)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("%d clients", len(list)), map[string]interface{}{
			"clients": list,
		}), nil
	}
}

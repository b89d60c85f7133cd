package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/audit"
)

func handleListSources(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access := resolveAccess(svcs, request)

		permitted := make(map[string]struct{}, len(access.GroupIDs))
		for _, g := range access.GroupIDs {
			permitted[g] = struct{}{}
		}

		all, err := svcs.sources.List(interfaces.SourceListOptions{
			GroupID:         request.GetString("group_id", ""),
			Region:          request.GetString("region", ""),
			Type:            request.GetString("source_type", ""),
			IncludeInactive: request.GetBool("include_inactive", false),
		})
		if err != nil {
			return errorResult(err), nil
		}

		visible := make([]*models.Source, 0, len(all))
		for _, source := range all {
			if _, ok := permitted[source.GroupID]; ok {
				visible = append(visible, source)
			}
		}
		return successResult(fmt.Sprintf("%d sources", len(visible)), map[string]interface{}{
			"sources": visible,
		}), nil
	}
}

func handleGetSource(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := request.RequireString("source_id")
		if err != nil || sourceID == "" {
			return validationError("source_id parameter is required"), nil
		}
		access := resolveAccess(svcs, request)

		source, err := svcs.sources.Get(sourceID, access.GroupIDs)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult("", source), nil
	}
}

func handleCreateSource(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return validationError("name parameter is required"), nil
		}
		sourceType, err := request.RequireString("source_type")
		if err != nil || sourceType == "" {
			return validationError("source_type parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		writeGroup, err := svcs.groups.WriteGroup(access)
		if err != nil {
			return errorResult(err), nil
		}

		trustLevel := request.GetString("trust_level", string(models.TrustMedium))
		source := &models.Source{
			SourceID:   common.NewSourceID(),
			GroupID:    writeGroup,
			Name:       name,
			Type:       models.SourceType(sourceType),
			Region:     request.GetString("region", ""),
			Languages:  request.GetStringSlice("languages", nil),
			TrustLevel: models.TrustLevel(trustLevel),
			Active:     true,
		}

		actor := primaryActor(access)
		created, err := svcs.sources.Create(source, actor)
		if err != nil {
			return errorResult(err), nil
		}
		svcs.audit.LogSourceChange(audit.EventSourceCreate, created.SourceID, actor, map[string]interface{}{
			"name": created.Name,
			"type": string(created.Type),
		})
		return successResult(fmt.Sprintf("Source %s created", created.SourceID), created), nil
	}
}

func handleUpdateSource(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := request.RequireString("source_id")
		if err != nil || sourceID == "" {
			return validationError("source_id parameter is required"), nil
		}
		fields, ok := request.GetArguments()["fields"].(map[string]interface{})
		if !ok || len(fields) == 0 {
			return validationError("fields parameter must be a non-empty object"), nil
		}

		access := resolveAccess(svcs, request)
		updated, err := svcs.sources.Update(sourceID, fields, access.GroupIDs)
		if err != nil {
			return errorResult(err), nil
		}
		svcs.audit.LogSourceChange(audit.EventSourceUpdate, sourceID, primaryActor(access), fields)
		return successResult(fmt.Sprintf("Source %s updated", sourceID), updated), nil
	}
}

func handleDeleteSource(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := request.RequireString("source_id")
		if err != nil || sourceID == "" {
			return validationError("source_id parameter is required"), nil
		}

		access := resolveAccess(svcs, request)
		if err := svcs.groups.RequireAdmin(access); err != nil {
			return errorResult(err), nil
		}
		// Admins are not group-scoped; nil skips the group check
		deleted, err := svcs.sources.SoftDelete(sourceID, nil)
		if err != nil {
			return errorResult(err), nil
		}
		svcs.audit.LogSourceChange(audit.EventSourceDelete, sourceID, primaryActor(access), nil)
		return successResult(fmt.Sprintf("Source %s deactivated", sourceID), deleted), nil
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/groups"
	"github.com/parrisma/gofr-iq/internal/services/ingest"
	"github.com/parrisma/gofr-iq/internal/services/query"
)

// resolveAccess maps the request's auth_tokens onto permitted groups
func resolveAccess(svcs *services, request mcp.CallToolRequest) *groups.Access {
	return svcs.groups.ResolveAccess(request.GetStringSlice("auth_tokens", nil))
}

// primaryActor names the caller for audit purposes: the first non-public
// group held, else public
func primaryActor(access *groups.Access) string {
	for _, name := range access.Names {
		if name != models.GroupPublic {
			return name
		}
	}
	return models.GroupPublic
}

// parseDate accepts RFC3339 or plain YYYY-MM-DD
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func requestMetadata(request mcp.CallToolRequest) map[string]interface{} {
	args := request.GetArguments()
	if raw, ok := args["metadata"].(map[string]interface{}); ok {
		return raw
	}
	return nil
}

// documentArgs is the shared ingest/validate argument surface
type documentArgs struct {
	Title    string `json:"title" validate:"required,max=500"`
	Content  string `json:"content" validate:"required"`
	SourceID string `json:"source_id" validate:"required"`
	Language string `json:"language"`
}

func bindDocumentArgs(request mcp.CallToolRequest) (*documentArgs, *mcp.CallToolResult) {
	var args documentArgs
	if err := request.BindArguments(&args); err != nil {
		return nil, validationError(err.Error())
	}
	if err := models.ValidateArgs(&args); err != nil {
		return nil, validationError(err.Error())
	}
	return &args, nil
}

func handleIngestDocument(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, invalid := bindDocumentArgs(request)
		if invalid != nil {
			return invalid, nil
		}

		access := resolveAccess(svcs, request)
		writeGroup, err := svcs.groups.WriteGroup(access)
		if err != nil {
			return errorResult(err), nil
		}

		result, err := svcs.ingest.Ingest(ctx, ingest.Request{
			Title:        args.Title,
			Content:      args.Content,
			SourceID:     args.SourceID,
			GroupID:      writeGroup,
			Language:     args.Language,
			Metadata:     requestMetadata(request),
			AccessGroups: access.GroupIDs,
		})
		if err != nil {
			svcs.logger.Warn().Err(err).Str("source_id", args.SourceID).Msg("Ingest rejected")
			return errorResult(err), nil
		}

		message := fmt.Sprintf("Document %s ingested", result.DocID)
		switch result.Status {
		case ingest.StatusDuplicate:
			message = fmt.Sprintf("Document %s is a duplicate of %s", result.DocID, result.DuplicateOf)
		case ingest.StatusFailed:
			return toResult(envelope{
				Status:           "error",
				Message:          result.Error,
				Data:             result,
				ErrorCode:        string(models.CodeIngestError),
				RecoveryStrategy: models.RecoveryHint(models.CodeIngestError),
			}), nil
		}
		return successResult(message, result), nil
	}
}

func handleValidateDocument(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, invalid := bindDocumentArgs(request)
		if invalid != nil {
			return invalid, nil
		}

		access := resolveAccess(svcs, request)
		writeGroup, err := svcs.groups.WriteGroup(access)
		if err != nil {
			return errorResult(err), nil
		}

		report := svcs.ingest.Validate(ctx, ingest.Request{
			Title:        args.Title,
			Content:      args.Content,
			SourceID:     args.SourceID,
			GroupID:      writeGroup,
			AccessGroups: access.GroupIDs,
		})
		return successResult("Validation complete", report), nil
	}
}

func handleGetDocument(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docID, err := request.RequireString("doc_id")
		if err != nil || docID == "" {
			return validationError("doc_id parameter is required"), nil
		}

		var dateHint *time.Time
		if raw := request.GetString("date_hint", ""); raw != "" {
			parsed, err := parseDate(raw)
			if err != nil {
				return validationError("date_hint must be RFC3339 or YYYY-MM-DD"), nil
			}
			dateHint = &parsed
		}

		access := resolveAccess(svcs, request)
		actor := primaryActor(access)

		doc, err := svcs.store.LoadWithAccessCheck(docID, access.GroupIDs, dateHint)
		if err != nil {
			svcs.audit.LogDocumentRetrieve(docID, actor, "denied")
			return errorResult(err), nil
		}
		svcs.audit.LogDocumentRetrieve(docID, actor, "success")
		return successResult("", doc), nil
	}
}

func handleQueryDocuments(svcs *services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryText, err := request.RequireString("query")
		if err != nil || queryText == "" {
			return validationError("query parameter is required"), nil
		}

		access := resolveAccess(svcs, request)

		filters := query.Filters{
			Sources:           request.GetStringSlice("sources", nil),
			Languages:         request.GetStringSlice("languages", nil),
			Companies:         request.GetStringSlice("companies", nil),
			EventTypes:        request.GetStringSlice("event_types", nil),
			Regions:           request.GetStringSlice("regions", nil),
			Sectors:           request.GetStringSlice("sectors", nil),
			ImpactTiers:       request.GetStringSlice("impact_tiers", nil),
			IncludeDuplicates: request.GetBool("include_duplicates", false),
		}
		if raw := request.GetString("from_date", ""); raw != "" {
			parsed, err := parseDate(raw)
			if err != nil {
				return validationError("from_date must be RFC3339 or YYYY-MM-DD"), nil
			}
			filters.FromDate = &parsed
		}
		if raw := request.GetString("to_date", ""); raw != "" {
			parsed, err := parseDate(raw)
			if err != nil {
				return validationError("to_date must be RFC3339 or YYYY-MM-DD"), nil
			}
			filters.ToDate = &parsed
		}
		if min := request.GetFloat("min_impact_score", -1); min >= 0 {
			filters.MinImpactScore = &min
		}

		resp, err := svcs.query.Query(ctx, query.Params{
			Query:       queryText,
			GroupIDs:    access.GroupIDs,
			NResults:    request.GetInt("n_results", 10),
			ExpandGraph: request.GetBool("enable_graph_expansion", true),
			Filters:     filters,
			ActorGroup:  primaryActor(access),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(fmt.Sprintf("%d results", resp.Total), resp), nil
	}
}

package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools wires every tool definition to its handler
func registerTools(s *server.MCPServer, svcs *services) {
	s.AddTool(createIngestDocumentTool(), handleIngestDocument(svcs))
	s.AddTool(createValidateDocumentTool(), handleValidateDocument(svcs))
	s.AddTool(createGetDocumentTool(), handleGetDocument(svcs))
	s.AddTool(createQueryDocumentsTool(), handleQueryDocuments(svcs))

	s.AddTool(createListSourcesTool(), handleListSources(svcs))
	s.AddTool(createGetSourceTool(), handleGetSource(svcs))
	s.AddTool(createCreateSourceTool(), handleCreateSource(svcs))
	s.AddTool(createUpdateSourceTool(), handleUpdateSource(svcs))
	s.AddTool(createDeleteSourceTool(), handleDeleteSource(svcs))

	s.AddTool(createClientAvatarFeedTool(), handleClientAvatarFeed(svcs))
	s.AddTool(createTopClientNewsTool(), handleTopClientNews(svcs))
	s.AddTool(createCreateClientTool(), handleCreateClient(svcs))
	s.AddTool(createAddToPortfolioTool(), handleAddToPortfolio(svcs))
	s.AddTool(createAddToWatchlistTool(), handleAddToWatchlist(svcs))
	s.AddTool(createGetClientProfileTool(), handleGetClientProfile(svcs))
	s.AddTool(createUpdateClientProfileTool(), handleUpdateClientProfile(svcs))
	s.AddTool(createListClientsTool(), handleListClients(svcs))

	s.AddTool(createExploreGraphTool(), handleExploreGraph(svcs))
	s.AddTool(createMarketContextTool(), handleMarketContext(svcs))
	s.AddTool(createHealthCheckTool(), handleHealthCheck(svcs))
}

func withAuthTokens() mcp.ToolOption {
	return mcp.WithArray("auth_tokens",
		mcp.WithStringItems(),
		mcp.Description("Bearer tokens; each maps to a permitted group. Omit for public-only access."),
	)
}

func createIngestDocumentTool() mcp.Tool {
	return mcp.NewTool("ingest_document",
		mcp.WithDescription("Ingest a news document: validate, detect language, dedupe, persist, extract intelligence, embed, and link into the graph"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document body text")),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Registered source id (src_*)")),
		mcp.WithString("language", mcp.Description("ISO-639-1 code; auto-detected when omitted")),
		mcp.WithObject("metadata", mcp.Description("Opaque key/value metadata carried with the document")),
		withAuthTokens(),
	)
}

func createValidateDocumentTool() mcp.Tool {
	return mcp.NewTool("validate_document",
		mcp.WithDescription("Dry-run ingest checks (source, word count, language, duplicate) without persisting anything"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document body text")),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Registered source id")),
		withAuthTokens(),
	)
}

func createGetDocumentTool() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Retrieve a full document by id from the caller's permitted groups"),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id (doc_*)")),
		mcp.WithString("date_hint", mcp.Description("Creation date YYYY-MM-DD to narrow the lookup")),
		withAuthTokens(),
	)
}

func createQueryDocumentsTool() mcp.Tool {
	return mcp.NewTool("query_documents",
		mcp.WithDescription("Hybrid retrieval: vector similarity blended with source trust, recency, and graph proximity"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language query text")),
		mcp.WithNumber("n_results", mcp.Description("Maximum results (default 10)")),
		mcp.WithBoolean("enable_graph_expansion", mcp.Description("Union in graph neighbors of top hits (default true)")),
		mcp.WithBoolean("include_duplicates", mcp.Description("Keep duplicate-flagged documents (default false)")),
		mcp.WithString("from_date", mcp.Description("Earliest creation date, RFC3339 or YYYY-MM-DD")),
		mcp.WithString("to_date", mcp.Description("Latest creation date, RFC3339 or YYYY-MM-DD")),
		mcp.WithArray("sources", mcp.WithStringItems(), mcp.Description("Restrict to these source ids")),
		mcp.WithArray("languages", mcp.WithStringItems(), mcp.Description("Restrict to these ISO-639-1 codes")),
		mcp.WithArray("companies", mcp.WithStringItems(), mcp.Description("Restrict to documents affecting these tickers")),
		mcp.WithArray("event_types", mcp.WithStringItems(), mcp.Description("Restrict to these event type codes")),
		mcp.WithArray("regions", mcp.WithStringItems(), mcp.Description("Restrict to these region codes, e.g. APAC, US")),
		mcp.WithArray("sectors", mcp.WithStringItems(), mcp.Description("Restrict to these sector codes, e.g. TECH, FINS")),
		mcp.WithArray("impact_tiers", mcp.WithStringItems(), mcp.Description("Restrict to these impact tiers")),
		mcp.WithNumber("min_impact_score", mcp.Description("Minimum impact score [0,100]")),
		withAuthTokens(),
	)
}

func createListSourcesTool() mcp.Tool {
	return mcp.NewTool("list_sources",
		mcp.WithDescription("List registered sources visible to the caller"),
		mcp.WithString("group_id", mcp.Description("Narrow to one of the caller's groups")),
		mcp.WithString("region", mcp.Description("Filter by region code")),
		mcp.WithString("source_type", mcp.Description("Filter by source type")),
		mcp.WithBoolean("include_inactive", mcp.Description("Include soft-deleted sources")),
		withAuthTokens(),
	)
}

func createGetSourceTool() mcp.Tool {
	return mcp.NewTool("get_source",
		mcp.WithDescription("Retrieve a full source record"),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source id (src_*)")),
		withAuthTokens(),
	)
}

func createCreateSourceTool() mcp.Tool {
	return mcp.NewTool("create_source",
		mcp.WithDescription("Register a news source in the caller's write group"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("source_type", mcp.Required(), mcp.Description("news_agency, internal, research, government, corporate, social, or other")),
		mcp.WithString("region", mcp.Description("Region code, e.g. APAC")),
		mcp.WithArray("languages", mcp.WithStringItems(), mcp.Description("Languages the source publishes in")),
		mcp.WithString("trust_level", mcp.Description("high, medium, low, or unverified (default medium)")),
		withAuthTokens(),
	)
}

func createUpdateSourceTool() mcp.Tool {
	return mcp.NewTool("update_source",
		mcp.WithDescription("Update mutable fields of a source the caller can write"),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source id")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Partial field map: name, region, trust_level, languages, metadata")),
		withAuthTokens(),
	)
}

func createDeleteSourceTool() mcp.Tool {
	return mcp.NewTool("delete_source",
		mcp.WithDescription("Soft-delete a source; admin token required, existing documents keep their provenance"),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source id")),
		withAuthTokens(),
	)
}

func createClientAvatarFeedTool() mcp.Tool {
	return mcp.NewTool("get_client_avatar_feed",
		mcp.WithDescription("Two-channel personalized feed: MAINTENANCE for held positions, OPPORTUNITY for novel mandate-matching stories"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id (cli_*)")),
		mcp.WithNumber("limit", mcp.Description("Items per channel (default 20)")),
		mcp.WithNumber("time_window_hours", mcp.Description("Lookback window (default 24)")),
		mcp.WithNumber("opportunity_bias", mcp.Description("Bias dial in [0,1]; higher favors novel thematic items (default 0)")),
		withAuthTokens(),
	)
}

func createTopClientNewsTool() mcp.Tool {
	return mcp.NewTool("get_top_client_news",
		mcp.WithDescription("Single ranked article list blending the feed channels with the configured client-news weights"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithNumber("limit", mcp.Description("Maximum articles (default 20)")),
		mcp.WithNumber("time_window_hours", mcp.Description("Lookback window (default 24)")),
		mcp.WithNumber("opportunity_bias", mcp.Description("Bias dial in [0,1]")),
		withAuthTokens(),
	)
}

func createCreateClientTool() mcp.Tool {
	return mcp.NewTool("create_client",
		mcp.WithDescription("Register a client in the caller's write group"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Client display name")),
		mcp.WithString("client_type_code", mcp.Description("Client type code, e.g. hedge_fund")),
		withAuthTokens(),
	)
}

func createAddToPortfolioTool() mcp.Tool {
	return mcp.NewTool("add_to_portfolio",
		mcp.WithDescription("Record a HOLDS position against a seeded instrument"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Instrument ticker")),
		mcp.WithNumber("weight", mcp.Description("Portfolio weight [0,1]")),
		mcp.WithString("sentiment", mcp.Description("LONG or SHORT")),
		withAuthTokens(),
	)
}

func createAddToWatchlistTool() mcp.Tool {
	return mcp.NewTool("add_to_watchlist",
		mcp.WithDescription("Record a WATCHES entry against a seeded instrument"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Instrument ticker")),
		mcp.WithNumber("alert_threshold", mcp.Description("Optional impact score alert threshold")),
		withAuthTokens(),
	)
}

func createGetClientProfileTool() mcp.Tool {
	return mcp.NewTool("get_client_profile",
		mcp.WithDescription("Retrieve a client's profile plus its completeness score"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id")),
		withAuthTokens(),
	)
}

func createUpdateClientProfileTool() mcp.Tool {
	return mcp.NewTool("update_client_profile",
		mcp.WithDescription("Update mandate, constraints, and engagement fields of a client profile"),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client id")),
		mcp.WithString("mandate_type", mcp.Description("Mandate type, e.g. growth, income")),
		mcp.WithString("mandate_text", mcp.Description("Free-text mandate description")),
		mcp.WithArray("mandate_themes", mcp.WithStringItems(), mcp.Description("Controlled-vocabulary themes")),
		mcp.WithString("horizon", mcp.Description("short, medium, or long")),
		mcp.WithBoolean("esg_constrained", mcp.Description("Whether the mandate carries ESG constraints")),
		mcp.WithArray("excluded_industries", mcp.WithStringItems(), mcp.Description("Sectors the client excludes")),
		mcp.WithNumber("impact_threshold", mcp.Description("Minimum impact score for maintenance items [0,100]")),
		mcp.WithString("primary_contact", mcp.Description("Primary contact address")),
		mcp.WithString("alert_frequency", mcp.Description("realtime, daily, or weekly")),
		withAuthTokens(),
	)
}

func createListClientsTool() mcp.Tool {
	return mcp.NewTool("list_clients",
		mcp.WithDescription("List clients in the caller's permitted groups"),
		withAuthTokens(),
	)
}

func createExploreGraphTool() mcp.Tool {
	return mcp.NewTool("explore_graph",
		mcp.WithDescription("Walk typed relationships outward from a node"),
		mcp.WithString("node_type", mcp.Required(), mcp.Description("Node label: Document, Instrument, Company, Client, Factor, EventType, Source, Group")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node guid or natural key (e.g. ticker)")),
		mcp.WithArray("relationship_types", mcp.WithStringItems(), mcp.Description("Edge types to follow; all when omitted")),
		mcp.WithNumber("max_depth", mcp.Description("Traversal depth, 1 to 3 (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Maximum relationships returned (default 50)")),
		withAuthTokens(),
	)
}

func createMarketContextTool() mcp.Tool {
	return mcp.NewTool("get_market_context",
		mcp.WithDescription("Consolidated instrument context: sector, peers, index memberships, factor exposures, and recent affecting documents"),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Instrument ticker")),
		mcp.WithBoolean("include_peers", mcp.Description("Include peer tickers (default true)")),
		mcp.WithBoolean("include_events", mcp.Description("Include recent affecting documents (default true)")),
		mcp.WithBoolean("include_indices", mcp.Description("Include market index memberships (default true)")),
		mcp.WithNumber("days_back", mcp.Description("Lookback for recent documents (default 7)")),
		withAuthTokens(),
	)
}

func createHealthCheckTool() mcp.Tool {
	return mcp.NewTool("health_check",
		mcp.WithDescription("Report health of the graph index, vector index, and LLM provider"),
	)
}

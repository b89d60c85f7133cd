package models

import "time"

// NodeLabel is a typed graph node label
type NodeLabel string

const (
	LabelDocument   NodeLabel = "Document"
	LabelInstrument NodeLabel = "Instrument"
	LabelCompany    NodeLabel = "Company"
	LabelClient     NodeLabel = "Client"
	LabelPortfolio  NodeLabel = "Portfolio"
	LabelWatchlist  NodeLabel = "Watchlist"
	LabelFactor     NodeLabel = "Factor"
	LabelEventType  NodeLabel = "EventType"
	LabelSector     NodeLabel = "Sector"
	LabelRegion     NodeLabel = "Region"
	LabelGroup      NodeLabel = "Group"
	LabelAlias      NodeLabel = "Alias"
	LabelSource     NodeLabel = "Source"
	LabelIndex      NodeLabel = "Index"
	LabelClientType NodeLabel = "ClientType"
	LabelProfile    NodeLabel = "ClientProfile"
)

// EdgeType is a typed graph relationship
type EdgeType string

const (
	EdgeAffects       EdgeType = "AFFECTS"
	EdgeIssuedBy      EdgeType = "ISSUED_BY"
	EdgeHolds         EdgeType = "HOLDS"
	EdgeWatches       EdgeType = "WATCHES"
	EdgeExposedTo     EdgeType = "EXPOSED_TO"
	EdgePeerOf        EdgeType = "PEER_OF"
	EdgeSuppliesTo    EdgeType = "SUPPLIES_TO"
	EdgeCompetesWith  EdgeType = "COMPETES_WITH"
	EdgeInGroup       EdgeType = "IN_GROUP"
	EdgeHasProfile    EdgeType = "HAS_PROFILE"
	EdgeMentions      EdgeType = "MENTIONS"
	EdgeTriggeredBy   EdgeType = "TRIGGERED_BY"
	EdgeHasAlias      EdgeType = "HAS_ALIAS"
	EdgeProducedBy    EdgeType = "PRODUCED_BY"
	EdgeOwnsPortfolio EdgeType = "OWNS_PORTFOLIO"
	EdgeOwnsWatchlist EdgeType = "OWNS_WATCHLIST"
	EdgeInRegion      EdgeType = "IN_REGION"
	EdgeInSector      EdgeType = "IN_SECTOR"
	EdgeMemberOf      EdgeType = "MEMBER_OF"
)

// Node is a typed property-graph node. GUID is unique per label; some labels
// additionally carry a singleton natural key (Key) such as Instrument.ticker.
type Node struct {
	GUID      string                 `json:"guid" badgerhold:"key"`
	Label     NodeLabel              `json:"label" badgerholdIndex:"Label"`
	Key       string                 `json:"key,omitempty" badgerholdIndex:"Key"`
	Props     map[string]interface{} `json:"props,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Edge is a typed relationship between two nodes. ID is the composite
// from|type|to key, making edge creation idempotent.
type Edge struct {
	ID        string                 `json:"id" badgerhold:"key"`
	Type      EdgeType               `json:"type" badgerholdIndex:"Type"`
	FromGUID  string                 `json:"from_guid" badgerholdIndex:"FromGUID"`
	ToGUID    string                 `json:"to_guid" badgerholdIndex:"ToGUID"`
	Props     map[string]interface{} `json:"props,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// EdgeID builds the composite edge key
func EdgeID(from string, edgeType EdgeType, to string) string {
	return from + "|" + string(edgeType) + "|" + to
}

// Alias maps an external identifier (value, scheme) onto a canonical node
type Alias struct {
	Value         string `json:"value"`
	Scheme        string `json:"scheme"` // TICKER, ISIN, NAME_VARIANT
	CanonicalGUID string `json:"canonical_guid"`
}

// Alias schemes
const (
	SchemeTicker      = "TICKER"
	SchemeISIN        = "ISIN"
	SchemeNameVariant = "NAME_VARIANT"
)

// EventType is a seeded event taxonomy entry
type EventTypeDef struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	BaseImpact  float64    `json:"base_impact"`
	DefaultTier ImpactTier `json:"default_tier"`
}

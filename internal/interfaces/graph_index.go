package interfaces

import (
	"time"

	"github.com/parrisma/gofr-iq/internal/models"
)

// DocumentNodeParams carries everything needed to upsert a Document node
type DocumentNodeParams struct {
	DocID            string
	SourceID         string
	GroupID          string
	Title            string
	Language         string
	CreatedAt        time.Time
	Metadata         map[string]interface{}
	ImpactScore      *float64
	ImpactTier       models.ImpactTier
	Themes           []string
	Regions          []string
	Sectors          []string
	ContentHash      string
	StoryFingerprint string
	DuplicateOf      string
}

// AffectsParams describes an AFFECTS edge from a document to an instrument
// or factor
type AffectsParams struct {
	Ticker    string
	Direction models.Direction
	Magnitude float64
}

// RelatedDocument is a graph-discovered neighbor of a document
type RelatedDocument struct {
	DocID string `json:"doc_id"`
	Title string `json:"title"`
	Via   string `json:"via"` // shared_company, shared_source, shared_factor
}

// ClientPositions is the single-batch traversal result the feed ranks against
type ClientPositions struct {
	Client    *models.Client
	Profile   *models.ClientProfile
	Holdings  []models.Holding
	Watchlist []models.WatchItem
}

// GraphIndex owns the typed property graph: nodes, edges, constraints, and
// the traversals consumed by query and feed services. Schema initialization
// is idempotent.
type GraphIndex interface {
	InitSchema() error

	// Node/edge CRUD
	UpsertNode(node *models.Node) error
	GetNode(guid string) (*models.Node, error)
	GetNodeByKey(label models.NodeLabel, key string) (*models.Node, error)
	DeleteNode(label models.NodeLabel, guid string) error
	UpsertEdge(edge *models.Edge) error
	DeleteEdge(id string) error
	GetEdges(fromGUID string, edgeType models.EdgeType) ([]models.Edge, error)
	GetIncomingEdges(toGUID string, edgeType models.EdgeType) ([]models.Edge, error)

	// Document operations
	CreateDocumentNode(params DocumentNodeParams) error
	CreateAffectsEdge(docID string, affects AffectsParams) error
	CreateTriggeredByEdge(docID, eventTypeCode string) error
	CreateMentionsEdge(docID, companyGUID string) error
	FindDocumentByContentHash(groupID, contentHash string) (*models.Node, error)
	FindDocumentByFingerprint(groupID, fingerprint string) (*models.Node, error)
	GetDocumentsBySource(sourceID string, limit int) ([]models.Node, error)
	GetDocumentsMentioning(ticker string, since time.Time, limit int) ([]models.Node, error)
	GetRelatedDocuments(docID string, depth, limit int) ([]RelatedDocument, error)
	GetDocumentsInWindow(groupIDs []string, since time.Time, limit int) ([]models.Node, error)
	GetAffectedTickers(docID string) ([]string, error)

	// Source mirror
	MirrorSource(source *models.Source) error

	// Client operations
	UpsertClient(client *models.Client) error
	GetClient(clientGUID string) (*models.Client, error)
	ListClients(groupIDs []string) ([]models.Client, error)
	UpsertClientProfile(profile *models.ClientProfile) error
	GetClientProfile(clientGUID string) (*models.ClientProfile, error)
	AddHolding(clientGUID string, holding models.Holding) error
	AddWatchItem(clientGUID string, item models.WatchItem) error
	GetClientPositions(clientGUID string) (*ClientPositions, error)

	// Reference data
	UpsertInstrument(instrument *models.Instrument, companyTicker string) error
	GetInstrument(ticker string) (*models.Instrument, error)
	UpsertCompany(company *models.Company) error
	UpsertGroup(group *models.Group) error
	GetGroupByName(name string) (*models.Group, error)
	ResolveAlias(value, scheme string) (string, error)
	UpsertAlias(alias *models.Alias) error
	GetPeers(ticker string) ([]string, error)
	GetFactorExposures(ticker string) (map[string]float64, error)
	GetInstrumentSector(ticker string) (string, error)
	GetIndexMemberships(ticker string) ([]string, error)

	// Exploration
	Explore(startGUID string, edgeTypes []models.EdgeType, maxDepth, limit int) ([]models.Edge, error)

	Ping() error
	Close() error
}

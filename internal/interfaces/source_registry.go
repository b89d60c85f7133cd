package interfaces

import (
	"github.com/parrisma/gofr-iq/internal/models"
)

// SourceListOptions filters a source listing
type SourceListOptions struct {
	GroupID         string
	Region          string
	Type            string
	IncludeInactive bool
}

// SourceAuditEntry is one JSONL line of a source's audit trail
type SourceAuditEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Action     string                 `json:"action"` // create, update, delete
	ActorGroup string                 `json:"actor_group,omitempty"`
	Diff       map[string]interface{} `json:"diff,omitempty"`
}

// SourceRegistry owns source records and their audit trail. Every mutation
// appends an audit line and, when a graph index is attached, mirrors the
// source into the graph in the same call.
type SourceRegistry interface {
	Create(source *models.Source, actorGroup string) (*models.Source, error)
	Get(sourceID string, accessGroups []string) (*models.Source, error)
	List(opts SourceListOptions) ([]*models.Source, error)
	Update(sourceID string, fields map[string]interface{}, accessGroups []string) (*models.Source, error)
	SoftDelete(sourceID string, accessGroups []string) (*models.Source, error)
	GetAuditLog(sourceID string) ([]SourceAuditEntry, error)
}

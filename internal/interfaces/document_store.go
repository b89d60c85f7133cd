package interfaces

import (
	"time"

	"github.com/parrisma/gofr-iq/internal/models"
)

// DocumentStore is the canonical immutable document file store. Files are
// created by the ingest pipeline, never mutated, and removed only on admin
// hard-delete or ingest rollback.
type DocumentStore interface {
	Save(doc *models.Document) error
	Load(id, groupID string, dateHint *time.Time) (*models.Document, error)
	LoadWithAccessCheck(id string, permittedGroups []string, dateHint *time.Time) (*models.Document, error)
	ListByGroup(groupID string, date *time.Time, limit int) ([]*models.Document, error)
	ListByDateRange(groupID string, from, to time.Time, limit int) ([]*models.Document, error)
	ListByPermittedGroups(groups []string, date *time.Time, limit int) ([]*models.Document, error)
	GetVersionChain(id, groupID string) ([]*models.Document, error)
	Delete(id, groupID string) error
	Exists(id, groupID string) bool
}

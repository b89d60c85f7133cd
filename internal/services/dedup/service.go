package dedup

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// Detection methods, cheapest first. The check short-circuits at the first
// match so an exact duplicate never costs an embedding call.
const (
	MethodHash        = "hash"
	MethodFingerprint = "fingerprint"
	MethodEmbedding   = "embedding"
	MethodNone        = "none"
)

// Result describes whether an incoming document duplicates an existing one
// within its group
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	DuplicateOf string  `json:"duplicate_of,omitempty"`
	Score       float64 `json:"duplicate_score,omitempty"`
	Method      string  `json:"method"`
}

// GraphLookup is the slice of the graph index the duplicate check uses
type GraphLookup interface {
	FindDocumentByContentHash(groupID, contentHash string) (*models.Node, error)
	FindDocumentByFingerprint(groupID, fingerprint string) (*models.Node, error)
}

// VectorSearcher is the slice of the vector index the duplicate check uses
type VectorSearcher interface {
	Search(ctx context.Context, query string, opts interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error)
}

// Service runs the three-stage duplicate check: exact content hash, story
// fingerprint, then embedding similarity. Checks never cross group
// boundaries.
type Service struct {
	graph     GraphLookup
	vector    VectorSearcher
	threshold float64
	logger    arbor.ILogger
}

func NewService(graph GraphLookup, vector VectorSearcher, threshold float64, logger arbor.ILogger) *Service {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Service{
		graph:     graph,
		vector:    vector,
		threshold: threshold,
		logger:    logger,
	}
}

// Check runs the staged duplicate detection for a document that has not been
// persisted yet. A vector backend failure degrades to the structural checks
// rather than failing ingestion.
func (s *Service) Check(ctx context.Context, doc *models.Document) (*Result, error) {
	contentHash := models.ComputeContentHash(doc.Title, doc.Content)
	existing, err := s.graph.FindDocumentByContentHash(doc.GroupID, contentHash)
	if err != nil {
		return nil, fmt.Errorf("content hash check failed: %w", err)
	}
	if existing != nil && existing.GUID != doc.ID {
		return &Result{
			IsDuplicate: true,
			DuplicateOf: existing.GUID,
			Score:       1.0,
			Method:      MethodHash,
		}, nil
	}

	if doc.StoryFingerprint != "" {
		fpResult, err := s.CheckFingerprint(doc.GroupID, doc.StoryFingerprint, doc.ID)
		if err != nil {
			return nil, err
		}
		if fpResult.IsDuplicate {
			return fpResult, nil
		}
	}

	hits, err := s.vector.Search(ctx, doc.Content, interfaces.VectorSearchOptions{
		NResults: 3,
		GroupIDs: []string{doc.GroupID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("Embedding duplicate check unavailable, using structural checks only")
		return &Result{Method: MethodNone}, nil
	}
	for _, hit := range hits {
		if hit.DocID == doc.ID {
			continue
		}
		if hit.Score >= s.threshold {
			return &Result{
				IsDuplicate: true,
				DuplicateOf: hit.DocID,
				Score:       hit.Score,
				Method:      MethodEmbedding,
			}, nil
		}
	}

	return &Result{Method: MethodNone}, nil
}

// CheckFingerprint runs the story-fingerprint stage alone. Ingest calls it
// again after extraction, once the ticker set and event type are known. A
// fingerprint collision is the same story, so it scores 1.0.
func (s *Service) CheckFingerprint(groupID, fingerprint, excludeDocID string) (*Result, error) {
	if fingerprint == "" {
		return &Result{Method: MethodNone}, nil
	}
	existing, err := s.graph.FindDocumentByFingerprint(groupID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("fingerprint check failed: %w", err)
	}
	if existing == nil || existing.GUID == excludeDocID {
		return &Result{Method: MethodNone}, nil
	}
	return &Result{
		IsDuplicate: true,
		DuplicateOf: existing.GUID,
		Score:       1.0,
		Method:      MethodFingerprint,
	}, nil
}

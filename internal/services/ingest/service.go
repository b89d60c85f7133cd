package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
	"github.com/parrisma/gofr-iq/internal/services/audit"
	"github.com/parrisma/gofr-iq/internal/services/dedup"
	"github.com/parrisma/gofr-iq/internal/services/language"
)

// Ingest outcome statuses
const (
	StatusSuccess   = "success"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

// Detector classifies document language
type Detector interface {
	DetectDocument(title, content string) language.Detection
}

// DuplicateChecker runs the staged duplicate detection. CheckFingerprint
// reruns the fingerprint stage alone once extraction has produced tickers.
type DuplicateChecker interface {
	Check(ctx context.Context, doc *models.Document) (*dedup.Result, error)
	CheckFingerprint(groupID, fingerprint, excludeDocID string) (*dedup.Result, error)
}

// Extractor produces structured intelligence from a document
type Extractor interface {
	Extract(ctx context.Context, doc *models.Document) (*models.ExtractionResult, error)
}

// EntityResolver gates graph edge creation on known aliases. Unresolvable
// mentions stay metadata-only; the graph never grows instruments out of raw
// model text.
type EntityResolver interface {
	ResolveTicker(ticker string) (string, error)
	ResolveCompany(mention string) (string, error)
}

// Request is one document submitted for ingestion
type Request struct {
	Title        string
	Content      string
	SourceID     string
	GroupID      string
	Language     string
	Metadata     map[string]interface{}
	AccessGroups []string
}

// Result is the outcome of an ingestion attempt
type Result struct {
	DocID       string   `json:"doc_id"`
	Status      string   `json:"status"`
	Language    string   `json:"language"`
	WordCount   int      `json:"word_count"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
	DupScore    float64  `json:"duplicate_score,omitempty"`
	DupMethod   string   `json:"duplicate_method,omitempty"`
	ImpactScore *float64 `json:"impact_score,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Service orchestrates the ingestion pipeline: validate, detect language,
// dedupe, persist, extract, index, audit. The document file write is the
// commit point; index writes after it are compensated on failure.
type Service struct {
	sources   interfaces.SourceRegistry
	store     interfaces.DocumentStore
	vector    interfaces.VectorIndex
	graph     interfaces.GraphIndex
	detector  Detector
	dedup     DuplicateChecker
	extractor Extractor
	resolver  EntityResolver
	audit     *audit.Service
	logger    arbor.ILogger
}

func NewService(
	sources interfaces.SourceRegistry,
	store interfaces.DocumentStore,
	vector interfaces.VectorIndex,
	graph interfaces.GraphIndex,
	detector Detector,
	dedup DuplicateChecker,
	extractor Extractor,
	resolver EntityResolver,
	auditSvc *audit.Service,
	logger arbor.ILogger,
) *Service {
	return &Service{
		sources:   sources,
		store:     store,
		vector:    vector,
		graph:     graph,
		detector:  detector,
		dedup:     dedup,
		extractor: extractor,
		resolver:  resolver,
		audit:     auditSvc,
		logger:    logger,
	}
}

// Ingest runs the full pipeline for one document. Returns a failed Result
// (not an error) for conditions the tool surface reports in-band; an error
// return means the request never got far enough to produce one.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	source, err := s.validateSource(req)
	if err != nil {
		return nil, err
	}

	wordCount := models.CountWords(req.Content)
	if wordCount > models.MaxWordCount {
		return nil, fmt.Errorf("%w: %d words exceeds limit of %d", models.ErrWordCountExceeded, wordCount, models.MaxWordCount)
	}

	doc := &models.Document{
		ID:          common.NewDocumentID(),
		Version:     1,
		SourceID:    req.SourceID,
		GroupID:     req.GroupID,
		CreatedAt:   time.Now().UTC(),
		Title:       req.Title,
		Content:     req.Content,
		WordCount:   wordCount,
		ContentHash: models.ComputeContentHash(req.Title, req.Content),
		Metadata:    req.Metadata,
	}

	if req.Language != "" {
		doc.Language = req.Language
	} else {
		detection := s.detector.DetectDocument(req.Title, req.Content)
		doc.Language = detection.Language
		doc.LanguageAutoDetected = true
	}

	// Structural duplicate check before the extraction spend. The
	// fingerprint stage runs again post-extraction once tickers are known.
	dupResult, err := s.dedup.Check(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if dupResult.IsDuplicate {
		doc.DuplicateOf = dupResult.DuplicateOf
		doc.DuplicateScore = dupResult.Score
	}

	// Extraction failures degrade: the document keeps flowing with no
	// impact metadata and no entity edges
	extraction := s.extract(ctx, doc)
	if extraction != nil {
		score := extraction.ImpactScore
		doc.ImpactScore = &score
		doc.ImpactTier = extraction.ImpactTier
		doc.Themes = extraction.Themes
		doc.Regions = extraction.Regions
		doc.Sectors = extraction.Sectors
		doc.StoryFingerprint = models.ComputeStoryFingerprint(
			extraction.Tickers(), extraction.PrimaryEventType(), doc.CreatedAt)

		if !dupResult.IsDuplicate && doc.StoryFingerprint != "" {
			if fpResult, err := s.dedup.CheckFingerprint(doc.GroupID, doc.StoryFingerprint, doc.ID); err == nil && fpResult.IsDuplicate {
				dupResult = fpResult
				doc.DuplicateOf = fpResult.DuplicateOf
				doc.DuplicateScore = fpResult.Score
			}
		}
	}

	// Commit point. A save failure aborts with nothing to roll back.
	if err := s.store.Save(doc); err != nil {
		return nil, fmt.Errorf("document persist failed: %w", err)
	}

	if err := s.index(ctx, doc, source, extraction, dupResult.IsDuplicate); err != nil {
		s.rollback(doc)
		s.auditIngest(doc, req, StatusFailed, dupResult, err)
		return &Result{
			DocID:     doc.ID,
			Status:    StatusFailed,
			Language:  doc.Language,
			WordCount: wordCount,
			Error:     err.Error(),
		}, nil
	}

	status := StatusSuccess
	if dupResult.IsDuplicate {
		status = StatusDuplicate
	}
	s.auditIngest(doc, req, status, dupResult, nil)

	result := &Result{
		DocID:       doc.ID,
		Status:      status,
		Language:    doc.Language,
		WordCount:   wordCount,
		DuplicateOf: doc.DuplicateOf,
		DupScore:    doc.DuplicateScore,
		DupMethod:   dupResult.Method,
		ImpactScore: doc.ImpactScore,
	}
	return result, nil
}

// Validate runs the pipeline's validation stages without persisting anything
func (s *Service) Validate(ctx context.Context, req Request) map[string]interface{} {
	issues := []string{}

	sourceValid := true
	if _, err := s.validateSource(req); err != nil {
		sourceValid = false
		issues = append(issues, err.Error())
	}

	wordCount := models.CountWords(req.Content)
	wordCountValid := wordCount <= models.MaxWordCount
	if !wordCountValid {
		issues = append(issues, fmt.Sprintf("%d words exceeds limit of %d", wordCount, models.MaxWordCount))
	}
	if len(req.Title) == 0 || len(req.Title) > models.MaxTitleLength {
		issues = append(issues, fmt.Sprintf("title must be 1..%d characters", models.MaxTitleLength))
	}

	lang := req.Language
	if lang == "" {
		lang = s.detector.DetectDocument(req.Title, req.Content).Language
	}

	isDuplicate := false
	var duplicateOf string
	draft := &models.Document{
		ID:      "validation_draft",
		GroupID: req.GroupID,
		Title:   req.Title,
		Content: req.Content,
	}
	if dupResult, err := s.dedup.Check(ctx, draft); err == nil && dupResult.IsDuplicate {
		isDuplicate = true
		duplicateOf = dupResult.DuplicateOf
	}

	return map[string]interface{}{
		"valid":            sourceValid && wordCountValid && len(issues) == 0,
		"source_valid":     sourceValid,
		"word_count_valid": wordCountValid,
		"word_count":       wordCount,
		"language":         lang,
		"is_duplicate":     isDuplicate,
		"duplicate_of":     duplicateOf,
		"issues":           issues,
	}
}

// validateSource checks the source exists, is active, and is visible to the
// write group
func (s *Service) validateSource(req Request) (*models.Source, error) {
	if req.SourceID == "" || req.GroupID == "" {
		return nil, fmt.Errorf("%w: source_id and group_id are required", models.ErrValidation)
	}

	accessGroups := append([]string{req.GroupID}, req.AccessGroups...)
	source, err := s.sources.Get(req.SourceID, accessGroups)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrAccessDenied) {
			return nil, fmt.Errorf("source %s: %w", req.SourceID, models.ErrInvalidSource)
		}
		return nil, err
	}
	if !source.Active {
		return nil, fmt.Errorf("source %s is inactive: %w", req.SourceID, models.ErrInvalidSource)
	}
	return source, nil
}

func (s *Service) extract(ctx context.Context, doc *models.Document) *models.ExtractionResult {
	extraction, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		s.logger.Warn().
			Str("doc_id", doc.ID).
			Err(err).
			Msg("Extraction unavailable, document will carry no impact metadata")
		return nil
	}
	return extraction
}

// index writes the vector chunks and the graph node plus entity edges.
// Returns the first failure; the caller rolls back all three backends.
func (s *Service) index(ctx context.Context, doc *models.Document, source *models.Source, extraction *models.ExtractionResult, isDuplicate bool) error {
	if err := s.vector.EmbedDocument(ctx, doc.ID, doc.Content, doc.GroupID, doc.SourceID, doc.Language, doc.Metadata); err != nil {
		if errors.Is(err, models.ErrLLMUnavailable) {
			s.logger.Warn().Str("doc_id", doc.ID).Msg("Embedding provider unavailable, skipping vector index")
		} else {
			return fmt.Errorf("vector index failed: %w", err)
		}
	}

	if err := s.graph.CreateDocumentNode(interfaces.DocumentNodeParams{
		DocID:            doc.ID,
		SourceID:         doc.SourceID,
		GroupID:          doc.GroupID,
		Title:            doc.Title,
		Language:         doc.Language,
		CreatedAt:        doc.CreatedAt,
		Metadata:         doc.Metadata,
		ImpactScore:      doc.ImpactScore,
		ImpactTier:       doc.ImpactTier,
		Themes:           doc.Themes,
		Regions:          doc.Regions,
		Sectors:          doc.Sectors,
		ContentHash:      doc.ContentHash,
		StoryFingerprint: doc.StoryFingerprint,
		DuplicateOf:      doc.DuplicateOf,
	}); err != nil {
		return fmt.Errorf("graph node failed: %w", err)
	}

	// Duplicates are persisted and indexed but never drive entity edges
	if extraction == nil || isDuplicate {
		return nil
	}

	for _, mention := range extraction.Instruments {
		if _, err := s.resolver.ResolveTicker(mention.Ticker); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				s.recordUnresolved(doc, "instrument", mention.Ticker)
				continue
			}
			return fmt.Errorf("alias resolution failed for %s: %w", mention.Ticker, err)
		}
		if err := s.graph.CreateAffectsEdge(doc.ID, interfaces.AffectsParams{
			Ticker:    mention.Ticker,
			Direction: mention.Direction,
			Magnitude: mention.Magnitude,
		}); err != nil {
			return fmt.Errorf("affects edge failed: %w", err)
		}
	}

	if eventType := extraction.PrimaryEventType(); eventType != "" {
		if err := s.graph.CreateTriggeredByEdge(doc.ID, eventType); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("triggered_by edge failed: %w", err)
			}
			s.recordUnresolved(doc, "event_type", eventType)
		}
	}

	for _, company := range extraction.Companies {
		guid, err := s.resolver.ResolveCompany(company)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				s.recordUnresolved(doc, "company", company)
				continue
			}
			return fmt.Errorf("alias resolution failed for %q: %w", company, err)
		}
		if err := s.graph.CreateMentionsEdge(doc.ID, guid); err != nil {
			return fmt.Errorf("mentions edge failed: %w", err)
		}
	}

	return nil
}

// rollback compensates a failed index pass. The file delete runs last; the
// document store is the source of truth and must outlive the indexes.
func (s *Service) rollback(doc *models.Document) {
	if err := s.vector.DeleteDocument(doc.ID); err != nil {
		s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Rollback: vector delete failed")
	}
	if err := s.graph.DeleteNode(models.LabelDocument, doc.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Rollback: graph delete failed")
	}
	if err := s.store.Delete(doc.ID, doc.GroupID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error().Err(err).Str("doc_id", doc.ID).Msg("Rollback: file delete failed")
	}
	s.logger.Warn().Str("doc_id", doc.ID).Msg("Ingest rolled back")
}

// recordUnresolved keeps unresolvable mentions as document metadata so
// nothing is silently lost
func (s *Service) recordUnresolved(doc *models.Document, kind, value string) {
	s.logger.Debug().
		Str("doc_id", doc.ID).
		Str(kind, value).
		Msg("Mention did not resolve to a known alias, recorded as metadata only")
	if doc.Metadata == nil {
		doc.Metadata = map[string]interface{}{}
	}
	key := "unresolved_" + kind + "s"
	existing, _ := doc.Metadata[key].([]string)
	doc.Metadata[key] = append(existing, value)
}

func (s *Service) auditIngest(doc *models.Document, req Request, status string, dupResult *dedup.Result, failure error) {
	details := map[string]interface{}{
		"language":   doc.Language,
		"word_count": doc.WordCount,
	}
	if dupResult != nil && dupResult.IsDuplicate {
		details["duplicate_of"] = dupResult.DuplicateOf
		details["duplicate_method"] = dupResult.Method
	}
	if failure != nil {
		details["error"] = failure.Error()
	}
	s.audit.LogDocumentIngest(doc.ID, req.SourceID, req.GroupID, status, details)
}

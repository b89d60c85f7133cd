package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// Event names recorded in the audit trail
const (
	EventDocumentIngest   = "document_ingest"
	EventDocumentRetrieve = "document_retrieve"
	EventDocumentDelete   = "document_delete"
	EventQuery            = "query"
	EventFeed             = "avatar_feed"
	EventSourceCreate     = "source_create"
	EventSourceUpdate     = "source_update"
	EventSourceDelete     = "source_delete"
)

// Entry is one audit record. Entries are append-only JSONL, one file per
// event family, so operational review can tail a single family.
type Entry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Event      string                 `json:"event"`
	ActorGroup string                 `json:"actor_group,omitempty"`
	DocID      string                 `json:"doc_id,omitempty"`
	SourceID   string                 `json:"source_id,omitempty"`
	ClientGUID string                 `json:"client_guid,omitempty"`
	Outcome    string                 `json:"outcome,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Service appends audit entries under <dir>/audit. Audit failures are logged
// and swallowed; an audit outage must not take down ingestion.
type Service struct {
	dir    string
	logger arbor.ILogger
	mu     sync.Mutex
}

func NewService(storageDir string, logger arbor.ILogger) (*Service, error) {
	dir := filepath.Join(storageDir, "audit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &Service{dir: dir, logger: logger}, nil
}

// LogDocumentIngest records an ingestion outcome, including partial
// successes and rollbacks
func (s *Service) LogDocumentIngest(docID, sourceID, actorGroup, outcome string, details map[string]interface{}) {
	s.append("documents", Entry{
		Event:      EventDocumentIngest,
		DocID:      docID,
		SourceID:   sourceID,
		ActorGroup: actorGroup,
		Outcome:    outcome,
		Details:    details,
	})
}

// LogDocumentRetrieve records a document read, including denied attempts
func (s *Service) LogDocumentRetrieve(docID, actorGroup, outcome string) {
	s.append("documents", Entry{
		Event:      EventDocumentRetrieve,
		DocID:      docID,
		ActorGroup: actorGroup,
		Outcome:    outcome,
	})
}

// LogDocumentDelete records a document removal
func (s *Service) LogDocumentDelete(docID, actorGroup string) {
	s.append("documents", Entry{
		Event:      EventDocumentDelete,
		DocID:      docID,
		ActorGroup: actorGroup,
		Outcome:    "deleted",
	})
}

// LogQuery records a retrieval query and its result count
func (s *Service) LogQuery(actorGroup, query string, results int) {
	s.append("queries", Entry{
		Event:      EventQuery,
		ActorGroup: actorGroup,
		Details: map[string]interface{}{
			"query":   query,
			"results": results,
		},
	})
}

// LogFeed records an avatar feed generation
func (s *Service) LogFeed(clientGUID, actorGroup string, maintenance, opportunity int) {
	s.append("queries", Entry{
		Event:      EventFeed,
		ClientGUID: clientGUID,
		ActorGroup: actorGroup,
		Details: map[string]interface{}{
			"maintenance_items": maintenance,
			"opportunity_items": opportunity,
		},
	})
}

// LogSourceChange records source registry mutations
func (s *Service) LogSourceChange(event, sourceID, actorGroup string, details map[string]interface{}) {
	s.append("sources", Entry{
		Event:      event,
		SourceID:   sourceID,
		ActorGroup: actorGroup,
		Details:    details,
	})
}

// ReadFamily returns the entries of one event family, oldest first. Used by
// tests and operational tooling.
func (s *Service) ReadFamily(family string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, family+".jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit family %s: %w", family, err)
	}

	var entries []Entry
	decoder := json.NewDecoder(bytes.NewReader(data))
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) append(family string, entry Entry) {
	entry.Timestamp = time.Now().UTC()

	line, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", entry.Event).Msg("Failed to marshal audit entry")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, family+".jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to open audit file")
		return
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to write audit entry")
	}
}

package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

const dateLayout = "2006-01-02"

// Store implements the DocumentStore interface over the filesystem.
// Layout: <base>/documents/<group_id>/<YYYY-MM-DD>/<doc_id>.json
type Store struct {
	baseDir string
	logger  arbor.ILogger
}

// NewStore creates a filesystem document store rooted at baseDir
func NewStore(baseDir string, logger arbor.ILogger) (interfaces.DocumentStore, error) {
	root := filepath.Join(baseDir, "documents")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document root %s: %w", root, err)
	}
	return &Store{baseDir: root, logger: logger}, nil
}

func (s *Store) docPath(groupID string, date time.Time, id string) string {
	return filepath.Join(s.baseDir, groupID, date.UTC().Format(dateLayout), id+".json")
}

// Save writes the document JSON. Documents are immutable; writing an id that
// already exists in the dated directory is an error.
func (s *Store) Save(doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	path := s.docPath(doc.GroupID, doc.CreatedAt, doc.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("document %s already exists: %w", doc.ID, models.ErrValidation)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	// Write via temp file then rename so readers never see a partial record
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit document %s: %w", doc.ID, err)
	}

	s.logger.Debug().Str("doc_id", doc.ID).Str("group_id", doc.GroupID).Msg("Document saved")
	return nil
}

// Load reads a document from its group. With a date hint the dated directory
// is read directly; without one the group's dated directories are scanned
// newest-first.
func (s *Store) Load(id, groupID string, dateHint *time.Time) (*models.Document, error) {
	if dateHint != nil {
		doc, err := s.readDoc(s.docPath(groupID, *dateHint, id))
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// Hint missed; fall through to the scan
	}

	dates, err := s.datedDirs(groupID)
	if err != nil {
		return nil, err
	}
	for _, date := range dates {
		path := filepath.Join(s.baseDir, groupID, date, id+".json")
		doc, err := s.readDoc(path)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("document %s in group %s: %w", id, groupID, models.ErrNotFound)
}

// LoadWithAccessCheck loads across the caller's permitted groups. When the
// document exists in some other group the caller gets AccessDenied, not a
// silent NotFound.
func (s *Store) LoadWithAccessCheck(id string, permittedGroups []string, dateHint *time.Time) (*models.Document, error) {
	for _, groupID := range permittedGroups {
		doc, err := s.Load(id, groupID, dateHint)
		if err == nil {
			return doc, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	// Not in any permitted group; distinguish denied from missing
	allGroups, err := s.groups()
	if err != nil {
		return nil, err
	}
	permitted := make(map[string]struct{}, len(permittedGroups))
	for _, g := range permittedGroups {
		permitted[g] = struct{}{}
	}
	for _, groupID := range allGroups {
		if _, ok := permitted[groupID]; ok {
			continue
		}
		if _, err := s.Load(id, groupID, dateHint); err == nil {
			return nil, fmt.Errorf("document %s belongs to group %s: %w", id, groupID, models.ErrAccessDenied)
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
}

// ListByGroup lists documents for one group, optionally restricted to a date,
// newest directory first
func (s *Store) ListByGroup(groupID string, date *time.Time, limit int) ([]*models.Document, error) {
	var dates []string
	if date != nil {
		dates = []string{date.UTC().Format(dateLayout)}
	} else {
		var err error
		dates, err = s.datedDirs(groupID)
		if err != nil {
			return nil, err
		}
	}

	var docs []*models.Document
	for _, d := range dates {
		dir := filepath.Join(s.baseDir, groupID, d)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			doc, err := s.readDoc(filepath.Join(dir, entry.Name()))
			if err != nil {
				s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable document file")
				continue
			}
			docs = append(docs, doc)
			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}
	}
	return docs, nil
}

// ListByDateRange lists documents for a group created within [from, to]
func (s *Store) ListByDateRange(groupID string, from, to time.Time, limit int) ([]*models.Document, error) {
	dates, err := s.datedDirs(groupID)
	if err != nil {
		return nil, err
	}

	fromDay := from.UTC().Format(dateLayout)
	toDay := to.UTC().Format(dateLayout)

	var docs []*models.Document
	for _, d := range dates {
		if d < fromDay || d > toDay {
			continue
		}
		dayDate, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		dayDocs, err := s.ListByGroup(groupID, &dayDate, 0)
		if err != nil {
			return nil, err
		}
		for _, doc := range dayDocs {
			if doc.CreatedAt.Before(from) || doc.CreatedAt.After(to) {
				continue
			}
			docs = append(docs, doc)
			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}
	}
	return docs, nil
}

// ListByPermittedGroups unions listings across groups, newest first per group
func (s *Store) ListByPermittedGroups(groups []string, date *time.Time, limit int) ([]*models.Document, error) {
	var docs []*models.Document
	for _, groupID := range groups {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(docs)
			if remaining <= 0 {
				break
			}
		}
		groupDocs, err := s.ListByGroup(groupID, date, remaining)
		if err != nil {
			return nil, err
		}
		docs = append(docs, groupDocs...)
	}
	return docs, nil
}

// GetVersionChain walks previous_version_id links backward and returns the
// chain oldest-first
func (s *Store) GetVersionChain(id, groupID string) ([]*models.Document, error) {
	seen := make(map[string]struct{})
	var chain []*models.Document

	current := id
	for current != "" {
		if _, ok := seen[current]; ok {
			return nil, fmt.Errorf("version chain for %s is cyclic: %w", id, models.ErrValidation)
		}
		seen[current] = struct{}{}

		doc, err := s.Load(current, groupID, nil)
		if err != nil {
			return nil, err
		}
		chain = append(chain, doc)
		current = doc.PreviousVersionID
	}

	// Walked newest to oldest; reverse
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Delete removes a document file (admin hard-delete or ingest rollback)
func (s *Store) Delete(id, groupID string) error {
	dates, err := s.datedDirs(groupID)
	if err != nil {
		return err
	}
	for _, d := range dates {
		path := filepath.Join(s.baseDir, groupID, d, id+".json")
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete document %s: %w", id, err)
			}
			s.logger.Debug().Str("doc_id", id).Str("group_id", groupID).Msg("Document deleted")
			return nil
		}
	}
	return fmt.Errorf("document %s in group %s: %w", id, groupID, models.ErrNotFound)
}

// Exists reports whether the document file is present in the group
func (s *Store) Exists(id, groupID string) bool {
	_, err := s.Load(id, groupID, nil)
	return err == nil
}

func (s *Store) readDoc(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document file %s: %w", path, err)
	}
	return &doc, nil
}

// datedDirs returns a group's dated subdirectories, newest first
func (s *Store) datedDirs(groupID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, groupID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read group directory %s: %w", groupID, err)
	}
	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			dates = append(dates, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *Store) groups() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read document root: %w", err)
	}
	var groups []string
	for _, entry := range entries {
		if entry.IsDir() {
			groups = append(groups, entry.Name())
		}
	}
	return groups, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

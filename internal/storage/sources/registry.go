package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// Registry implements SourceRegistry over the filesystem.
// Layout: <base>/sources/<group_id>/<source_id>.json
// Audit:  <base>/audit/sources/<source_id>.jsonl
// When a graph index is attached, every mutation mirrors the source into the
// graph in the same call.
type Registry struct {
	sourcesDir string
	auditDir   string
	graph      interfaces.GraphIndex
	logger     arbor.ILogger
}

// NewRegistry creates a filesystem source registry rooted at baseDir. The
// graph index is optional; pass nil to skip mirroring.
func NewRegistry(baseDir string, graph interfaces.GraphIndex, logger arbor.ILogger) (*Registry, error) {
	sourcesDir := filepath.Join(baseDir, "sources")
	auditDir := filepath.Join(baseDir, "audit", "sources")
	for _, dir := range []string{sourcesDir, auditDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &Registry{
		sourcesDir: sourcesDir,
		auditDir:   auditDir,
		graph:      graph,
		logger:     logger,
	}, nil
}

// Create persists a new source, appends a create audit line, and mirrors the
// source into the graph
func (r *Registry) Create(source *models.Source, actorGroup string) (*models.Source, error) {
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now
	source.Active = true
	if source.TrustLevel == "" {
		source.TrustLevel = models.TrustUnverified
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.find(source.SourceID); err == nil {
		return nil, fmt.Errorf("source %s already exists: %w", source.SourceID, models.ErrValidation)
	}

	if err := r.write(source); err != nil {
		return nil, err
	}

	diff := map[string]interface{}{
		"name":        source.Name,
		"type":        string(source.Type),
		"region":      source.Region,
		"trust_level": string(source.TrustLevel),
	}
	r.appendAudit(source.SourceID, "create", actorGroup, diff)
	r.mirror(source)

	r.logger.Info().Str("source_id", source.SourceID).Str("group_id", source.GroupID).Msg("Source created")
	return source, nil
}

// Get loads a source. With accessGroups set, a source outside those groups
// surfaces AccessDenied rather than NotFound.
func (r *Registry) Get(sourceID string, accessGroups []string) (*models.Source, error) {
	source, err := r.find(sourceID)
	if err != nil {
		return nil, err
	}
	if accessGroups != nil && !contains(accessGroups, source.GroupID) {
		return nil, fmt.Errorf("source %s belongs to group %s: %w", sourceID, source.GroupID, models.ErrAccessDenied)
	}
	return source, nil
}

// List returns sources matching the options; inactive sources are excluded
// unless requested
func (r *Registry) List(opts interfaces.SourceListOptions) ([]*models.Source, error) {
	groups, err := r.groupDirs()
	if err != nil {
		return nil, err
	}

	var result []*models.Source
	for _, groupID := range groups {
		if opts.GroupID != "" && groupID != opts.GroupID {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(r.sourcesDir, groupID))
		if err != nil {
			return nil, fmt.Errorf("failed to read group %s: %w", groupID, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			source, err := r.read(filepath.Join(r.sourcesDir, groupID, entry.Name()))
			if err != nil {
				r.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable source file")
				continue
			}
			if !opts.IncludeInactive && !source.Active {
				continue
			}
			if opts.Region != "" && source.Region != opts.Region {
				continue
			}
			if opts.Type != "" && string(source.Type) != opts.Type {
				continue
			}
			result = append(result, source)
		}
	}
	return result, nil
}

// Update applies a partial field update, audits the field-level diff, and
// mirrors the new state into the graph
func (r *Registry) Update(sourceID string, fields map[string]interface{}, accessGroups []string) (*models.Source, error) {
	source, err := r.Get(sourceID, accessGroups)
	if err != nil {
		return nil, err
	}

	diff := make(map[string]interface{})
	for key, value := range fields {
		switch key {
		case "name":
			if v, ok := value.(string); ok && v != source.Name {
				diff[key] = map[string]interface{}{"from": source.Name, "to": v}
				source.Name = v
			}
		case "type":
			if v, ok := value.(string); ok && v != string(source.Type) {
				if !models.IsValidSourceType(v) {
					return nil, fmt.Errorf("%w: unknown source type %q", models.ErrValidation, v)
				}
				diff[key] = map[string]interface{}{"from": string(source.Type), "to": v}
				source.Type = models.SourceType(v)
			}
		case "region":
			if v, ok := value.(string); ok && v != source.Region {
				diff[key] = map[string]interface{}{"from": source.Region, "to": v}
				source.Region = v
			}
		case "trust_level":
			if v, ok := value.(string); ok && v != string(source.TrustLevel) {
				if !models.IsValidTrustLevel(v) {
					return nil, fmt.Errorf("%w: unknown trust level %q", models.ErrValidation, v)
				}
				diff[key] = map[string]interface{}{"from": string(source.TrustLevel), "to": v}
				source.TrustLevel = models.TrustLevel(v)
			}
		case "languages":
			if v, ok := value.([]string); ok {
				diff[key] = map[string]interface{}{"from": source.Languages, "to": v}
				source.Languages = v
			}
		case "metadata":
			if v, ok := value.(map[string]interface{}); ok {
				diff[key] = map[string]interface{}{"to": v}
				source.Metadata = v
			}
		default:
			return nil, fmt.Errorf("%w: field %q is not updatable", models.ErrValidation, key)
		}
	}

	if len(diff) == 0 {
		return source, nil
	}

	source.UpdatedAt = time.Now().UTC()
	if err := r.write(source); err != nil {
		return nil, err
	}

	actor := ""
	if len(accessGroups) > 0 {
		actor = accessGroups[0]
	}
	r.appendAudit(sourceID, "update", actor, diff)
	r.mirror(source)

	return source, nil
}

// SoftDelete flips Active to false, preserving the record and its history
func (r *Registry) SoftDelete(sourceID string, accessGroups []string) (*models.Source, error) {
	source, err := r.Get(sourceID, accessGroups)
	if err != nil {
		return nil, err
	}
	if !source.Active {
		return source, nil
	}

	now := time.Now().UTC()
	source.Active = false
	source.DeletedAt = &now
	source.UpdatedAt = now

	if err := r.write(source); err != nil {
		return nil, err
	}

	actor := ""
	if len(accessGroups) > 0 {
		actor = accessGroups[0]
	}
	r.appendAudit(sourceID, "delete", actor, map[string]interface{}{
		"active": map[string]interface{}{"from": true, "to": false},
	})
	r.mirror(source)

	r.logger.Info().Str("source_id", sourceID).Msg("Source soft-deleted")
	return source, nil
}

// GetAuditLog returns a source's audit entries, newest first
func (r *Registry) GetAuditLog(sourceID string) ([]interfaces.SourceAuditEntry, error) {
	path := filepath.Join(r.auditDir, sourceID+".jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log for %s: %w", sourceID, err)
	}

	var entries []interfaces.SourceAuditEntry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		var entry interfaces.SourceAuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			r.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Skipping malformed audit line")
			continue
		}
		entries = append(entries, entry)
	}

	// Appended oldest-first; return newest-first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *Registry) write(source *models.Source) error {
	dir := filepath.Join(r.sourcesDir, source.GroupID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create source directory: %w", err)
	}
	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal source %s: %w", source.SourceID, err)
	}
	path := filepath.Join(dir, source.SourceID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write source %s: %w", source.SourceID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit source %s: %w", source.SourceID, err)
	}
	return nil
}

func (r *Registry) read(path string) (*models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	var source models.Source
	if err := json.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse source file %s: %w", path, err)
	}
	return &source, nil
}

// find scans all group directories for a source id
func (r *Registry) find(sourceID string) (*models.Source, error) {
	groups, err := r.groupDirs()
	if err != nil {
		return nil, err
	}
	for _, groupID := range groups {
		path := filepath.Join(r.sourcesDir, groupID, sourceID+".json")
		if _, err := os.Stat(path); err == nil {
			return r.read(path)
		}
	}
	return nil, fmt.Errorf("source %s: %w", sourceID, models.ErrNotFound)
}

func (r *Registry) groupDirs() ([]string, error) {
	entries, err := os.ReadDir(r.sourcesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources root: %w", err)
	}
	var groups []string
	for _, entry := range entries {
		if entry.IsDir() {
			groups = append(groups, entry.Name())
		}
	}
	return groups, nil
}

func (r *Registry) appendAudit(sourceID, action, actorGroup string, diff map[string]interface{}) {
	entry := interfaces.SourceAuditEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Action:     action,
		ActorGroup: actorGroup,
		Diff:       diff,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to marshal audit entry")
		return
	}

	path := filepath.Join(r.auditDir, sourceID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		r.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to open audit log")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		r.logger.Warn().Err(err).Str("source_id", sourceID).Msg("Failed to append audit entry")
	}
}

// mirror projects the source into the graph; mirror failures degrade, they
// do not fail the registry write
func (r *Registry) mirror(source *models.Source) {
	if r.graph == nil {
		return
	}
	if err := r.graph.MirrorSource(source); err != nil {
		r.logger.Warn().Err(err).Str("source_id", source.SourceID).Msg("Failed to mirror source into graph")
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

package groups

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/models"
)

// GroupResolver maps group names to their stored records, satisfied by the
// graph index
type GroupResolver interface {
	GetGroupByName(name string) (*models.Group, error)
}

// Access is the resolved authorization context for one request
type Access struct {
	GroupIDs []string `json:"group_ids"` // permitted read groups, public always included
	Names    []string `json:"group_names"`
	IsAdmin  bool     `json:"is_admin"`
}

// Service resolves bearer tokens to permitted groups. Tokens come from a
// bootstrap file maintained by the auth collaborator: a JSON map of group
// name to token. Unknown or absent tokens resolve to public-only access.
type Service struct {
	tokenFile string
	graph     GroupResolver
	logger    arbor.ILogger

	mu           sync.RWMutex
	tokenToGroup map[string]string
}

func NewService(tokenFile string, graph GroupResolver, logger arbor.ILogger) *Service {
	return &Service{
		tokenFile: tokenFile,
		graph:     graph,
		logger:    logger,
	}
}

// Reload re-reads the token file. A missing file is not an error; all
// requests then resolve as anonymous.
func (s *Service) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenToGroup = map[string]string{}
	if s.tokenFile == "" {
		return nil
	}

	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("path", s.tokenFile).Msg("Token file not found, anonymous access only")
			return nil
		}
		return fmt.Errorf("failed to read token file %s: %w", s.tokenFile, err)
	}

	var groupToToken map[string]string
	if err := json.Unmarshal(data, &groupToToken); err != nil {
		return fmt.Errorf("failed to parse token file %s: %w", s.tokenFile, err)
	}

	for group, token := range groupToToken {
		if token == "" || group == "" {
			continue
		}
		s.tokenToGroup[token] = group
	}

	s.logger.Debug().Int("tokens", len(s.tokenToGroup)).Msg("Token file loaded")
	return nil
}

// ResolveAccess maps bearer tokens to an access context. Multiple tokens
// union their groups. The public group is always readable. Invalid tokens
// are ignored rather than rejected so a stale token degrades to public
// access instead of breaking reads.
func (s *Service) ResolveAccess(tokens []string) *Access {
	s.mu.RLock()
	defer s.mu.RUnlock()

	access := &Access{}
	seen := map[string]struct{}{}

	for _, token := range tokens {
		group, ok := s.tokenToGroup[token]
		if !ok {
			continue
		}
		if _, dup := seen[group]; dup {
			continue
		}
		seen[group] = struct{}{}
		if group == models.GroupAdmin {
			access.IsAdmin = true
		}
		access.Names = append(access.Names, group)
		access.GroupIDs = append(access.GroupIDs, s.groupID(group))
	}

	if _, ok := seen[models.GroupPublic]; !ok {
		access.Names = append(access.Names, models.GroupPublic)
		access.GroupIDs = append(access.GroupIDs, s.groupID(models.GroupPublic))
	}

	return access
}

// WriteGroup selects the group a write lands in: the first non-public group
// the caller holds, the admin group for pure admins, otherwise the write is
// rejected. Anonymous callers can never write.
func (s *Service) WriteGroup(access *Access) (string, error) {
	for i, name := range access.Names {
		if name != models.GroupPublic && name != models.GroupAdmin {
			return access.GroupIDs[i], nil
		}
	}
	if access.IsAdmin {
		return s.groupID(models.GroupAdmin), nil
	}
	return "", fmt.Errorf("no writable group for caller: %w", models.ErrAuthRequired)
}

// RequireAdmin returns AdminRequired unless the caller holds the admin group
func (s *Service) RequireAdmin(access *Access) error {
	if access == nil || !access.IsAdmin {
		return models.ErrAdminRequired
	}
	return nil
}

// CanRead reports whether the caller may read content in the given group
func (a *Access) CanRead(groupID string) bool {
	for _, id := range a.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// groupID resolves a group name to its stored id, falling back to the
// deterministic grp_<name> form used at seed time
func (s *Service) groupID(name string) string {
	if s.graph != nil {
		if group, err := s.graph.GetGroupByName(name); err == nil && group.GroupID != "" {
			return group.GroupID
		} else if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("group", name).Msg("Group lookup failed, using derived id")
		}
	}
	return "grp_" + name
}

package alias

import (
	"container/list"
	"errors"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/parrisma/gofr-iq/internal/models"
)

// Source is the alias lookup the resolver caches in front of, satisfied by
// the graph index
type Source interface {
	ResolveAlias(value, scheme string) (string, error)
}

// DefaultCacheSize bounds the resolver cache. Entity extraction resolves the
// same tickers and company names over and over, so a modest cache absorbs
// nearly all lookups.
const DefaultCacheSize = 2048

// Resolver maps free-text entity mentions to canonical graph nodes through
// the alias records, with an LRU cache in front. Misses are cached too so
// repeated unknown mentions do not hammer the index.
type Resolver struct {
	graph  Source
	logger arbor.ILogger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	size    int
}

type cacheEntry struct {
	key   string
	guid  string
	found bool
}

func NewResolver(graph Source, logger arbor.ILogger) *Resolver {
	return &Resolver{
		graph:   graph,
		logger:  logger,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		size:    DefaultCacheSize,
	}
}

// Resolve returns the canonical guid for (value, scheme). An empty scheme
// tries all schemes. Returns NotFound for unknown mentions; the caller must
// not create graph entities for those.
func (r *Resolver) Resolve(value, scheme string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", models.ErrNotFound
	}
	key := strings.ToUpper(strings.TrimSpace(scheme)) + "|" + normalized

	if guid, found, hit := r.lookup(key); hit {
		if !found {
			return "", models.ErrNotFound
		}
		return guid, nil
	}

	guid, err := r.graph.ResolveAlias(value, scheme)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.store(key, "", false)
			return "", models.ErrNotFound
		}
		return "", err
	}

	r.store(key, guid, true)
	return guid, nil
}

// ResolveTicker resolves an instrument mention through the TICKER scheme
func (r *Resolver) ResolveTicker(ticker string) (string, error) {
	return r.Resolve(models.NormalizeTicker(ticker), models.SchemeTicker)
}

// ResolveCompany resolves a company mention, trying name variants first and
// falling back to ticker
func (r *Resolver) ResolveCompany(mention string) (string, error) {
	if guid, err := r.Resolve(mention, models.SchemeNameVariant); err == nil {
		return guid, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return "", err
	}
	return r.Resolve(mention, models.SchemeTicker)
}

// Invalidate drops a cached entry, used after new aliases are registered
func (r *Resolver) Invalidate(value, scheme string) {
	key := strings.ToUpper(strings.TrimSpace(scheme)) + "|" + strings.ToLower(strings.TrimSpace(value))
	r.mu.Lock()
	defer r.mu.Unlock()
	if element, ok := r.entries[key]; ok {
		r.order.Remove(element)
		delete(r.entries, key)
	}
}

// Len returns the cached entry count
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Resolver) lookup(key string) (guid string, found bool, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	element, ok := r.entries[key]
	if !ok {
		return "", false, false
	}
	r.order.MoveToFront(element)
	entry := element.Value.(*cacheEntry)
	return entry.guid, entry.found, true
}

func (r *Resolver) store(key, guid string, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if element, ok := r.entries[key]; ok {
		r.order.MoveToFront(element)
		entry := element.Value.(*cacheEntry)
		entry.guid = guid
		entry.found = found
		return
	}

	r.entries[key] = r.order.PushFront(&cacheEntry{key: key, guid: guid, found: found})

	for len(r.entries) > r.size {
		oldest := r.order.Back()
		if oldest == nil {
			break
		}
		r.order.Remove(oldest)
		delete(r.entries, oldest.Value.(*cacheEntry).key)
	}
}

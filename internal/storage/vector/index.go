package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
)

// Index implements the VectorIndex interface over an embedded Badger store.
// Chunk ids are deterministic (<doc_id>_<index>), so re-embedding a document
// upserts in place.
type Index struct {
	db      *DB
	llm     interfaces.LLMService
	chunker *Chunker
	logger  arbor.ILogger
}

// NewIndex creates a vector index. The LLM service provides embeddings; it
// may be nil, in which case embedding and semantic search degrade to errors
// the callers treat as "vector backend unavailable".
func NewIndex(db *DB, llm interfaces.LLMService, config *common.VectorConfig, logger arbor.ILogger) interfaces.VectorIndex {
	return &Index{
		db:      db,
		llm:     llm,
		chunker: NewChunker(config.ChunkSize, config.ChunkOverlap, config.MinChunkSize),
		logger:  logger,
	}
}

// EmbedDocument chunks content, embeds every chunk in one batch call, and
// upserts the chunk records
func (x *Index) EmbedDocument(ctx context.Context, docID, content, groupID, sourceID, language string, metadata map[string]interface{}) error {
	if x.llm == nil {
		return fmt.Errorf("vector index has no embedding provider")
	}

	chunks := x.chunker.Split(content)
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := x.llm.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed document %s: %w", docID, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch for %s: got %d for %d chunks", docID, len(embeddings), len(chunks))
	}

	flat := flattenMetadata(metadata)
	flat["source_id"] = sourceID
	flat["language"] = language

	for i, chunk := range chunks {
		record := interfaces.VectorChunk{
			ChunkID:   fmt.Sprintf("%s_%d", docID, i),
			DocID:     docID,
			GroupID:   groupID,
			Index:     i,
			Content:   chunk,
			Embedding: embeddings[i],
			Metadata:  flat,
		}
		if err := x.db.Store().Upsert(record.ChunkID, &record); err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", record.ChunkID, err)
		}
	}

	x.logger.Debug().Str("doc_id", docID).Int("chunks", len(chunks)).Msg("Document embedded")
	return nil
}

// Search embeds the query and runs a cosine similarity scan
func (x *Index) Search(ctx context.Context, query string, opts interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error) {
	if x.llm == nil {
		return nil, fmt.Errorf("vector index has no embedding provider")
	}
	embeddings, err := x.llm.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}
	return x.SearchByEmbedding(embeddings[0], opts)
}

// SearchByEmbedding scans group-scoped chunks and returns the best chunk per
// document, highest score first. Score is 1 - cosine distance, so 1 means
// identical direction.
func (x *Index) SearchByEmbedding(embedding []float32, opts interfaces.VectorSearchOptions) ([]interfaces.VectorHit, error) {
	nResults := opts.NResults
	if nResults <= 0 {
		nResults = 10
	}

	groupSet := toSet(opts.GroupIDs)
	sourceSet := toSet(opts.SourceIDs)
	langSet := toSet(opts.Languages)

	var chunks []interfaces.VectorChunk
	query := badgerhold.Where("DocID").Ne("")
	if err := x.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	// Best-scoring chunk per document
	best := make(map[string]interfaces.VectorHit)
	for _, chunk := range chunks {
		if len(groupSet) > 0 {
			if _, ok := groupSet[chunk.GroupID]; !ok {
				continue
			}
		}
		if len(sourceSet) > 0 {
			source, _ := chunk.Metadata["source_id"].(string)
			if _, ok := sourceSet[source]; !ok {
				continue
			}
		}
		if len(langSet) > 0 {
			lang, _ := chunk.Metadata["language"].(string)
			if _, ok := langSet[lang]; !ok {
				continue
			}
		}

		score := CosineSimilarity(embedding, chunk.Embedding)
		if existing, ok := best[chunk.DocID]; ok && existing.Score >= score {
			continue
		}
		hit := interfaces.VectorHit{
			DocID:    chunk.DocID,
			ChunkID:  chunk.ChunkID,
			Score:    score,
			Metadata: chunk.Metadata,
		}
		if opts.IncludeContent {
			hit.Content = chunk.Content
		}
		best[chunk.DocID] = hit
	}

	hits := make([]interfaces.VectorHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > nResults {
		hits = hits[:nResults]
	}
	return hits, nil
}

// DeleteDocument removes every chunk of a document
func (x *Index) DeleteDocument(docID string) error {
	if err := x.db.Store().DeleteMatching(&interfaces.VectorChunk{},
		badgerhold.Where("DocID").Eq(docID)); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", docID, err)
	}
	return nil
}

// GetDocumentChunks returns a document's chunks ordered by index
func (x *Index) GetDocumentChunks(docID string) ([]interfaces.VectorChunk, error) {
	var chunks []interfaces.VectorChunk
	if err := x.db.Store().Find(&chunks, badgerhold.Where("DocID").Eq(docID)); err != nil {
		return nil, fmt.Errorf("failed to load chunks of %s: %w", docID, err)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// Count returns the chunk count, optionally scoped to a group
func (x *Index) Count(groupID string) (int, error) {
	query := badgerhold.Where("DocID").Ne("")
	if groupID != "" {
		query = badgerhold.Where("GroupID").Eq(groupID)
	}
	count, err := x.db.Store().Count(&interfaces.VectorChunk{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// Clear removes every chunk
func (x *Index) Clear() error {
	if err := x.db.Store().DeleteMatching(&interfaces.VectorChunk{},
		badgerhold.Where("DocID").Ne("")); err != nil {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	return nil
}

// CosineSimilarity returns similarity in [-1,1]; zero vectors score 0
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// flattenMetadata JSON-encodes list and map values so every metadata value
// is a flat scalar
func flattenMetadata(metadata map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(metadata)+2)
	for key, value := range metadata {
		switch value.(type) {
		case string, bool, int, int64, float32, float64, nil:
			flat[key] = value
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				continue
			}
			flat[key] = string(encoded)
		}
	}
	return flat
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

package interfaces

import "context"

// VectorSearchOptions narrows a similarity search
type VectorSearchOptions struct {
	NResults       int
	GroupIDs       []string
	SourceIDs      []string
	Languages      []string
	IncludeContent bool
}

// VectorHit is one similarity search result. Score is 1 - cosine distance.
type VectorHit struct {
	DocID    string                 `json:"doc_id"`
	ChunkID  string                 `json:"chunk_id"`
	Content  string                 `json:"content,omitempty"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VectorChunk is one stored embedding chunk
type VectorChunk struct {
	ChunkID   string                 `json:"chunk_id" badgerhold:"key"`
	DocID     string                 `json:"doc_id" badgerholdIndex:"DocID"`
	GroupID   string                 `json:"group_id" badgerholdIndex:"GroupID"`
	Index     int                    `json:"index"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// VectorIndex owns chunked embeddings and cosine similarity search
type VectorIndex interface {
	EmbedDocument(ctx context.Context, docID, content, groupID, sourceID, language string, metadata map[string]interface{}) error
	Search(ctx context.Context, query string, opts VectorSearchOptions) ([]VectorHit, error)
	SearchByEmbedding(embedding []float32, opts VectorSearchOptions) ([]VectorHit, error)
	DeleteDocument(docID string) error
	GetDocumentChunks(docID string) ([]VectorChunk, error)
	Count(groupID string) (int, error)
	Clear() error
}

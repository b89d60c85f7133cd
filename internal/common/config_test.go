package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "gofr-iq", config.Server.Name)
	assert.Equal(t, 1000, config.Vector.ChunkSize)
	assert.Equal(t, 0.85, config.Vector.SimilarityThreshold)
	assert.Equal(t, 60.0, config.Query.HalfLifeMin)
	assert.Equal(t, 60*time.Second, config.LLMTimeout())
}

func TestLoadFromFileParsesToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
environment = "production"

[server]
name = "gofr-iq-test"

[storage]
dir = "/tmp/gofr-iq-data"

[vector]
chunk_size = 500
chunk_overlap = 100
similarity_threshold = 0.9

[llm]
timeout = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, config.IsProduction())
	assert.Equal(t, "gofr-iq-test", config.Server.Name)
	assert.Equal(t, "/tmp/gofr-iq-data", config.Storage.Dir)
	assert.Equal(t, 500, config.Vector.ChunkSize)
	assert.Equal(t, 0.9, config.Vector.SimilarityThreshold)
	assert.Equal(t, 30*time.Second, config.LLMTimeout())

	// Unspecified sections keep defaults
	assert.Equal(t, 0.6, config.Query.WeightSemantic)
}

func TestLoadFromFileRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nname="), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOFR_IQ_STORAGE_DIR", "/srv/gofr-iq")
	t.Setenv("GOFR_IQ_OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("GOFR_IQ_OPENROUTER_MODEL", "openai/gpt-4o")
	t.Setenv("GOFR_IQ_VECTOR_SIMILARITY_THRESHOLD", "1.5")

	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/gofr-iq", config.Storage.Dir)
	assert.Equal(t, "/srv/gofr-iq/index", config.Storage.Badger.Path)
	assert.Equal(t, "sk-or-test", config.LLM.APIKey)
	assert.Equal(t, "openai/gpt-4o", config.LLM.Model)
	// Out-of-range threshold clamps to [0,1]
	assert.Equal(t, 1.0, config.Vector.SimilarityThreshold)
}

func TestFeedWeightOverridesRenormalize(t *testing.T) {
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_SEMANTIC", "3")
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_GRAPH", "1")

	config, err := LoadFromFile("")
	require.NoError(t, err)

	sum := config.Feed.WeightSemantic + config.Feed.WeightGraph +
		config.Feed.WeightImpact + config.Feed.WeightRecency
	assert.InDelta(t, 1.0, sum, 1e-9)
	// 3 and 1 against the default 0.1 impact and 0.1 recency
	assert.InDelta(t, 3.0/4.2, config.Feed.WeightSemantic, 1e-9)
	assert.InDelta(t, 1.0/4.2, config.Feed.WeightGraph, 1e-9)
}

func TestFeedWeightOverridesZeroSumFallsBack(t *testing.T) {
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_SEMANTIC", "0")
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_GRAPH", "0")
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_IMPACT", "0")
	t.Setenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_RECENCY", "0")

	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Feed, config.Feed)
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	config = DefaultConfig()
	config.Storage.Dir = ""
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Vector.ChunkOverlap = config.Vector.ChunkSize
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.LLM.Timeout = "soon"
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Query.WeightSemantic = 0.9
	assert.Error(t, config.Validate())
}

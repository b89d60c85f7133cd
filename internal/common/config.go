package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Auth        AuthConfig    `toml:"auth"`
	LLM         LLMConfig     `toml:"llm"`
	Vector      VectorConfig  `toml:"vector"`
	Graph       GraphConfig   `toml:"graph"`
	Feed        FeedConfig    `toml:"feed"`
	Query       QueryConfig   `toml:"query"`
}

type ServerConfig struct {
	Name string `toml:"name"` // MCP server name advertised to clients
}

type StorageConfig struct {
	Dir    string       `toml:"dir"` // Root for document/source/audit files
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the
// embedded graph and vector indexes
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// AuthConfig contains configuration for the bootstrap token file written by
// the external auth collaborator (JSON map of role name -> bearer token)
type AuthConfig struct {
	TokenFile string `toml:"token_file"`
	JWTSecret string `toml:"jwt_secret"`
}

// LLMConfig contains OpenRouter (OpenAI-compatible) provider configuration
type LLMConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"` // default https://openrouter.ai/api/v1
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	Timeout        string  `toml:"timeout"`     // duration string, default "60s"
	MaxRetries     int     `toml:"max_retries"` // default 3
	Temperature    float32 `toml:"temperature"` // default 0.1 for extraction
	RequestsPerSec float64 `toml:"requests_per_sec"`
}

// VectorConfig contains chunking and similarity thresholds for the vector index
type VectorConfig struct {
	ChunkSize           int     `toml:"chunk_size"`           // default 1000 chars
	ChunkOverlap        int     `toml:"chunk_overlap"`        // default 200 chars
	MinChunkSize        int     `toml:"min_chunk_size"`       // default 100 chars
	SimilarityThreshold float64 `toml:"similarity_threshold"` // duplicate threshold, default 0.85
	ActivationThreshold float64 `toml:"activation_threshold"` // minimum score to surface, default 0.0
}

type GraphConfig struct {
	URI      string `toml:"uri"` // reserved for a remote graph backend; embedded when empty
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// FeedConfig contains avatar feed scoring configuration. Weight overrides are
// renormalized to sum to 1; a non-positive sum falls back to defaults.
type FeedConfig struct {
	WeightSemantic float64 `toml:"weight_semantic"`
	WeightGraph    float64 `toml:"weight_graph"`
	WeightImpact   float64 `toml:"weight_impact"`
	WeightRecency  float64 `toml:"weight_recency"`
}

type QueryConfig struct {
	WeightSemantic float64 `toml:"weight_semantic"` // default 0.6
	WeightTrust    float64 `toml:"weight_trust"`    // default 0.2
	WeightRecency  float64 `toml:"weight_recency"`  // default 0.1
	WeightGraph    float64 `toml:"weight_graph"`    // default 0.1
	HalfLifeMin    float64 `toml:"half_life_min"`   // recency half-life in minutes, default 60
}

// DefaultConfig returns a config with working defaults for embedded mode
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Name: "gofr-iq",
		},
		Storage: StorageConfig{
			Dir: "./data",
			Badger: BadgerConfig{
				Path: "./data/index",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "openai/gpt-4o-mini",
			EmbeddingModel: "openai/text-embedding-3-small",
			Timeout:        "60s",
			MaxRetries:     3,
			Temperature:    0.1,
			RequestsPerSec: 2,
		},
		Vector: VectorConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			MinChunkSize:        100,
			SimilarityThreshold: 0.85,
			ActivationThreshold: 0.0,
		},
		Feed: FeedConfig{
			WeightSemantic: 0.6,
			WeightGraph:    0.2,
			WeightImpact:   0.1,
			WeightRecency:  0.1,
		},
		Query: QueryConfig{
			WeightSemantic: 0.6,
			WeightTrust:    0.2,
			WeightRecency:  0.1,
			WeightGraph:    0.1,
			HalfLifeMin:    60,
		},
	}
}

// LoadFromFile loads configuration from a TOML file and applies GOFR_IQ_*
// environment overrides. A missing file is not an error; defaults plus
// environment apply.
func LoadFromFile(path string) (*Config, error) {
	// .env is optional; ignore absence
	_ = godotenv.Load()

	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else {
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides maps GOFR_IQ_* environment variables onto the config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("GOFR_IQ_STORAGE_DIR"); v != "" {
		config.Storage.Dir = v
		if config.Storage.Badger.Path == "" || config.Storage.Badger.Path == "./data/index" {
			config.Storage.Badger.Path = v + "/index"
		}
	}
	if v := os.Getenv("GOFR_IQ_NEO4J_URI"); v != "" {
		config.Graph.URI = v
	}
	if v := os.Getenv("GOFR_IQ_NEO4J_USER"); v != "" {
		config.Graph.User = v
	}
	if v := os.Getenv("GOFR_IQ_NEO4J_PASSWORD"); v != "" {
		config.Graph.Password = v
	}
	if v := os.Getenv("GOFR_IQ_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("GOFR_IQ_TOKEN_FILE"); v != "" {
		config.Auth.TokenFile = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_BASE_URL"); v != "" {
		config.LLM.BaseURL = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_EMBEDDING_MODEL"); v != "" {
		config.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_TIMEOUT"); v != "" {
		config.LLM.Timeout = v
	}
	if v := os.Getenv("GOFR_IQ_OPENROUTER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.LLM.MaxRetries = n
		}
	}
	if v := os.Getenv("GOFR_IQ_VECTOR_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Vector.SimilarityThreshold = clamp01(f)
		}
	}
	if v := os.Getenv("GOFR_IQ_VECTOR_ACTIVATION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Vector.ActivationThreshold = clamp01(f)
		}
	}

	applyFeedWeightOverrides(config)
}

// applyFeedWeightOverrides reads GOFR_IQ_CLIENT_NEWS_WEIGHT_* variables and
// renormalizes the four feed weights to sum to 1. Fails closed to defaults
// when the overridden sum is not positive.
func applyFeedWeightOverrides(config *Config) {
	weights := map[string]*float64{
		"SEMANTIC": &config.Feed.WeightSemantic,
		"GRAPH":    &config.Feed.WeightGraph,
		"IMPACT":   &config.Feed.WeightImpact,
		"RECENCY":  &config.Feed.WeightRecency,
	}

	overridden := false
	for suffix, target := range weights {
		if v := os.Getenv("GOFR_IQ_CLIENT_NEWS_WEIGHT_" + suffix); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
				*target = f
				overridden = true
			}
		}
	}
	if !overridden {
		return
	}

	sum := config.Feed.WeightSemantic + config.Feed.WeightGraph + config.Feed.WeightImpact + config.Feed.WeightRecency
	if sum <= 0 {
		config.Feed = DefaultConfig().Feed
		return
	}
	config.Feed.WeightSemantic /= sum
	config.Feed.WeightGraph /= sum
	config.Feed.WeightImpact /= sum
	config.Feed.WeightRecency /= sum
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if c.Vector.ChunkSize <= 0 {
		return fmt.Errorf("vector.chunk_size must be positive")
	}
	if c.Vector.ChunkOverlap < 0 || c.Vector.ChunkOverlap >= c.Vector.ChunkSize {
		return fmt.Errorf("vector.chunk_overlap must be in [0, chunk_size)")
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	qsum := c.Query.WeightSemantic + c.Query.WeightTrust + c.Query.WeightRecency + c.Query.WeightGraph
	if qsum < 0.99 || qsum > 1.01 {
		return fmt.Errorf("query weights must sum to 1 (got %.3f)", qsum)
	}
	return nil
}

// LLMTimeout returns the parsed LLM timeout duration
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

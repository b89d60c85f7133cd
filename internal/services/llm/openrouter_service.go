package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/models"
)

// OpenRouterService talks to an OpenAI-compatible chat and embeddings API.
// Requests are rate limited client-side and retried on 429/5xx with
// exponential backoff honoring Retry-After.
type OpenRouterService struct {
	config     *common.LLMConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *RetryConfig
	logger     arbor.ILogger
}

// NewOpenRouterService creates the LLM client from config. The API key may be
// empty; calls then fail with LLMUnavailable, which the ingestion pipeline
// treats as a partial-success condition.
func NewOpenRouterService(config *common.LLMConfig, timeout time.Duration, logger arbor.ILogger) interfaces.LLMService {
	rps := config.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &OpenRouterService{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retry:      NewDefaultRetryConfig(config.MaxRetries),
		logger:     logger,
	}
}

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []interfaces.Message `json:"messages"`
	Temperature    float32              `json:"temperature"`
	ResponseFormat responseFormat       `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    interface{} `json:"code"`
	Message string      `json:"message"`
}

// ChatJSON sends a JSON-mode completion request and returns the raw content
// of the first choice
func (s *OpenRouterService) ChatJSON(ctx context.Context, messages []interfaces.Message) (string, error) {
	if s.config.APIKey == "" {
		return "", fmt.Errorf("openrouter api key not configured: %w", models.ErrLLMUnavailable)
	}

	body := chatRequest{
		Model:          s.config.Model,
		Messages:       messages,
		Temperature:    s.config.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	raw, err := s.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	// Providers sometimes return errors with a 200 status
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion failed: %s: %w", parsed.Error.Message, models.ErrLLMUnavailable)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices: %w", models.ErrLLMUnavailable)
	}

	return parsed.Choices[0].Message.Content, nil
}

// Embed returns one embedding per input, in input order
func (s *OpenRouterService) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if s.config.APIKey == "" {
		return nil, fmt.Errorf("openrouter api key not configured: %w", models.ErrLLMUnavailable)
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	raw, err := s.post(ctx, "/embeddings", embeddingRequest{
		Model: s.config.EmbeddingModel,
		Input: inputs,
	})
	if err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding failed: %s: %w", parsed.Error.Message, models.ErrLLMUnavailable)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs: %w",
			len(parsed.Data), len(inputs), models.ErrLLMUnavailable)
	}

	embeddings := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range: %w", item.Index, models.ErrLLMUnavailable)
		}
		embeddings[item.Index] = item.Embedding
	}
	return embeddings, nil
}

// ModelName returns the configured chat model identifier
func (s *OpenRouterService) ModelName() string {
	return s.config.Model
}

// HealthCheck verifies the provider is reachable and the key is accepted
func (s *OpenRouterService) HealthCheck(ctx context.Context) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("openrouter api key not configured: %w", models.ErrLLMUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm provider unreachable: %w", models.ErrLLMUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm provider health check returned %d: %w", resp.StatusCode, models.ErrLLMUnavailable)
	}
	return nil
}

// post sends a JSON request with retry and returns the response body
func (s *OpenRouterService) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
		}

		raw, status, resp, err := s.doRequest(ctx, path, body)
		if err == nil && status == http.StatusOK {
			return raw, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("llm request %s returned %d: %s", path, status, truncateBody(raw))
		}

		if err == nil && !IsRetryableStatus(status) {
			return nil, fmt.Errorf("%s: %w", lastErr.Error(), models.ErrLLMUnavailable)
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.CalculateBackoff(attempt, RetryAfterDelay(resp))
		s.logger.Warn().
			Str("path", path).
			Int("attempt", attempt+1).
			Str("backoff", backoff.String()).
			Err(lastErr).
			Msg("LLM request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("llm request failed after %d attempts: %v: %w",
		s.retry.MaxRetries+1, lastErr, models.ErrLLMUnavailable)
}

func (s *OpenRouterService) doRequest(ctx context.Context, path string, body []byte) ([]byte, int, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	return raw, resp.StatusCode, resp, nil
}

func truncateBody(raw []byte) string {
	const max = 300
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

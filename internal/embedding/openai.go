package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/thebtf/braindump/internal/breaker"
	"github.com/thebtf/braindump/pkg/models"
	"github.com/thebtf/braindump/pkg/privacy"
)

const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "text-embedding-3-small"
	DefaultBatchSize    = 256
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

// Config configures an OpenAI-compatible embeddings client.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Dimensions   int
	BatchSize    int
	MaxRetries   int
	InitialDelay time.Duration
	Timeout      time.Duration

	// OmitDimensions leaves dimensions out of requests, for servers with a fixed
	// output size such as TEI or Ollama. Responses are still checked against Dimensions.
	OmitDimensions bool
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = models.EmbeddingDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// OpenAIClient calls the /embeddings endpoint of any OpenAI-compatible server.
type OpenAIClient struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient creates a client from cfg.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	cfg = cfg.withDefaults()
	return &OpenAIClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker.New(breaker.DefaultConfig("embedding")),
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Embed embeds a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, splitting them into requests of at most BatchSize inputs.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	cleaned := make([]string, len(texts))
	for i, t := range texts {
		cleaned[i] = privacy.Clean(t)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(cleaned); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(cleaned))

		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.embed(ctx, cleaned[start:end])
		})
		if err != nil {
			if breaker.IsOpen(err) {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, res.([][]float32)...)
	}
	return out, nil
}

func (c *OpenAIClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: c.cfg.Model, Input: texts}
	if !c.cfg.OmitDimensions {
		req.Dimensions = c.cfg.Dimensions
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.cfg.InitialDelay
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("Retrying embedding request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vecs, retry, err := c.do(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.cfg.MaxRetries, lastErr)
}

// do sends one request. The bool result reports whether the failure is worth retrying.
func (c *OpenAIClient) do(ctx context.Context, body []byte, n int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("embedding API error (%d): %s", resp.StatusCode, msg)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Data) != n {
		return nil, false, fmt.Errorf("expected %d embeddings, got %d", n, len(parsed.Data))
	}

	vecs := make([][]float32, n)
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= n {
			return nil, false, fmt.Errorf("invalid embedding index: %d", d.Index)
		}
		if len(d.Embedding) != c.cfg.Dimensions {
			return nil, false, fmt.Errorf("embedding has %d dimensions, want %d", len(d.Embedding), c.cfg.Dimensions)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, false, nil
}

// Package llm provides the OpenAI-compatible embedding client.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/retry"
)

// Client generates embeddings from an OpenAI-compatible endpoint.
type Client struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
	breaker    *CircuitBreaker
	logger     *zap.Logger
}

// Config holds configuration for creating an embedding client.
type Config struct {
	Endpoint   string // Base URL, e.g., "https://api.openai.com/v1"
	Model      string // Model name, e.g., "text-embedding-3-small"
	APIKey     string // Optional for local endpoints
	Dimensions int    // Expected vector size
	Timeout    time.Duration
}

// NewClient creates a new embedding client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		breaker:    NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:     logger.Named("embeddings"),
	}, nil
}

var _ Embedder = (*Client)(nil)

// EmbedText generates an embedding vector for the input text. A slow or
// failing endpoint surfaces as an UpstreamError rather than hanging the
// caller.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if allowed, err := c.breaker.Allow(); !allowed {
		return nil, apperrors.NewUpstream("embeddings", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	// Transient endpoint hiccups (rate limits, resets) get a couple of quick
	// retries; the circuit breaker handles sustained failure.
	resp, err := retry.DoWithResult(ctx, retry.EmbeddingConfig(), func() (openai.EmbeddingResponse, error) {
		return c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.model),
			Input: []string{text},
		})
	})
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Error("Embedding request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, apperrors.NewUpstream("embeddings", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		c.breaker.RecordFailure()
		return nil, apperrors.NewUpstream("embeddings", fmt.Errorf("no embedding in response"))
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != c.dimensions {
		c.breaker.RecordFailure()
		return nil, apperrors.NewUpstream("embeddings",
			fmt.Errorf("unexpected embedding size %d, want %d", len(embedding), c.dimensions))
	}

	c.breaker.RecordSuccess()
	c.logger.Debug("Embedding request completed",
		zap.Int("text_len", len(text)),
		zap.Duration("elapsed", time.Since(start)))

	return embedding, nil
}

// Dimensions returns the configured vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/docagent/internal/config"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/pkg/utils"
)

// TogetherClient calls the Together completions endpoint ({base_url}/completions).
type TogetherClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	stop        []string
	client      *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// Option configures a TogetherClient.
type Option func(*TogetherClient)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *TogetherClient) { c.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *TogetherClient) { c.client = hc }
}

// NewTogetherClient builds a client from the generation config. The API key must
// already be resolved into cfg.APIKey.
func NewTogetherClient(cfg config.GenerationConfig, opts ...Option) (*TogetherClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing generation API key (set %s)", models.ErrConfig, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: generation base_url and model are required", models.ErrConfig)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	c := &TogetherClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.TemperatureOrDefault(),
		stop:        cfg.Stop,
		client:      &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		limiter:     rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c, nil
}

type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// ModelName returns the configured model id.
func (c *TogetherClient) ModelName() string {
	return c.model
}

// Generate posts prompt and returns the first choice's text, trimmed. Any
// non-200 status is a failure. There are no retries.
func (c *TogetherClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", models.ErrGeneration, err)
	}
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stop:        c.stop,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", models.ErrGeneration, err)
	}
	url := c.baseURL + "/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", models.ErrGeneration, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("completion request",
		zap.String("model", c.model),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", models.ErrGeneration, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", models.ErrGeneration, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", models.ErrGeneration)
	}
	return strings.TrimSpace(out.Choices[0].Text), nil
}

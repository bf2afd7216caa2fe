package embedding

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

	"github.com/hyperjump/docagent/pkg/utils"
)

// Remote providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// RemoteConfig configures an HTTP embedding service.
type RemoteConfig struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// RemoteEmbedder calls an Ollama or OpenAI-compatible embeddings endpoint.
type RemoteEmbedder struct {
	provider   string
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	client     *http.Client
	logger     *zap.Logger
}

// RemoteOption configures a RemoteEmbedder.
type RemoteOption func(*RemoteEmbedder)

// WithLogger sets the logger for request debugging.
func WithLogger(l *zap.Logger) RemoteOption {
	return func(e *RemoteEmbedder) { e.logger = l }
}

// WithHTTPClient replaces the default client (timeout from RemoteConfig).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(e *RemoteEmbedder) { e.client = c }
}

// NewRemoteEmbedder validates cfg and returns an embedder for it.
func NewRemoteEmbedder(cfg RemoteConfig, opts ...RemoteOption) (*RemoteEmbedder, error) {
	switch cfg.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown remote embedding provider %q", cfg.Provider)
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%s embedder needs base_url and model", cfg.Provider)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%s embedder needs dimensions > 0", cfg.Provider)
	}
	if cfg.Provider == ProviderOpenAI && cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder needs an API key")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	e := &RemoteEmbedder{
		provider:   cfg.Provider,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e, nil
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type openAIEmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding of a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.provider == ProviderOllama {
		var out ollamaEmbeddingResponse
		if err := e.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{Model: e.model, Prompt: text}, &out); err != nil {
			return nil, err
		}
		return e.convert(out.Embedding)
	}
	embs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch embeds texts in order. OpenAI-compatible services get one request;
// Ollama gets one request per text.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.provider == ProviderOllama {
		return embedEach(ctx, e, texts)
	}
	var out openAIEmbeddingResponse
	if err := e.post(ctx, "/embeddings", openAIEmbeddingRequest{Input: texts, Model: e.model}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(out.Data), len(texts))
	}
	embs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) || embs[d.Index] != nil {
			return nil, fmt.Errorf("openai embeddings: bad index %d", d.Index)
		}
		v, err := e.convert(d.Embedding)
		if err != nil {
			return nil, err
		}
		embs[d.Index] = v
	}
	return embs, nil
}

func (e *RemoteEmbedder) convert(v []float64) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%s embeddings: empty embedding", e.provider)
	}
	if len(v) != e.dimensions {
		return nil, fmt.Errorf("%s embeddings: got %d dimensions, configured %d", e.provider, len(v), e.dimensions)
	}
	emb := utils.Float64sToFloat32s(v)
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *RemoteEmbedder) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	url := e.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s at %s: %w", e.provider, url, err)
	}
	defer resp.Body.Close()
	e.logger.Debug("embedding request",
		zap.String("provider", e.provider),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s embeddings returned status %d: %s", e.provider, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", e.provider, err)
	}
	return nil
}

// Dimensions returns the configured embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "<provider>:<model>".
func (e *RemoteEmbedder) Name() string {
	return e.provider + ":" + e.model
}

// Close releases idle connections.
func (e *RemoteEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

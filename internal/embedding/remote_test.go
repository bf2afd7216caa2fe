package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/docagent/internal/config"
)

func TestRemoteEmbedder_Ollama(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		prompts = append(prompts, req.Prompt)
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4, 0}})
	}))
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{Provider: ProviderOllama, BaseURL: srv.URL + "/", Model: "nomic-embed-text", Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Name() != "ollama:nomic-embed-text" {
		t.Errorf("Name() = %q", e.Name())
	}
	embs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(embs) != 2 || len(prompts) != 2 || prompts[1] != "b" {
		t.Fatalf("embs=%v prompts=%v", embs, prompts)
	}
	if math.Abs(float64(embs[0][0])-0.6) > 1e-6 || math.Abs(float64(embs[0][1])-0.8) > 1e-6 {
		t.Errorf("embedding should be normalized, got %v", embs[0])
	}
}

func TestRemoteEmbedder_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req openAIEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		// answer out of order to exercise index mapping
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,2]},{"index":0,"embedding":[2,0]}]}`))
	}))
	defer srv.Close()

	e, err := NewRemoteEmbedder(RemoteConfig{Provider: ProviderOpenAI, BaseURL: srv.URL, Model: "m", APIKey: "sk-test", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	embs, err := e.EmbedBatch(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	if embs[0][0] != 1 || embs[1][1] != 1 {
		t.Errorf("unexpected embeddings %v", embs)
	}
}

func TestRemoteEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "api") {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2,3]}]}`))
	}))
	defer srv.Close()
	ctx := context.Background()

	ollama, _ := NewRemoteEmbedder(RemoteConfig{Provider: ProviderOllama, BaseURL: srv.URL, Model: "m", Dimensions: 3})
	if _, err := ollama.Embed(ctx, "x"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}

	openai, _ := NewRemoteEmbedder(RemoteConfig{Provider: ProviderOpenAI, BaseURL: srv.URL, Model: "m", APIKey: "k", Dimensions: 2})
	if _, err := openai.Embed(ctx, "x"); err == nil || !strings.Contains(err.Error(), "dimensions") {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestNewRemoteEmbedder_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  RemoteConfig
	}{
		{"unknown provider", RemoteConfig{Provider: "cohere", BaseURL: "u", Model: "m", Dimensions: 1}},
		{"missing model", RemoteConfig{Provider: ProviderOllama, BaseURL: "u", Dimensions: 1}},
		{"missing dimensions", RemoteConfig{Provider: ProviderOllama, BaseURL: "u", Model: "m"}},
		{"openai without key", RemoteConfig{Provider: ProviderOpenAI, BaseURL: "u", Model: "m", Dimensions: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRemoteEmbedder(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "hash", Dimensions: 32}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name() != "hash-bow" || e.Dimensions() != 32 {
		t.Errorf("got %s/%d", e.Name(), e.Dimensions())
	}

	e, err = New(config.EmbeddingConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "nomic-embed-text", Dimensions: 768, CacheSize: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if e.Name() != "ollama:nomic-embed-text" {
		t.Errorf("Name() = %q", e.Name())
	}

	if _, err := New(config.EmbeddingConfig{Provider: "bogus"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

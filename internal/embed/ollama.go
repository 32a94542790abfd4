package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// OllamaConfig configures the Ollama embedding backend.
type OllamaConfig struct {
	// Host is the Ollama base URL (default http://localhost:11434).
	Host string
	// Model is the embedding model name (default all-minilm, 384 dims).
	Model string
	// Dimensions is the expected vector width; responses with a
	// different width are rejected. Default DefaultDimensions.
	Dimensions int
	// BatchSize is the maximum number of texts per HTTP request.
	BatchSize int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// SkipHealthCheck skips the startup model check (for tests).
	SkipHealthCheck bool
}

// OllamaEmbedder generates embeddings via Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder and, unless skipped,
// verifies the configured model is installed.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}

	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := e.checkModel(checkCtx); err != nil {
			transport.CloseIdleConnections()
			return nil, err
		}
	}

	return e, nil
}

// checkModel verifies the configured model is installed on the host.
func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return gerrors.New(gerrors.ErrCodeEmbedderUnavailable, "build model list request", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return gerrors.New(gerrors.ErrCodeEmbedderUnavailable,
			fmt.Sprintf("cannot reach Ollama at %s", e.config.Host), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return gerrors.Newf(gerrors.ErrCodeEmbedderUnavailable,
			"Ollama model list returned status %d: %s", resp.StatusCode, string(body))
	}

	var result OllamaModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return gerrors.New(gerrors.ErrCodeEmbedderUnavailable, "decode model list", err)
	}

	want := strings.ToLower(e.config.Model)
	wantBase := strings.Split(want, ":")[0]
	for _, m := range result.Models {
		name := strings.ToLower(m.Name)
		if name == want || strings.Split(name, ":")[0] == wantBase {
			e.modelName = m.Name
			return nil
		}
	}

	return gerrors.Newf(gerrors.ErrCodeModelMissing,
		"model %q is not installed (run: ollama pull %s)", e.config.Model, e.config.Model)
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts, one HTTP request per
// configured batch. Failure of any batch fails the whole call.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, gerrors.Newf(gerrors.ErrCodeEmbedderUnavailable, "embedder is closed")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(OllamaEmbedRequest{Model: e.modelName, Input: texts})
	if err != nil {
		return nil, gerrors.EmbeddingError("marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, gerrors.EmbeddingError("build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, gerrors.EmbeddingError("embed request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, gerrors.Newf(gerrors.ErrCodeEmbeddingFailed,
			"embed returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, gerrors.EmbeddingError("decode embed response", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, gerrors.Newf(gerrors.ErrCodeEmbeddingFailed,
			"embed returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}
	for i, vec := range result.Embeddings {
		if len(vec) != e.dims {
			return nil, gerrors.Newf(gerrors.ErrCodeDimensionMismatch,
				"embedding %d has %d dimensions, expected %d", i, len(vec), e.dims)
		}
	}

	return result.Embeddings, nil
}

// Dimensions returns the embedding vector width.
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// ModelName returns the resolved model name.
func (e *OllamaEmbedder) ModelName() string { return e.modelName }

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

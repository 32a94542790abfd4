package embed

import (
	"context"
	"sync"
	"time"

	gerrors "github.com/hearthside-dev/grist/internal/errors"
)

// Provider selects an embedding backend.
type Provider string

const (
	// ProviderOllama uses the Ollama HTTP API.
	ProviderOllama Provider = "ollama"
	// ProviderStatic uses the deterministic hash embedder.
	ProviderStatic Provider = "static"
)

// ParseProvider validates a raw provider string. Empty means ollama.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case "", ProviderOllama:
		return ProviderOllama, nil
	case ProviderStatic:
		return ProviderStatic, nil
	}
	return "", gerrors.Newf(gerrors.ErrCodeConfigInvalid,
		"unknown embedding provider %q (valid: ollama, static)", s)
}

// Config configures embedder construction.
type Config struct {
	Provider   string
	Model      string
	Host       string
	Dimensions int
	BatchSize  int
	// CacheSize enables an LRU cache over the backend when positive.
	CacheSize int
	Timeout   time.Duration
	// SkipHealthCheck skips the Ollama startup check (for tests).
	SkipHealthCheck bool
}

// New constructs an embedder from config.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	var inner Embedder
	switch provider {
	case ProviderStatic:
		inner = NewStaticEmbedder(cfg.Dimensions)
	default:
		inner, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:            cfg.Host,
			Model:           cfg.Model,
			Dimensions:      cfg.Dimensions,
			BatchSize:       cfg.BatchSize,
			Timeout:         cfg.Timeout,
			SkipHealthCheck: cfg.SkipHealthCheck,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize)
	}
	return inner, nil
}

var (
	sharedMu sync.Mutex
	shared   Embedder
)

// Shared returns the process-wide embedder, creating it on first call.
// The model loads lazily: nothing happens until some caller actually needs
// an embedding. Subsequent calls return the same instance regardless of
// config.
func Shared(ctx context.Context, cfg Config) (Embedder, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	e, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	shared = e
	return shared, nil
}

// ResetShared closes and clears the shared embedder. For tests.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		_ = shared.Close()
		shared = nil
	}
}

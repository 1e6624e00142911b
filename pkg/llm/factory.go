package llm

import (
	"fmt"

	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported providers
const (
	ProviderProxy  = "proxy"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// NewTransport creates the transport selected by cfg.Provider
func NewTransport(cfg config.LLMConfig) (Transport, error) {
	switch cfg.Provider {
	case "", ProviderProxy:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultBaseURL
		}
		return NewProxyTransportWithTimeout(baseURL, cfg.Timeout), nil

	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if url := explicitURL(cfg); url != "" {
			opts = append(opts, ollama.WithServerURL(url))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model: %w", err)
		}
		return NewLangChainTransport(model), nil

	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if url := explicitURL(cfg); url != "" {
			opts = append(opts, openai.WithBaseURL(url))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model: %w", err)
		}
		return NewLangChainTransport(model), nil
	}

	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}

// explicitURL returns the configured base URL unless it is the proxy
// default, so SDK providers keep their own endpoints
func explicitURL(cfg config.LLMConfig) string {
	if cfg.BaseURL == config.DefaultBaseURL {
		return ""
	}
	return cfg.BaseURL
}

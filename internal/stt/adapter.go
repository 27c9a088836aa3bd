// Package stt turns recorded audio into text via a speech-to-text
// provider, classifying failures and retrying the transient ones.
package stt

import (
	"context"
	"strings"
	"time"
)

// Options tune a single transcription request.
type Options struct {
	Model    string
	Language string // BCP-47 hint; empty lets the provider detect
}

// Result is a completed transcription.
type Result struct {
	Text     string
	Language string
}

// Adapter is a speech-to-text provider. Implementations return errors
// already classified via *Error so callers can decide on retries.
type Adapter interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error)
	TestConnection(ctx context.Context) error
}

// AdapterConfig selects and configures a provider.
type AdapterConfig struct {
	Endpoint string // empty means the hosted OpenAI API
	APIKey   string
	Timeout  time.Duration
}

// NewAdapter picks a provider from the endpoint shape: an empty endpoint
// or one pointing at api.openai.com uses the official SDK, anything else
// is treated as an OpenAI-compatible whisper server.
func NewAdapter(cfg AdapterConfig) Adapter {
	if cfg.Endpoint == "" || strings.Contains(cfg.Endpoint, "api.openai.com") {
		return NewOpenAIAdapter(cfg.APIKey)
	}
	return NewServerAdapter(ServerConfig{
		BaseURL: cfg.Endpoint,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
}

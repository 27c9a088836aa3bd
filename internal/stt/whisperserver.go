package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultServerTimeout = 30 * time.Second

// ServerConfig configures an OpenAI-compatible whisper server.
type ServerConfig struct {
	BaseURL string
	APIKey  string // optional, sent as Bearer when set
	Timeout time.Duration
}

// ServerAdapter transcribes audio through a self-hosted whisper server
// exposing the OpenAI transcription API shape.
type ServerAdapter struct {
	cfg    ServerConfig
	client *http.Client
}

// NewServerAdapter creates an adapter for the given server.
func NewServerAdapter(cfg ServerConfig) *ServerAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultServerTimeout
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &ServerAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (a *ServerAdapter) Name() string {
	return "whisper_server"
}

// transcriptionResponse mirrors the JSON body of a successful request.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe performs a single multipart POST to the transcription endpoint.
func (a *ServerAdapter) Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "recording.mp3")
	if err != nil {
		return Result{}, NewError(Unknown, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, NewError(Unknown, fmt.Errorf("write audio data: %w", err))
	}
	if opts.Model != "" {
		_ = writer.WriteField("model", opts.Model)
	}
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	if err := writer.Close(); err != nil {
		return Result{}, NewError(Unknown, fmt.Errorf("finalize multipart body: %w", err))
	}

	url := a.cfg.BaseURL + "/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return Result{}, NewError(ConfigurationInvalid, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, Classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, Classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, ClassifyStatus(resp.StatusCode,
			fmt.Errorf("http %d: %s", resp.StatusCode, truncate(respBody, 200)))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, NewError(ServiceOther, fmt.Errorf("decode response: %w", err))
	}

	return Result{Text: parsed.Text, Language: parsed.Language}, nil
}

// TestConnection probes the server's model listing endpoint.
func (a *ServerAdapter) TestConnection(ctx context.Context) error {
	url := a.cfg.BaseURL + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewError(ConfigurationInvalid, fmt.Errorf("create request: %w", err))
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ClassifyStatus(resp.StatusCode,
			fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200)))
	}
	return nil
}

// truncate returns the first n bytes of body as a string.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

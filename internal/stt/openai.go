package stt

import (
	"bytes"
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter transcribes audio through the hosted Whisper API.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates an adapter backed by the official SDK.
func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Transcribe sends the encoded audio to the Whisper API.
func (a *OpenAIAdapter) Transcribe(ctx context.Context, audio []byte, opts Options) (Result, error) {
	model := openai.AudioModelWhisper1
	if opts.Model != "" {
		model = openai.AudioModel(opts.Model)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "recording.mp3", "audio/mpeg"),
		Model: model,
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}

	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, a.classify(err)
	}

	return Result{Text: resp.Text, Language: opts.Language}, nil
}

// TestConnection probes the API with the cheapest authenticated call.
func (a *OpenAIAdapter) TestConnection(ctx context.Context) error {
	if _, err := a.client.Models.Get(ctx, string(openai.AudioModelWhisper1)); err != nil {
		return a.classify(err)
	}
	return nil
}

func (a *OpenAIAdapter) classify(err error) *Error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return ClassifyStatus(apierr.StatusCode, err)
	}
	return Classify(err)
}

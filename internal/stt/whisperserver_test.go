package stt_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxtype/voxtype/internal/stt"
)

func TestServerAdapter_Transcribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "base", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "recording.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "hello world", "language": "en"}`))
	}))
	defer srv.Close()

	adapter := stt.NewServerAdapter(stt.ServerConfig{BaseURL: srv.URL, APIKey: "sk-test"})

	res, err := adapter.Transcribe(context.Background(), []byte("fake mp3"), stt.Options{
		Model:    "base",
		Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, "en", res.Language)
}

func TestServerAdapter_ClassifiesHTTPStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		kind   stt.Kind
	}{
		{http.StatusUnauthorized, stt.NetworkAuth},
		{http.StatusNotFound, stt.ServiceNotFound},
		{http.StatusTooManyRequests, stt.ServiceRateLimited},
		{http.StatusInternalServerError, stt.ServiceOther},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		adapter := stt.NewServerAdapter(stt.ServerConfig{BaseURL: srv.URL})
		_, err := adapter.Transcribe(context.Background(), []byte("fake mp3"), stt.Options{})
		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.kind, stt.KindOf(err), "status %d", tt.status)

		srv.Close()
	}
}

func TestServerAdapter_RefusedConnection(t *testing.T) {
	t.Parallel()

	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	adapter := stt.NewServerAdapter(stt.ServerConfig{BaseURL: url})
	_, err := adapter.Transcribe(context.Background(), []byte("fake mp3"), stt.Options{})
	require.Error(t, err)
	assert.Equal(t, stt.NetworkRefused, stt.KindOf(err))
}

func TestServerAdapter_TestConnection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	adapter := stt.NewServerAdapter(stt.ServerConfig{BaseURL: srv.URL})
	assert.NoError(t, adapter.TestConnection(context.Background()))
}

func TestNewAdapter_SelectsByEndpointShape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "openai", stt.NewAdapter(stt.AdapterConfig{}).Name())
	assert.Equal(t, "openai", stt.NewAdapter(stt.AdapterConfig{Endpoint: "https://api.openai.com/v1"}).Name())
	assert.Equal(t, "whisper_server", stt.NewAdapter(stt.AdapterConfig{Endpoint: "http://localhost:9000"}).Name())
}

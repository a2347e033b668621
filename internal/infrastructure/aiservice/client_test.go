// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package aiservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// newTestServer serves the OAuth token endpoint plus the given API handler
// from a single httptest server.
func newTestServer(t *testing.T, api http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", api)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, Config{
		BaseURL:        server.URL,
		AuthURL:        server.URL + "/oauth/token",
		ClientID:       "test-client",
		ClientSecret:   "test-secret",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{
		BaseURL:      "https://ai.example.com",
		AuthURL:      "https://ai.example.com/oauth/token",
		ClientID:     "id",
		ClientSecret: "secret",
	})

	require.NotNil(t, client)
	assert.Equal(t, DefaultClientTimeout, client.config.Timeout)
	assert.Equal(t, DefaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, DefaultInitialBackoff, client.config.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, client.config.MaxBackoff)
	assert.Equal(t, DefaultBackoffMultiplier, client.config.BackoffMultiplier)
	assert.Equal(t, "id", client.oauthConfig.ClientID)
	assert.Equal(t, "https://ai.example.com/oauth/token", client.oauthConfig.TokenURL)
}

func TestSubmitAudio(t *testing.T) {
	var gotAuth, gotBody string
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req submitAudioRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotBody = req.AudioURL

		require.Equal(t, "en", req.Language)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(submitAudioResponse{Token: "tok-123"})
	})

	client := NewClient(config)
	token, err := client.SubmitAudio(context.Background(), "https://cdn.example.com/audio.mp3", models.LanguageEnglish)

	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "https://cdn.example.com/audio.mp3", gotBody)
}

func TestSubmitAudioEmptyToken(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(submitAudioResponse{})
	})

	client := NewClient(config)
	_, err := client.SubmitAudio(context.Background(), "https://cdn.example.com/a.mp3", models.LanguageEnglish)

	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/tok-123/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(audioStatusResponse{Status: "transcribing", Done: false})
	})

	client := NewClient(config)
	done, status, err := client.GetStatus(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "transcribing", status)
}

func TestGetStatusUnknownToken(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := NewClient(config)
	_, _, err := client.GetStatus(context.Background(), "tok-missing")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestGetReport(t *testing.T) {
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/tok-123/report", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.AIReport{
			Transcript:   "hello world",
			Summary:      "greeting",
			KeyPoints:    []string{"hello"},
			MainLanguage: "english",
		})
	})

	client := NewClient(config)
	report, err := client.GetReport(context.Background(), "tok-123")

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "hello world", report.Transcript)
	assert.Equal(t, []string{"hello"}, report.KeyPoints)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(audioStatusResponse{Status: "done", Done: true})
	})

	client := NewClient(config)
	done, _, err := client.GetStatus(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 1001, "message": "unsupported audio format"})
	})

	client := NewClient(config)
	_, err := client.SubmitAudio(context.Background(), "https://cdn.example.com/a.wav", models.LanguageArabic)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	_, config := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewClient(config)
	_, _, err := client.GetStatus(context.Background(), "tok-123")

	require.Error(t, err)
	// initial attempt plus MaxRetries
	assert.Equal(t, int32(config.MaxRetries+1), calls.Load())
}

func TestCalculateBackoffCapped(t *testing.T) {
	client := NewClient(Config{
		BaseURL:           "https://ai.example.com",
		AuthURL:           "https://ai.example.com/oauth/token",
		InitialBackoff:    time.Second,
		MaxBackoff:        4 * time.Second,
		BackoffMultiplier: 2.0,
	})

	for attempt := 0; attempt < 10; attempt++ {
		backoff := client.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, backoff, time.Second)
		// cap plus 25% jitter headroom
		assert.LessOrEqual(t, backoff, 5*time.Second)
	}
}

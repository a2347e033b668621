// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package aiservice implements the HTTP client for the external audio
// transcription provider.
package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for AI service requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the AI service client.
type Config struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client talks to the AI transcription provider over its REST API with
// OAuth2 client-credentials authentication and retry on transient errors.
type Client struct {
	config      Config
	oauthConfig *clientcredentials.Config
}

var _ domain.AIProcessingService = (*Client)(nil)

// NewClient creates a new AI service client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.AuthURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &Client{
		config:      config,
		oauthConfig: oauthConfig,
	}
}

// getAuthenticatedClient returns an HTTP client that automatically handles OAuth2 authentication
func (c *Client) getAuthenticatedClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: c.config.Timeout,
		Transport: &oauth2.Transport{
			Base:   http.DefaultTransport,
			Source: c.oauthConfig.TokenSource(ctx),
		},
	}
}

type submitAudioRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language"`
}

type submitAudioResponse struct {
	Token string `json:"audio_token"`
}

// SubmitAudio sends the meeting audio for processing and returns the
// provider's tracking token.
func (c *Client) SubmitAudio(ctx context.Context, audioURL string, language models.MeetingLanguage) (string, error) {
	ctx = logging.AppendCtx(ctx, slog.String("ai_operation", "submit_audio"))

	payload := submitAudioRequest{
		AudioURL: audioURL,
		Language: string(language),
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/audio", payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to submit audio", logging.ErrKey, err)
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", c.errorFromResponse(ctx, resp)
	}

	var submitResp submitAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		slog.ErrorContext(ctx, "failed to decode submit response", logging.ErrKey, err)
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if submitResp.Token == "" {
		return "", fmt.Errorf("AI service returned an empty audio token")
	}

	slog.InfoContext(ctx, "audio submitted for processing", "audio_token", submitResp.Token)

	return submitResp.Token, nil
}

type audioStatusResponse struct {
	Status string `json:"status"`
	Done   bool   `json:"done"`
}

// GetStatus reports whether a submitted job has finished, along with the
// provider's status label.
func (c *Client) GetStatus(ctx context.Context, token string) (bool, string, error) {
	ctx = logging.AppendCtx(ctx, slog.String("ai_operation", "get_status"))

	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/audio/"+token+"/status", nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get audio status", logging.ErrKey, err)
		return false, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, "", domain.NewNotFoundError(fmt.Sprintf("audio token %s not known to AI service", token))
	}
	if resp.StatusCode != http.StatusOK {
		return false, "", c.errorFromResponse(ctx, resp)
	}

	var statusResp audioStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		slog.ErrorContext(ctx, "failed to decode status response", logging.ErrKey, err)
		return false, "", fmt.Errorf("failed to decode status response: %w", err)
	}

	return statusResp.Done, statusResp.Status, nil
}

// GetReport fetches the transcription report for a finished job.
func (c *Client) GetReport(ctx context.Context, token string) (*models.AIReport, error) {
	ctx = logging.AppendCtx(ctx, slog.String("ai_operation", "get_report"))

	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/audio/"+token+"/report", nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get audio report", logging.ErrKey, err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError(fmt.Sprintf("report for audio token %s not found", token))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(ctx, resp)
	}

	var report models.AIReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.ErrorContext(ctx, "failed to decode report response", logging.ErrKey, err)
		return nil, fmt.Errorf("failed to decode report response: %w", err)
	}

	return &report, nil
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	// Retry on network/connection errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx) and rate limiting (429)
	if statusCode >= http.StatusInternalServerError {
		return true
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	// Don't retry on client errors (4xx)
	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Jitter of up to ±25% to avoid synchronized retries across workers
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}

	return backoffWithJitter
}

// doRequest performs an authenticated HTTP request with retry on
// transient failures. The caller owns the returned response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var jsonBody []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		jsonBody = encoded
	}

	url := c.config.BaseURL + path
	httpClient := c.getAuthenticatedClient(ctx)

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err == nil && !shouldRetry(resp.StatusCode, nil) {
			return resp, nil
		}

		if lastResp != nil {
			_ = lastResp.Body.Close()
		}
		lastErr, lastResp = err, resp

		if ctx.Err() != nil {
			break
		}

		if attempt < c.config.MaxRetries {
			backoff := c.calculateBackoff(attempt)
			slog.WarnContext(ctx, "AI service request failed, retrying",
				"method", method,
				"path", path,
				"status", statusCode(resp),
				"attempt", attempt+1,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, err)

			select {
			case <-ctx.Done():
				if lastResp != nil {
					_ = lastResp.Body.Close()
				}
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	if lastErr != nil {
		if lastResp != nil {
			_ = lastResp.Body.Close()
		}
		slog.ErrorContext(ctx, "AI service request failed after all retries",
			"method", method,
			"path", path,
			"max_retries", c.config.MaxRetries,
			logging.ErrKey, lastErr,
			logging.PriorityCritical())
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
	}

	return lastResp, nil
}

// errorFromResponse drains an error response into a descriptive error.
func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	err := fmt.Errorf("AI service error (status %d): %s", resp.StatusCode, string(body))
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
		err = fmt.Errorf("AI service error (code %d): %s", errResp.Code, errResp.Message)
	}

	slog.ErrorContext(ctx, "AI service returned error",
		"status", resp.StatusCode,
		logging.ErrKey, err)

	return err
}

func statusCode(resp *http.Response) int {
	if resp != nil {
		return resp.StatusCode
	}
	return 0
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package room implements the HTTP client for the external online
// meeting room provider.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
)

// DefaultClientTimeout is the default HTTP client timeout for room
// provider requests. Room lookups run inside the reconciliation loop, so
// the timeout stays short.
const DefaultClientTimeout = 10 * time.Second

// Config holds the configuration for the room provider client.
type Config struct {
	BaseURL string
	APIKey  string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// Client talks to the room provider's REST API using API-key
// authentication. The provider deletes rooms that time out, so a missing
// room is an expected answer and maps to a not-found error.
type Client struct {
	httpClient *http.Client
	config     Config
}

var _ domain.RoomService = (*Client)(nil)

// NewClient creates a new room provider client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// GetRoom looks up the live state of a room by name.
func (c *Client) GetRoom(ctx context.Context, name string) (*models.Room, error) {
	ctx = logging.AppendCtx(ctx, slog.String("room_name", name))

	if name == "" {
		return nil, domain.NewValidationError("room name is required")
	}

	endpoint := c.config.BaseURL + "/v1/rooms/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "room provider request failed", logging.ErrKey, err)
		return nil, domain.NewUnavailableError("room provider unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(fmt.Sprintf("room %s not found", name))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("room provider error (status %d): %s", resp.StatusCode, string(body))
		slog.ErrorContext(ctx, "room provider returned error",
			"status", resp.StatusCode,
			logging.ErrKey, err)
		return nil, err
	}

	var room models.Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		slog.ErrorContext(ctx, "failed to decode room response", logging.ErrKey, err)
		return nil, fmt.Errorf("failed to decode room response: %w", err)
	}

	return &room, nil
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/agilemeets/meeting-service/internal/logging"
)

// flags are the command line flags for the meeting scheduler.
type flags struct {
	Debug bool
}

// environment are the environment variables for the meeting scheduler.
type environment struct {
	NatsURL        string
	AIService      aiServiceConfig
	RoomProvider   roomProviderConfig
	HorizonMonths  int
	SweepInterval  time.Duration
	RemindInterval time.Duration
}

// aiServiceConfig holds the transcription provider configuration.
type aiServiceConfig struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
}

// roomProviderConfig holds the online meeting room provider configuration.
type roomProviderConfig struct {
	BaseURL string
	APIKey  string
}

// parseFlags parses command line flags for the meeting scheduler
func parseFlags() flags {
	var debug = flag.Bool("d", false, "enable debug logging")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
	}
}

// parseEnv parses environment variables for the meeting scheduler
func parseEnv() environment {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	horizonMonths := 0
	if raw := os.Getenv("GENERATION_HORIZON_MONTHS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			slog.With("value", raw).Error("invalid GENERATION_HORIZON_MONTHS, using default")
		} else {
			horizonMonths = parsed
		}
	}

	return environment{
		NatsURL:        natsURL,
		AIService:      parseAIServiceConfig(),
		RoomProvider:   parseRoomProviderConfig(),
		HorizonMonths:  horizonMonths,
		SweepInterval:  parseDurationEnv("STATUS_SWEEP_INTERVAL"),
		RemindInterval: parseDurationEnv("REMINDER_INTERVAL"),
	}
}

// parseAIServiceConfig parses transcription provider configuration from environment variables
func parseAIServiceConfig() aiServiceConfig {
	baseURL := os.Getenv("AI_SERVICE_BASE_URL")
	if baseURL == "" {
		slog.Error("AI_SERVICE_BASE_URL environment variable is required but not set")
		os.Exit(1)
	}

	clientID := os.Getenv("AI_SERVICE_CLIENT_ID")
	if clientID == "" {
		slog.Error("AI_SERVICE_CLIENT_ID environment variable is required but not set")
		os.Exit(1)
	}

	clientSecret := os.Getenv("AI_SERVICE_CLIENT_SECRET")
	if clientSecret == "" {
		slog.Error("AI_SERVICE_CLIENT_SECRET environment variable is required but not set")
		os.Exit(1)
	}

	authURL := os.Getenv("AI_SERVICE_AUTH_URL")
	if authURL == "" {
		authURL = baseURL + "/oauth/token"
	}

	return aiServiceConfig{
		BaseURL:      baseURL,
		AuthURL:      authURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// parseRoomProviderConfig parses room provider configuration from environment variables
func parseRoomProviderConfig() roomProviderConfig {
	baseURL := os.Getenv("ROOM_PROVIDER_BASE_URL")
	if baseURL == "" {
		slog.Error("ROOM_PROVIDER_BASE_URL environment variable is required but not set")
		os.Exit(1)
	}

	apiKey := os.Getenv("ROOM_PROVIDER_API_KEY")
	if apiKey == "" {
		slog.Error("ROOM_PROVIDER_API_KEY environment variable is required but not set")
		os.Exit(1)
	}

	return roomProviderConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

// parseDurationEnv parses an optional duration override. A zero value
// means the worker's built-in default applies.
func parseDurationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.With(logging.ErrKey, err, "env", key, "value", raw).Error("invalid duration override, using default")
		return 0
	}
	return d
}

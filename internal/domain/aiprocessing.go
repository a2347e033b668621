// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// AIProcessingService is the contract to the external transcription
// provider. Tokens are opaque; the engine only stores and replays them.
type AIProcessingService interface {
	// SubmitAudio sends an audio URL for processing and returns the
	// provider's tracking token.
	SubmitAudio(ctx context.Context, audioURL string, language models.MeetingLanguage) (string, error)
	// GetStatus reports whether the job finished and the provider's
	// status label for logging.
	GetStatus(ctx context.Context, token string) (done bool, status string, err error)
	// GetReport fetches the full report for a finished job.
	GetReport(ctx context.Context, token string) (*models.AIReport, error)
}

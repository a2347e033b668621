// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// MessagePublisher is the outbound contract to the message bus. Both
// operations are fire-and-forget: the engine never blocks on delivery
// confirmation, and a publish failure is logged by the caller rather
// than retried.
type MessagePublisher interface {
	// PublishNotification hands a user-facing notification to the
	// notification service.
	PublishNotification(ctx context.Context, msg models.NotificationMessage) error
	// PublishMeetingEvent announces a meeting lifecycle change to
	// downstream consumers (indexers, calendars, mobile sync).
	PublishMeetingEvent(ctx context.Context, event models.MeetingEvent) error
}

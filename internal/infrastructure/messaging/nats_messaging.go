// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package messaging publishes lifecycle events and notifications to NATS.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
	"github.com/agilemeets/meeting-service/pkg/constants"
)

// INatsConn is the NATS connection interface the publisher needs. It
// allows mocking in tests.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// NatsPublisher implements domain.MessagePublisher on a core NATS
// connection. Both operations are fire-and-forget: delivery is a publish,
// never a request.
type NatsPublisher struct {
	NatsConn INatsConn
}

// NewNatsPublisher creates a new NatsPublisher.
func NewNatsPublisher(natsConn INatsConn) *NatsPublisher {
	return &NatsPublisher{
		NatsConn: natsConn,
	}
}

// sendMessage sends the message to the NATS server.
func (p *NatsPublisher) sendMessage(ctx context.Context, subject string, data []byte) error {
	if p.NatsConn == nil || !p.NatsConn.IsConnected() {
		return domain.NewUnavailableError("NATS connection is not available")
	}

	if err := p.NatsConn.Publish(subject, data); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return domain.NewUnavailableError("failed to publish message", err)
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// PublishNotification hands a user-facing notification to the
// notification service.
func (p *NatsPublisher) PublishNotification(ctx context.Context, msg models.NotificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling notification message", logging.ErrKey, err)
		return domain.NewInternalError("failed to marshal notification message", err)
	}

	return p.sendMessage(ctx, constants.NotificationSendSubject, data)
}

// PublishMeetingEvent announces a lifecycle change. The event type is part
// of the subject so consumers can subscribe selectively.
func (p *NatsPublisher) PublishMeetingEvent(ctx context.Context, event models.MeetingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling meeting event", logging.ErrKey, err)
		return domain.NewInternalError("failed to marshal meeting event", err)
	}

	return p.sendMessage(ctx, constants.MeetingEventSubjectPrefix+string(event.Type), data)
}

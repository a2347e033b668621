// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/pkg/constants"
)

type fakeNatsConn struct {
	connected bool
	published map[string][][]byte
	pubErr    error
}

func newFakeNatsConn() *fakeNatsConn {
	return &fakeNatsConn{connected: true, published: make(map[string][][]byte)}
}

func (f *fakeNatsConn) IsConnected() bool { return f.connected }

func (f *fakeNatsConn) Publish(subj string, data []byte) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published[subj] = append(f.published[subj], data)
	return nil
}

func TestPublishNotification(t *testing.T) {
	conn := newFakeNatsConn()
	publisher := NewNatsPublisher(conn)

	msg := models.NotificationMessage{
		Channel:   models.NotificationChannelEmail,
		Recipient: "a@example.com",
		Subject:   "Reminder: Planning",
		Body:      "starts soon",
	}
	require.NoError(t, publisher.PublishNotification(context.Background(), msg))

	payloads := conn.published[constants.NotificationSendSubject]
	require.Len(t, payloads, 1)

	var got models.NotificationMessage
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	assert.Equal(t, msg, got)
}

func TestPublishMeetingEventSubjectCarriesType(t *testing.T) {
	conn := newFakeNatsConn()
	publisher := NewNatsPublisher(conn)

	event := models.MeetingEvent{
		Type:       models.MeetingEventCompleted,
		MeetingUID: "meeting-1",
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, publisher.PublishMeetingEvent(context.Background(), event))

	payloads := conn.published[constants.MeetingEventSubjectPrefix+"completed"]
	require.Len(t, payloads, 1)

	var got models.MeetingEvent
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	assert.Equal(t, "meeting-1", got.MeetingUID)
}

func TestPublishWhenDisconnected(t *testing.T) {
	conn := newFakeNatsConn()
	conn.connected = false
	publisher := NewNatsPublisher(conn)

	err := publisher.PublishNotification(context.Background(), models.NotificationMessage{})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestPublishErrorSurfacesAsUnavailable(t *testing.T) {
	conn := newFakeNatsConn()
	conn.pubErr = errors.New("connection reset")
	publisher := NewNatsPublisher(conn)

	err := publisher.PublishMeetingEvent(context.Background(), models.MeetingEvent{
		Type: models.MeetingEventCreated,
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agilemeets/meeting-service/internal/domain/mocks"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

func newTestStatusWorker() (*StatusTransitionWorker, *mocks.MockMeetingRepository, *mocks.MockMessagePublisher) {
	meetingRepo := &mocks.MockMeetingRepository{}
	publisher := &mocks.MockMessagePublisher{}
	w := NewStatusTransitionWorker(meetingRepo, publisher, StatusTransitionConfig{})
	return w, meetingRepo, publisher
}

func TestStatusTransitionDefaults(t *testing.T) {
	w, _, _ := newTestStatusWorker()
	assert.Equal(t, 5*time.Minute, w.config.Interval)
	assert.Equal(t, 100, w.config.BatchSize)
}

func TestStatusTransitionCompletesOverdueMeeting(t *testing.T) {
	w, meetingRepo, publisher := newTestStatusWorker()

	end := time.Now().UTC().Add(-10 * time.Minute)
	meeting := &models.Meeting{
		UID:     "meeting-1",
		Status:  models.MeetingStatusInProgress,
		EndTime: end,
	}

	meetingRepo.On("MeetingsToComplete", mock.Anything, mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(5), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(5)).Return(nil)
	publisher.On("PublishMeetingEvent", mock.Anything, mock.MatchedBy(func(e models.MeetingEvent) bool {
		return e.Type == models.MeetingEventCompleted && e.MeetingUID == "meeting-1"
	})).Return(nil)

	w.completeOverdue(context.Background())

	assert.Equal(t, models.MeetingStatusCompleted, meeting.Status)
	require.NotNil(t, meeting.ActualEndTime)
	meetingRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestStatusTransitionCancelsNeverStartedMeeting(t *testing.T) {
	w, meetingRepo, publisher := newTestStatusWorker()

	start := time.Now().UTC().Add(-6 * time.Minute)
	meeting := &models.Meeting{
		UID:       "meeting-1",
		Status:    models.MeetingStatusScheduled,
		StartTime: start,
	}

	meetingRepo.On("PastScheduledMeetings", mock.Anything, mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(1)).Return(nil)
	publisher.On("PublishMeetingEvent", mock.Anything, mock.MatchedBy(func(e models.MeetingEvent) bool {
		return e.Type == models.MeetingEventCancelled
	})).Return(nil)

	w.cancelNeverStarted(context.Background())

	// Cancelled directly, never passing through in-progress.
	assert.Equal(t, models.MeetingStatusCancelled, meeting.Status)
	meetingRepo.AssertExpectations(t)
}

func TestStatusTransitionSkipsMeetingStartedMeanwhile(t *testing.T) {
	w, meetingRepo, publisher := newTestStatusWorker()

	stale := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusScheduled}
	// The re-read under revision sees the meeting was started concurrently.
	fresh := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusInProgress}

	meetingRepo.On("PastScheduledMeetings", mock.Anything, mock.Anything, 100).
		Return([]*models.Meeting{stale}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(fresh, uint64(2), nil)

	w.cancelNeverStarted(context.Background())

	assert.Equal(t, models.MeetingStatusInProgress, fresh.Status)
	meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishMeetingEvent", mock.Anything, mock.Anything)
}

func TestStatusTransitionIsolatesPerItemFailures(t *testing.T) {
	w, meetingRepo, publisher := newTestStatusWorker()

	first := &models.Meeting{UID: "meeting-1", Status: models.MeetingStatusInProgress}
	second := &models.Meeting{UID: "meeting-2", Status: models.MeetingStatusInProgress}

	meetingRepo.On("MeetingsToComplete", mock.Anything, mock.Anything, 100).
		Return([]*models.Meeting{first, second}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").
		Return(nil, uint64(0), errors.New("store unavailable"))
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-2").Return(second, uint64(1), nil)
	meetingRepo.On("Update", mock.Anything, second, uint64(1)).Return(nil)
	publisher.On("PublishMeetingEvent", mock.Anything, mock.Anything).Return(nil)

	w.completeOverdue(context.Background())

	assert.Equal(t, models.MeetingStatusCompleted, second.Status)
	meetingRepo.AssertExpectations(t)
}

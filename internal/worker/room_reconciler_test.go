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

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/mocks"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

func newTestRoomReconciler() (*RoomReconciler, *mocks.MockMeetingRepository, *mocks.MockRoomService, *mocks.MockMessagePublisher) {
	meetingRepo := &mocks.MockMeetingRepository{}
	roomService := &mocks.MockRoomService{}
	publisher := &mocks.MockMessagePublisher{}
	w := NewRoomReconciler(meetingRepo, roomService, publisher, RoomReconcilerConfig{})
	return w, meetingRepo, roomService, publisher
}

func activeOnlineMeeting() *models.Meeting {
	return &models.Meeting{
		UID:          "meeting-1",
		Type:         models.MeetingTypeOnline,
		Status:       models.MeetingStatusInProgress,
		OnlineStatus: models.OnlineMeetingStatusActive,
		RoomName:     "meeting-room-1",
	}
}

func TestRoomReconcilerDefaults(t *testing.T) {
	w, _, _, _ := newTestRoomReconciler()
	assert.Equal(t, time.Minute, w.config.Interval)
	assert.Equal(t, 5, w.config.Throttle)
}

func TestRoomReconcilerLeavesLiveRoomAlone(t *testing.T) {
	w, meetingRepo, roomService, _ := newTestRoomReconciler()
	meeting := activeOnlineMeeting()

	meetingRepo.On("ActiveOnlineMeetings", mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	roomService.On("GetRoom", mock.Anything, "meeting-room-1").
		Return(&models.Room{SID: "sid-1", Name: "meeting-room-1", NumParticipants: 4}, nil)

	w.cycle(context.Background())

	assert.Equal(t, models.MeetingStatusInProgress, meeting.Status)
	meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomReconcilerCompletesWhenRoomGone(t *testing.T) {
	w, meetingRepo, roomService, publisher := newTestRoomReconciler()
	meeting := activeOnlineMeeting()

	meetingRepo.On("ActiveOnlineMeetings", mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	roomService.On("GetRoom", mock.Anything, "meeting-room-1").
		Return(nil, domain.NewNotFoundError("room not found"))
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(3), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(3)).Return(nil)
	publisher.On("PublishMeetingEvent", mock.Anything, mock.MatchedBy(func(e models.MeetingEvent) bool {
		return e.Type == models.MeetingEventCompleted
	})).Return(nil)

	w.cycle(context.Background())

	assert.Equal(t, models.MeetingStatusCompleted, meeting.Status)
	assert.Equal(t, models.OnlineMeetingStatusEnded, meeting.OnlineStatus)
	assert.NotNil(t, meeting.ActualEndTime)
	publisher.AssertExpectations(t)
}

func TestRoomReconcilerCancelsNeverStartedWhenRoomGone(t *testing.T) {
	w, meetingRepo, roomService, publisher := newTestRoomReconciler()
	meeting := activeOnlineMeeting()
	meeting.Status = models.MeetingStatusScheduled
	meeting.OnlineStatus = models.OnlineMeetingStatusNotStarted

	meetingRepo.On("ActiveOnlineMeetings", mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	roomService.On("GetRoom", mock.Anything, "meeting-room-1").
		Return(nil, domain.NewNotFoundError("room not found"))
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(1)).Return(nil)
	publisher.On("PublishMeetingEvent", mock.Anything, mock.MatchedBy(func(e models.MeetingEvent) bool {
		return e.Type == models.MeetingEventCancelled
	})).Return(nil)

	w.cycle(context.Background())

	assert.Equal(t, models.MeetingStatusCancelled, meeting.Status)
	publisher.AssertExpectations(t)
}

func TestRoomReconcilerIgnoresProviderErrors(t *testing.T) {
	w, meetingRepo, roomService, _ := newTestRoomReconciler()
	meeting := activeOnlineMeeting()

	meetingRepo.On("ActiveOnlineMeetings", mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)
	roomService.On("GetRoom", mock.Anything, "meeting-room-1").
		Return(nil, errors.New("provider timeout"))

	w.cycle(context.Background())

	// A transient provider failure must not close the meeting.
	assert.Equal(t, models.MeetingStatusInProgress, meeting.Status)
	meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoomReconcilerSkipsMeetingsWithoutRoomName(t *testing.T) {
	w, meetingRepo, roomService, _ := newTestRoomReconciler()
	meeting := activeOnlineMeeting()
	meeting.RoomName = ""

	meetingRepo.On("ActiveOnlineMeetings", mock.Anything, 100).
		Return([]*models.Meeting{meeting}, nil)

	w.cycle(context.Background())

	roomService.AssertNotCalled(t, "GetRoom", mock.Anything, mock.Anything)
}

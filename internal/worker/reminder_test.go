// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agilemeets/meeting-service/internal/domain/mocks"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

func newTestReminderWorker() (*ReminderWorker, *mocks.MockMeetingRepository, *mocks.MockMessagePublisher) {
	meetingRepo := &mocks.MockMeetingRepository{}
	publisher := &mocks.MockMessagePublisher{}
	w := NewReminderWorker(meetingRepo, publisher, ReminderConfig{})
	return w, meetingRepo, publisher
}

func TestReminderDefaults(t *testing.T) {
	w, _, _ := newTestReminderWorker()
	assert.Equal(t, 5*time.Minute, w.config.Interval)
	assert.Equal(t, time.Hour, w.config.Window)
	assert.Equal(t, 50, w.config.BatchSize)
}

func TestReminderSendsToMembersWithEmail(t *testing.T) {
	w, meetingRepo, publisher := newTestReminderWorker()

	now := time.Now().UTC()
	start := now.Add(45 * time.Minute)
	reminderAt := now.Add(30 * time.Minute)
	meeting := &models.Meeting{
		UID:          "meeting-1",
		Title:        "Roadmap Review",
		Goal:         "align on Q4",
		Status:       models.MeetingStatusScheduled,
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Timezone:     "UTC",
		Location:     "HQ 2.01",
		ReminderTime: &reminderAt,
		Members: []models.MeetingMember{
			{MemberUID: "member-1", Email: "a@example.com"},
			{MemberUID: "member-2"}, // no email, no notification
			{MemberUID: "member-3", Email: "c@example.com"},
		},
	}

	meetingRepo.On("MeetingsNeedingReminders", mock.Anything, mock.Anything, time.Hour, 50).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(2), nil)

	var recipients []string
	publisher.On("PublishNotification", mock.Anything, mock.MatchedBy(func(msg models.NotificationMessage) bool {
		return msg.Channel == models.NotificationChannelEmail &&
			strings.Contains(msg.Subject, "Roadmap Review") &&
			strings.Contains(msg.Body, "HQ 2.01")
	})).Run(func(args mock.Arguments) {
		recipients = append(recipients, args.Get(1).(models.NotificationMessage).Recipient)
	}).Return(nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(2)).Return(nil)

	w.cycle(context.Background())

	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, recipients)
	assert.True(t, meeting.ReminderSent)
	meetingRepo.AssertExpectations(t)
}

func TestReminderSkipsAlreadySent(t *testing.T) {
	w, meetingRepo, publisher := newTestReminderWorker()

	meeting := &models.Meeting{
		UID:          "meeting-1",
		Status:       models.MeetingStatusScheduled,
		ReminderSent: true,
	}
	meetingRepo.On("MeetingsNeedingReminders", mock.Anything, mock.Anything, time.Hour, 50).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)

	w.cycle(context.Background())

	publisher.AssertNotCalled(t, "PublishNotification", mock.Anything, mock.Anything)
	meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReminderSkipsCancelledMeeting(t *testing.T) {
	w, meetingRepo, publisher := newTestReminderWorker()

	meeting := &models.Meeting{
		UID:    "meeting-1",
		Status: models.MeetingStatusCancelled,
	}
	meetingRepo.On("MeetingsNeedingReminders", mock.Anything, mock.Anything, time.Hour, 50).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)

	w.cycle(context.Background())

	publisher.AssertNotCalled(t, "PublishNotification", mock.Anything, mock.Anything)
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
)

// MeetingService carries the direct lifecycle commands: create, start,
// complete, cancel. State-conflict and validation errors surface to the
// caller; the background schedulers use the same model guards but absorb
// their failures per item.
type MeetingService struct {
	meetingRepo domain.MeetingRepository
	recurrence  *RecurrenceService
	publisher   domain.MessagePublisher
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(
	meetingRepo domain.MeetingRepository,
	recurrence *RecurrenceService,
	publisher domain.MessagePublisher,
) *MeetingService {
	return &MeetingService{
		meetingRepo: meetingRepo,
		recurrence:  recurrence,
		publisher:   publisher,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetingService) ServiceReady() bool {
	return s.meetingRepo != nil && s.recurrence != nil && s.publisher != nil
}

// GetMeeting fetches one meeting by UID.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("meeting service not initialized")
	}

	return s.meetingRepo.Get(ctx, meetingUID)
}

// ListMeetings fetches all meetings.
func (s *MeetingService) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("meeting service not initialized")
	}

	return s.meetingRepo.ListAll(ctx)
}

func (s *MeetingService) validateCreateMeetingPayload(ctx context.Context, meeting *models.Meeting) error {
	if meeting == nil {
		return domain.NewValidationError("meeting payload is required")
	}

	if meeting.Title == "" {
		return domain.NewValidationError("meeting title is required")
	}

	if !meeting.EndTime.After(meeting.StartTime) {
		slog.WarnContext(ctx, "end time must be after start time",
			"start_time", meeting.StartTime,
			"end_time", meeting.EndTime,
		)
		return domain.NewValidationError("end time must be after start time")
	}

	if meeting.RequiresMembers() && len(meeting.Members) == 0 {
		return domain.NewValidationError("online meetings require at least one member")
	}

	if meeting.Recurrence != nil {
		if err := s.recurrence.ValidatePattern(ctx, meeting.Recurrence, meeting.StartTime); err != nil {
			return err
		}
	}

	return nil
}

// CreateMeeting validates and persists a new meeting. Series anchors get
// their pattern stamped with fresh identities; online meetings get a
// deterministic room name derived from the meeting UID.
func (s *MeetingService) CreateMeeting(ctx context.Context, meeting *models.Meeting) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("meeting service not initialized")
	}

	if err := s.validateCreateMeetingPayload(ctx, meeting); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meeting.UID = uuid.NewString()
	meeting.Status = models.MeetingStatusScheduled
	meeting.AIStatus = models.AIProcessingStatusNotStarted
	meeting.CreatedAt = &now
	meeting.UpdatedAt = &now

	if meeting.ReminderTime == nil {
		reminder := meeting.StartTime.Add(-defaultReminderLead)
		meeting.ReminderTime = &reminder
	}

	if meeting.Type == models.MeetingTypeOnline {
		meeting.RoomName = meeting.GenerateRoomName()
	}

	if meeting.Recurrence != nil {
		meeting.Recurrence.UID = uuid.NewString()
		meeting.Recurrence.MeetingUID = meeting.UID
	}

	// Audio-only records of past meetings arrive already completed with
	// their recording attached.
	if meeting.Type == models.MeetingTypeDone {
		meeting.Status = models.MeetingStatusCompleted
		meeting.ActualEndTime = &meeting.EndTime
		if meeting.AudioURL != "" {
			meeting.AudioStatus = models.AudioStatusAvailable
			meeting.AudioSource = models.AudioSourceUpload
			meeting.AudioUploadedAt = &now
		}
	}

	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		slog.ErrorContext(ctx, "failed to create meeting", logging.ErrKey, err)
		return nil, err
	}

	s.publishEvent(ctx, models.MeetingEventCreated, meeting)
	slog.DebugContext(ctx, "created meeting", meeting.Tags()...)

	return meeting, nil
}

// StartMeeting transitions a scheduled meeting to in-progress.
func (s *MeetingService) StartMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingUID, models.MeetingEventUpdated, func(m *models.Meeting) error {
		return m.Start()
	})
}

// CompleteMeeting transitions an in-progress meeting to completed.
func (s *MeetingService) CompleteMeeting(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	return s.transition(ctx, meetingUID, models.MeetingEventCompleted, func(m *models.Meeting) error {
		return m.Complete()
	})
}

// UploadAudio attaches an uploaded recording to a meeting and, when the
// meeting has already completed, marks the audio available for the AI
// processing sweep to pick up.
func (s *MeetingService) UploadAudio(ctx context.Context, meetingUID string, audioURL string) (*models.Meeting, error) {
	return s.transition(ctx, meetingUID, models.MeetingEventUpdated, func(m *models.Meeting) error {
		if !m.CanUploadAudio() {
			return domain.NewConflictError("meeting does not accept audio uploads in its current state")
		}

		now := time.Now().UTC()
		m.AudioURL = audioURL
		m.AudioSource = models.AudioSourceUpload
		m.AudioUploadedAt = &now
		if m.Status == models.MeetingStatusCompleted {
			m.AudioStatus = models.AudioStatusAvailable
		} else {
			m.AudioStatus = models.AudioStatusPending
		}
		return nil
	})
}

// CancelMeeting cancels a meeting. When the meeting anchors a recurring
// series and cancelSeries is set, the pattern is cancelled and every
// future generated instance is cancelled with it; per-instance failures
// are logged and the rest proceed.
func (s *MeetingService) CancelMeeting(ctx context.Context, meetingUID string, cancelSeries bool) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewUnavailableError("meeting service not initialized")
	}

	meeting, revision, err := s.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}

	if meeting.IsTerminal() {
		return domain.NewConflictError("meeting is already " + string(meeting.Status))
	}

	meeting.ForceCancel()
	if cancelSeries && meeting.Recurrence != nil {
		meeting.Recurrence.Cancelled = true
	}
	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if err := s.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}
	s.publishEvent(ctx, models.MeetingEventCancelled, meeting)

	if cancelSeries && meeting.Recurrence != nil {
		s.cancelFutureInstances(ctx, meeting)
	}

	return nil
}

// cancelFutureInstances cancels every not-yet-started instance of the
// given anchor's series.
func (s *MeetingService) cancelFutureInstances(ctx context.Context, anchor *models.Meeting) {
	instances, err := s.meetingRepo.FutureInstances(ctx, anchor.UID, time.Now().UTC())
	if err != nil {
		slog.ErrorContext(ctx, "failed to list future instances for series cancellation",
			logging.ErrKey, err,
			"anchor_uid", anchor.UID,
		)
		return
	}

	for _, instance := range instances {
		if _, err := s.transition(ctx, instance.UID, models.MeetingEventCancelled, func(m *models.Meeting) error {
			if m.IsTerminal() {
				return nil
			}
			m.ForceCancel()
			return nil
		}); err != nil {
			slog.ErrorContext(ctx, "failed to cancel series instance",
				logging.ErrKey, err,
				"meeting_uid", instance.UID,
				"anchor_uid", anchor.UID,
			)
		}
	}
}

// transition applies a guarded mutation under the stored revision and
// publishes the resulting lifecycle event.
func (s *MeetingService) transition(ctx context.Context, meetingUID string, eventType models.MeetingEventType, mutate func(*models.Meeting) error) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("meeting service not initialized")
	}

	meeting, revision, err := s.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	if err := mutate(meeting); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if err := s.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, eventType, meeting)
	return meeting, nil
}

// publishEvent announces a lifecycle change. Delivery is fire-and-forget:
// failures are logged, never surfaced.
func (s *MeetingService) publishEvent(ctx context.Context, eventType models.MeetingEventType, meeting *models.Meeting) {
	event := models.NewMeetingEvent(eventType, meeting)
	if err := s.publisher.PublishMeetingEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish meeting event",
			logging.ErrKey, err,
			"event_type", string(eventType),
			"meeting_uid", meeting.UID,
		)
	}
}

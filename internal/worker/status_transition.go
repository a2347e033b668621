// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
)

// StatusTransitionConfig configures the status sweep worker.
type StatusTransitionConfig struct {
	Interval  time.Duration
	BatchSize int
}

func (c StatusTransitionConfig) withDefaults() StatusTransitionConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// StatusTransitionWorker runs two independent sweeps per cycle: complete
// in-progress meetings past their end time, and cancel scheduled meetings
// nobody started within one sweep period of their start time. Each item is
// re-read and written under its stored revision; a concurrent writer
// surfaces as a conflict the next cycle retries naturally.
type StatusTransitionWorker struct {
	meetingRepo domain.MeetingRepository
	publisher   domain.MessagePublisher
	config      StatusTransitionConfig
}

// NewStatusTransitionWorker creates a new StatusTransitionWorker.
func NewStatusTransitionWorker(
	meetingRepo domain.MeetingRepository,
	publisher domain.MessagePublisher,
	config StatusTransitionConfig,
) *StatusTransitionWorker {
	return &StatusTransitionWorker{
		meetingRepo: meetingRepo,
		publisher:   publisher,
		config:      config.withDefaults(),
	}
}

// Name implements Worker.
func (w *StatusTransitionWorker) Name() string { return "status-transition" }

// Run implements Worker.
func (w *StatusTransitionWorker) Run(ctx context.Context) {
	runPeriodic(ctx, w.Name(), func(ctx context.Context) time.Duration {
		w.completeOverdue(ctx)
		w.cancelNeverStarted(ctx)
		return w.config.Interval
	})
}

// completeOverdue finishes in-progress meetings whose end time has passed.
func (w *StatusTransitionWorker) completeOverdue(ctx context.Context) {
	now := time.Now().UTC()

	meetings, err := w.meetingRepo.MeetingsToComplete(ctx, now, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings to complete", logging.ErrKey, err)
		return
	}

	for _, meeting := range meetings {
		if ctx.Err() != nil {
			return
		}
		if err := w.applyTransition(ctx, meeting.UID, models.MeetingEventCompleted, func(m *models.Meeting) error {
			return m.Complete()
		}); err != nil {
			slog.ErrorContext(ctx, "failed to complete overdue meeting",
				logging.ErrKey, err,
				"meeting_uid", meeting.UID,
			)
		}
	}

	if len(meetings) > 0 {
		slog.InfoContext(ctx, "completed overdue meetings", "count", len(meetings))
	}
}

// cancelNeverStarted cancels scheduled meetings whose start time passed
// more than one sweep period ago, bypassing the start/complete guards
// since nobody ever started them.
func (w *StatusTransitionWorker) cancelNeverStarted(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.config.Interval)

	meetings, err := w.meetingRepo.PastScheduledMeetings(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list never-started meetings", logging.ErrKey, err)
		return
	}

	for _, meeting := range meetings {
		if ctx.Err() != nil {
			return
		}
		if err := w.applyTransition(ctx, meeting.UID, models.MeetingEventCancelled, func(m *models.Meeting) error {
			if m.Status != models.MeetingStatusScheduled {
				return nil
			}
			m.ForceCancel()
			return nil
		}); err != nil {
			slog.ErrorContext(ctx, "failed to cancel never-started meeting",
				logging.ErrKey, err,
				"meeting_uid", meeting.UID,
			)
		}
	}

	if len(meetings) > 0 {
		slog.InfoContext(ctx, "cancelled never-started meetings", "count", len(meetings))
	}
}

// applyTransition re-reads the meeting under its revision, applies the
// mutation, persists, and publishes the lifecycle event.
func (w *StatusTransitionWorker) applyTransition(ctx context.Context, meetingUID string, eventType models.MeetingEventType, mutate func(*models.Meeting) error) error {
	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}

	before := meeting.Status
	if err := mutate(meeting); err != nil {
		return err
	}
	if meeting.Status == before {
		return nil
	}

	now := time.Now().UTC()
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}

	if err := w.publisher.PublishMeetingEvent(ctx, models.NewMeetingEvent(eventType, meeting)); err != nil {
		slog.ErrorContext(ctx, "failed to publish meeting event",
			logging.ErrKey, err,
			"meeting_uid", meeting.UID,
			"event_type", string(eventType),
		)
	}
	return nil
}

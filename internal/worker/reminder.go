// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
)

// ReminderConfig configures the reminder worker.
type ReminderConfig struct {
	Interval  time.Duration
	Window    time.Duration
	BatchSize int
}

func (c ReminderConfig) withDefaults() ReminderConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// ReminderWorker publishes reminder notifications for meetings whose
// reminder time falls inside the upcoming window. Delivery is
// fire-and-forget per member; the meeting is marked sent once its members
// have been notified so the next sweep skips it.
type ReminderWorker struct {
	meetingRepo domain.MeetingRepository
	publisher   domain.MessagePublisher
	config      ReminderConfig
}

// NewReminderWorker creates a new ReminderWorker.
func NewReminderWorker(
	meetingRepo domain.MeetingRepository,
	publisher domain.MessagePublisher,
	config ReminderConfig,
) *ReminderWorker {
	return &ReminderWorker{
		meetingRepo: meetingRepo,
		publisher:   publisher,
		config:      config.withDefaults(),
	}
}

// Name implements Worker.
func (w *ReminderWorker) Name() string { return "meeting-reminder" }

// Run implements Worker.
func (w *ReminderWorker) Run(ctx context.Context) {
	runPeriodic(ctx, w.Name(), func(ctx context.Context) time.Duration {
		w.cycle(ctx)
		return w.config.Interval
	})
}

func (w *ReminderWorker) cycle(ctx context.Context) {
	now := time.Now().UTC()

	meetings, err := w.meetingRepo.MeetingsNeedingReminders(ctx, now, w.config.Window, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings needing reminders", logging.ErrKey, err)
		return
	}

	sent := 0
	for _, meeting := range meetings {
		if ctx.Err() != nil {
			return
		}
		if err := w.remindOne(ctx, meeting.UID, now); err != nil {
			slog.ErrorContext(ctx, "failed to send meeting reminders",
				logging.ErrKey, err,
				"meeting_uid", meeting.UID,
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		slog.InfoContext(ctx, "sent meeting reminders", "count", sent)
	}
}

func (w *ReminderWorker) remindOne(ctx context.Context, meetingUID string, now time.Time) error {
	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.ReminderSent || meeting.Status != models.MeetingStatusScheduled {
		return nil
	}

	for _, member := range meeting.Members {
		if member.Email == "" {
			continue
		}
		msg := models.NotificationMessage{
			Channel:   models.NotificationChannelEmail,
			Recipient: member.Email,
			Subject:   fmt.Sprintf("Reminder: %s", meeting.Title),
			Body:      reminderBody(meeting, now),
		}
		if err := w.publisher.PublishNotification(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to publish reminder notification",
				logging.ErrKey, err,
				"meeting_uid", meetingUID,
				"recipient", member.Email,
			)
		}
	}

	meeting.ReminderSent = true
	meeting.UpdatedAt = &now
	return w.meetingRepo.Update(ctx, meeting, revision)
}

// reminderBody renders the meeting start in its display timezone. An
// unknown timezone falls back to UTC rather than failing the reminder.
func reminderBody(meeting *models.Meeting, now time.Time) string {
	loc, err := time.LoadLocation(meeting.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localStart := meeting.StartTime.In(loc)

	where := meeting.Location
	if where == "" {
		where = meeting.MeetingURL
	}

	minutes := int(meeting.StartTime.Sub(now).Minutes())
	return fmt.Sprintf("Your meeting %q starts in %d minutes.\nTime: %s (%s)\nLocation: %s\nGoal: %s",
		meeting.Title, minutes, localStart.Format(time.RFC1123), meeting.Timezone, where, meeting.Goal)
}

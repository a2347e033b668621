// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// MeetingRepository defines the storage operations for meetings.
// This interface can be implemented by different storage backends
// (NATS KV, PostgreSQL, etc.). All batched sweep queries accept the
// caller's context for cancellation and a limit that caps per-cycle load;
// backlogs drain incrementally across cycles.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	Get(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	// Update persists the meeting if and only if the stored revision still
	// matches; a concurrent writer surfaces as a conflict error.
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error
	Delete(ctx context.Context, meetingUID string, revision uint64) error
	Exists(ctx context.Context, meetingUID string) (bool, error)
	ListAll(ctx context.Context) ([]*models.Meeting, error)

	// MeetingsToComplete returns in-progress meetings whose end time has
	// passed before the given instant.
	MeetingsToComplete(ctx context.Context, before time.Time, limit int) ([]*models.Meeting, error)
	// PastScheduledMeetings returns meetings still scheduled whose start
	// time passed before the given instant, i.e. nobody started them.
	PastScheduledMeetings(ctx context.Context, before time.Time, limit int) ([]*models.Meeting, error)
	// MeetingsAwaitingAIProcessing returns meetings eligible for a first
	// transcription submission.
	MeetingsAwaitingAIProcessing(ctx context.Context, limit int) ([]*models.Meeting, error)
	// MeetingsWithActiveAIProcessing returns meetings on queue or processing.
	MeetingsWithActiveAIProcessing(ctx context.Context, limit int) ([]*models.Meeting, error)
	// ActiveOnlineMeetings returns online meetings with a live room.
	ActiveOnlineMeetings(ctx context.Context, limit int) ([]*models.Meeting, error)
	// MeetingsNeedingReminders returns scheduled meetings with an unsent
	// reminder due by now+window. Overdue reminders stay eligible until
	// the meeting starts.
	MeetingsNeedingReminders(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*models.Meeting, error)

	// ActivePatternAnchors returns series anchors whose pattern is not
	// cancelled and whose recurrence window is still open as of the
	// given time.
	ActivePatternAnchors(ctx context.Context, asOf time.Time) ([]*models.Meeting, error)
	// FutureInstances returns non-cancelled generated instances of the
	// given anchor starting after the given time.
	FutureInstances(ctx context.Context, anchorUID string, after time.Time) ([]*models.Meeting, error)
}

// RecurrenceExceptionRepository stores dates excluded from materialization.
type RecurrenceExceptionRepository interface {
	Add(ctx context.Context, exception *models.RecurrenceException) error
	// Exists reports whether an exception is recorded for the pattern on
	// the calendar day containing the given date.
	Exists(ctx context.Context, patternUID string, date time.Time) (bool, error)
	ListByPattern(ctx context.Context, patternUID string) ([]*models.RecurrenceException, error)
}

// AIJobRepository persists in-flight transcription job state so the AI
// scheduler is stateless and recoverable from the store alone.
type AIJobRepository interface {
	Put(ctx context.Context, job *models.AIJob) error
	Get(ctx context.Context, meetingUID string) (*models.AIJob, error)
	List(ctx context.Context) ([]*models.AIJob, error)
	Delete(ctx context.Context, meetingUID string) error
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// NatsMeetingRepository is the NATS KV implementation of
// domain.MeetingRepository. Keys are the meeting UIDs. The sweep queries
// scan the bucket and filter in memory; batch limits cap what one cycle
// takes on, not what the bucket holds.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
}

// NewNatsMeetingRepository creates a new NatsMeetingRepository.
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting", JSONCodec()),
	}
}

// Create stores a new meeting keyed by its UID.
func (r *NatsMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	return r.NatsBaseRepository.Create(ctx, meeting.UID, meeting)
}

// Update persists the meeting under its stored revision.
func (r *NatsMeetingRepository) Update(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	return r.NatsBaseRepository.Update(ctx, meeting.UID, meeting, revision)
}

// ListAll returns every meeting in the bucket.
func (r *NatsMeetingRepository) ListAll(ctx context.Context) ([]*models.Meeting, error) {
	return r.ListEntities(ctx, "")
}

// listWhere returns up to limit meetings matching the predicate. A
// non-positive limit returns all matches.
func (r *NatsMeetingRepository) listWhere(ctx context.Context, limit int, match func(*models.Meeting) bool) ([]*models.Meeting, error) {
	all, err := r.ListEntities(ctx, "")
	if err != nil {
		return nil, err
	}

	var matched []*models.Meeting
	for _, meeting := range all {
		if !match(meeting) {
			continue
		}
		matched = append(matched, meeting)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// MeetingsToComplete returns in-progress meetings whose end time passed
// before the given instant.
func (r *NatsMeetingRepository) MeetingsToComplete(ctx context.Context, before time.Time, limit int) ([]*models.Meeting, error) {
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.Status == models.MeetingStatusInProgress && m.EndTime.Before(before)
	})
}

// PastScheduledMeetings returns meetings still scheduled whose start time
// passed before the given instant.
func (r *NatsMeetingRepository) PastScheduledMeetings(ctx context.Context, before time.Time, limit int) ([]*models.Meeting, error) {
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.Status == models.MeetingStatusScheduled && m.StartTime.Before(before)
	})
}

// MeetingsAwaitingAIProcessing returns meetings eligible for a first
// transcription submission.
func (r *NatsMeetingRepository) MeetingsAwaitingAIProcessing(ctx context.Context, limit int) ([]*models.Meeting, error) {
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.CanProcessAudio()
	})
}

// MeetingsWithActiveAIProcessing returns meetings on queue or processing.
func (r *NatsMeetingRepository) MeetingsWithActiveAIProcessing(ctx context.Context, limit int) ([]*models.Meeting, error) {
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.AIStatus == models.AIProcessingStatusOnQueue ||
			m.AIStatus == models.AIProcessingStatusProcessing
	})
}

// ActiveOnlineMeetings returns online meetings with a live room.
func (r *NatsMeetingRepository) ActiveOnlineMeetings(ctx context.Context, limit int) ([]*models.Meeting, error) {
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.IsOnlineActive()
	})
}

// MeetingsNeedingReminders returns scheduled meetings with an unsent
// reminder due by now+window. A reminder time already in the past still
// qualifies as long as the meeting has not started, so a sweep gap never
// drops a reminder silently.
func (r *NatsMeetingRepository) MeetingsNeedingReminders(ctx context.Context, now time.Time, window time.Duration, limit int) ([]*models.Meeting, error) {
	horizon := now.Add(window)
	return r.listWhere(ctx, limit, func(m *models.Meeting) bool {
		return m.Status == models.MeetingStatusScheduled &&
			!m.ReminderSent &&
			m.StartTime.After(now) &&
			m.ReminderTime != nil &&
			!m.ReminderTime.After(horizon)
	})
}

// ActivePatternAnchors returns series anchors whose pattern still produces
// instances as of the given time.
func (r *NatsMeetingRepository) ActivePatternAnchors(ctx context.Context, asOf time.Time) ([]*models.Meeting, error) {
	return r.listWhere(ctx, 0, func(m *models.Meeting) bool {
		return m.Recurrence != nil && m.Recurrence.Active(asOf)
	})
}

// FutureInstances returns non-cancelled generated instances of the given
// anchor starting after the given time.
func (r *NatsMeetingRepository) FutureInstances(ctx context.Context, anchorUID string, after time.Time) ([]*models.Meeting, error) {
	return r.listWhere(ctx, 0, func(m *models.Meeting) bool {
		return m.OriginalMeetingUID == anchorUID &&
			m.Status != models.MeetingStatusCancelled &&
			m.StartTime.After(after)
	})
}

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
	"github.com/agilemeets/meeting-service/internal/service"
)

// RecurrenceGeneratorConfig configures the generator worker.
type RecurrenceGeneratorConfig struct {
	// Interval is the cycle period.
	Interval time.Duration
	// HorizonMonths is how far ahead instances are materialized.
	HorizonMonths int
}

func (c RecurrenceGeneratorConfig) withDefaults() RecurrenceGeneratorConfig {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.HorizonMonths <= 0 {
		c.HorizonMonths = 1
	}
	return c
}

// RecurrenceGenerator keeps a rolling window of future instances
// materialized for every active series. A failure on one pattern is
// logged and does not abort the cycle for the others.
type RecurrenceGenerator struct {
	meetingRepo domain.MeetingRepository
	recurrence  *service.RecurrenceService
	publisher   domain.MessagePublisher
	config      RecurrenceGeneratorConfig
}

// NewRecurrenceGenerator creates a new RecurrenceGenerator.
func NewRecurrenceGenerator(
	meetingRepo domain.MeetingRepository,
	recurrence *service.RecurrenceService,
	publisher domain.MessagePublisher,
	config RecurrenceGeneratorConfig,
) *RecurrenceGenerator {
	return &RecurrenceGenerator{
		meetingRepo: meetingRepo,
		recurrence:  recurrence,
		publisher:   publisher,
		config:      config.withDefaults(),
	}
}

// Name implements Worker.
func (w *RecurrenceGenerator) Name() string { return "recurrence-generator" }

// Run implements Worker.
func (w *RecurrenceGenerator) Run(ctx context.Context) {
	runPeriodic(ctx, w.Name(), func(ctx context.Context) time.Duration {
		w.cycle(ctx)
		return w.config.Interval
	})
}

func (w *RecurrenceGenerator) cycle(ctx context.Context) {
	now := time.Now().UTC()

	anchors, err := w.meetingRepo.ActivePatternAnchors(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list active pattern anchors", logging.ErrKey, err)
		return
	}

	for _, anchor := range anchors {
		if ctx.Err() != nil {
			return
		}
		if err := w.topUpSeries(ctx, anchor, now); err != nil {
			slog.ErrorContext(ctx, "failed to generate instances for series",
				logging.ErrKey, err,
				"anchor_uid", anchor.UID,
				"pattern_uid", anchor.Recurrence.UID,
			)
		}
	}
}

// topUpSeries creates instances for one anchor until the configured cap of
// future instances exists again, then stamps LastGeneratedDate.
func (w *RecurrenceGenerator) topUpSeries(ctx context.Context, anchor *models.Meeting, now time.Time) error {
	existing, err := w.meetingRepo.FutureInstances(ctx, anchor.UID, now)
	if err != nil {
		return err
	}
	if len(existing) >= models.MaxFutureInstances {
		return nil
	}

	until := now.AddDate(0, w.config.HorizonMonths, 0)
	candidates, err := w.recurrence.GenerateInstances(ctx, anchor, now, until)
	if err != nil {
		return err
	}

	// Candidates land strictly inside (now, until]; slots that already
	// exist are filtered here. Keys are Unix seconds so the comparison is
	// location-independent.
	taken := make(map[int64]struct{}, len(existing))
	for _, instance := range existing {
		taken[instance.StartTime.Unix()] = struct{}{}
	}

	var createdUIDs []string
	for _, candidate := range candidates {
		if _, ok := taken[candidate.StartTime.Unix()]; ok {
			continue
		}
		if len(existing)+len(createdUIDs) >= models.MaxFutureInstances {
			break
		}

		if err := w.meetingRepo.Create(ctx, candidate); err != nil {
			return err
		}
		createdUIDs = append(createdUIDs, candidate.UID)
	}

	if len(createdUIDs) == 0 {
		return nil
	}

	if err := w.stampLastGenerated(ctx, anchor.UID, now); err != nil {
		slog.WarnContext(ctx, "failed to stamp last generated date",
			logging.ErrKey, err,
			"anchor_uid", anchor.UID,
		)
	}

	event := models.NewMeetingEvent(models.MeetingEventInstancesGenerated, anchor)
	event.InstanceUIDs = createdUIDs
	if err := w.publisher.PublishMeetingEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish instances-generated event",
			logging.ErrKey, err,
			"anchor_uid", anchor.UID,
		)
	}

	slog.DebugContext(ctx, "generated series instances",
		"anchor_uid", anchor.UID,
		"count", len(createdUIDs),
	)
	return nil
}

func (w *RecurrenceGenerator) stampLastGenerated(ctx context.Context, anchorUID string, generatedAt time.Time) error {
	anchor, revision, err := w.meetingRepo.GetWithRevision(ctx, anchorUID)
	if err != nil {
		return err
	}
	if anchor.Recurrence == nil {
		return nil
	}

	anchor.Recurrence.LastGeneratedDate = &generatedAt
	anchor.UpdatedAt = &generatedAt
	return w.meetingRepo.Update(ctx, anchor, revision)
}

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
	"github.com/agilemeets/meeting-service/pkg/concurrent"
)

// RoomReconcilerConfig configures the room reconciliation worker.
type RoomReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
	// Throttle caps concurrent calls to the room provider.
	Throttle int
}

func (c RoomReconcilerConfig) withDefaults() RoomReconcilerConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Throttle <= 0 {
		c.Throttle = 5
	}
	return c
}

// RoomReconciler aligns local meeting state with the room provider's live
// state. A room that disappeared means the meeting ended outside our
// control: in-progress meetings complete, meetings that never started are
// cancelled. Per-item failures are isolated.
type RoomReconciler struct {
	meetingRepo domain.MeetingRepository
	roomService domain.RoomService
	publisher   domain.MessagePublisher
	pool        *concurrent.WorkerPool
	config      RoomReconcilerConfig
}

// NewRoomReconciler creates a new RoomReconciler.
func NewRoomReconciler(
	meetingRepo domain.MeetingRepository,
	roomService domain.RoomService,
	publisher domain.MessagePublisher,
	config RoomReconcilerConfig,
) *RoomReconciler {
	config = config.withDefaults()
	return &RoomReconciler{
		meetingRepo: meetingRepo,
		roomService: roomService,
		publisher:   publisher,
		pool:        concurrent.NewWorkerPool(config.Throttle),
		config:      config,
	}
}

// Name implements Worker.
func (w *RoomReconciler) Name() string { return "room-reconciler" }

// Run implements Worker.
func (w *RoomReconciler) Run(ctx context.Context) {
	runPeriodic(ctx, w.Name(), func(ctx context.Context) time.Duration {
		w.cycle(ctx)
		return w.config.Interval
	})
}

func (w *RoomReconciler) cycle(ctx context.Context) {
	meetings, err := w.meetingRepo.ActiveOnlineMeetings(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list active online meetings", logging.ErrKey, err)
		return
	}

	functions := make([]func() error, 0, len(meetings))
	for _, meeting := range meetings {
		if meeting.RoomName == "" {
			continue
		}
		meetingUID, roomName := meeting.UID, meeting.RoomName
		functions = append(functions, func() error {
			if err := w.reconcileOne(ctx, meetingUID, roomName); err != nil {
				return fmt.Errorf("reconcile %s: %w", meetingUID, err)
			}
			return nil
		})
	}

	for _, err := range w.pool.RunAll(ctx, functions...) {
		slog.ErrorContext(ctx, "room reconciliation failed", logging.ErrKey, err)
	}
}

func (w *RoomReconciler) reconcileOne(ctx context.Context, meetingUID, roomName string) error {
	room, err := w.roomService.GetRoom(ctx, roomName)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return w.roomTerminated(ctx, meetingUID, roomName)
		}
		return err
	}

	slog.DebugContext(ctx, "room still live",
		"meeting_uid", meetingUID,
		"room_name", roomName,
		"participants", room.NumParticipants,
	)
	return nil
}

// roomTerminated closes out a meeting whose room no longer exists at the
// provider.
func (w *RoomReconciler) roomTerminated(ctx context.Context, meetingUID, roomName string) error {
	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.IsTerminal() {
		return nil
	}

	eventType := models.MeetingEventCompleted
	if meeting.Status == models.MeetingStatusInProgress {
		if err := meeting.Complete(); err != nil {
			return err
		}
	} else {
		meeting.ForceCancel()
		eventType = models.MeetingEventCancelled
	}

	now := time.Now().UTC()
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}

	if err := w.publisher.PublishMeetingEvent(ctx, models.NewMeetingEvent(eventType, meeting)); err != nil {
		slog.ErrorContext(ctx, "failed to publish meeting event",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
	}

	slog.InfoContext(ctx, "closed meeting after room termination",
		"meeting_uid", meetingUID,
		"room_name", roomName,
		"status", string(meeting.Status),
	)
	return nil
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
	"github.com/agilemeets/meeting-service/internal/logging"
	"github.com/agilemeets/meeting-service/pkg/concurrent"
)

// AIProcessingConfig configures the transcription worker.
type AIProcessingConfig struct {
	// BusyInterval is the cycle period while jobs are in flight.
	BusyInterval time.Duration
	// IdleInterval is the cycle period when nothing is tracked.
	IdleInterval time.Duration
	// BatchSize caps each phase's fetch per cycle.
	BatchSize int
	// Throttle caps concurrent calls to the AI service.
	Throttle int
	// StaleAfter drops jobs that have been in flight too long.
	StaleAfter time.Duration
	// InitialPollDelay seeds the backoff between status polls.
	InitialPollDelay time.Duration
	// MaxPollDelay caps the backoff.
	MaxPollDelay time.Duration
}

func (c AIProcessingConfig) withDefaults() AIProcessingConfig {
	if c.BusyInterval <= 0 {
		c.BusyInterval = 3 * time.Second
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Throttle <= 0 {
		c.Throttle = 5
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = time.Hour
	}
	if c.InitialPollDelay <= 0 {
		c.InitialPollDelay = 5 * time.Second
	}
	if c.MaxPollDelay <= 0 {
		c.MaxPollDelay = 2 * time.Minute
	}
	return c
}

// NextPollDelay computes the backoff before the given retry: the initial
// delay grown by 1.5 per retry, capped at the maximum. The sequence is
// non-decreasing.
func (c AIProcessingConfig) NextPollDelay(retries int) time.Duration {
	delay := time.Duration(float64(c.InitialPollDelay) * math.Pow(1.5, float64(retries)))
	if delay > c.MaxPollDelay || delay <= 0 {
		return c.MaxPollDelay
	}
	return delay
}

// AIProcessingWorker submits eligible meetings' audio to the external
// transcription service and polls in-flight jobs with exponential backoff.
// Job state (token, retry count, next poll time) lives in its own store
// bucket, so a restart resumes polling instead of resubmitting. Both
// phases run under a shared concurrency throttle; a failure on one meeting
// marks that meeting failed and never aborts the batch.
type AIProcessingWorker struct {
	meetingRepo domain.MeetingRepository
	jobRepo     domain.AIJobRepository
	aiService   domain.AIProcessingService
	pool        *concurrent.WorkerPool
	config      AIProcessingConfig
}

// NewAIProcessingWorker creates a new AIProcessingWorker.
func NewAIProcessingWorker(
	meetingRepo domain.MeetingRepository,
	jobRepo domain.AIJobRepository,
	aiService domain.AIProcessingService,
	config AIProcessingConfig,
) *AIProcessingWorker {
	config = config.withDefaults()
	return &AIProcessingWorker{
		meetingRepo: meetingRepo,
		jobRepo:     jobRepo,
		aiService:   aiService,
		pool:        concurrent.NewWorkerPool(config.Throttle),
		config:      config,
	}
}

// Name implements Worker.
func (w *AIProcessingWorker) Name() string { return "ai-processing" }

// Run implements Worker.
func (w *AIProcessingWorker) Run(ctx context.Context) {
	runPeriodic(ctx, w.Name(), func(ctx context.Context) time.Duration {
		busy := w.cycle(ctx)
		if busy {
			return w.config.BusyInterval
		}
		return w.config.IdleInterval
	})
}

// cycle runs the submission and polling phases and reports whether any
// work remains in flight.
func (w *AIProcessingWorker) cycle(ctx context.Context) bool {
	submitted := w.submitEligible(ctx)
	inFlight := w.pollInFlight(ctx)
	return submitted > 0 || inFlight > 0
}

// submitEligible sends audio of meetings that pass CanProcessAudio to the
// AI service and records a job for each accepted submission.
func (w *AIProcessingWorker) submitEligible(ctx context.Context) int {
	meetings, err := w.meetingRepo.MeetingsAwaitingAIProcessing(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings awaiting AI processing", logging.ErrKey, err)
		return 0
	}
	if len(meetings) == 0 {
		return 0
	}

	functions := make([]func() error, 0, len(meetings))
	for _, meeting := range meetings {
		meetingUID := meeting.UID
		functions = append(functions, func() error {
			if err := w.submitOne(ctx, meetingUID); err != nil {
				w.markFailed(ctx, meetingUID, err)
				return fmt.Errorf("submit %s: %w", meetingUID, err)
			}
			return nil
		})
	}

	for _, err := range w.pool.RunAll(ctx, functions...) {
		slog.ErrorContext(ctx, "AI submission failed", logging.ErrKey, err)
	}
	return len(meetings)
}

func (w *AIProcessingWorker) submitOne(ctx context.Context, meetingUID string) error {
	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if !meeting.CanProcessAudio() {
		// Another scheduler instance got here first.
		return nil
	}

	token, err := w.aiService.SubmitAudio(ctx, meeting.AudioURL, meeting.Language)
	if err != nil {
		return err
	}

	if err := meeting.InitiateAIProcessing(token); err != nil {
		return err
	}
	now := time.Now().UTC()
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}

	job := &models.AIJob{
		MeetingUID: meetingUID,
		Token:      token,
		StartedAt:  now,
		NextPollAt: now.Add(w.config.NextPollDelay(0)),
	}
	if err := w.jobRepo.Put(ctx, job); err != nil {
		return err
	}

	slog.InfoContext(ctx, "submitted audio for AI processing",
		"meeting_uid", meetingUID,
		"token", token,
	)
	return nil
}

// pollInFlight asks the AI service about every due job and returns how
// many meetings are still on queue or processing.
func (w *AIProcessingWorker) pollInFlight(ctx context.Context) int {
	meetings, err := w.meetingRepo.MeetingsWithActiveAIProcessing(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings with active AI processing", logging.ErrKey, err)
		return 0
	}
	if len(meetings) == 0 {
		return 0
	}

	now := time.Now().UTC()
	remaining := len(meetings)

	functions := make([]func() error, 0, len(meetings))
	for _, meeting := range meetings {
		meetingUID := meeting.UID
		functions = append(functions, func() error {
			if err := w.pollOne(ctx, meetingUID, now); err != nil {
				w.markFailed(ctx, meetingUID, err)
				return fmt.Errorf("poll %s: %w", meetingUID, err)
			}
			return nil
		})
	}

	for _, err := range w.pool.RunAll(ctx, functions...) {
		slog.ErrorContext(ctx, "AI status poll failed", logging.ErrKey, err)
	}
	return remaining
}

func (w *AIProcessingWorker) pollOne(ctx context.Context, meetingUID string, now time.Time) error {
	job, err := w.jobRepo.Get(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			// Active AI status with no tracked job means the job record was
			// lost; the meeting cannot be polled and cannot be resubmitted.
			return domain.NewInternalError("no tracked job for meeting in active AI processing")
		}
		return err
	}

	if job.Stale(now, w.config.StaleAfter) {
		return domain.NewInternalError(
			fmt.Sprintf("job in flight longer than %s", w.config.StaleAfter))
	}
	if !job.Due(now) {
		return nil
	}

	done, status, err := w.aiService.GetStatus(ctx, job.Token)
	if err != nil {
		return err
	}

	if !done {
		return w.recordNotDone(ctx, meetingUID, job, status, now)
	}
	return w.finish(ctx, meetingUID, job)
}

// recordNotDone bumps the retry count, pushes the next poll deadline out
// by the backoff, and moves the meeting's AI axis to processing.
func (w *AIProcessingWorker) recordNotDone(ctx context.Context, meetingUID string, job *models.AIJob, status string, now time.Time) error {
	job.RetryCount++
	job.NextPollAt = now.Add(w.config.NextPollDelay(job.RetryCount))
	if err := w.jobRepo.Put(ctx, job); err != nil {
		return err
	}

	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if meeting.AIStatus == models.AIProcessingStatusProcessing {
		return nil
	}
	if err := meeting.UpdateAIProcessingStatus(models.AIProcessingStatusProcessing); err != nil {
		return err
	}
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}

	slog.DebugContext(ctx, "AI processing not done yet",
		"meeting_uid", meetingUID,
		"provider_status", status,
		"retry_count", job.RetryCount,
		"next_poll_at", job.NextPollAt,
	)
	return nil
}

// finish fetches the report, completes the AI axis, attaches the report,
// and drops the job record.
func (w *AIProcessingWorker) finish(ctx context.Context, meetingUID string, job *models.AIJob) error {
	report, err := w.aiService.GetReport(ctx, job.Token)
	if err != nil {
		return err
	}

	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}
	if err := meeting.UpdateAIProcessingStatus(models.AIProcessingStatusCompleted); err != nil {
		return err
	}
	if err := meeting.SetAIReport(report); err != nil {
		return err
	}
	now := time.Now().UTC()
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return err
	}

	if err := w.jobRepo.Delete(ctx, meetingUID); err != nil {
		slog.WarnContext(ctx, "failed to delete finished AI job",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
	}

	slog.InfoContext(ctx, "AI processing completed", "meeting_uid", meetingUID)
	return nil
}

// markFailed flips the meeting's AI axis to failed and drops its job.
// Failures here are logged only; the original error is what surfaces.
func (w *AIProcessingWorker) markFailed(ctx context.Context, meetingUID string, cause error) {
	meeting, revision, err := w.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load meeting to mark AI failure",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
		return
	}

	if err := meeting.UpdateAIProcessingStatus(models.AIProcessingStatusFailed); err != nil {
		slog.WarnContext(ctx, "could not mark AI processing failed",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
		return
	}
	now := time.Now().UTC()
	meeting.UpdatedAt = &now
	if err := w.meetingRepo.Update(ctx, meeting, revision); err != nil {
		slog.ErrorContext(ctx, "failed to persist AI failure",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
		return
	}

	if err := w.jobRepo.Delete(ctx, meetingUID); err != nil &&
		domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.WarnContext(ctx, "failed to delete job for failed meeting",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
		)
	}

	slog.ErrorContext(ctx, "marked meeting AI processing failed",
		logging.ErrKey, cause,
		"meeting_uid", meetingUID,
	)
}

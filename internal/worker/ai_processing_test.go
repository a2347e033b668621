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
	"github.com/stretchr/testify/require"

	"github.com/agilemeets/meeting-service/internal/domain/mocks"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

func newTestAIWorker() (*AIProcessingWorker, *mocks.MockMeetingRepository, *mocks.MockAIJobRepository, *mocks.MockAIProcessingService) {
	meetingRepo := &mocks.MockMeetingRepository{}
	jobRepo := &mocks.MockAIJobRepository{}
	aiService := &mocks.MockAIProcessingService{}
	w := NewAIProcessingWorker(meetingRepo, jobRepo, aiService, AIProcessingConfig{})
	return w, meetingRepo, jobRepo, aiService
}

func TestAIProcessingConfigDefaults(t *testing.T) {
	w, _, _, _ := newTestAIWorker()
	assert.Equal(t, 3*time.Second, w.config.BusyInterval)
	assert.Equal(t, 30*time.Second, w.config.IdleInterval)
	assert.Equal(t, 20, w.config.BatchSize)
	assert.Equal(t, 5, w.config.Throttle)
	assert.Equal(t, time.Hour, w.config.StaleAfter)
}

func TestNextPollDelayNonDecreasingAndCapped(t *testing.T) {
	config := AIProcessingConfig{
		InitialPollDelay: 5 * time.Second,
		MaxPollDelay:     2 * time.Minute,
	}.withDefaults()

	previous := time.Duration(0)
	for retries := 0; retries < 30; retries++ {
		delay := config.NextPollDelay(retries)
		assert.GreaterOrEqual(t, delay, previous, "delay shrank at retry %d", retries)
		assert.LessOrEqual(t, delay, config.MaxPollDelay)
		previous = delay
	}

	assert.Equal(t, 5*time.Second, config.NextPollDelay(0))
	assert.Equal(t, time.Duration(7.5*float64(time.Second)), config.NextPollDelay(1))
	assert.Equal(t, config.MaxPollDelay, config.NextPollDelay(25))
}

func TestAIWorkerSubmitsEligibleMeeting(t *testing.T) {
	w, meetingRepo, jobRepo, aiService := newTestAIWorker()

	meeting := &models.Meeting{
		UID:         "meeting-1",
		Language:    models.LanguageEnglish,
		AudioURL:    "https://cdn.example.com/audio.mp3",
		AudioStatus: models.AudioStatusAvailable,
		AIStatus:    models.AIProcessingStatusNotStarted,
	}

	meetingRepo.On("MeetingsAwaitingAIProcessing", mock.Anything, 20).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(3), nil)
	aiService.On("SubmitAudio", mock.Anything, meeting.AudioURL, models.LanguageEnglish).
		Return("token-abc", nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(3)).Return(nil)
	jobRepo.On("Put", mock.Anything, mock.MatchedBy(func(j *models.AIJob) bool {
		return j.MeetingUID == "meeting-1" && j.Token == "token-abc" &&
			j.RetryCount == 0 && j.NextPollAt.After(j.StartedAt)
	})).Return(nil)

	busy := w.cycle(contextWithIdleMocks(meetingRepo))

	assert.True(t, busy)
	assert.Equal(t, models.AIProcessingStatusOnQueue, meeting.AIStatus)
	assert.Equal(t, "token-abc", meeting.AIProcessingToken)
	assert.False(t, meeting.CanProcessAudio(), "duplicate submission must be impossible")
	jobRepo.AssertExpectations(t)
	aiService.AssertExpectations(t)
}

// contextWithIdleMocks stubs the polling phase to empty so submission
// tests can call the full cycle.
func contextWithIdleMocks(meetingRepo *mocks.MockMeetingRepository) context.Context {
	meetingRepo.On("MeetingsWithActiveAIProcessing", mock.Anything, 20).
		Return([]*models.Meeting{}, nil)
	return context.Background()
}

func TestAIWorkerMarksFailedOnSubmissionError(t *testing.T) {
	w, meetingRepo, jobRepo, aiService := newTestAIWorker()

	meeting := &models.Meeting{
		UID:         "meeting-1",
		AudioURL:    "https://cdn.example.com/audio.mp3",
		AudioStatus: models.AudioStatusAvailable,
		AIStatus:    models.AIProcessingStatusNotStarted,
	}

	meetingRepo.On("MeetingsAwaitingAIProcessing", mock.Anything, 20).
		Return([]*models.Meeting{meeting}, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(1), nil)
	aiService.On("SubmitAudio", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("provider down"))
	meetingRepo.On("Update", mock.Anything, meeting, uint64(1)).Return(nil)
	jobRepo.On("Delete", mock.Anything, "meeting-1").Return(nil)

	w.submitEligible(context.Background())

	assert.Equal(t, models.AIProcessingStatusFailed, meeting.AIStatus)
	meetingRepo.AssertExpectations(t)
}

func TestAIWorkerPollNotDoneBacksOff(t *testing.T) {
	w, meetingRepo, jobRepo, aiService := newTestAIWorker()

	now := time.Now().UTC()
	meeting := &models.Meeting{
		UID:      "meeting-1",
		AIStatus: models.AIProcessingStatusOnQueue,
	}
	job := &models.AIJob{
		MeetingUID: "meeting-1",
		Token:      "token-abc",
		StartedAt:  now.Add(-time.Minute),
		RetryCount: 1,
		NextPollAt: now.Add(-time.Second),
	}

	jobRepo.On("Get", mock.Anything, "meeting-1").Return(job, nil)
	aiService.On("GetStatus", mock.Anything, "token-abc").Return(false, "processing", nil)
	jobRepo.On("Put", mock.Anything, job).Return(nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(2), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(2)).Return(nil)

	err := w.pollOne(context.Background(), "meeting-1", now)
	require.NoError(t, err)

	assert.Equal(t, 2, job.RetryCount)
	assert.Equal(t, now.Add(w.config.NextPollDelay(2)), job.NextPollAt)
	assert.Equal(t, models.AIProcessingStatusProcessing, meeting.AIStatus)
	jobRepo.AssertExpectations(t)
}

func TestAIWorkerPollSkipsJobNotYetDue(t *testing.T) {
	w, meetingRepo, jobRepo, aiService := newTestAIWorker()

	now := time.Now().UTC()
	job := &models.AIJob{
		MeetingUID: "meeting-1",
		Token:      "token-abc",
		StartedAt:  now.Add(-time.Minute),
		NextPollAt: now.Add(30 * time.Second),
	}
	jobRepo.On("Get", mock.Anything, "meeting-1").Return(job, nil)

	err := w.pollOne(context.Background(), "meeting-1", now)
	require.NoError(t, err)

	aiService.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
	meetingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestAIWorkerPollDoneAttachesReport(t *testing.T) {
	w, meetingRepo, jobRepo, aiService := newTestAIWorker()

	now := time.Now().UTC()
	meeting := &models.Meeting{
		UID:      "meeting-1",
		AIStatus: models.AIProcessingStatusProcessing,
	}
	job := &models.AIJob{
		MeetingUID: "meeting-1",
		Token:      "token-abc",
		StartedAt:  now.Add(-time.Minute),
		NextPollAt: now.Add(-time.Second),
	}
	report := &models.AIReport{
		Transcript:   "full transcript",
		Summary:      "short summary",
		KeyPoints:    []string{"decision made"},
		MainLanguage: string(models.LanguageEnglish),
	}

	jobRepo.On("Get", mock.Anything, "meeting-1").Return(job, nil)
	aiService.On("GetStatus", mock.Anything, "token-abc").Return(true, "completed", nil)
	aiService.On("GetReport", mock.Anything, "token-abc").Return(report, nil)
	meetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	meetingRepo.On("Update", mock.Anything, meeting, uint64(4)).Return(nil)
	jobRepo.On("Delete", mock.Anything, "meeting-1").Return(nil)

	err := w.pollOne(context.Background(), "meeting-1", now)
	require.NoError(t, err)

	assert.Equal(t, models.AIProcessingStatusCompleted, meeting.AIStatus)
	assert.Equal(t, report, meeting.AIReport)
	assert.NotNil(t, meeting.AIProcessedAt)
	jobRepo.AssertExpectations(t)
}

func TestAIWorkerStaleJobFails(t *testing.T) {
	w, _, jobRepo, aiService := newTestAIWorker()

	now := time.Now().UTC()
	job := &models.AIJob{
		MeetingUID: "meeting-1",
		Token:      "token-abc",
		StartedAt:  now.Add(-2 * time.Hour),
		NextPollAt: now.Add(-time.Second),
	}
	jobRepo.On("Get", mock.Anything, "meeting-1").Return(job, nil)

	err := w.pollOne(context.Background(), "meeting-1", now)
	require.Error(t, err)
	aiService.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}

func TestAIWorkerIdleCycleReturnsIdleInterval(t *testing.T) {
	w, meetingRepo, _, _ := newTestAIWorker()

	meetingRepo.On("MeetingsAwaitingAIProcessing", mock.Anything, 20).
		Return([]*models.Meeting{}, nil)
	meetingRepo.On("MeetingsWithActiveAIProcessing", mock.Anything, 20).
		Return([]*models.Meeting{}, nil)

	busy := w.cycle(context.Background())
	assert.False(t, busy)
}

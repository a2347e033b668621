// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// MockAIProcessingService implements domain.AIProcessingService for testing
type MockAIProcessingService struct {
	mock.Mock
}

func (m *MockAIProcessingService) SubmitAudio(ctx context.Context, audioURL string, language models.MeetingLanguage) (string, error) {
	args := m.Called(ctx, audioURL, language)
	return args.String(0), args.Error(1)
}

func (m *MockAIProcessingService) GetStatus(ctx context.Context, token string) (bool, string, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *MockAIProcessingService) GetReport(ctx context.Context, token string) (*models.AIReport, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIReport), args.Error(1)
}

// MockRoomService implements domain.RoomService for testing
type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) GetRoom(ctx context.Context, name string) (*models.Room, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

// MockMessagePublisher implements domain.MessagePublisher for testing
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) PublishNotification(ctx context.Context, msg models.NotificationMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessagePublisher) PublishMeetingEvent(ctx context.Context, event models.MeetingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockRecurrenceExceptionRepository implements domain.RecurrenceExceptionRepository for testing
type MockRecurrenceExceptionRepository struct {
	mock.Mock
}

func (m *MockRecurrenceExceptionRepository) Add(ctx context.Context, exception *models.RecurrenceException) error {
	args := m.Called(ctx, exception)
	return args.Error(0)
}

func (m *MockRecurrenceExceptionRepository) Exists(ctx context.Context, patternUID string, date time.Time) (bool, error) {
	args := m.Called(ctx, patternUID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecurrenceExceptionRepository) ListByPattern(ctx context.Context, patternUID string) ([]*models.RecurrenceException, error) {
	args := m.Called(ctx, patternUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecurrenceException), args.Error(1)
}

// MockAIJobRepository implements domain.AIJobRepository for testing
type MockAIJobRepository struct {
	mock.Mock
}

func (m *MockAIJobRepository) Put(ctx context.Context, job *models.AIJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockAIJobRepository) Get(ctx context.Context, meetingUID string) (*models.AIJob, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIJob), args.Error(1)
}

func (m *MockAIJobRepository) List(ctx context.Context) ([]*models.AIJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AIJob), args.Error(1)
}

func (m *MockAIJobRepository) Delete(ctx context.Context, meetingUID string) error {
	args := m.Called(ctx, meetingUID)
	return args.Error(0)
}

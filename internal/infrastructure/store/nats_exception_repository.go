// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// exceptionDateLayout keys exceptions by calendar day: one exclusion per
// pattern per day, regardless of the occurrence's time-of-day.
const exceptionDateLayout = "2006-01-02"

// NatsExceptionRepository is the NATS KV implementation of
// domain.RecurrenceExceptionRepository. Keys are "patternUID/YYYY-MM-DD",
// so existence checks are a single point read and per-pattern listings are
// a prefix scan.
type NatsExceptionRepository struct {
	*NatsBaseRepository[models.RecurrenceException]
}

// NewNatsExceptionRepository creates a new NatsExceptionRepository.
func NewNatsExceptionRepository(kvStore INatsKeyValue) *NatsExceptionRepository {
	return &NatsExceptionRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.RecurrenceException](kvStore, "recurrence exception", JSONCodec()),
	}
}

func exceptionKey(patternUID string, date time.Time) string {
	return patternUID + "/" + date.UTC().Format(exceptionDateLayout)
}

// Add records a date exclusion. Writing the same day twice overwrites the
// previous reason, which is fine: the date stays excluded either way.
func (r *NatsExceptionRepository) Add(ctx context.Context, exception *models.RecurrenceException) error {
	if exception.PatternUID == "" {
		return domain.NewValidationError("exception pattern UID is required")
	}
	return r.Create(ctx, exceptionKey(exception.PatternUID, exception.Date), exception)
}

// Exists reports whether an exception is recorded for the pattern on the
// calendar day containing the given date.
func (r *NatsExceptionRepository) Exists(ctx context.Context, patternUID string, date time.Time) (bool, error) {
	return r.NatsBaseRepository.Exists(ctx, exceptionKey(patternUID, date))
}

// ListByPattern returns every exclusion recorded for the pattern.
func (r *NatsExceptionRepository) ListByPattern(ctx context.Context, patternUID string) ([]*models.RecurrenceException, error) {
	return r.ListEntities(ctx, patternUID+"/")
}

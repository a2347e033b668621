// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// NatsAIJobRepository is the NATS KV implementation of
// domain.AIJobRepository. Keys are the meeting UIDs. Jobs are rewritten on
// every poll, so the bucket uses the compact msgpack codec.
type NatsAIJobRepository struct {
	*NatsBaseRepository[models.AIJob]
}

// NewNatsAIJobRepository creates a new NatsAIJobRepository.
func NewNatsAIJobRepository(kvStore INatsKeyValue) *NatsAIJobRepository {
	return &NatsAIJobRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.AIJob](kvStore, "ai job", MsgpackCodec()),
	}
}

// Put stores or overwrites the job keyed by its meeting UID. Jobs have a
// single writer (the AI worker), so no revision check is needed.
func (r *NatsAIJobRepository) Put(ctx context.Context, job *models.AIJob) error {
	return r.Create(ctx, job.MeetingUID, job)
}

// List returns every tracked job.
func (r *NatsAIJobRepository) List(ctx context.Context) ([]*models.AIJob, error) {
	return r.ListEntities(ctx, "")
}

// Delete drops a job unconditionally.
func (r *NatsAIJobRepository) Delete(ctx context.Context, meetingUID string) error {
	return r.DeleteWithoutRevision(ctx, meetingUID)
}

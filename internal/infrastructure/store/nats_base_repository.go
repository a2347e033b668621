// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package store implements the repositories on NATS JetStream key-value
// buckets with revision-based optimistic concurrency.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/logging"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/agilemeets/meeting-service/internal/infrastructure/store"

// INatsKeyValue is the subset of jetstream.KeyValue the repositories need.
// It allows mocking in tests.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	Update(context.Context, string, []byte, uint64) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}

// NatsBaseRepository provides common NATS KV operations shared by all
// repositories.
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // Used in error messages (e.g., "meeting", "ai job")
	codec      Codec
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations.
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string, codec Codec) *NatsBaseRepository[T] {
	if codec == nil {
		codec = JSONCodec()
	}
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
		codec:      codec,
	}
}

// IsReady checks if the repository is ready for use.
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, operation, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", operation),
		attribute.String("db.nats.entity", r.entityName),
	)
	if key != "" {
		attrs = append(attrs, attribute.String("db.nats.key", key))
	}
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func (r *NatsBaseRepository[T]) notReadyErr(span trace.Span) error {
	err := domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// GetRaw retrieves a raw entry from the NATS KV store.
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer span.End()

	if !r.IsReady() {
		return nil, r.notReadyErr(span)
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			err = domain.NewNotFoundError(
				fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "not found")
			return nil, err
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error getting %s from NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		err = domain.NewInternalError(
			fmt.Sprintf("failed to retrieve %s from store", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// Get retrieves and decodes an entity from the NATS KV store.
func (r *NatsBaseRepository[T]) Get(ctx context.Context, key string) (*T, error) {
	entity, _, err := r.GetWithRevision(ctx, key)
	return entity, err
}

// GetWithRevision retrieves an entity with its revision.
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	entity, err := r.Unmarshal(ctx, entry.Value())
	if err != nil {
		return nil, 0, domain.NewInternalError(
			fmt.Sprintf("failed to unmarshal %s data", r.entityName), err)
	}

	return entity, entry.Revision(), nil
}

// Unmarshal decodes raw bucket bytes into the entity type.
func (r *NatsBaseRepository[T]) Unmarshal(ctx context.Context, data []byte) (*T, error) {
	var entity T
	if err := r.codec.Unmarshal(data, &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName),
			logging.ErrKey, err, "codec", r.codec.Name())
		return nil, err
	}
	return &entity, nil
}

// Marshal encodes an entity with the bucket's codec.
func (r *NatsBaseRepository[T]) Marshal(ctx context.Context, entity *T) ([]byte, error) {
	data, err := r.codec.Marshal(entity)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error marshaling %s", r.entityName),
			logging.ErrKey, err, "codec", r.codec.Name())
		return nil, err
	}
	return data, nil
}

// Exists checks if an entity exists in the store.
func (r *NatsBaseRepository[T]) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.Get(ctx, key)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create stores a new entity using Put.
func (r *NatsBaseRepository[T]) Create(ctx context.Context, key string, entity *T) error {
	ctx, span := r.startSpan(ctx, "put", key)
	defer span.End()

	if !r.IsReady() {
		return r.notReadyErr(span)
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		err = domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := r.kvStore.Put(ctx, key, data); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error creating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		err = domain.NewInternalError(fmt.Sprintf("failed to create %s in store", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Update writes an entity with optimistic concurrency control: the write
// only lands if the stored revision still matches.
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) error {
	ctx, span := r.startSpan(ctx, "update", key,
		attribute.Int64("db.nats.revision", int64(revision)))
	defer span.End()

	if !r.IsReady() {
		return r.notReadyErr(span)
	}

	data, err := r.Marshal(ctx, entity)
	if err != nil {
		err = domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := r.kvStore.Update(ctx, key, data, revision); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			err = domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "not found")
			return err
		}
		if strings.Contains(err.Error(), "wrong last sequence") {
			err = domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "conflict")
			return err
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error updating %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key, "revision", revision)
		err = domain.NewInternalError(fmt.Sprintf("failed to update %s in store", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete removes an entity with optimistic concurrency control.
func (r *NatsBaseRepository[T]) Delete(ctx context.Context, key string, revision uint64) error {
	ctx, span := r.startSpan(ctx, "delete", key,
		attribute.Int64("db.nats.revision", int64(revision)))
	defer span.End()

	if !r.IsReady() {
		return r.notReadyErr(span)
	}

	if err := r.kvStore.Delete(ctx, key, jetstream.LastRevision(revision)); err != nil {
		return r.mapDeleteError(ctx, span, key, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteWithoutRevision removes an entity regardless of its current
// revision, for cleanup operations.
func (r *NatsBaseRepository[T]) DeleteWithoutRevision(ctx context.Context, key string) error {
	ctx, span := r.startSpan(ctx, "delete", key)
	defer span.End()

	if !r.IsReady() {
		return r.notReadyErr(span)
	}

	if err := r.kvStore.Delete(ctx, key); err != nil {
		return r.mapDeleteError(ctx, span, key, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *NatsBaseRepository[T]) mapDeleteError(ctx context.Context, span trace.Span, key string, err error) error {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		err = domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "not found")
		return err
	}
	if strings.Contains(err.Error(), "wrong last sequence") {
		err = domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "conflict")
		return err
	}
	slog.ErrorContext(ctx, fmt.Sprintf("error deleting %s from NATS KV", r.entityName),
		logging.ErrKey, err, "key", key)
	err = domain.NewInternalError(fmt.Sprintf("failed to delete %s from store", r.entityName), err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ListKeys lists all keys in the bucket.
func (r *NatsBaseRepository[T]) ListKeys(ctx context.Context) ([]string, error) {
	ctx, span := r.startSpan(ctx, "list_keys", "")
	defer span.End()

	if !r.IsReady() {
		return nil, r.notReadyErr(span)
	}

	lister, err := r.kvStore.ListKeys(ctx)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error listing %s keys from NATS KV", r.entityName),
			logging.ErrKey, err)
		err = domain.NewInternalError(
			fmt.Sprintf("failed to list %s keys from store", r.entityName), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	span.SetAttributes(attribute.Int("db.nats.keys_count", len(keys)))
	span.SetStatus(codes.Ok, "")
	return keys, nil
}

// ListEntities decodes every entity whose key starts with the given
// prefix; an empty prefix lists the whole bucket. Entries deleted between
// the key listing and the read are skipped.
func (r *NatsBaseRepository[T]) ListEntities(ctx context.Context, keyPrefix string) ([]*T, error) {
	keys, err := r.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var entities []*T
	for _, key := range keys {
		if keyPrefix != "" && !strings.HasPrefix(key, keyPrefix) {
			continue
		}

		entity, err := r.Get(ctx, key)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			return nil, err
		}
		entities = append(entities, entity)
	}

	return entities, nil
}

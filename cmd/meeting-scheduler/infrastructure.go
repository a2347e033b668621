// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/agilemeets/meeting-service/internal/infrastructure/store"
	"github.com/agilemeets/meeting-service/internal/logging"
	"github.com/agilemeets/meeting-service/pkg/constants"
)

// repositories bundles the key-value backed stores used by the scheduler.
type repositories struct {
	Meeting   *store.NatsMeetingRepository
	Exception *store.NatsExceptionRepository
	AIJob     *store.NatsAIJobRepository
}

// setupNATS connects to the NATS server and registers a close handler
// that signals process shutdown when the connection is lost for good.
func setupNATS(env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("meeting-scheduler"),
		nats.DrainTimeout(15*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ConnectHandler(func(nc *nats.Conn) {
			slog.Info("connected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			slog.With(logging.ErrKey, err).Error("NATS async error")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
			gracefulCloseWG.Done()
			// Stop the process if the connection closes outside of shutdown.
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", env.NatsURL, err)
	}

	// The closed handler releases this once drain completes.
	gracefulCloseWG.Add(1)

	return natsConn, nil
}

// getKeyValueStores creates or binds the JetStream key-value buckets and
// wraps them in the service repositories.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*repositories, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	meetingsKV, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: constants.KVStoreNameMeetings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind bucket %s: %w", constants.KVStoreNameMeetings, err)
	}

	exceptionsKV, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: constants.KVStoreNameRecurrenceExceptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind bucket %s: %w", constants.KVStoreNameRecurrenceExceptions, err)
	}

	aiJobsKV, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: constants.KVStoreNameAIJobs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind bucket %s: %w", constants.KVStoreNameAIJobs, err)
	}

	return &repositories{
		Meeting:   store.NewNatsMeetingRepository(meetingsKV),
		Exception: store.NewNatsExceptionRepository(exceptionsKV),
		AIJob:     store.NewNatsAIJobRepository(aiJobsKV),
	}, nil
}

// setupTracing installs an OTLP trace exporter when an endpoint is
// configured; otherwise spans stay on the default no-op provider. The
// returned function flushes and shuts down the provider.
func setupTracing(ctx context.Context) (func(context.Context), error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return func(shutdownCtx context.Context) {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down tracer provider")
		}
	}, nil
}

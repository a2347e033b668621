// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package main is the meeting scheduler daemon. It runs the background
// workers that generate recurring meeting instances, advance meeting
// statuses, drive AI transcription of uploaded audio, reconcile online
// meeting rooms and send start reminders.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agilemeets/meeting-service/internal/infrastructure/aiservice"
	"github.com/agilemeets/meeting-service/internal/infrastructure/messaging"
	"github.com/agilemeets/meeting-service/internal/infrastructure/room"
	"github.com/agilemeets/meeting-service/internal/logging"
	"github.com/agilemeets/meeting-service/internal/service"
	"github.com/agilemeets/meeting-service/internal/worker"
)

func main() {
	env := parseEnv()
	parseFlags()

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up tracing")
		os.Exit(1)
	}

	// Setup NATS connection
	natsConn, err := setupNATS(env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		os.Exit(1)
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// External providers
	aiClient := aiservice.NewClient(aiservice.Config{
		BaseURL:      env.AIService.BaseURL,
		AuthURL:      env.AIService.AuthURL,
		ClientID:     env.AIService.ClientID,
		ClientSecret: env.AIService.ClientSecret,
	})
	roomClient := room.NewClient(room.Config{
		BaseURL: env.RoomProvider.BaseURL,
		APIKey:  env.RoomProvider.APIKey,
	})

	// Services
	publisher := messaging.NewNatsPublisher(natsConn)
	recurrenceService := service.NewRecurrenceService(repos.Meeting, repos.Exception)

	// Background workers
	workers := []worker.Worker{
		worker.NewRecurrenceGenerator(repos.Meeting, recurrenceService, publisher, worker.RecurrenceGeneratorConfig{
			HorizonMonths: env.HorizonMonths,
		}),
		worker.NewStatusTransitionWorker(repos.Meeting, publisher, worker.StatusTransitionConfig{
			Interval: env.SweepInterval,
		}),
		worker.NewAIProcessingWorker(repos.Meeting, repos.AIJob, aiClient, worker.AIProcessingConfig{}),
		worker.NewRoomReconciler(repos.Meeting, roomClient, publisher, worker.RoomReconcilerConfig{}),
		worker.NewReminderWorker(repos.Meeting, publisher, worker.ReminderConfig{
			Interval: env.RemindInterval,
		}),
	}

	workersWG := sync.WaitGroup{}
	for _, w := range workers {
		workersWG.Add(1)
		go func(w worker.Worker) {
			defer workersWG.Done()
			w.Run(ctx)
		}(w)
	}

	slog.Info("meeting scheduler started", "workers", len(workers))

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	slog.Info("shutting down meeting scheduler")
	cancel()
	workersWG.Wait()

	// Drain the NATS connection; the closed handler releases the wait group.
	if err := natsConn.Drain(); err != nil {
		slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		natsConn.Close()
	}
	gracefulCloseWG.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	shutdownTracing(shutdownCtx)

	slog.Info("meeting scheduler stopped")
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package worker contains the periodic background schedulers that drive
// meeting lifecycles: recurrence generation, status sweeps, AI-processing
// submission and polling, online-room reconciliation, and reminders.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Worker is a long-running periodic scheduler.
type Worker interface {
	Name() string
	// Run blocks until ctx is cancelled. Workers never return an error:
	// cycle failures are logged and the loop waits for its next tick.
	Run(ctx context.Context)
}

// runPeriodic executes cycle repeatedly until ctx is cancelled. cycle
// returns the delay before its next execution; the delay is the
// cancellation point, so in-flight work finishes but no new cycle starts
// after shutdown begins.
func runPeriodic(ctx context.Context, name string, cycle func(context.Context) time.Duration) {
	slog.InfoContext(ctx, "worker started", "worker", name)

	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "worker stopped", "worker", name)
			return
		}

		delay := cycle(ctx)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "worker stopped", "worker", name)
			return
		case <-timer.C:
		}
	}
}

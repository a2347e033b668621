// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package concurrent provides the bounded-concurrency throttle used by the
// schedulers that call external services.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool caps how many units of work run at once. Schedulers use one
// pool per external service so a slow provider cannot absorb unlimited
// goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool with the given number of permits.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{workerCount: workerCount}
}

// Run executes all functions with bounded concurrency, cancelling the
// remainder on the first error. It returns that first error.
func (wp *WorkerPool) Run(ctx context.Context, functions ...func() error) error {
	if len(functions) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, fn := range functions {
		g.Go(func() error {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			default:
			}
			return fn()
		})
	}

	return g.Wait()
}

// RunAll executes all functions with bounded concurrency and never cancels
// siblings on failure: each item is isolated, matching the per-item error
// handling contract of the batch sweeps. The returned slice holds only the
// non-nil errors.
func (wp *WorkerPool) RunAll(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	errCh := make(chan error, len(functions))

	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for _, fn := range functions {
		g.Go(func() error {
			// A cancelled context stops new work but is still reported so
			// callers see the batch was cut short.
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return nil
			default:
			}

			if err := fn(); err != nil {
				errCh <- err
			}
			return nil
		})
	}

	// Workers never return errors to the group, so Wait cannot fail.
	_ = g.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errs
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPoolFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, NewWorkerPool(0).workerCount)
	assert.Equal(t, 1, NewWorkerPool(-3).workerCount)
	assert.Equal(t, 8, NewWorkerPool(8).workerCount)
}

func TestRunBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(3)

	var current, peak atomic.Int32
	var mu sync.Mutex

	task := func() error {
		n := current.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return nil
	}

	functions := make([]func() error, 12)
	for i := range functions {
		functions[i] = task
	}

	err := pool.Run(context.Background(), functions...)

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestRunReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(1)
	boom := errors.New("boom")

	var ran atomic.Int32
	err := pool.Run(context.Background(),
		func() error { ran.Add(1); return boom },
		func() error { ran.Add(1); return nil },
	)

	require.ErrorIs(t, err, boom)
}

func TestRunEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	assert.NoError(t, pool.Run(context.Background()))
	assert.Nil(t, pool.RunAll(context.Background()))
}

func TestRunAllIsolatesFailures(t *testing.T) {
	pool := NewWorkerPool(2)
	boom := errors.New("boom")

	var succeeded atomic.Int32
	errs := pool.RunAll(context.Background(),
		func() error { return boom },
		func() error { succeeded.Add(1); return nil },
		func() error { return boom },
		func() error { succeeded.Add(1); return nil },
	)

	// failures never cancel siblings
	assert.Equal(t, int32(2), succeeded.Load())
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestRunAllReportsCancellation(t *testing.T) {
	pool := NewWorkerPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	errs := pool.RunAll(ctx,
		func() error { ran.Add(1); return nil },
		func() error { ran.Add(1); return nil },
	)

	assert.Equal(t, int32(0), ran.Load())
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

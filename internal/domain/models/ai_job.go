// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// AIJob tracks one in-flight transcription submission. Jobs are persisted
// in their own store bucket so the AI-processing scheduler can recover
// retry and backoff state after a restart instead of resubmitting.
type AIJob struct {
	MeetingUID string    `msgpack:"meeting_uid"`
	Token      string    `msgpack:"token"`
	StartedAt  time.Time `msgpack:"started_at"`
	RetryCount int       `msgpack:"retry_count"`
	// NextPollAt is the earliest time the polling sweep may ask the AI
	// service about this job again. It grows with each not-done answer.
	NextPollAt time.Time `msgpack:"next_poll_at"`
}

// Stale reports whether the job has been in flight longer than the given
// timeout and should be dropped from tracking.
func (j *AIJob) Stale(now time.Time, timeout time.Duration) bool {
	return now.Sub(j.StartedAt) > timeout
}

// Due reports whether the job may be polled at the given time.
func (j *AIJob) Due(now time.Time) bool {
	return !j.NextPollAt.After(now)
}

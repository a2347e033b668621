// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

// Package constants holds the NATS names shared between the service and
// its deployment configuration.
package constants

// NATS Key-Value store bucket names.
const (
	// KVStoreNameMeetings is the bucket holding meeting records.
	KVStoreNameMeetings = "meetings"
	// KVStoreNameRecurrenceExceptions is the bucket holding
	// per-pattern exclusion dates.
	KVStoreNameRecurrenceExceptions = "recurring-meeting-exceptions"
	// KVStoreNameAIJobs is the bucket holding in-flight AI
	// transcription job state.
	KVStoreNameAIJobs = "ai-processing-jobs"
)

// NATS subjects published by the service.
const (
	// NotificationSendSubject carries fire-and-forget notification
	// messages for the notification service.
	NotificationSendSubject = "agilemeets.notification.send"
	// MeetingEventSubjectPrefix prefixes lifecycle event subjects; the
	// event type is appended (e.g. "agilemeets.meetings.completed").
	MeetingEventSubjectPrefix = "agilemeets.meetings."
)

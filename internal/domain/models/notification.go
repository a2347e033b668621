// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// NotificationChannel discriminates how a notification is delivered.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelPush  NotificationChannel = "push"
)

// NotificationMessage is the fire-and-forget payload handed to the
// notification service. The engine never waits for delivery confirmation
// and never formats channel-specific content beyond subject and body.
type NotificationMessage struct {
	Channel   NotificationChannel `json:"channel"`
	Recipient string              `json:"recipient"`
	Subject   string              `json:"subject"`
	Body      string              `json:"body"`
}

// MeetingEventType labels a lifecycle event on the message bus.
type MeetingEventType string

const (
	MeetingEventCreated            MeetingEventType = "created"
	MeetingEventUpdated            MeetingEventType = "updated"
	MeetingEventCompleted          MeetingEventType = "completed"
	MeetingEventCancelled          MeetingEventType = "cancelled"
	MeetingEventInstancesGenerated MeetingEventType = "instances-generated"
)

// MeetingEvent is published on the bus whenever the lifecycle of a meeting
// changes. Recurring anchors carry the pattern as an RRULE string so
// calendar consumers can render the series without knowing our model.
type MeetingEvent struct {
	Type       MeetingEventType `json:"type"`
	MeetingUID string           `json:"meeting_uid"`
	ProjectUID string           `json:"project_uid,omitempty"`
	Title      string           `json:"title,omitempty"`
	StartTime  *time.Time       `json:"start_time,omitempty"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	Timezone   string           `json:"timezone,omitempty"`
	RRule      string           `json:"rrule,omitempty"`
	// InstanceUIDs lists generated instances for instances-generated events.
	InstanceUIDs []string  `json:"instance_uids,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewMeetingEvent builds an event snapshot for the given meeting.
func NewMeetingEvent(eventType MeetingEventType, meeting *Meeting) MeetingEvent {
	event := MeetingEvent{
		Type:       eventType,
		MeetingUID: meeting.UID,
		ProjectUID: meeting.ProjectUID,
		Title:      meeting.Title,
		Timezone:   meeting.Timezone,
		OccurredAt: time.Now().UTC(),
	}
	start, end := meeting.StartTime, meeting.EndTime
	event.StartTime = &start
	event.EndTime = &end
	if meeting.Recurrence != nil {
		event.RRule = meeting.Recurrence.RRuleString(meeting.StartTime)
	}
	return event
}

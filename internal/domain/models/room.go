// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import "time"

// Room is the live state of an online meeting room as reported by the
// external room provider.
type Room struct {
	SID             string    `json:"sid"`
	Name            string    `json:"name"`
	NumParticipants int       `json:"num_participants"`
	CreatedAt       time.Time `json:"created_at"`
	ActiveRecording bool      `json:"active_recording"`
}

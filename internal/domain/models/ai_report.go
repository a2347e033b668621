// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

// AIReport is the transcription result produced by the external AI
// service once processing completes.
type AIReport struct {
	Transcript   string   `json:"transcript,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	KeyPoints    []string `json:"key_points,omitempty"`
	MainLanguage string   `json:"main_language,omitempty"`
}

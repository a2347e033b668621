// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"

	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// MeetingType describes how a meeting takes place.
type MeetingType string

const (
	MeetingTypeInPerson MeetingType = "in_person"
	MeetingTypeOnline   MeetingType = "online"
	// MeetingTypeDone is a meeting that already happened and is entered
	// after the fact, typically with an uploaded audio recording.
	MeetingTypeDone MeetingType = "done"
)

// MeetingStatus is the primary scheduling axis of a meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in_progress"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// OnlineMeetingStatus is the online-room sub-status axis. It is only
// meaningful for meetings of type online.
type OnlineMeetingStatus string

const (
	OnlineMeetingStatusNotStarted OnlineMeetingStatus = ""
	OnlineMeetingStatusActive     OnlineMeetingStatus = "active"
	OnlineMeetingStatusEnded      OnlineMeetingStatus = "ended"
)

// AudioStatus is the audio sub-status axis.
type AudioStatus string

const (
	AudioStatusNone      AudioStatus = ""
	AudioStatusPending   AudioStatus = "pending"
	AudioStatusAvailable AudioStatus = "available"
	AudioStatusFailed    AudioStatus = "failed"
)

// AudioSource records where a meeting's audio came from.
type AudioSource string

const (
	AudioSourceUpload         AudioSource = "upload"
	AudioSourceMeetingService AudioSource = "meeting_service"
)

// AIProcessingStatus is the AI-transcription sub-status axis.
type AIProcessingStatus string

const (
	AIProcessingStatusNotStarted AIProcessingStatus = "not_started"
	AIProcessingStatusOnQueue    AIProcessingStatus = "on_queue"
	AIProcessingStatusProcessing AIProcessingStatus = "processing"
	AIProcessingStatusCompleted  AIProcessingStatus = "completed"
	AIProcessingStatusFailed     AIProcessingStatus = "failed"
)

// MeetingLanguage is the spoken language submitted to the AI service.
type MeetingLanguage string

const (
	LanguageEnglish MeetingLanguage = "en"
	LanguageArabic  MeetingLanguage = "ar"
)

// StateConflictError reports an illegal lifecycle transition. It indicates
// a caller bug: the guard should have been checked before the call.
type StateConflictError struct {
	Op     string
	Detail string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// MeetingMember links a meeting to an organization member.
type MeetingMember struct {
	MemberUID    string `json:"member_uid"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	HasConfirmed bool   `json:"has_confirmed"`
}

// Meeting is the key-value store representation of a meeting. The four
// status axes (scheduling, online room, audio, AI processing) are
// independent fields that evolve on different triggers; cross-axis
// invariants are enforced by the transition methods below.
type Meeting struct {
	UID        string          `json:"uid"`
	ProjectUID string          `json:"project_uid"`
	CreatorUID string          `json:"creator_uid"`
	Title      string          `json:"title"`
	Goal       string          `json:"goal,omitempty"`
	Language   MeetingLanguage `json:"language"`
	Type       MeetingType     `json:"type"`

	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	ActualEndTime *time.Time `json:"actual_end_time,omitempty"`
	Timezone      string     `json:"timezone"`
	Location      string     `json:"location,omitempty"`
	MeetingURL    string     `json:"meeting_url,omitempty"`
	Status        MeetingStatus `json:"status"`

	RoomSID         string              `json:"room_sid,omitempty"`
	RoomName        string              `json:"room_name,omitempty"`
	OnlineStatus    OnlineMeetingStatus `json:"online_status,omitempty"`
	OnlineStartedAt *time.Time          `json:"online_started_at,omitempty"`
	OnlineEndedAt   *time.Time          `json:"online_ended_at,omitempty"`

	AudioURL        string      `json:"audio_url,omitempty"`
	AudioStatus     AudioStatus `json:"audio_status,omitempty"`
	AudioSource     AudioSource `json:"audio_source,omitempty"`
	AudioUploadedAt *time.Time  `json:"audio_uploaded_at,omitempty"`

	AIProcessingToken string             `json:"ai_processing_token,omitempty"`
	AIStatus          AIProcessingStatus `json:"ai_status"`
	AIReport          *AIReport          `json:"ai_report,omitempty"`
	AIProcessedAt     *time.Time         `json:"ai_processed_at,omitempty"`

	ReminderTime *time.Time `json:"reminder_time,omitempty"`
	ReminderSent bool       `json:"reminder_sent,omitempty"`

	// Recurrence is owned by the series anchor only. Generated instances
	// reference the anchor by UID instead of holding the pattern.
	Recurrence         *RecurrencePattern `json:"recurrence,omitempty"`
	OriginalMeetingUID string             `json:"original_meeting_uid,omitempty"`

	Members []MeetingMember `json:"members,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// IsRecurringInstance reports whether this meeting was generated from a
// recurrence pattern owned by another meeting.
func (m *Meeting) IsRecurringInstance() bool {
	return m.OriginalMeetingUID != ""
}

// IsRecurring is derived, never stored: a meeting is recurring iff it owns
// a pattern or was generated from one.
func (m *Meeting) IsRecurring() bool {
	return m.Recurrence != nil || m.IsRecurringInstance()
}

// IsOnlineActive reports whether the meeting has a live online room.
func (m *Meeting) IsOnlineActive() bool {
	return m.Type == MeetingTypeOnline && m.OnlineStatus == OnlineMeetingStatusActive
}

// RequiresMembers reports whether the meeting must have members attached.
func (m *Meeting) RequiresMembers() bool {
	return m.Type == MeetingTypeOnline
}

// RequiresAudioUpload reports whether audio must be uploaded manually.
func (m *Meeting) RequiresAudioUpload() bool {
	return m.Type != MeetingTypeOnline && m.AudioURL == ""
}

// CanUploadAudio reports whether an audio upload is accepted in the
// meeting's current state.
func (m *Meeting) CanUploadAudio() bool {
	return m.Type != MeetingTypeOnline &&
		(m.Status == MeetingStatusInProgress || m.Status == MeetingStatusCompleted)
}

// GenerateRoomName derives the online room name from the meeting identity.
func (m *Meeting) GenerateRoomName() string {
	id, err := uuid.Parse(m.UID)
	if err != nil {
		return "meeting-" + m.UID
	}
	return "meeting-" + base58.Encode(id[:])
}

// Start transitions the meeting from scheduled to in-progress and stamps
// the actual start time. Online meetings get a live room sub-status and
// pending audio, since recording begins automatically.
func (m *Meeting) Start() error {
	if m.Status != MeetingStatusScheduled {
		return &StateConflictError{
			Op:     "start meeting",
			Detail: fmt.Sprintf("only scheduled meetings can be started, status is %s", m.Status),
		}
	}

	now := time.Now().UTC()
	m.Status = MeetingStatusInProgress

	if m.Type == MeetingTypeOnline {
		m.OnlineStatus = OnlineMeetingStatusActive
		m.OnlineStartedAt = &now
		m.AudioStatus = AudioStatusPending
		m.AudioSource = AudioSourceMeetingService
	}

	m.StartTime = now
	return nil
}

// Complete transitions the meeting from in-progress to completed and
// stamps the actual end time. For online meetings the room sub-status is
// ended and, if a recording URL landed already, the audio becomes
// available for AI processing.
func (m *Meeting) Complete() error {
	if m.Status != MeetingStatusInProgress {
		return &StateConflictError{
			Op:     "complete meeting",
			Detail: fmt.Sprintf("only in-progress meetings can be completed, status is %s", m.Status),
		}
	}

	now := time.Now().UTC()
	m.Status = MeetingStatusCompleted
	m.ActualEndTime = &now

	if m.Type == MeetingTypeOnline {
		m.OnlineStatus = OnlineMeetingStatusEnded
		m.OnlineEndedAt = &now
		if m.AudioURL != "" {
			m.AudioStatus = AudioStatusAvailable
		}
	}

	return nil
}

// ForceCancel marks the meeting cancelled without going through the normal
// scheduled -> in-progress -> completed path. Used for meetings that were
// never started and for online meetings whose room disappeared.
func (m *Meeting) ForceCancel() {
	now := time.Now().UTC()
	m.Status = MeetingStatusCancelled
	if m.ActualEndTime == nil {
		m.ActualEndTime = &now
	}
	if m.OnlineStatus == OnlineMeetingStatusActive {
		m.OnlineStatus = OnlineMeetingStatusEnded
		m.OnlineEndedAt = &now
	}
}

// IsTerminal reports whether the scheduling status can no longer change.
func (m *Meeting) IsTerminal() bool {
	return m.Status == MeetingStatusCompleted || m.Status == MeetingStatusCancelled
}

// CanProcessAudio reports whether the meeting is eligible for AI
// transcription: audio present and processing not yet initiated.
func (m *Meeting) CanProcessAudio() bool {
	return m.AudioStatus == AudioStatusAvailable &&
		m.AIStatus == AIProcessingStatusNotStarted
}

// InitiateAIProcessing records the submission token and moves the AI axis
// onto the queue. The CanProcessAudio guard makes duplicate submission a
// state conflict rather than a silent overwrite.
func (m *Meeting) InitiateAIProcessing(token string) error {
	if !m.CanProcessAudio() {
		return &StateConflictError{
			Op:     "initiate AI processing",
			Detail: "audio not available or processing already started",
		}
	}

	m.AIProcessingToken = token
	m.AIStatus = AIProcessingStatusOnQueue
	return nil
}

// UpdateAIProcessingStatus advances the AI axis. Completed is terminal.
func (m *Meeting) UpdateAIProcessingStatus(status AIProcessingStatus) error {
	if m.AIStatus == AIProcessingStatusCompleted {
		return &StateConflictError{
			Op:     "update AI processing status",
			Detail: "processing already completed",
		}
	}

	m.AIStatus = status
	if status == AIProcessingStatusCompleted {
		now := time.Now().UTC()
		m.AIProcessedAt = &now
	}
	return nil
}

// SetAIReport attaches the transcription report. Only legal once the AI
// axis reached completed.
func (m *Meeting) SetAIReport(report *AIReport) error {
	if m.AIStatus != AIProcessingStatusCompleted {
		return &StateConflictError{
			Op:     "set AI report",
			Detail: "cannot attach report before processing is completed",
		}
	}

	m.AIReport = report
	now := time.Now().UTC()
	m.AIProcessedAt = &now
	return nil
}

// Tags returns contextual attributes for logging.
func (m *Meeting) Tags() []any {
	return []any{
		"meeting_uid", m.UID,
		"project_uid", m.ProjectUID,
		"meeting_status", string(m.Status),
	}
}

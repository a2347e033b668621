// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agilemeets/meeting-service/internal/domain"
	"github.com/agilemeets/meeting-service/internal/domain/models"
)

// maxGenerationSteps bounds the NextDate iteration inside GenerateInstances
// so a pathological pattern can never spin the generator.
const maxGenerationSteps = 1000

// defaultReminderLead is used when an anchor has no reminder time to
// derive the lead from.
const defaultReminderLead = 15 * time.Minute

// RecurrenceService computes recurrence dates, validates patterns, and
// expands series anchors into concrete meeting instances. Date arithmetic
// is pure; only exception lookups and the series commands touch storage.
type RecurrenceService struct {
	meetingRepo   domain.MeetingRepository
	exceptionRepo domain.RecurrenceExceptionRepository
}

// NewRecurrenceService creates a new RecurrenceService.
func NewRecurrenceService(
	meetingRepo domain.MeetingRepository,
	exceptionRepo domain.RecurrenceExceptionRepository,
) *RecurrenceService {
	return &RecurrenceService{
		meetingRepo:   meetingRepo,
		exceptionRepo: exceptionRepo,
	}
}

// ServiceReady checks if the service is ready for use.
func (s *RecurrenceService) ServiceReady() bool {
	return s.meetingRepo != nil && s.exceptionRepo != nil
}

// ValidatePattern checks pattern legality against the anchor start time.
// Monthly patterns anchored past day 28 are accepted with a warning: the
// occurrence day clamps to the last day of shorter months.
func (s *RecurrenceService) ValidatePattern(ctx context.Context, pattern *models.RecurrencePattern, anchorStart time.Time) error {
	if pattern == nil {
		return domain.NewValidationError("recurrence pattern is required")
	}

	if pattern.Interval <= 0 {
		return domain.NewValidationError("recurrence interval must be greater than 0")
	}

	if !pattern.EndDate.After(time.Now().UTC()) {
		return domain.NewValidationError("recurrence end date must be in the future")
	}

	switch pattern.Type {
	case models.RecurrenceTypeDaily:
	case models.RecurrenceTypeWeekly:
		if pattern.WeekDays == models.NoDays {
			return domain.NewValidationError("weekly pattern must have at least one day selected")
		}
	case models.RecurrenceTypeMonthly:
		if day := anchorStart.Day(); day > 28 {
			slog.WarnContext(ctx, "monthly meeting anchored past day 28 clamps to the last day of shorter months",
				"anchor_day", day,
				"pattern_uid", pattern.UID,
			)
		}
	default:
		return domain.NewValidationError(fmt.Sprintf("unsupported recurrence type: %s", pattern.Type))
	}

	return nil
}

// NextDate returns the first occurrence strictly after current. anchorDay
// is the anchor meeting's day-of-month, used by monthly patterns to clamp
// short months. Weekly patterns with an empty day set return a validation
// error since validation should have rejected them.
func (s *RecurrenceService) NextDate(current time.Time, pattern *models.RecurrencePattern, anchorDay int) (time.Time, error) {
	switch pattern.Type {
	case models.RecurrenceTypeDaily:
		return current.AddDate(0, 0, pattern.Interval), nil
	case models.RecurrenceTypeWeekly:
		return s.nextWeeklyDate(current, pattern)
	case models.RecurrenceTypeMonthly:
		return s.nextMonthlyDate(current, pattern, anchorDay), nil
	default:
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("unsupported recurrence type: %s", pattern.Type))
	}
}

// nextWeeklyDate scans the remainder of the current week (Sunday start)
// for a selected day; failing that it jumps interval weeks ahead and takes
// the first selected day of that week.
func (s *RecurrenceService) nextWeeklyDate(current time.Time, pattern *models.RecurrencePattern) (time.Time, error) {
	if pattern.WeekDays == models.NoDays {
		return time.Time{}, domain.NewValidationError("weekly pattern must have selected days")
	}

	startOfWeek := current.AddDate(0, 0, -int(current.Weekday()))
	endOfWeek := startOfWeek.AddDate(0, 0, 6)

	for next := current.AddDate(0, 0, 1); !next.After(endOfWeek); next = next.AddDate(0, 0, 1) {
		if pattern.WeekDays.Has(next.Weekday()) {
			return next, nil
		}
	}

	next := startOfWeek.AddDate(0, 0, 7*pattern.Interval)
	for i := 0; i < 7; i++ {
		if pattern.WeekDays.Has(next.Weekday()) {
			return next, nil
		}
		next = next.AddDate(0, 0, 1)
	}

	// Unreachable with a non-empty set: a week always contains every weekday.
	return time.Time{}, domain.NewInternalError("no selected day found in target week")
}

// nextMonthlyDate advances one interval of months from the previous
// occurrence, clamping short months to their last day.
func (s *RecurrenceService) nextMonthlyDate(current time.Time, pattern *models.RecurrencePattern, anchorDay int) time.Time {
	return monthlyOccurrence(current, anchorDay, pattern.Interval)
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ShouldMaterialize decides whether a computed date produces an instance:
// exception dates never materialize, and the date must still satisfy the
// pattern's own day predicate.
func (s *RecurrenceService) ShouldMaterialize(ctx context.Context, date time.Time, pattern *models.RecurrencePattern, anchorDay int) (bool, error) {
	excluded, err := s.exceptionRepo.Exists(ctx, pattern.UID, date)
	if err != nil {
		return false, domain.NewInternalError("failed to check recurrence exceptions", err)
	}
	if excluded {
		return false, nil
	}

	switch pattern.Type {
	case models.RecurrenceTypeDaily:
		return true, nil
	case models.RecurrenceTypeWeekly:
		return pattern.WeekDays.Has(date.Weekday()), nil
	case models.RecurrenceTypeMonthly:
		// Months shorter than the anchor day clamp to their last day.
		day := min(anchorDay, daysInMonth(date.Year(), date.Month()))
		return date.Day() == day, nil
	default:
		return false, domain.NewValidationError(fmt.Sprintf("unsupported recurrence type: %s", pattern.Type))
	}
}

// GenerateInstances expands the anchor's pattern into scheduled instances
// with start times in (max(anchor.StartTime, from), min(until, pattern end)].
// The walk fast-forwards to the pattern-aligned occurrence just before
// from, so the cost of a cycle depends on the requested window, not on how
// long the series has existed. The result is not persisted; callers own
// storage and deduplication.
func (s *RecurrenceService) GenerateInstances(ctx context.Context, anchor *models.Meeting, from, until time.Time) ([]*models.Meeting, error) {
	if anchor == nil || anchor.Recurrence == nil {
		return nil, domain.NewValidationError("meeting is not a recurring series anchor")
	}

	pattern := anchor.Recurrence
	if err := s.ValidatePattern(ctx, pattern, anchor.StartTime); err != nil {
		return nil, err
	}

	patternEnd := models.EndOfDay(pattern.EndDate)
	anchorDay := anchor.StartTime.Day()
	duration := anchor.EndTime.Sub(anchor.StartTime)
	reminderLead := defaultReminderLead
	if anchor.ReminderTime != nil {
		reminderLead = anchor.StartTime.Sub(*anchor.ReminderTime)
	}

	if from.Before(anchor.StartTime) {
		from = anchor.StartTime
	}

	var instances []*models.Meeting
	current := seekStart(anchor.StartTime, from, pattern, anchorDay)
	for i := 0; i < maxGenerationSteps; i++ {
		next, err := s.NextDate(current, pattern, anchorDay)
		if err != nil {
			return nil, err
		}
		if next.After(until) || next.After(patternEnd) {
			break
		}
		current = next

		if !next.After(from) {
			continue
		}

		ok, err := s.ShouldMaterialize(ctx, next, pattern, anchorDay)
		if err != nil {
			return nil, err
		}
		if ok {
			instances = append(instances, s.createInstance(anchor, next, duration, reminderLead))
		}
	}

	return instances, nil
}

// seekStart returns a walk origin for NextDate that is at most two pattern
// periods before from while staying on the anchor's phase, so decade-old
// series do not replay every elapsed occurrence on each generation cycle.
// A conservative whole-period backoff absorbs day-length wobble; the
// caller's from filter drops the few occurrences the backoff re-yields.
func seekStart(anchorStart, from time.Time, pattern *models.RecurrencePattern, anchorDay int) time.Time {
	if !from.After(anchorStart) {
		return anchorStart
	}

	switch pattern.Type {
	case models.RecurrenceTypeDaily:
		elapsedDays := int(from.Sub(anchorStart).Hours() / 24)
		steps := elapsedDays/pattern.Interval - 1
		if steps > 0 {
			return anchorStart.AddDate(0, 0, steps*pattern.Interval)
		}
	case models.RecurrenceTypeWeekly:
		// Jumping whole interval-week blocks from the anchor keeps its
		// weekday, so the scan resumes on the right week parity.
		elapsedDays := int(from.Sub(anchorStart).Hours() / 24)
		blocks := elapsedDays/(7*pattern.Interval) - 1
		if blocks > 0 {
			return anchorStart.AddDate(0, 0, blocks*7*pattern.Interval)
		}
	case models.RecurrenceTypeMonthly:
		elapsedMonths := (from.Year()-anchorStart.Year())*12 +
			int(from.Month()) - int(anchorStart.Month())
		steps := elapsedMonths/pattern.Interval - 1
		if steps > 0 {
			return monthlyOccurrence(anchorStart, anchorDay, steps*pattern.Interval)
		}
	}

	return anchorStart
}

// monthlyOccurrence computes the occurrence monthsAhead months past base,
// keeping base's time-of-day and clamping the day to min(anchorDay, days in
// the target month). Month/year are normalized by hand so a day-31 anchor
// lands on Feb 28 instead of overflowing into March the way AddDate would.
func monthlyOccurrence(base time.Time, anchorDay, monthsAhead int) time.Time {
	year, month := base.Year(), int(base.Month())-1+monthsAhead
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}

	targetMonth := time.Month(month + 1)
	day := min(anchorDay, daysInMonth(year, targetMonth))

	return time.Date(year, targetMonth, day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(),
		base.Location())
}

// createInstance builds one scheduled instance at the given start time,
// copying the anchor's descriptive fields and membership (without
// confirmation state) and linking back to the anchor by UID.
func (s *RecurrenceService) createInstance(anchor *models.Meeting, start time.Time, duration time.Duration, reminderLead time.Duration) *models.Meeting {
	now := time.Now().UTC()
	reminder := start.Add(-reminderLead)

	instance := &models.Meeting{
		UID:                uuid.NewString(),
		ProjectUID:         anchor.ProjectUID,
		CreatorUID:         anchor.CreatorUID,
		Title:              anchor.Title,
		Goal:               anchor.Goal,
		Language:           anchor.Language,
		Type:               anchor.Type,
		StartTime:          start,
		EndTime:            start.Add(duration),
		Timezone:           anchor.Timezone,
		Location:           anchor.Location,
		Status:             models.MeetingStatusScheduled,
		AIStatus:           models.AIProcessingStatusNotStarted,
		ReminderTime:       &reminder,
		OriginalMeetingUID: anchor.UID,
		CreatedAt:          &now,
		UpdatedAt:          &now,
	}

	for _, member := range anchor.Members {
		instance.Members = append(instance.Members, models.MeetingMember{
			MemberUID: member.MemberUID,
			Email:     member.Email,
			Name:      member.Name,
		})
	}

	return instance
}

// SuggestWeekDays proposes a weekday set for a new weekly pattern from the
// first meeting's weekday, optionally dropping weekend days.
func (s *RecurrenceService) SuggestWeekDays(firstMeeting time.Time, excludeWeekends bool) models.DaysOfWeek {
	suggested := models.DayOfWeek(firstMeeting.Weekday())
	if excludeWeekends {
		suggested = suggested.Without(models.Weekend)
	}
	return suggested
}

// AddException excludes a date from the pattern's materialization.
func (s *RecurrenceService) AddException(ctx context.Context, patternUID string, date time.Time, reason string) error {
	if patternUID == "" {
		return domain.NewValidationError("pattern UID is required")
	}

	exception := &models.RecurrenceException{
		PatternUID: patternUID,
		Date:       date,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.exceptionRepo.Add(ctx, exception); err != nil {
		return domain.NewInternalError("failed to record recurrence exception", err)
	}

	slog.DebugContext(ctx, "recorded recurrence exception",
		"pattern_uid", patternUID,
		"exception_date", date,
		"reason", reason,
	)
	return nil
}

// RescheduleInstance moves an instance to a new start time, keeping its
// duration. The original slot is recorded as an exception so the generator
// does not re-materialize it.
func (s *RecurrenceService) RescheduleInstance(ctx context.Context, meetingUID string, newStart time.Time) (*models.Meeting, error) {
	meeting, revision, err := s.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	if meeting.Status != models.MeetingStatusScheduled {
		return nil, domain.NewConflictError(
			fmt.Sprintf("only scheduled meetings can be rescheduled, status is %s", meeting.Status))
	}

	originalStart := meeting.StartTime
	duration := meeting.EndTime.Sub(meeting.StartTime)
	meeting.StartTime = newStart
	meeting.EndTime = newStart.Add(duration)
	if meeting.ReminderTime != nil {
		lead := originalStart.Sub(*meeting.ReminderTime)
		reminder := newStart.Add(-lead)
		meeting.ReminderTime = &reminder
		meeting.ReminderSent = false
	}
	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	if patternUID, ok := s.patternUIDFor(ctx, meeting); ok {
		if err := s.AddException(ctx, patternUID, originalStart, "rescheduled"); err != nil {
			return nil, err
		}
	}

	if err := s.meetingRepo.Update(ctx, meeting, revision); err != nil {
		return nil, err
	}

	return meeting, nil
}

// SkipOccurrence cancels a single generated instance and records an
// exception for its slot so the series skips that date permanently.
func (s *RecurrenceService) SkipOccurrence(ctx context.Context, meetingUID string, reason string) error {
	meeting, revision, err := s.meetingRepo.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return err
	}

	if !meeting.IsRecurringInstance() {
		return domain.NewValidationError("meeting is not a generated instance of a series")
	}
	if meeting.IsTerminal() {
		return domain.NewConflictError(
			fmt.Sprintf("cannot skip a %s meeting", meeting.Status))
	}

	if patternUID, ok := s.patternUIDFor(ctx, meeting); ok {
		if reason == "" {
			reason = "skipped"
		}
		if err := s.AddException(ctx, patternUID, meeting.StartTime, reason); err != nil {
			return err
		}
	}

	meeting.ForceCancel()
	now := time.Now().UTC()
	meeting.UpdatedAt = &now

	return s.meetingRepo.Update(ctx, meeting, revision)
}

// patternUIDFor resolves the pattern governing a meeting, following the
// anchor reference for generated instances. Missing anchors degrade to no
// pattern rather than failing the calling command.
func (s *RecurrenceService) patternUIDFor(ctx context.Context, meeting *models.Meeting) (string, bool) {
	if meeting.Recurrence != nil {
		return meeting.Recurrence.UID, true
	}
	if !meeting.IsRecurringInstance() {
		return "", false
	}

	anchor, err := s.meetingRepo.Get(ctx, meeting.OriginalMeetingUID)
	if err != nil || anchor.Recurrence == nil {
		slog.WarnContext(ctx, "could not resolve series anchor for instance",
			"meeting_uid", meeting.UID,
			"anchor_uid", meeting.OriginalMeetingUID,
		)
		return "", false
	}
	return anchor.Recurrence.UID, true
}

// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"time"

	"github.com/teambition/rrule-go"
)

// RecurrenceType selects the recurrence rule family.
type RecurrenceType string

const (
	RecurrenceTypeDaily   RecurrenceType = "daily"
	RecurrenceTypeWeekly  RecurrenceType = "weekly"
	RecurrenceTypeMonthly RecurrenceType = "monthly"
)

// MaxFutureInstances is how many future instances of a recurring series
// the generator keeps materialized at all times.
const MaxFutureInstances = 5

// RecurrencePattern describes how a series anchor repeats. It is stored
// on the anchor meeting's record; generated instances carry only a
// reference back to the anchor.
type RecurrencePattern struct {
	UID        string         `json:"uid"`
	MeetingUID string         `json:"meeting_uid"`
	Type       RecurrenceType `json:"type"`
	// Interval is the step between occurrences in units of the
	// recurrence type (days, weeks, months). Must be positive.
	Interval int `json:"interval"`
	// EndDate is the last calendar day of the series, inclusive.
	EndDate time.Time `json:"end_date"`
	// WeekDays is required and non-empty for weekly patterns.
	WeekDays          DaysOfWeek `json:"week_days,omitempty"`
	Cancelled         bool       `json:"cancelled,omitempty"`
	LastGeneratedDate *time.Time `json:"last_generated_date,omitempty"`
}

// Active reports whether the pattern should still produce instances as of
// the given time.
func (p *RecurrencePattern) Active(asOf time.Time) bool {
	return !p.Cancelled && !endOfDay(p.EndDate).Before(asOf)
}

// RRuleString renders the pattern as an RFC 5545 RRULE anchored at the
// given start, for downstream calendar consumers. Materialization does not
// use this: RRULE has no clamp-to-last-day monthly semantics and no
// exception suppression.
func (p *RecurrencePattern) RRuleString(anchorStart time.Time) string {
	opt := rrule.ROption{
		Interval: p.Interval,
		Dtstart:  anchorStart,
		Until:    endOfDay(p.EndDate),
	}

	switch p.Type {
	case RecurrenceTypeDaily:
		opt.Freq = rrule.DAILY
	case RecurrenceTypeWeekly:
		opt.Freq = rrule.WEEKLY
		weekdays := map[time.Weekday]rrule.Weekday{
			time.Sunday:    rrule.SU,
			time.Monday:    rrule.MO,
			time.Tuesday:   rrule.TU,
			time.Wednesday: rrule.WE,
			time.Thursday:  rrule.TH,
			time.Friday:    rrule.FR,
			time.Saturday:  rrule.SA,
		}
		for _, wd := range p.WeekDays.Weekdays() {
			opt.Byweekday = append(opt.Byweekday, weekdays[wd])
		}
	case RecurrenceTypeMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{anchorStart.Day()}
	default:
		return ""
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return ""
	}
	return rule.String()
}

// RecurrenceException excludes a single date from a pattern's
// materialization, recorded when an instance is skipped, individually
// modified, or rescheduled away from its slot.
type RecurrenceException struct {
	PatternUID string    `json:"pattern_uid"`
	Date       time.Time `json:"date"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// EndOfDay returns the last instant of the calendar day containing t.
// The generator normalizes pattern end dates with it so an end date of
// "June 10" includes occurrences on June 10 itself.
func EndOfDay(t time.Time) time.Time {
	return endOfDay(t)
}

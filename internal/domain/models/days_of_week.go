// Copyright The AgileMeets Authors.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// DaysOfWeek is a bitset of selected weekdays for weekly recurrence
// patterns. Bit 0 is Sunday, matching time.Weekday numbering.
type DaysOfWeek uint8

const (
	NoDays    DaysOfWeek = 0
	Sunday    DaysOfWeek = 1 << time.Sunday
	Monday    DaysOfWeek = 1 << time.Monday
	Tuesday   DaysOfWeek = 1 << time.Tuesday
	Wednesday DaysOfWeek = 1 << time.Wednesday
	Thursday  DaysOfWeek = 1 << time.Thursday
	Friday    DaysOfWeek = 1 << time.Friday
	Saturday  DaysOfWeek = 1 << time.Saturday

	Weekend  = Saturday | Sunday
	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
)

// DayOfWeek returns the bit for a single weekday.
func DayOfWeek(d time.Weekday) DaysOfWeek {
	return DaysOfWeek(1 << d)
}

// Has reports whether the bit for the given weekday is set.
func (d DaysOfWeek) Has(day time.Weekday) bool {
	return d&DayOfWeek(day) != 0
}

// HasAny reports whether any of the given days are set.
func (d DaysOfWeek) HasAny(days DaysOfWeek) bool {
	return d&days != 0
}

// HasAll reports whether all of the given days are set.
func (d DaysOfWeek) HasAll(days DaysOfWeek) bool {
	return d&days == days
}

// With returns the set with the given days added.
func (d DaysOfWeek) With(days DaysOfWeek) DaysOfWeek {
	return d | days
}

// Without returns the set with the given days removed.
func (d DaysOfWeek) Without(days DaysOfWeek) DaysOfWeek {
	return d &^ days
}

// Weekdays returns the selected days in Sunday-first order.
func (d DaysOfWeek) Weekdays() []time.Weekday {
	var days []time.Weekday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if d.Has(wd) {
			days = append(days, wd)
		}
	}
	return days
}

func (d DaysOfWeek) String() string {
	if d == NoDays {
		return "none"
	}
	names := make([]string, 0, 7)
	for _, wd := range d.Weekdays() {
		names = append(names, wd.String())
	}
	return strings.Join(names, ",")
}

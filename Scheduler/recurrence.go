package Scheduler

import (
	"time"

	"golang.org/x/exp/slices"

	"Aegis/Models"
)

const DateLayout = "2006-01-02"

// ExpandDates turns a schedule policy into the sorted, de-duplicated list of
// calendar dates an assignment is active on. Range-derived policies clip to
// [start, end]. The reference day is injected instead of reading the clock
// so this_week expansion is deterministic in tests.
func ExpandDates(policy, start, end string, explicit []string, today time.Time) ([]string, error) {
	if policy == Models.ScheduleExplicitDates {
		return expandExplicit(explicit)
	}

	startDay, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, Validationf("invalid start date %q", start)
	}
	endDay, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, Validationf("invalid end date %q", end)
	}
	if startDay.After(endDay) {
		return nil, Validationf("start date %s is after end date %s", start, end)
	}

	switch policy {
	case Models.ScheduleThisWeek:
		monday := startOfWeek(today)
		weekStart, weekEnd := monday, monday.AddDate(0, 0, 6)
		if weekStart.Before(startDay) {
			weekStart = startDay
		}
		if weekEnd.After(endDay) {
			weekEnd = endDay
		}
		return collectDates(weekStart, weekEnd, nil), nil
	case Models.ScheduleWeekdaysOfRange:
		return collectDates(startDay, endDay, func(d time.Time) bool {
			wd := d.Weekday()
			return wd != time.Saturday && wd != time.Sunday
		}), nil
	case Models.ScheduleWeekendsOfRange:
		return collectDates(startDay, endDay, func(d time.Time) bool {
			wd := d.Weekday()
			return wd == time.Saturday || wd == time.Sunday
		}), nil
	case Models.ScheduleDaily:
		return collectDates(startDay, endDay, nil), nil
	}
	return nil, Validationf("unknown schedule policy %q", policy)
}

func expandExplicit(explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return nil, Validationf("explicit_dates policy requires at least one date")
	}
	seen := make(map[string]bool, len(explicit))
	dates := make([]string, 0, len(explicit))
	for _, d := range explicit {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return nil, Validationf("invalid date %q in explicit_dates", d)
		}
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	slices.Sort(dates)
	return dates, nil
}

// startOfWeek returns the Monday of the week containing day.
func startOfWeek(day time.Time) time.Time {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return day.AddDate(0, 0, -offset)
}

func collectDates(from, to time.Time, keep func(time.Time) bool) []string {
	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if keep == nil || keep(d) {
			dates = append(dates, d.Format(DateLayout))
		}
	}
	return dates
}

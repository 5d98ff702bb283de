package Scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Aegis/Models"
)

func TestExpandDatesWeekdaysOfRange(t *testing.T) {
	// 2024-01-01 is a Monday, so the range is one full Mon-Sun week.
	dates, err := ExpandDates(Models.ScheduleWeekdaysOfRange, "2024-01-01", "2024-01-07", nil, testDay(t, "2024-01-03"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, dates)
}

func TestExpandDatesWeekendsOfRange(t *testing.T) {
	dates, err := ExpandDates(Models.ScheduleWeekendsOfRange, "2024-01-01", "2024-01-07", nil, testDay(t, "2024-01-03"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"2024-01-06", "2024-01-07"}, dates)
}

func TestExpandDatesDaily(t *testing.T) {
	dates, err := ExpandDates(Models.ScheduleDaily, "2024-01-01", "2024-01-07", nil, testDay(t, "2024-01-03"))
	assert.NoError(t, err)
	assert.Len(t, dates, 7)
	assert.Equal(t, "2024-01-01", dates[0])
	assert.Equal(t, "2024-01-07", dates[6])
}

func TestExpandDatesExplicit(t *testing.T) {
	dates, err := ExpandDates(Models.ScheduleExplicitDates, "", "", []string{"2024-03-15", "2024-03-01", "2024-03-15"}, testDay(t, "2024-01-03"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-15"}, dates)
}

func TestExpandDatesExplicitEmpty(t *testing.T) {
	_, err := ExpandDates(Models.ScheduleExplicitDates, "", "", nil, testDay(t, "2024-01-03"))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestExpandDatesThisWeek(t *testing.T) {
	// 2024-01-10 is a Wednesday, its week is Mon 2024-01-08 to Sun 2024-01-14.
	dates, err := ExpandDates(Models.ScheduleThisWeek, "2024-01-01", "2024-01-31", nil, testDay(t, "2024-01-10"))
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11",
		"2024-01-12", "2024-01-13", "2024-01-14",
	}, dates)
}

func TestExpandDatesThisWeekClippedByRange(t *testing.T) {
	dates, err := ExpandDates(Models.ScheduleThisWeek, "2024-01-10", "2024-01-12", nil, testDay(t, "2024-01-10"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-12"}, dates)
}

func TestExpandDatesThisWeekOutsideRange(t *testing.T) {
	dates, err := ExpandDates(Models.ScheduleThisWeek, "2024-03-01", "2024-03-31", nil, testDay(t, "2024-01-10"))
	assert.NoError(t, err)
	assert.Empty(t, dates)
}

func TestExpandDatesStartAfterEnd(t *testing.T) {
	_, err := ExpandDates(Models.ScheduleDaily, "2024-01-07", "2024-01-01", nil, testDay(t, "2024-01-03"))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestExpandDatesSundayReference(t *testing.T) {
	// A Sunday reference day still resolves to the Monday of its own week.
	dates, err := ExpandDates(Models.ScheduleThisWeek, "2024-01-01", "2024-01-31", nil, testDay(t, "2024-01-14"))
	assert.NoError(t, err)
	assert.Equal(t, "2024-01-08", dates[0])
	assert.Equal(t, "2024-01-14", dates[len(dates)-1])
}

func TestExpandDatesUnknownPolicy(t *testing.T) {
	_, err := ExpandDates("fortnightly", "2024-01-01", "2024-01-07", nil, testDay(t, "2024-01-03"))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

package Models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Schedule policies.
const (
	ScheduleThisWeek        = "this_week"
	ScheduleWeekdaysOfRange = "weekdays_of_range"
	ScheduleWeekendsOfRange = "weekends_of_range"
	ScheduleDaily           = "daily"
	ScheduleExplicitDates   = "explicit_dates"
)

// Shift periods.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodBoth      = "both"
)

// Assignment binds a checklist template to one assignee with a recurrence
// policy. Dates are stored as YYYY-MM-DD strings. ExplicitDates is only
// consulted when SchedulePolicy is explicit_dates.
type Assignment struct {
	gorm.Model
	TemplateID     uint              `json:"template_id" gorm:"index;not null"`
	Template       ChecklistTemplate `json:"template"`
	AssigneeID     uint              `json:"assignee_id" gorm:"index;not null"`
	Assignee       User              `json:"assignee" gorm:"foreignKey:AssigneeID"`
	AssignerID     uint              `json:"assigner_id" gorm:"index;not null"`
	Assigner       User              `json:"assigner" gorm:"foreignKey:AssignerID"`
	SchedulePolicy string            `json:"schedule_policy" gorm:"type:varchar(32);not null"`
	StartDate      string            `json:"start_date" gorm:"type:varchar(10)"`
	EndDate        string            `json:"end_date" gorm:"type:varchar(10)"`
	ExplicitDates  datatypes.JSON    `json:"explicit_dates"`
	PeriodPolicy   string            `json:"period_policy" gorm:"type:varchar(16);default:morning"`
	Active         bool              `json:"active" gorm:"default:true"`

	Executions []Execution `json:"executions,omitempty" gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

// ExplicitDateList decodes the stored JSON date array.
func (a *Assignment) ExplicitDateList() ([]string, error) {
	if len(a.ExplicitDates) == 0 {
		return nil, nil
	}
	var dates []string
	if err := json.Unmarshal(a.ExplicitDates, &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

// Periods expands the period policy into the concrete shift set.
func (a *Assignment) Periods() []string {
	if a.PeriodPolicy == PeriodBoth {
		return []string{PeriodMorning, PeriodAfternoon}
	}
	return []string{a.PeriodPolicy}
}

func ValidSchedulePolicy(p string) bool {
	switch p {
	case ScheduleThisWeek, ScheduleWeekdaysOfRange, ScheduleWeekendsOfRange, ScheduleDaily, ScheduleExplicitDates:
		return true
	}
	return false
}

func ValidPeriodPolicy(p string) bool {
	return p == PeriodMorning || p == PeriodAfternoon || p == PeriodBoth
}

package Scheduler

import (
	"log"
	"time"

	"gorm.io/gorm"

	"Aegis/Models"
)

// Materializer expands an assignment into dated per-shift executions and
// backfills the per-task records. Every step is get-or-create against the
// storage-level unique indexes, so a run can be repeated (or raced) without
// duplicating rows or resetting an already-advanced execution.
type Materializer struct {
	DB *gorm.DB
}

func NewMaterializer(db *gorm.DB) *Materializer {
	return &Materializer{DB: db}
}

// Materialize ensures one Execution per (date, period) of the assignment's
// schedule and one TaskExecution per template task under each of them.
func (m *Materializer) Materialize(assignment *Models.Assignment, today time.Time) ([]Models.Execution, error) {
	if !assignment.Active {
		return nil, ErrAssignmentInactive
	}

	explicit, err := assignment.ExplicitDateList()
	if err != nil {
		return nil, Validationf("corrupt explicit_dates on assignment %d: %v", assignment.ID, err)
	}

	dates, err := ExpandDates(assignment.SchedulePolicy, assignment.StartDate, assignment.EndDate, explicit, today)
	if err != nil {
		return nil, err
	}

	var executions []Models.Execution
	for _, date := range dates {
		for _, period := range assignment.Periods() {
			execution, err := m.ensureExecution(assignment.ID, date, period)
			if err != nil {
				return nil, err
			}
			if _, err := m.RepairTaskExecutions(execution.ID); err != nil {
				return nil, err
			}
			executions = append(executions, *execution)
		}
	}
	return executions, nil
}

// ensureExecution is the idempotent get-or-create for one (assignment, date,
// period) slot. A unique-constraint failure from a concurrent run is treated
// as "already exists" and resolved by re-reading.
func (m *Materializer) ensureExecution(assignmentID uint, date, period string) (*Models.Execution, error) {
	var execution Models.Execution
	err := m.DB.Where("assignment_id = ? AND date = ? AND period = ?", assignmentID, date, period).
		First(&execution).Error
	if err == nil {
		return &execution, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	execution = Models.Execution{
		AssignmentID: assignmentID,
		Date:         date,
		Period:       period,
		Status:       Models.StatusPending,
	}
	if err := m.DB.Create(&execution).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Lost the race, another request created this slot first.
		if err := m.DB.Where("assignment_id = ? AND date = ? AND period = ?", assignmentID, date, period).
			First(&execution).Error; err != nil {
			return nil, err
		}
	}
	return &execution, nil
}

// RepairTaskExecutions backfills missing TaskExecutions for one execution.
// It exists as a standalone operation because templates may gain tasks after
// executions were first materialized, and because earlier defective runs may
// have left holes. Creates exactly the missing records, never duplicates.
func (m *Materializer) RepairTaskExecutions(executionID uint) (int, error) {
	var execution Models.Execution
	if err := m.DB.Preload("Assignment").First(&execution, executionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, &NotFoundError{Entity: "execution", ID: executionID}
		}
		return 0, err
	}

	var tasks []Models.ChecklistTask
	if err := m.DB.Where("template_id = ?", execution.Assignment.TemplateID).
		Order("order_index ASC").Find(&tasks).Error; err != nil {
		return 0, err
	}

	var existing []Models.TaskExecution
	if err := m.DB.Where("execution_id = ?", executionID).Find(&existing).Error; err != nil {
		return 0, err
	}
	present := make(map[uint]bool, len(existing))
	for _, te := range existing {
		present[te.TaskID] = true
	}

	created := 0
	for _, task := range tasks {
		if present[task.ID] {
			continue
		}
		taskExecution := Models.TaskExecution{
			ExecutionID:    executionID,
			TaskID:         task.ID,
			ApprovalStatus: Models.ApprovalPending,
		}
		if err := m.DB.Create(&taskExecution).Error; err != nil {
			if isUniqueViolation(err) {
				// Concurrent repair already filled this slot.
				continue
			}
			return created, err
		}
		created++
	}
	if created > 0 {
		log.Printf("Repaired execution %d: backfilled %d task executions", executionID, created)
	}
	return created, nil
}

package Scheduler

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"Aegis/Models"
)

// StateMachine drives execution-level transitions. Every transition is a
// compare-and-swap on the execution's lock_version so two approvers racing
// on the same execution cannot both win.
type StateMachine struct {
	DB *gorm.DB
}

func NewStateMachine(db *gorm.DB) *StateMachine {
	return &StateMachine{DB: db}
}

// TaskAnswer carries the assignee's input for one task execution. Evidence
// never travels with an answer, files go through the evidence endpoints and
// are counted from the database at submit time.
type TaskAnswer struct {
	TaskExecutionID uint   `json:"task_execution_id"`
	IsCompleted     *bool  `json:"is_completed"`
	YesNoAnswer     *bool  `json:"yes_no_answer"`
	DropdownAnswer  string `json:"dropdown_answer"`
	Notes           string `json:"notes"`
}

// IsOverdue classifies an execution as overdue. Overdue is derived at read
// time, never written to the status column.
func IsOverdue(e *Models.Execution, today time.Time) bool {
	if e.Status == Models.StatusCompleted {
		return false
	}
	return e.Date < today.Format(DateLayout)
}

// EffectiveStatus is the status a viewer should see for the given day.
func EffectiveStatus(e *Models.Execution, today time.Time) string {
	if IsOverdue(e, today) {
		return Models.StatusOverdue
	}
	return e.Status
}

// SaveProgress records answers on an in-flight execution without
// submitting. The first write starts the execution: started_at is set once
// and pending advances to in_progress.
func (sm *StateMachine) SaveProgress(executionID uint, caller *Models.User, answers []TaskAnswer, now time.Time) error {
	execution, err := sm.loadExecution(executionID)
	if err != nil {
		return err
	}
	if execution.Assignment.AssigneeID != caller.ID {
		return Forbiddenf("only the assignee may fill in this checklist")
	}
	if execution.Status == Models.StatusAwaitingApproval || execution.Status == Models.StatusCompleted {
		return Validationf("execution %d is already %s", executionID, execution.Status)
	}

	return sm.DB.Transaction(func(tx *gorm.DB) error {
		if err := sm.applyAnswers(tx, execution, answers, now); err != nil {
			return err
		}
		return sm.markStarted(tx, execution, now)
	})
}

// Submit runs the evidence policy over every required task and, if all of
// them pass, advances the execution to awaiting_approval. Any failure
// rejects the submission wholesale: answers written in this request are
// rolled back and the error lists every offending task at once.
func (sm *StateMachine) Submit(executionID uint, caller *Models.User, answers []TaskAnswer, now time.Time) error {
	execution, err := sm.loadExecution(executionID)
	if err != nil {
		return err
	}
	if execution.Assignment.AssigneeID != caller.ID {
		return Forbiddenf("only the assignee may submit this checklist")
	}
	if execution.Status == Models.StatusAwaitingApproval || execution.Status == Models.StatusCompleted {
		return Validationf("execution %d is already %s", executionID, execution.Status)
	}

	return sm.DB.Transaction(func(tx *gorm.DB) error {
		if err := sm.applyAnswers(tx, execution, answers, now); err != nil {
			return err
		}

		var taskExecutions []Models.TaskExecution
		if err := tx.Preload("Task").Where("execution_id = ?", executionID).Find(&taskExecutions).Error; err != nil {
			return err
		}

		var problems []TaskProblem
		for i := range taskExecutions {
			te := &taskExecutions[i]
			if !te.Task.Required {
				continue
			}
			if !TaskAnswerComplete(&te.Task, te) {
				problems = append(problems, TaskProblem{
					TaskID: te.TaskID,
					Title:  te.Task.Title,
					Reason: "not completed",
				})
				continue
			}
			var evidenceCount int64
			if err := tx.Model(&Models.Evidence{}).Where("task_execution_id = ?", te.ID).Count(&evidenceCount).Error; err != nil {
				return err
			}
			if err := CheckEvidence(&te.Task, te.IsCompleted, te.Notes, int(evidenceCount)); err != nil {
				problems = append(problems, TaskProblem{
					TaskID: te.TaskID,
					Title:  te.Task.Title,
					Reason: "missing evidence or notes",
				})
			}
		}
		if len(problems) > 0 {
			return &IncompleteRequiredTasksError{Problems: problems}
		}

		updates := map[string]interface{}{
			"status":         Models.StatusAwaitingApproval,
			"submitted_at":   now,
			"rejection_note": "",
		}
		if execution.StartedAt == nil {
			updates["started_at"] = now
		}
		return sm.transition(tx, execution, updates)
	})
}

// Approve moves an awaiting_approval execution to completed. The assignee
// may never approve their own submission, regardless of rank.
func (sm *StateMachine) Approve(executionID uint, caller *Models.User, now time.Time) error {
	execution, err := sm.loadExecution(executionID)
	if err != nil {
		return err
	}
	if err := sm.checkModerator(execution, caller); err != nil {
		return err
	}
	if execution.Status != Models.StatusAwaitingApproval {
		return Validationf("execution %d is %s, only awaiting_approval executions can be approved", executionID, execution.Status)
	}

	return sm.transition(sm.DB, execution, map[string]interface{}{
		"status":       Models.StatusCompleted,
		"completed_at": now,
	})
}

// Reject sends an awaiting_approval execution back to in_progress with the
// reviewer's reason. submitted_at is cleared so the next submission stamps
// a fresh one.
func (sm *StateMachine) Reject(executionID uint, caller *Models.User, reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return Validationf("rejection requires a reason")
	}
	execution, err := sm.loadExecution(executionID)
	if err != nil {
		return err
	}
	if err := sm.checkModerator(execution, caller); err != nil {
		return err
	}
	if execution.Status != Models.StatusAwaitingApproval {
		return Validationf("execution %d is %s, only awaiting_approval executions can be rejected", executionID, execution.Status)
	}

	return sm.transition(sm.DB, execution, map[string]interface{}{
		"status":         Models.StatusInProgress,
		"submitted_at":   nil,
		"rejection_note": strings.TrimSpace(reason),
	})
}

func (sm *StateMachine) loadExecution(executionID uint) (*Models.Execution, error) {
	var execution Models.Execution
	if err := sm.DB.Preload("Assignment").Preload("Assignment.Template").First(&execution, executionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "execution", ID: executionID}
		}
		return nil, err
	}
	return &execution, nil
}

func (sm *StateMachine) checkModerator(execution *Models.Execution, caller *Models.User) error {
	if execution.Assignment.AssigneeID == caller.ID {
		return Forbiddenf("assignees cannot approve or reject their own submission")
	}
	scope := ScopeFor(caller)
	if !scope.CanModerate(&execution.Assignment, execution.Assignment.Template.SectorID) {
		return Forbiddenf("no approval rights over this execution's sector")
	}
	return nil
}

// transition performs the optimistic concurrency update. Zero affected rows
// means another request advanced the execution first.
func (sm *StateMachine) transition(tx *gorm.DB, execution *Models.Execution, updates map[string]interface{}) error {
	updates["lock_version"] = execution.LockVersion + 1
	result := tx.Model(&Models.Execution{}).
		Where("id = ? AND lock_version = ?", execution.ID, execution.LockVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentTransition
	}
	return nil
}

// markStarted stamps started_at once and advances pending to in_progress.
func (sm *StateMachine) markStarted(tx *gorm.DB, execution *Models.Execution, now time.Time) error {
	if execution.Status != Models.StatusPending && execution.StartedAt != nil {
		return nil
	}
	updates := map[string]interface{}{}
	if execution.StartedAt == nil {
		updates["started_at"] = now
	}
	if execution.Status == Models.StatusPending {
		updates["status"] = Models.StatusInProgress
	}
	return sm.transition(tx, execution, updates)
}

// applyAnswers writes the per-task answers. Completion for answer-driven
// task types is derived from the answer being set, not the client flag.
func (sm *StateMachine) applyAnswers(tx *gorm.DB, execution *Models.Execution, answers []TaskAnswer, now time.Time) error {
	for _, answer := range answers {
		var taskExecution Models.TaskExecution
		if err := tx.Preload("Task").First(&taskExecution, answer.TaskExecutionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &NotFoundError{Entity: "task execution", ID: answer.TaskExecutionID}
			}
			return err
		}
		if taskExecution.ExecutionID != execution.ID {
			return Validationf("task execution %d does not belong to execution %d", answer.TaskExecutionID, execution.ID)
		}

		switch taskExecution.Task.TaskType {
		case Models.TaskTypeYesNo:
			if answer.YesNoAnswer != nil {
				taskExecution.YesNoAnswer = answer.YesNoAnswer
			}
			taskExecution.IsCompleted = taskExecution.YesNoAnswer != nil
		case Models.TaskTypeDropdown:
			if answer.DropdownAnswer != "" {
				if !Models.ValidDropdownAnswer(answer.DropdownAnswer) {
					return Validationf("invalid dropdown answer %q for task %q", answer.DropdownAnswer, taskExecution.Task.Title)
				}
				taskExecution.DropdownAnswer = answer.DropdownAnswer
			}
			taskExecution.IsCompleted = taskExecution.DropdownAnswer != ""
		default:
			if answer.IsCompleted != nil {
				taskExecution.IsCompleted = *answer.IsCompleted
			}
		}
		if answer.Notes != "" {
			taskExecution.Notes = answer.Notes
		}
		if taskExecution.IsCompleted && taskExecution.CompletedAt == nil {
			completedAt := now
			taskExecution.CompletedAt = &completedAt
		} else if !taskExecution.IsCompleted {
			taskExecution.CompletedAt = nil
		}

		if err := tx.Save(&taskExecution).Error; err != nil {
			return err
		}
	}
	return nil
}

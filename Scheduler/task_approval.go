package Scheduler

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"Aegis/Models"
)

// Per-task approval is an advisory audit layer on top of TaskExecution. It
// does not gate the execution-level state machine, but it is held to the
// same authorization rule as execution approval.

func (sm *StateMachine) ApproveTask(taskExecutionID uint, caller *Models.User, note string, now time.Time) error {
	taskExecution, execution, err := sm.loadTaskExecution(taskExecutionID)
	if err != nil {
		return err
	}
	if err := sm.checkModerator(execution, caller); err != nil {
		return err
	}

	callerID := caller.ID
	return sm.DB.Model(taskExecution).Updates(map[string]interface{}{
		"approval_status": Models.ApprovalApproved,
		"approved_by":     callerID,
		"approved_at":     now,
		"approval_notes":  strings.TrimSpace(note),
	}).Error
}

// RejectTask requires a note so the assignee knows what to fix.
func (sm *StateMachine) RejectTask(taskExecutionID uint, caller *Models.User, note string, now time.Time) error {
	if strings.TrimSpace(note) == "" {
		return Validationf("task rejection requires a note")
	}
	taskExecution, execution, err := sm.loadTaskExecution(taskExecutionID)
	if err != nil {
		return err
	}
	if err := sm.checkModerator(execution, caller); err != nil {
		return err
	}

	callerID := caller.ID
	return sm.DB.Model(taskExecution).Updates(map[string]interface{}{
		"approval_status": Models.ApprovalRejected,
		"approved_by":     callerID,
		"approved_at":     now,
		"approval_notes":  strings.TrimSpace(note),
	}).Error
}

// UnapproveTask resets the decoration back to pending.
func (sm *StateMachine) UnapproveTask(taskExecutionID uint, caller *Models.User) error {
	taskExecution, execution, err := sm.loadTaskExecution(taskExecutionID)
	if err != nil {
		return err
	}
	if err := sm.checkModerator(execution, caller); err != nil {
		return err
	}

	return sm.DB.Model(taskExecution).Updates(map[string]interface{}{
		"approval_status": Models.ApprovalPending,
		"approved_by":     nil,
		"approved_at":     nil,
		"approval_notes":  "",
	}).Error
}

func (sm *StateMachine) loadTaskExecution(taskExecutionID uint) (*Models.TaskExecution, *Models.Execution, error) {
	var taskExecution Models.TaskExecution
	if err := sm.DB.First(&taskExecution, taskExecutionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, &NotFoundError{Entity: "task execution", ID: taskExecutionID}
		}
		return nil, nil, err
	}
	execution, err := sm.loadExecution(taskExecution.ExecutionID)
	if err != nil {
		return nil, nil, err
	}
	return &taskExecution, execution, nil
}

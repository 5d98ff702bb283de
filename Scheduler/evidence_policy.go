package Scheduler

import (
	"strings"

	"Aegis/Models"
)

// CheckEvidence decides whether a task may be marked complete. Answer-driven
// tasks (yes_no, dropdown) carry their proof in the answer itself. A normal
// task being marked complete must have notes or at least one attached
// evidence file. evidenceCount is counted from the database, never taken
// from the client.
func CheckEvidence(task *Models.ChecklistTask, isCompleted bool, notes string, evidenceCount int) error {
	if task.TaskType == Models.TaskTypeYesNo || task.TaskType == Models.TaskTypeDropdown {
		return nil
	}
	if !isCompleted {
		return nil
	}
	if strings.TrimSpace(notes) != "" || evidenceCount > 0 {
		return nil
	}
	return &MissingEvidenceOrNotesError{TaskID: task.ID, Title: task.Title}
}

// EvidenceAccess decides whether the caller may attach or delete evidence on
// the execution. Moderators keep access through review so they can curate a
// submission. The assignee loses write access once the execution is
// submitted. Overdue is a derived classification of pending/in_progress, so
// those stored statuses stay writable. Requires Assignment and its Template
// preloaded.
func EvidenceAccess(execution *Models.Execution, caller *Models.User) error {
	if ScopeFor(caller).CanModerate(&execution.Assignment, execution.Assignment.Template.SectorID) {
		return nil
	}
	if execution.Assignment.AssigneeID != caller.ID {
		return Forbiddenf("no access to this task execution")
	}
	if execution.Status == Models.StatusAwaitingApproval || execution.Status == Models.StatusCompleted {
		return ErrEvidenceLocked
	}
	return nil
}

// TaskAnswerComplete reports whether an answer set satisfies the completion
// rule for the task's type.
func TaskAnswerComplete(task *Models.ChecklistTask, te *Models.TaskExecution) bool {
	switch task.TaskType {
	case Models.TaskTypeYesNo:
		return te.YesNoAnswer != nil
	case Models.TaskTypeDropdown:
		return te.DropdownAnswer != ""
	default:
		return te.IsCompleted
	}
}

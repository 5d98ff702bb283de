package Scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for single-cause failures.
var (
	// ErrAssignmentInactive is returned when materialization is attempted on
	// a soft-disabled assignment. Reactivate first.
	ErrAssignmentInactive = errors.New("assignment is inactive")

	// ErrConcurrentTransition is returned when a state transition loses a
	// race against another request. Callers should re-read and retry.
	ErrConcurrentTransition = errors.New("execution was modified by another request")

	// ErrEvidenceLocked is returned when the assignee tries to change
	// evidence on an execution that has already been submitted.
	ErrEvidenceLocked = errors.New("execution has been submitted, evidence is locked for the assignee")
)

// ValidationError covers malformed input rejected before any write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError means the caller lacks the rank, sector or ownership
// needed for the requested action. Distinct from ValidationError so the API
// layer can answer 403 instead of 400.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func Forbiddenf(format string, args ...interface{}) error {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError covers dangling identifiers.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// TaskProblem identifies one task that blocks a submission.
type TaskProblem struct {
	TaskID uint   `json:"task_id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// MissingEvidenceOrNotesError is produced by the evidence policy for a
// normal task marked complete without notes or any evidence file.
type MissingEvidenceOrNotesError struct {
	TaskID uint
	Title  string
}

func (e *MissingEvidenceOrNotesError) Error() string {
	return fmt.Sprintf("task %q requires notes or evidence to be marked complete", e.Title)
}

// IncompleteRequiredTasksError rejects a submission wholesale. It carries
// every offending task so the client can render all of them at once.
type IncompleteRequiredTasksError struct {
	Problems []TaskProblem
}

func (e *IncompleteRequiredTasksError) Error() string {
	titles := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		titles = append(titles, p.Title)
	}
	return "submission rejected, incomplete required tasks: " + strings.Join(titles, ", ")
}

// isUniqueViolation reports whether err is a storage-layer uniqueness
// constraint failure. The materializer treats those as "already exists".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "Duplicate entry")
}

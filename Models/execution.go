package Models

import (
	"time"

	"gorm.io/gorm"
)

// Execution statuses. Overdue is never stored, it is derived at read time
// from the execution date.
const (
	StatusPending          = "pending"
	StatusInProgress       = "in_progress"
	StatusAwaitingApproval = "awaiting_approval"
	StatusCompleted        = "completed"
	StatusOverdue          = "overdue"
)

// Per-task approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Execution is one materialized instance of an Assignment for a specific
// date and shift period. LockVersion guards state transitions against
// concurrent approvers.
type Execution struct {
	gorm.Model
	AssignmentID  uint       `json:"assignment_id" gorm:"index;not null"`
	Assignment    Assignment `json:"assignment"`
	Date          string     `json:"date" gorm:"type:varchar(10);not null"`
	Period        string     `json:"period" gorm:"type:varchar(16);not null"`
	Status        string     `json:"status" gorm:"type:varchar(32);default:pending"`
	StartedAt     *time.Time `json:"started_at"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	RejectionNote string     `json:"rejection_note" gorm:"type:text"`
	LockVersion   int        `json:"-" gorm:"default:0"`

	TaskExecutions []TaskExecution `json:"task_executions,omitempty" gorm:"foreignKey:ExecutionID;constraint:OnDelete:CASCADE"`
}

type TaskExecution struct {
	gorm.Model
	ExecutionID uint          `json:"execution_id" gorm:"index;not null"`
	TaskID      uint          `json:"task_id" gorm:"index;not null"`
	Task        ChecklistTask `json:"task"`

	IsCompleted    bool       `json:"is_completed" gorm:"default:false"`
	YesNoAnswer    *bool      `json:"yes_no_answer"`
	DropdownAnswer string     `json:"dropdown_answer" gorm:"type:varchar(20)"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CompletedAt    *time.Time `json:"completed_at"`

	ApprovalStatus string     `json:"approval_status" gorm:"type:varchar(20);default:pending"`
	ApprovedBy     *uint      `json:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at"`
	ApprovalNotes  string     `json:"approval_notes" gorm:"type:text"`

	Evidence []Evidence `json:"evidence,omitempty" gorm:"foreignKey:TaskExecutionID;constraint:OnDelete:CASCADE"`
}

// Evidence is a file attached to a TaskExecution supporting its completion.
type Evidence struct {
	gorm.Model
	TaskExecutionID uint      `json:"task_execution_id" gorm:"index;not null"`
	Kind            string    `json:"kind" gorm:"type:varchar(20);not null"`
	FilePath        string    `json:"file_path" gorm:"not null"`
	ThumbPath       string    `json:"thumb_path"`
	OrderIndex      int       `json:"order_index" gorm:"default:0"`
	UploadedBy      uint      `json:"uploaded_by"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

func (Execution) TableName() string {
	return "executions"
}

func (TaskExecution) TableName() string {
	return "task_executions"
}

// SetupExecutionIndexes creates the uniqueness constraints the materializer
// relies on. A duplicate insert must fail at the storage layer, not just in
// application checks.
func SetupExecutionIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_executions_assignment_date_period ON executions (assignment_id, date, period) WHERE deleted_at IS NULL").Error; err != nil {
		return err
	}
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_task_executions_execution_task ON task_executions (execution_id, task_id) WHERE deleted_at IS NULL").Error
}

package Scheduler

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"Aegis/Models"
)

// Service orchestrates assignment creation, dashboards and bulk moderation
// on top of the materializer, the state machines and the visibility scope.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CreateAssignmentsInput fans out one assignment per (template, assignee)
// pair. AssigneeIDs may be a single user or a whole group resolved upstream.
type CreateAssignmentsInput struct {
	TemplateIDs    []uint   `json:"template_ids"`
	AssigneeIDs    []uint   `json:"assignee_ids"`
	SchedulePolicy string   `json:"schedule_policy"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ExplicitDates  []string `json:"explicit_dates"`
	PeriodPolicy   string   `json:"period_policy"`
}

// CreateAssignments validates the whole batch, creates every assignment and
// materializes its executions inside one transaction. Any failure aborts the
// entire batch and surfaces the first error, no partial assignment set.
func (s *Service) CreateAssignments(creator *Models.User, in CreateAssignmentsInput, today time.Time) ([]Models.Assignment, error) {
	if len(in.TemplateIDs) == 0 {
		return nil, Validationf("at least one template is required")
	}
	if len(in.AssigneeIDs) == 0 {
		return nil, Validationf("at least one assignee is required")
	}
	if !Models.ValidSchedulePolicy(in.SchedulePolicy) {
		return nil, Validationf("unknown schedule policy %q", in.SchedulePolicy)
	}
	if !Models.ValidPeriodPolicy(in.PeriodPolicy) {
		return nil, Validationf("unknown period policy %q", in.PeriodPolicy)
	}
	// Dry-run the expansion so date errors reject the batch before any write.
	if _, err := ExpandDates(in.SchedulePolicy, in.StartDate, in.EndDate, in.ExplicitDates, today); err != nil {
		return nil, err
	}

	var templates []Models.ChecklistTemplate
	if err := s.DB.Where("id IN ?", in.TemplateIDs).Find(&templates).Error; err != nil {
		return nil, err
	}
	if len(templates) != len(in.TemplateIDs) {
		return nil, Validationf("one or more templates do not exist")
	}
	for _, template := range templates {
		if creator.Permission >= Models.PermissionAdmin {
			continue
		}
		if !creator.InSector(template.SectorID) {
			return nil, Forbiddenf("no authority over sector of template %q", template.Name)
		}
	}

	var assigneeCount int64
	if err := s.DB.Model(&Models.User{}).Where("id IN ?", in.AssigneeIDs).Count(&assigneeCount).Error; err != nil {
		return nil, err
	}
	if int(assigneeCount) != len(in.AssigneeIDs) {
		return nil, Validationf("one or more assignees do not exist")
	}

	explicitJSON, err := json.Marshal(in.ExplicitDates)
	if err != nil {
		return nil, err
	}

	var created []Models.Assignment
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		materializer := NewMaterializer(tx)
		for _, template := range templates {
			for _, assigneeID := range in.AssigneeIDs {
				assignment := Models.Assignment{
					TemplateID:     template.ID,
					AssigneeID:     assigneeID,
					AssignerID:     creator.ID,
					SchedulePolicy: in.SchedulePolicy,
					StartDate:      in.StartDate,
					EndDate:        in.EndDate,
					ExplicitDates:  explicitJSON,
					PeriodPolicy:   in.PeriodPolicy,
					Active:         true,
				}
				if err := tx.Create(&assignment).Error; err != nil {
					return err
				}
				if _, err := materializer.Materialize(&assignment, today); err != nil {
					return err
				}
				created = append(created, assignment)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ExecutionFilters narrow a visible-executions listing.
type ExecutionFilters struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status"`
	SectorID   uint   `json:"sector_id"`
	TemplateID uint   `json:"template_id"`
}

// ListVisibleExecutions returns the caller's visible executions, newest
// first, with the overdue classification applied for the given day.
func (s *Service) ListVisibleExecutions(caller *Models.User, f ExecutionFilters, today time.Time) ([]Models.Execution, error) {
	q := ScopeFor(caller).ExecutionQuery(s.DB)

	if f.StartDate != "" {
		q = q.Where("executions.date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("executions.date <= ?", f.EndDate)
	}
	if f.TemplateID != 0 {
		q = q.Where("assignments.template_id = ?", f.TemplateID)
	}
	if f.SectorID != 0 {
		q = q.Where("assignments.template_id IN (?)",
			s.DB.Model(&Models.ChecklistTemplate{}).Select("id").Where("sector_id = ?", f.SectorID))
	}
	switch f.Status {
	case "":
	case Models.StatusOverdue:
		q = q.Where("executions.date < ? AND executions.status <> ?", today.Format(DateLayout), Models.StatusCompleted)
	default:
		q = q.Where("executions.status = ?", f.Status)
	}

	var executions []Models.Execution
	if err := q.Preload("Assignment").Preload("Assignment.Template").Preload("Assignment.Assignee").
		Order("executions.date DESC, executions.period ASC").
		Find(&executions).Error; err != nil {
		return nil, err
	}
	return executions, nil
}

// DashboardCounts aggregates the caller's visible subset at read time.
// Nothing here is cached, every call reflects the current rows.
type DashboardCounts struct {
	TotalAssignments int64 `json:"total_assignments"`
	TodayPending     int64 `json:"today_pending"`
	TodayDone        int64 `json:"today_done"`
	Overdue          int64 `json:"overdue"`
}

func (s *Service) DashboardCounts(caller *Models.User, today time.Time) (DashboardCounts, error) {
	var counts DashboardCounts
	scope := ScopeFor(caller)
	day := today.Format(DateLayout)

	if err := scope.AssignmentQuery(s.DB).Where("assignments.active = ?", true).Count(&counts.TotalAssignments).Error; err != nil {
		return counts, err
	}
	if err := scope.ExecutionQuery(s.DB).
		Where("executions.date = ? AND executions.status IN ?", day, []string{Models.StatusPending, Models.StatusInProgress}).
		Count(&counts.TodayPending).Error; err != nil {
		return counts, err
	}
	if err := scope.ExecutionQuery(s.DB).
		Where("executions.date = ? AND executions.status IN ?", day, []string{Models.StatusAwaitingApproval, Models.StatusCompleted}).
		Count(&counts.TodayDone).Error; err != nil {
		return counts, err
	}
	if err := scope.ExecutionQuery(s.DB).
		Where("executions.date < ? AND executions.status <> ?", day, Models.StatusCompleted).
		Count(&counts.Overdue).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// BulkResult reports partial-success bulk moderation. A failed row never
// rolls back the rows already transitioned.
type BulkResult struct {
	Affected int           `json:"affected"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

type BulkFailure struct {
	ExecutionID uint   `json:"execution_id"`
	Reason      string `json:"reason"`
}

// BulkApprove approves every awaiting_approval execution in the caller's
// visible subset that matches the filter.
func (s *Service) BulkApprove(caller *Models.User, f ExecutionFilters, now time.Time) (BulkResult, error) {
	return s.bulkTransition(caller, f, now, func(sm *StateMachine, id uint) error {
		return sm.Approve(id, caller, now)
	})
}

// BulkReject rejects them with one uniform reason.
func (s *Service) BulkReject(caller *Models.User, f ExecutionFilters, reason string, now time.Time) (BulkResult, error) {
	if reason == "" {
		return BulkResult{}, Validationf("bulk rejection requires a reason")
	}
	return s.bulkTransition(caller, f, now, func(sm *StateMachine, id uint) error {
		return sm.Reject(id, caller, reason, now)
	})
}

func (s *Service) bulkTransition(caller *Models.User, f ExecutionFilters, now time.Time, apply func(*StateMachine, uint) error) (BulkResult, error) {
	f.Status = Models.StatusAwaitingApproval
	executions, err := s.ListVisibleExecutions(caller, f, now)
	if err != nil {
		return BulkResult{}, err
	}

	sm := NewStateMachine(s.DB)
	var result BulkResult
	for _, execution := range executions {
		if err := apply(sm, execution.ID); err != nil {
			result.Failures = append(result.Failures, BulkFailure{ExecutionID: execution.ID, Reason: err.Error()})
			continue
		}
		result.Affected++
	}
	return result, nil
}

// RepairExecution backfills missing task executions for one execution after
// checking the caller's authority over its assignment.
func (s *Service) RepairExecution(executionID uint, caller *Models.User) (int, error) {
	var execution Models.Execution
	if err := s.DB.Preload("Assignment").Preload("Assignment.Template").First(&execution, executionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, &NotFoundError{Entity: "execution", ID: executionID}
		}
		return 0, err
	}
	if !ScopeFor(caller).CanModerate(&execution.Assignment, execution.Assignment.Template.SectorID) {
		return 0, Forbiddenf("no authority over this execution")
	}
	return NewMaterializer(s.DB).RepairTaskExecutions(executionID)
}

// SetAssignmentActive soft-enables or disables an assignment, preserving
// its history either way.
func (s *Service) SetAssignmentActive(assignmentID uint, caller *Models.User, active bool) (*Models.Assignment, error) {
	var assignment Models.Assignment
	if err := s.DB.Preload("Template").First(&assignment, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "assignment", ID: assignmentID}
		}
		return nil, err
	}
	if !ScopeFor(caller).CanModerate(&assignment, assignment.Template.SectorID) {
		return nil, Forbiddenf("no authority over this assignment")
	}
	if err := s.DB.Model(&assignment).Update("active", active).Error; err != nil {
		return nil, err
	}
	assignment.Active = active
	return &assignment, nil
}

package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Aegis/Models"
	"Aegis/Scheduler"
)

type ExecutionController struct {
	DB           *gorm.DB
	Service      *Scheduler.Service
	StateMachine *Scheduler.StateMachine
}

func NewExecutionController(db *gorm.DB) *ExecutionController {
	return &ExecutionController{
		DB:           db,
		Service:      Scheduler.NewService(db),
		StateMachine: Scheduler.NewStateMachine(db),
	}
}

type SubmitExecutionRequest struct {
	Answers []Scheduler.TaskAnswer `json:"answers"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type BulkModerationRequest struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	SectorID   uint   `json:"sector_id"`
	TemplateID uint   `json:"template_id"`
	Reason     string `json:"reason"`
}

// GetExecutions lists the caller's visible executions with the overdue
// classification applied for today.
func (ec *ExecutionController) GetExecutions(c *fiber.Ctx) error {
	user := CurrentUser(c)
	now := time.Now()

	executions, err := ec.Service.ListVisibleExecutions(user, Scheduler.ExecutionFilters{
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Status:     c.Query("status"),
		SectorID:   uint(c.QueryInt("sector_id")),
		TemplateID: uint(c.QueryInt("template_id")),
	}, now)
	if err != nil {
		return RespondError(c, err)
	}

	type executionWithStatus struct {
		Models.Execution
		EffectiveStatus string `json:"effective_status"`
	}
	response := make([]executionWithStatus, 0, len(executions))
	for _, execution := range executions {
		response = append(response, executionWithStatus{
			Execution:       execution,
			EffectiveStatus: Scheduler.EffectiveStatus(&execution, now),
		})
	}

	return c.JSON(fiber.Map{
		"executions": response,
		"total":      len(response),
	})
}

// GetExecution returns one execution with its tasks, answers, evidence and
// any rejection note left by a reviewer.
func (ec *ExecutionController) GetExecution(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	var execution Models.Execution
	if err := ec.DB.Preload("Assignment").Preload("Assignment.Template").Preload("Assignment.Assignee").
		Preload("TaskExecutions", func(db *gorm.DB) *gorm.DB {
			return db.Joins("JOIN checklist_tasks ON checklist_tasks.id = task_executions.task_id").
				Order("checklist_tasks.order_index ASC")
		}).
		Preload("TaskExecutions.Task").Preload("TaskExecutions.Task.Media").
		Preload("TaskExecutions.Evidence", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&execution, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Execution not found"})
	}

	scope := Scheduler.ScopeFor(user)
	if !scope.CanView(&execution.Assignment, execution.Assignment.Template.SectorID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Execution outside your visibility"})
	}

	completed := 0
	for _, te := range execution.TaskExecutions {
		if te.IsCompleted {
			completed++
		}
	}

	return c.JSON(fiber.Map{
		"execution":        execution,
		"effective_status": Scheduler.EffectiveStatus(&execution, time.Now()),
		"total_tasks":      len(execution.TaskExecutions),
		"completed_tasks":  completed,
	})
}

// SaveProgress records partial answers without submitting.
func (ec *ExecutionController) SaveProgress(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	var req SubmitExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	if err := ec.StateMachine.SaveProgress(uint(id), user, req.Answers, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Progress saved"})
}

// Submit runs the evidence policy over the required tasks and advances the
// execution to awaiting_approval, or rejects the submission wholesale.
func (ec *ExecutionController) Submit(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	var req SubmitExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	if err := ec.StateMachine.Submit(uint(id), user, req.Answers, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Submitted for approval"})
}

func (ec *ExecutionController) Approve(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	if err := ec.StateMachine.Approve(uint(id), user, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Execution approved"})
}

func (ec *ExecutionController) Reject(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Rejection reason is required"})
	}

	if err := ec.StateMachine.Reject(uint(id), user, req.Reason, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Execution rejected"})
}

// Repair backfills missing task executions for one execution. Scoped like
// the other moderation endpoints, the caller must have authority over the
// execution's assignment.
func (ec *ExecutionController) Repair(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}

	created, err := ec.Service.RepairExecution(uint(id), user)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Repair completed",
		"created": created,
	})
}

// BulkApprove approves every matching awaiting_approval execution in the
// caller's scope. Partial success: failures are listed, successes stay.
func (ec *ExecutionController) BulkApprove(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req BulkModerationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	result, err := ec.Service.BulkApprove(user, Scheduler.ExecutionFilters{
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		SectorID:   req.SectorID,
		TemplateID: req.TemplateID,
	}, time.Now())
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(result)
}

func (ec *ExecutionController) BulkReject(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req BulkModerationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	result, err := ec.Service.BulkReject(user, Scheduler.ExecutionFilters{
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		SectorID:   req.SectorID,
		TemplateID: req.TemplateID,
	}, req.Reason, time.Now())
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(result)
}

// DashboardCounts aggregates the caller's visible subset for the dashboard
// widgets. Computed per request, never cached.
func (ec *ExecutionController) DashboardCounts(c *fiber.Ctx) error {
	user := CurrentUser(c)
	counts, err := ec.Service.DashboardCounts(user, time.Now())
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(counts)
}

package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Aegis/Scheduler"
)

// TaskApprovalController exposes the advisory per-task approval layer.
type TaskApprovalController struct {
	StateMachine *Scheduler.StateMachine
}

func NewTaskApprovalController(db *gorm.DB) *TaskApprovalController {
	return &TaskApprovalController{StateMachine: Scheduler.NewStateMachine(db)}
}

type TaskModerationRequest struct {
	Note string `json:"note"`
}

func (tc *TaskApprovalController) ApproveTask(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task execution ID"})
	}

	// The note is optional, approvals may arrive without a body.
	var req TaskModerationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
		}
	}

	if err := tc.StateMachine.ApproveTask(uint(id), user, req.Note, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task approved"})
}

func (tc *TaskApprovalController) RejectTask(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task execution ID"})
	}

	var req TaskModerationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	if err := tc.StateMachine.RejectTask(uint(id), user, req.Note, time.Now()); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task rejected"})
}

func (tc *TaskApprovalController) UnapproveTask(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task execution ID"})
	}

	if err := tc.StateMachine.UnapproveTask(uint(id), user); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task approval reset"})
}

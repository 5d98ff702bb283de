package Controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"Aegis/Models"
	"Aegis/Scheduler"
)

var validate = validator.New()

// CurrentUser pulls the authenticated user stored by middleware.Verify.
func CurrentUser(c *fiber.Ctx) *Models.User {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return nil
	}
	return &user
}

// RespondError maps the engine's error taxonomy onto HTTP statuses.
// Business-rule rejections that carry task lists are serialized with them so
// the client can render every offending task at once.
func RespondError(c *fiber.Ctx, err error) error {
	var validationErr *Scheduler.ValidationError
	var authErr *Scheduler.AuthorizationError
	var notFoundErr *Scheduler.NotFoundError
	var incompleteErr *Scheduler.IncompleteRequiredTasksError
	var evidenceErr *Scheduler.MissingEvidenceOrNotesError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validationErr.Message})
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": authErr.Message})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": notFoundErr.Error()})
	case errors.As(err, &incompleteErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": incompleteErr.Error(),
			"tasks":   incompleteErr.Problems,
		})
	case errors.As(err, &evidenceErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": evidenceErr.Error(),
			"task_id": evidenceErr.TaskID,
		})
	case errors.Is(err, Scheduler.ErrAssignmentInactive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, Scheduler.ErrEvidenceLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, Scheduler.ErrConcurrentTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error(), "retryable": true})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}

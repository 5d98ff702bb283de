package Controllers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"Aegis/Models"
	"Aegis/Scheduler"
)

type AssignmentController struct {
	DB      *gorm.DB
	Service *Scheduler.Service
}

func NewAssignmentController(db *gorm.DB) *AssignmentController {
	return &AssignmentController{DB: db, Service: Scheduler.NewService(db)}
}

type CreateAssignmentRequest struct {
	TemplateIDs    []uint   `json:"template_ids" validate:"required,min=1"`
	AssigneeIDs    []uint   `json:"assignee_ids" validate:"required,min=1"`
	SchedulePolicy string   `json:"schedule_policy" validate:"required,oneof=this_week weekdays_of_range weekends_of_range daily explicit_dates"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ExplicitDates  []string `json:"explicit_dates"`
	PeriodPolicy   string   `json:"period_policy" validate:"required,oneof=morning afternoon both"`
}

// CreateAssignments fans out template x assignee, materializes every
// execution, and aborts the whole batch on the first failure.
func (ac *AssignmentController) CreateAssignments(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req CreateAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := ac.Service.CreateAssignments(user, Scheduler.CreateAssignmentsInput{
		TemplateIDs:    req.TemplateIDs,
		AssigneeIDs:    req.AssigneeIDs,
		SchedulePolicy: req.SchedulePolicy,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ExplicitDates:  req.ExplicitDates,
		PeriodPolicy:   req.PeriodPolicy,
	}, time.Now())
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Assignments created successfully",
		"assignments": created,
	})
}

// GetAssignments lists the caller's visible assignments.
func (ac *AssignmentController) GetAssignments(c *fiber.Ctx) error {
	user := CurrentUser(c)
	query := Scheduler.ScopeFor(user).AssignmentQuery(ac.DB)

	if c.Query("active") == "true" {
		query = query.Where("assignments.active = ?", true)
	}
	if templateID := c.QueryInt("template_id"); templateID > 0 {
		query = query.Where("assignments.template_id = ?", templateID)
	}

	var assignments []Models.Assignment
	if err := query.Preload("Template").Preload("Assignee").Preload("Assigner").
		Order("assignments.created_at DESC").Find(&assignments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch assignments"})
	}
	return c.JSON(assignments)
}

// Materialize re-runs execution generation for one assignment. Safe to call
// repeatedly, existing executions are left untouched.
func (ac *AssignmentController) Materialize(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid assignment ID"})
	}

	var assignment Models.Assignment
	if err := ac.DB.Preload("Template").First(&assignment, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Assignment not found"})
	}
	if !Scheduler.ScopeFor(user).CanModerate(&assignment, assignment.Template.SectorID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "No authority over this assignment"})
	}

	executions, err := Scheduler.NewMaterializer(ac.DB).Materialize(&assignment, time.Now())
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    "Executions materialized",
		"executions": len(executions),
	})
}

func (ac *AssignmentController) Deactivate(c *fiber.Ctx) error {
	return ac.setActive(c, false)
}

func (ac *AssignmentController) Reactivate(c *fiber.Ctx) error {
	return ac.setActive(c, true)
}

func (ac *AssignmentController) setActive(c *fiber.Ctx, active bool) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid assignment ID"})
	}

	assignment, err := ac.Service.SetAssignmentActive(uint(id), user, active)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(assignment)
}

// ImportAssignments bulk-creates assignments from an uploaded spreadsheet.
// Expected columns: assignee email, template name, schedule policy, start
// date, end date, period policy. Header row is skipped.
func (ac *AssignmentController) ImportAssignments(c *fiber.Ctx) error {
	user := CurrentUser(c)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing spreadsheet file"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Could not open uploaded file"})
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid spreadsheet"})
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Could not read spreadsheet rows"})
	}

	imported := 0
	var failures []fiber.Map
	for i, row := range rows {
		if i == 0 || len(row) < 6 {
			continue
		}
		assigneeEmail, templateName := row[0], row[1]
		policy, startDate, endDate, period := row[2], row[3], row[4], row[5]

		var assignee Models.User
		if err := ac.DB.Where("email = ?", assigneeEmail).First(&assignee).Error; err != nil {
			failures = append(failures, fiber.Map{"row": i + 1, "reason": "assignee not found: " + assigneeEmail})
			continue
		}
		var template Models.ChecklistTemplate
		if err := ac.DB.Where("name = ?", templateName).First(&template).Error; err != nil {
			failures = append(failures, fiber.Map{"row": i + 1, "reason": "template not found: " + templateName})
			continue
		}

		_, err := ac.Service.CreateAssignments(user, Scheduler.CreateAssignmentsInput{
			TemplateIDs:    []uint{template.ID},
			AssigneeIDs:    []uint{assignee.ID},
			SchedulePolicy: policy,
			StartDate:      startDate,
			EndDate:        endDate,
			PeriodPolicy:   period,
		}, time.Now())
		if err != nil {
			failures = append(failures, fiber.Map{"row": i + 1, "reason": err.Error()})
			continue
		}
		imported++
	}

	log.Printf("Assignment import by user %d: %d imported, %d failed", user.ID, imported, len(failures))
	return c.JSON(fiber.Map{
		"imported": imported,
		"failures": failures,
	})
}

package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Aegis/Models"
)

// TemplateController exposes the checklist template catalog. The scheduling
// engine itself only reads templates; authoring is a thin admin surface.
type TemplateController struct {
	DB *gorm.DB
}

func NewTemplateController(db *gorm.DB) *TemplateController {
	return &TemplateController{DB: db}
}

type CreateTemplateRequest struct {
	Name        string              `json:"name" validate:"required"`
	Description string              `json:"description"`
	SectorID    uint                `json:"sector_id" validate:"required"`
	Tasks       []CreateTaskRequest `json:"tasks"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	TaskType    string `json:"task_type" validate:"omitempty,oneof=normal yes_no dropdown"`
	OrderIndex  int    `json:"order_index"`
}

func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	query := tc.DB.Preload("Sector").Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	})

	if sectorID := c.QueryInt("sector_id"); sectorID > 0 {
		query = query.Where("sector_id = ?", sectorID)
	}
	if c.Query("active") == "true" {
		query = query.Where("active = ?", true)
	}

	var templates []Models.ChecklistTemplate
	if err := query.Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch templates"})
	}
	return c.JSON(templates)
}

func (tc *TemplateController) GetTemplate(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid template ID"})
	}

	var template Models.ChecklistTemplate
	if err := tc.DB.Preload("Sector").Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).Preload("Tasks.Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	}).First(&template, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Template not found"})
	}
	return c.JSON(template)
}

func (tc *TemplateController) CreateTemplate(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if user.Permission < Models.PermissionAdmin && !user.InSector(req.SectorID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "No authority over this sector"})
	}

	template := Models.ChecklistTemplate{
		Name:        req.Name,
		Description: req.Description,
		SectorID:    req.SectorID,
		Active:      true,
	}
	for i, task := range req.Tasks {
		taskType := task.TaskType
		if taskType == "" {
			taskType = Models.TaskTypeNormal
		}
		orderIndex := task.OrderIndex
		if orderIndex == 0 {
			orderIndex = i
		}
		template.Tasks = append(template.Tasks, Models.ChecklistTask{
			Title:       task.Title,
			Description: task.Description,
			Required:    task.Required,
			TaskType:    taskType,
			OrderIndex:  orderIndex,
		})
	}

	if err := tc.DB.Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create template"})
	}
	return c.Status(fiber.StatusCreated).JSON(template)
}

// AddTask appends a task to an existing template. Already-materialized
// executions do not pick it up until repair or re-materialization runs.
func (tc *TemplateController) AddTask(c *fiber.Ctx) error {
	user := CurrentUser(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid template ID"})
	}

	var template Models.ChecklistTemplate
	if err := tc.DB.First(&template, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Template not found"})
	}
	if user.Permission < Models.PermissionAdmin && !user.InSector(template.SectorID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "No authority over this sector"})
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	taskType := req.TaskType
	if taskType == "" {
		taskType = Models.TaskTypeNormal
	}
	task := Models.ChecklistTask{
		TemplateID:  template.ID,
		Title:       req.Title,
		Description: req.Description,
		Required:    req.Required,
		TaskType:    taskType,
		OrderIndex:  req.OrderIndex,
	}
	if err := tc.DB.Create(&task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create task"})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// SetActive toggles a template's availability for new assignments.
func (tc *TemplateController) SetActive(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid template ID"})
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	var template Models.ChecklistTemplate
	if err := tc.DB.First(&template, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Template not found"})
	}

	tc.DB.Model(&template).Update("active", req.Active)
	return c.JSON(template)
}

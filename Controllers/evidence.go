package Controllers

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Aegis/Models"
	"Aegis/Scheduler"
)

const (
	EvidenceDir      = "./Evidence"
	EvidenceThumbDir = "./EvidenceThumbs"
)

type EvidenceController struct {
	DB *gorm.DB
}

func NewEvidenceController(db *gorm.DB) *EvidenceController {
	return &EvidenceController{DB: db}
}

// UploadEvidence attaches a file to a task execution. The assignee can only
// attach while the execution is still theirs to work on; once submitted,
// evidence management stays open to the assigner and sector moderators.
func (ev *EvidenceController) UploadEvidence(c *fiber.Ctx) error {
	user := CurrentUser(c)
	taskExecutionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task execution ID"})
	}

	taskExecution, execution, err := ev.loadOwned(uint(taskExecutionID))
	if err != nil {
		return RespondError(c, err)
	}

	if err := Scheduler.EvidenceAccess(execution, user); err != nil {
		return RespondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing evidence file"})
	}

	if err := os.MkdirAll(EvidenceDir, 0755); err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Storage unavailable"})
	}

	fileName := fmt.Sprintf("%d_%d_%s", taskExecution.ID, time.Now().UnixNano(), filepath.Base(fileHeader.Filename))
	filePath := filepath.Join(EvidenceDir, fileName)
	if err := c.SaveFile(fileHeader, filePath); err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to store evidence file"})
	}

	kind := evidenceKind(fileHeader.Filename)
	thumbPath := ""
	if kind == Models.MediaKindImage {
		thumbPath = makeThumbnail(filePath, fileName)
	}

	var orderIndex int64
	ev.DB.Model(&Models.Evidence{}).Where("task_execution_id = ?", taskExecution.ID).Count(&orderIndex)

	evidence := Models.Evidence{
		TaskExecutionID: taskExecution.ID,
		Kind:            kind,
		FilePath:        filePath,
		ThumbPath:       thumbPath,
		OrderIndex:      int(orderIndex),
		UploadedBy:      user.ID,
		UploadedAt:      time.Now(),
	}
	if err := ev.DB.Create(&evidence).Error; err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to record evidence"})
	}

	return c.Status(fiber.StatusCreated).JSON(evidence)
}

func (ev *EvidenceController) GetEvidence(c *fiber.Ctx) error {
	taskExecutionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task execution ID"})
	}

	_, execution, err := ev.loadOwned(uint(taskExecutionID))
	if err != nil {
		return RespondError(c, err)
	}
	user := CurrentUser(c)
	if !Scheduler.ScopeFor(user).CanView(&execution.Assignment, execution.Assignment.Template.SectorID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "No access to this task execution"})
	}

	var evidence []Models.Evidence
	if err := ev.DB.Where("task_execution_id = ?", taskExecutionID).Order("order_index ASC").Find(&evidence).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch evidence"})
	}
	return c.JSON(evidence)
}

func (ev *EvidenceController) DeleteEvidence(c *fiber.Ctx) error {
	user := CurrentUser(c)
	evidenceID, err := strconv.Atoi(c.Params("evidenceId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid evidence ID"})
	}

	var evidence Models.Evidence
	if err := ev.DB.First(&evidence, evidenceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Evidence not found"})
	}

	_, execution, err := ev.loadOwned(evidence.TaskExecutionID)
	if err != nil {
		return RespondError(c, err)
	}

	if err := Scheduler.EvidenceAccess(execution, user); err != nil {
		return RespondError(c, err)
	}

	if err := ev.DB.Delete(&evidence).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete evidence"})
	}
	if evidence.FilePath != "" {
		os.Remove(evidence.FilePath)
	}
	if evidence.ThumbPath != "" {
		os.Remove(evidence.ThumbPath)
	}

	return c.JSON(fiber.Map{"message": "Evidence deleted successfully"})
}

func (ev *EvidenceController) loadOwned(taskExecutionID uint) (*Models.TaskExecution, *Models.Execution, error) {
	var taskExecution Models.TaskExecution
	if err := ev.DB.First(&taskExecution, taskExecutionID).Error; err != nil {
		return nil, nil, &Scheduler.NotFoundError{Entity: "task execution", ID: taskExecutionID}
	}

	var execution Models.Execution
	if err := ev.DB.Preload("Assignment").Preload("Assignment.Template").First(&execution, taskExecution.ExecutionID).Error; err != nil {
		return nil, nil, &Scheduler.NotFoundError{Entity: "execution", ID: taskExecution.ExecutionID}
	}
	return &taskExecution, &execution, nil
}

func evidenceKind(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return Models.MediaKindImage
	case ".mp4", ".mov", ".avi", ".mkv", ".webm":
		return Models.MediaKindVideo
	default:
		return Models.MediaKindDocument
	}
}

// makeThumbnail writes a small preview next to the original. Thumbnail
// failures are logged and ignored, the original upload still succeeds.
func makeThumbnail(filePath, fileName string) string {
	img, err := imaging.Open(filePath)
	if err != nil {
		log.Printf("Error opening image for thumbnail: %v", err)
		return ""
	}
	if err := os.MkdirAll(EvidenceThumbDir, 0755); err != nil {
		log.Printf("Error creating thumbnail directory: %v", err)
		return ""
	}

	thumb := imaging.Thumbnail(img, 320, 320, imaging.Lanczos)
	thumbPath := filepath.Join(EvidenceThumbDir, fileName)
	if err := imaging.Save(thumb, thumbPath); err != nil {
		log.Printf("Error saving thumbnail: %v", err)
		return ""
	}
	return thumbPath
}

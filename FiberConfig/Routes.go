package FiberConfig

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"Aegis/Controllers"
	"Aegis/Models"
	"Aegis/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	templateController := Controllers.NewTemplateController(db)
	assignmentController := Controllers.NewAssignmentController(db)
	executionController := Controllers.NewExecutionController(db)
	taskApprovalController := Controllers.NewTaskApprovalController(db)
	evidenceController := Controllers.NewEvidenceController(db)

	api := app.Group("/api")

	// Auth
	api.Post("/Login", Controllers.Login)
	api.Post("/Logout", Controllers.Logout)
	api.Get("/User", middleware.Verify(1), Controllers.User)
	api.Get("/validate-token", middleware.Verify(1), Controllers.ValidateToken)
	api.Post("/RegisterUser", middleware.Verify(4), Controllers.RegisterUser)
	api.Get("/FetchUsers", middleware.Verify(4), Controllers.FetchUsers)

	// Sectors
	api.Get("/sectors", middleware.Verify(1), Controllers.GetSectors)
	api.Post("/sectors", middleware.Verify(4), Controllers.CreateSector)

	// Checklist templates
	templates := api.Group("/templates", middleware.Verify(1))
	templates.Get("/", templateController.GetTemplates)
	templates.Get("/:id", templateController.GetTemplate)
	templates.Post("/", middleware.Verify(2), templateController.CreateTemplate)
	templates.Post("/:id/tasks", middleware.Verify(2), templateController.AddTask)
	templates.Put("/:id/active", middleware.Verify(2), templateController.SetActive)

	// Assignments
	assignments := api.Group("/assignments", middleware.Verify(1))
	assignments.Get("/", assignmentController.GetAssignments)
	assignments.Post("/", middleware.Verify(2), assignmentController.CreateAssignments)
	assignments.Post("/import", middleware.Verify(2), assignmentController.ImportAssignments)
	assignments.Post("/:id/materialize", middleware.Verify(2), assignmentController.Materialize)
	assignments.Put("/:id/deactivate", middleware.Verify(2), assignmentController.Deactivate)
	assignments.Put("/:id/reactivate", middleware.Verify(2), assignmentController.Reactivate)

	// Executions
	executions := api.Group("/executions", middleware.Verify(1))
	executions.Get("/", executionController.GetExecutions)
	executions.Get("/:id", executionController.GetExecution)
	executions.Post("/:id/progress", executionController.SaveProgress)
	executions.Post("/:id/submit", executionController.Submit)
	executions.Post("/:id/approve", executionController.Approve)
	executions.Post("/:id/reject", executionController.Reject)
	executions.Post("/:id/repair", middleware.Verify(2), executionController.Repair)
	api.Post("/executions-bulk/approve", middleware.Verify(2), executionController.BulkApprove)
	api.Post("/executions-bulk/reject", middleware.Verify(2), executionController.BulkReject)

	// Per-task approvals
	taskExecutions := api.Group("/task-executions", middleware.Verify(1))
	taskExecutions.Post("/:id/approve", taskApprovalController.ApproveTask)
	taskExecutions.Post("/:id/reject", taskApprovalController.RejectTask)
	taskExecutions.Post("/:id/unapprove", taskApprovalController.UnapproveTask)

	// Evidence
	taskExecutions.Post("/:id/evidence", evidenceController.UploadEvidence)
	taskExecutions.Get("/:id/evidence", evidenceController.GetEvidence)
	api.Delete("/evidence/:evidenceId", middleware.Verify(1), evidenceController.DeleteEvidence)

	// Dashboard
	api.Get("/dashboard/counts", middleware.Verify(1), executionController.DashboardCounts)

	// Audit logs
	api.Get("/logs", middleware.Verify(4), Controllers.GetLogs)
	api.Get("/logs/stats", middleware.Verify(4), Controllers.GetLogStats)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	app := fiber.New()
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)

	// Evidence files and their thumbnails, served like any other upload dir
	app.Static("/Evidence", "./Evidence", fiber.Static{Compress: true, CacheDuration: time.Second * 10})
	app.Static("/EvidenceThumbs", "./EvidenceThumbs", fiber.Static{Compress: true, CacheDuration: time.Second * 10})
	app.Static("/TaskMedia", "./TaskMedia", fiber.Static{Compress: true, CacheDuration: time.Second * 10})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	app.Listen(":" + port)
}

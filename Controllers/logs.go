package Controllers

import (
	"github.com/gofiber/fiber/v2"

	"Aegis/Models"
)

// GetLogs returns the persisted request audit trail, newest first.
func GetLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit > 1000 {
		limit = 1000
	}

	query := Models.DB.Model(&Models.RequestLog{})
	if path := c.Query("path"); path != "" {
		query = query.Where("path LIKE ?", "%"+path+"%")
	}
	if userID := c.QueryInt("user_id"); userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.QueryInt("status"); status > 0 {
		query = query.Where("status = ?", status)
	}

	var logs []Models.RequestLog
	if err := query.Order("timestamp DESC").Limit(limit).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to fetch logs"})
	}
	return c.JSON(fiber.Map{"logs": logs, "total": len(logs)})
}

// GetLogStats summarizes the audit trail by status class.
func GetLogStats(c *fiber.Ctx) error {
	var total, success, clientErrors, serverErrors int64
	Models.DB.Model(&Models.RequestLog{}).Count(&total)
	Models.DB.Model(&Models.RequestLog{}).Where("status >= 200 AND status < 400").Count(&success)
	Models.DB.Model(&Models.RequestLog{}).Where("status >= 400 AND status < 500").Count(&clientErrors)
	Models.DB.Model(&Models.RequestLog{}).Where("status >= 500").Count(&serverErrors)

	return c.JSON(fiber.Map{
		"total":         total,
		"success":       success,
		"client_errors": clientErrors,
		"server_errors": serverErrors,
	})
}

package middleware

import (
	"Aegis/Models"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs every request to the console and persists an audit row
// so admins can review who did what through the logs endpoints.
func RequestLogger() fiber.Handler {
	skip := map[string]bool{
		"/health":  true,
		"/metrics": true,
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		var userID uint
		var username string
		if user := c.Locals("user"); user != nil {
			if userStruct, ok := user.(Models.User); ok {
				userID = userStruct.ID
				username = userStruct.Name
			}
		}

		entry := Models.RequestLog{
			Timestamp: start,
			Method:    c.Method(),
			Path:      c.Path(),
			Status:    c.Response().StatusCode(),
			LatencyMs: latency.Milliseconds(),
			IP:        c.IP(),
			UserID:    userID,
			Username:  username,
		}
		if err != nil {
			entry.Error = err.Error()
		}

		log.Printf("[%s] %s %s %d %s %s user:%d(%s)",
			start.Format("2006-01-02 15:04:05"),
			entry.Method, entry.Path, entry.Status, latency, entry.IP, userID, username)

		if Models.DB != nil {
			if dbErr := Models.DB.Create(&entry).Error; dbErr != nil {
				log.Printf("Error persisting request log: %v", dbErr)
			}
		}

		return err
	}
}

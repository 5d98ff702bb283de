package Models

import (
	"time"

	"gorm.io/gorm"
)

// RequestLog is the persisted audit trail written by the request logging
// middleware. Admins can query it through the logs endpoints.
type RequestLog struct {
	gorm.Model
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Method    string    `json:"method" gorm:"type:varchar(10)"`
	Path      string    `json:"path" gorm:"index"`
	Status    int       `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	IP        string    `json:"ip"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Username  string    `json:"username"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
}

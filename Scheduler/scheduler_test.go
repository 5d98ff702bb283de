package Scheduler

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Aegis/Models"
)

var testDBCounter int64

// setupTestDB opens a fresh in-memory database with the full schema and the
// uniqueness indexes the materializer depends on.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:aegis_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&Models.Sector{}, &Models.User{},
		&Models.ChecklistTemplate{}, &Models.ChecklistTask{}, &Models.TaskMedia{},
		&Models.Assignment{}, &Models.Execution{}, &Models.TaskExecution{}, &Models.Evidence{},
	)
	assert.NoError(t, err)
	assert.NoError(t, Models.SetupExecutionIndexes(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, permission int, sectors ...Models.Sector) *Models.User {
	t.Helper()
	user := Models.User{
		Name:       name,
		Email:      name + "@example.com",
		Permission: permission,
		Sectors:    sectors,
	}
	assert.NoError(t, db.Create(&user).Error)
	return &user
}

func createSector(t *testing.T, db *gorm.DB, name string) Models.Sector {
	t.Helper()
	sector := Models.Sector{Name: name}
	assert.NoError(t, db.Create(&sector).Error)
	return sector
}

func createTemplate(t *testing.T, db *gorm.DB, sectorID uint, tasks ...Models.ChecklistTask) *Models.ChecklistTemplate {
	t.Helper()
	template := Models.ChecklistTemplate{
		Name:     fmt.Sprintf("Template %d", time.Now().UnixNano()),
		SectorID: sectorID,
		Active:   true,
		Tasks:    tasks,
	}
	assert.NoError(t, db.Create(&template).Error)
	return &template
}

func createAssignment(t *testing.T, db *gorm.DB, template *Models.ChecklistTemplate, assignee, assigner *Models.User, policy, start, end, period string) *Models.Assignment {
	t.Helper()
	explicit, _ := json.Marshal([]string{})
	assignment := Models.Assignment{
		TemplateID:     template.ID,
		AssigneeID:     assignee.ID,
		AssignerID:     assigner.ID,
		SchedulePolicy: policy,
		StartDate:      start,
		EndDate:        end,
		ExplicitDates:  explicit,
		PeriodPolicy:   period,
		Active:         true,
	}
	assert.NoError(t, db.Create(&assignment).Error)
	return &assignment
}

func requiredNormalTask(title string) Models.ChecklistTask {
	return Models.ChecklistTask{Title: title, Required: true, TaskType: Models.TaskTypeNormal}
}

func testDay(t *testing.T, value string) time.Time {
	t.Helper()
	day, err := time.Parse(DateLayout, value)
	assert.NoError(t, err)
	return day
}

package Scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Aegis/Models"
)

func TestMaterializeCreatesExecutionGraph(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID, requiredNormalTask("Task A"), requiredNormalTask("Task B"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-03", Models.PeriodBoth)

	executions, err := NewMaterializer(db).Materialize(assignment, testDay(t, "2024-01-01"))
	assert.NoError(t, err)
	// 3 days x 2 periods
	assert.Len(t, executions, 6)

	var taskExecutionCount int64
	db.Model(&Models.TaskExecution{}).Count(&taskExecutionCount)
	assert.EqualValues(t, 12, taskExecutionCount)

	for _, execution := range executions {
		assert.Equal(t, Models.StatusPending, execution.Status)
	}
}

func TestMaterializeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID, requiredNormalTask("Task A"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-05", Models.PeriodMorning)

	materializer := NewMaterializer(db)
	today := testDay(t, "2024-01-01")
	for i := 0; i < 4; i++ {
		_, err := materializer.Materialize(assignment, today)
		assert.NoError(t, err)
	}

	var executionCount, taskExecutionCount int64
	db.Model(&Models.Execution{}).Count(&executionCount)
	db.Model(&Models.TaskExecution{}).Count(&taskExecutionCount)
	assert.EqualValues(t, 5, executionCount)
	assert.EqualValues(t, 5, taskExecutionCount)
}

func TestMaterializeDoesNotResetAdvancedStatus(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID, requiredNormalTask("Task A"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)

	materializer := NewMaterializer(db)
	today := testDay(t, "2024-01-01")
	executions, err := materializer.Materialize(assignment, today)
	assert.NoError(t, err)
	assert.Len(t, executions, 1)

	db.Model(&Models.Execution{}).Where("id = ?", executions[0].ID).Update("status", Models.StatusInProgress)

	_, err = materializer.Materialize(assignment, today)
	assert.NoError(t, err)

	var execution Models.Execution
	db.First(&execution, executions[0].ID)
	assert.Equal(t, Models.StatusInProgress, execution.Status)
}

func TestMaterializeRefusesInactiveAssignment(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID, requiredNormalTask("Task A"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)
	assignment.Active = false

	_, err := NewMaterializer(db).Materialize(assignment, testDay(t, "2024-01-01"))
	assert.ErrorIs(t, err, ErrAssignmentInactive)
}

func TestMaterializeZeroTaskTemplate(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID)
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)

	executions, err := NewMaterializer(db).Materialize(assignment, testDay(t, "2024-01-01"))
	assert.NoError(t, err)
	assert.Len(t, executions, 1)

	var taskExecutionCount int64
	db.Model(&Models.TaskExecution{}).Count(&taskExecutionCount)
	assert.EqualValues(t, 0, taskExecutionCount)
}

func TestRepairBackfillsExactlyMissing(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID,
		requiredNormalTask("Task A"), requiredNormalTask("Task B"), requiredNormalTask("Task C"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)

	materializer := NewMaterializer(db)
	executions, err := materializer.Materialize(assignment, testDay(t, "2024-01-01"))
	assert.NoError(t, err)
	executionID := executions[0].ID

	// Simulate a defective earlier run by dropping two of the three records.
	var taskExecutions []Models.TaskExecution
	db.Where("execution_id = ?", executionID).Find(&taskExecutions)
	assert.Len(t, taskExecutions, 3)
	db.Unscoped().Delete(&taskExecutions[0])
	db.Unscoped().Delete(&taskExecutions[1])

	created, err := materializer.RepairTaskExecutions(executionID)
	assert.NoError(t, err)
	assert.Equal(t, 2, created)

	var count int64
	db.Model(&Models.TaskExecution{}).Where("execution_id = ?", executionID).Count(&count)
	assert.EqualValues(t, 3, count)

	// A second repair finds nothing to do.
	created, err = materializer.RepairTaskExecutions(executionID)
	assert.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestRepairPicksUpTasksAddedAfterMaterialization(t *testing.T) {
	db := setupTestDB(t)
	sector := createSector(t, db, "Kitchen")
	assigner := createUser(t, db, "supervisor", Models.PermissionSupervisor, sector)
	assignee := createUser(t, db, "worker", Models.PermissionBasic, sector)
	template := createTemplate(t, db, sector.ID, requiredNormalTask("Task A"))
	assignment := createAssignment(t, db, template, assignee, assigner, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)

	materializer := NewMaterializer(db)
	executions, err := materializer.Materialize(assignment, testDay(t, "2024-01-01"))
	assert.NoError(t, err)

	lateTask := Models.ChecklistTask{TemplateID: template.ID, Title: "Task added later", TaskType: Models.TaskTypeNormal}
	assert.NoError(t, db.Create(&lateTask).Error)

	created, err := materializer.RepairTaskExecutions(executions[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestRepairUnknownExecution(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewMaterializer(db).RepairTaskExecutions(999)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

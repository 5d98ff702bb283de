package Scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"Aegis/Models"
)

// seedVisibilityWorld builds two sectors with one execution each:
// kitchen (supervisor's own sector) and warehouse (foreign sector, but the
// supervisor is personally the assignee there).
func seedVisibilityWorld(t *testing.T) (*gorm.DB, *Models.User, *Models.User, *Models.User) {
	t.Helper()
	db := setupTestDB(t)
	kitchen := createSector(t, db, "Kitchen")
	warehouse := createSector(t, db, "Warehouse")

	admin := createUser(t, db, "admin", Models.PermissionAdmin)
	supervisor := createUser(t, db, "kitchen-supervisor", Models.PermissionSupervisor, kitchen)
	worker := createUser(t, db, "worker", Models.PermissionBasic, kitchen)
	warehouseLead := createUser(t, db, "warehouse-lead", Models.PermissionSupervisor, warehouse)

	kitchenTemplate := createTemplate(t, db, kitchen.ID, requiredNormalTask("Mop floor"))
	warehouseTemplate := createTemplate(t, db, warehouse.ID, requiredNormalTask("Count stock"))

	materializer := NewMaterializer(db)
	today := testDay(t, "2024-01-01")

	kitchenAssignment := createAssignment(t, db, kitchenTemplate, worker, supervisor, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)
	_, err := materializer.Materialize(kitchenAssignment, today)
	assert.NoError(t, err)

	// The kitchen supervisor is personally assigned work in the warehouse.
	warehouseAssignment := createAssignment(t, db, warehouseTemplate, supervisor, warehouseLead, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)
	_, err = materializer.Materialize(warehouseAssignment, today)
	assert.NoError(t, err)

	return db, admin, supervisor, worker
}

func TestAdminSeesEverything(t *testing.T) {
	db, admin, _, _ := seedVisibilityWorld(t)

	var executions []Models.Execution
	assert.NoError(t, ScopeFor(admin).ExecutionQuery(db).Find(&executions).Error)
	assert.Len(t, executions, 2)
}

func TestSupervisorSeesSectorUnionPersonal(t *testing.T) {
	db, _, supervisor, _ := seedVisibilityWorld(t)

	var executions []Models.Execution
	assert.NoError(t, ScopeFor(supervisor).ExecutionQuery(db).Find(&executions).Error)
	// Kitchen execution via sector, warehouse execution via personal
	// assignment, each exactly once.
	assert.Len(t, executions, 2)
}

func TestSupervisorSeesOverlapExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	kitchen := createSector(t, db, "Kitchen")
	supervisor := createUser(t, db, "supervisor", Models.PermissionSupervisor, kitchen)
	manager := createUser(t, db, "manager", Models.PermissionAdmin)
	template := createTemplate(t, db, kitchen.ID, requiredNormalTask("Mop floor"))

	// Supervisor is both in the template's sector and the assignee, so the
	// execution matches two scope branches at once.
	assignment := createAssignment(t, db, template, supervisor, manager, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)
	_, err := NewMaterializer(db).Materialize(assignment, testDay(t, "2024-01-01"))
	assert.NoError(t, err)

	var executions []Models.Execution
	assert.NoError(t, ScopeFor(supervisor).ExecutionQuery(db).Find(&executions).Error)
	assert.Len(t, executions, 1)
}

func TestBasicUserSeesOnlyOwn(t *testing.T) {
	db, _, _, worker := seedVisibilityWorld(t)

	var executions []Models.Execution
	assert.NoError(t, ScopeFor(worker).ExecutionQuery(db).Find(&executions).Error)
	assert.Len(t, executions, 1)
}

func TestBasicUserWithNoInvolvementSeesNothing(t *testing.T) {
	db, _, _, _ := seedVisibilityWorld(t)
	outsider := createUser(t, db, "outsider", Models.PermissionBasic)

	var executions []Models.Execution
	assert.NoError(t, ScopeFor(outsider).ExecutionQuery(db).Find(&executions).Error)
	assert.Empty(t, executions)
}

func TestCanModerate(t *testing.T) {
	db := setupTestDB(t)
	kitchen := createSector(t, db, "Kitchen")
	warehouse := createSector(t, db, "Warehouse")

	admin := createUser(t, db, "admin", Models.PermissionAdmin)
	kitchenSupervisor := createUser(t, db, "kitchen-supervisor", Models.PermissionSupervisor, kitchen)
	warehouseSupervisor := createUser(t, db, "warehouse-supervisor", Models.PermissionSupervisor, warehouse)
	worker := createUser(t, db, "worker", Models.PermissionBasic, kitchen)

	template := createTemplate(t, db, kitchen.ID, requiredNormalTask("Mop floor"))
	assignment := createAssignment(t, db, template, worker, kitchenSupervisor, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)

	assert.True(t, ScopeFor(admin).CanModerate(assignment, kitchen.ID))
	assert.True(t, ScopeFor(kitchenSupervisor).CanModerate(assignment, kitchen.ID))
	assert.False(t, ScopeFor(warehouseSupervisor).CanModerate(assignment, kitchen.ID))
	assert.False(t, ScopeFor(worker).CanModerate(assignment, kitchen.ID))
}

func TestAssignerCanModerateOutsideSector(t *testing.T) {
	db := setupTestDB(t)
	kitchen := createSector(t, db, "Kitchen")
	warehouse := createSector(t, db, "Warehouse")

	warehouseSupervisor := createUser(t, db, "warehouse-supervisor", Models.PermissionSupervisor, warehouse)
	worker := createUser(t, db, "worker", Models.PermissionBasic, kitchen)
	template := createTemplate(t, db, kitchen.ID, requiredNormalTask("Mop floor"))

	// The warehouse supervisor created this kitchen assignment, so they can
	// moderate it even though the sector is not theirs.
	assignment := createAssignment(t, db, template, worker, warehouseSupervisor, Models.ScheduleDaily, "2024-01-01", "2024-01-01", Models.PeriodMorning)
	assert.True(t, ScopeFor(warehouseSupervisor).CanModerate(assignment, kitchen.ID))
}

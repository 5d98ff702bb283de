package Scheduler

import (
	"gorm.io/gorm"

	"Aegis/Models"
)

// Scope filters what a caller can see and act on. Admin and superadmin see
// everything. Sector-admins and supervisors see executions whose template
// belongs to one of their sectors, plus anything they are personally party
// to, as a union without double counting. Basic users only see executions
// where they are the assignee or the assigner.
type Scope struct {
	Caller *Models.User
}

func ScopeFor(caller *Models.User) Scope {
	return Scope{Caller: caller}
}

// ExecutionQuery restricts an executions query to the caller's visible
// subset. The query must be rooted at Models.Execution.
func (s Scope) ExecutionQuery(db *gorm.DB) *gorm.DB {
	q := db.Model(&Models.Execution{}).
		Joins("JOIN assignments ON assignments.id = executions.assignment_id AND assignments.deleted_at IS NULL")

	if s.Caller.Permission >= Models.PermissionAdmin {
		return q
	}

	if s.Caller.Permission >= Models.PermissionSectorAdmin {
		q = q.Joins("JOIN checklist_templates ON checklist_templates.id = assignments.template_id")
		sectorIDs := s.Caller.SectorIDs()
		if len(sectorIDs) == 0 {
			sectorIDs = []uint{0}
		}
		// Union of sector scope and personal involvement in a single OR over
		// one-to-one joins, so an execution matching both branches still
		// appears exactly once.
		return q.Where("checklist_templates.sector_id IN ? OR assignments.assignee_id = ? OR assignments.assigner_id = ?",
			sectorIDs, s.Caller.ID, s.Caller.ID)
	}

	return q.Where("assignments.assignee_id = ? OR assignments.assigner_id = ?", s.Caller.ID, s.Caller.ID)
}

// AssignmentQuery is the same scoping rule rooted at Models.Assignment.
func (s Scope) AssignmentQuery(db *gorm.DB) *gorm.DB {
	q := db.Model(&Models.Assignment{})

	if s.Caller.Permission >= Models.PermissionAdmin {
		return q
	}

	if s.Caller.Permission >= Models.PermissionSectorAdmin {
		q = q.Joins("JOIN checklist_templates ON checklist_templates.id = assignments.template_id")
		sectorIDs := s.Caller.SectorIDs()
		if len(sectorIDs) == 0 {
			sectorIDs = []uint{0}
		}
		return q.Where("checklist_templates.sector_id IN ? OR assignments.assignee_id = ? OR assignments.assigner_id = ?",
			sectorIDs, s.Caller.ID, s.Caller.ID)
	}

	return q.Where("assignments.assignee_id = ? OR assignments.assigner_id = ?", s.Caller.ID, s.Caller.ID)
}

// CanModerate reports whether the caller may approve or reject work under
// the given assignment. Self-approval is checked separately by the state
// machine since it also binds admins.
func (s Scope) CanModerate(assignment *Models.Assignment, templateSectorID uint) bool {
	if s.Caller.Permission >= Models.PermissionAdmin {
		return true
	}
	if assignment.AssignerID == s.Caller.ID {
		return true
	}
	if s.Caller.Permission >= Models.PermissionSectorAdmin && s.Caller.InSector(templateSectorID) {
		return true
	}
	return false
}

// CanView reports whether a single execution falls inside the caller's
// scope without issuing a query.
func (s Scope) CanView(assignment *Models.Assignment, templateSectorID uint) bool {
	if assignment.AssigneeID == s.Caller.ID || assignment.AssignerID == s.Caller.ID {
		return true
	}
	return s.CanModerate(assignment, templateSectorID)
}

// Package authz implements the pure authorization rules shared by every
// service. Decisions depend only on the actor, the action, and a snapshot of
// the resource, never on external state.
package authz

import "github.com/smartstudenthub/activity-api/internal/models"

// Action is one of the operations the policy arbitrates.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionComment Action = "comment"
	ActionShare   Action = "share"
)

// Actor is the authenticated principal a decision is made for.
type Actor struct {
	ID         string
	Role       models.UserRole
	Department string
}

// Resource is the snapshot of the record being acted on.
type Resource struct {
	OwnerID         string
	OwnerDepartment string
	Status          models.ActivityStatus
}

// Policy evaluates access decisions. RestrictFacultyApproval limits faculty
// approval to activities owned by students in the faculty member's own
// department.
type Policy struct {
	RestrictFacultyApproval bool
}

// New constructs a policy from configuration.
func New(restrictFacultyApproval bool) *Policy {
	return &Policy{RestrictFacultyApproval: restrictFacultyApproval}
}

// Can reports whether the actor may perform the action on the resource.
func (p *Policy) Can(actor Actor, action Action, resource Resource) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}

	switch actor.Role {
	case models.RoleFaculty:
		return p.facultyCan(actor, action, resource)
	case models.RoleStudent:
		return p.studentCan(actor, action, resource)
	}
	return false
}

func (p *Policy) facultyCan(actor Actor, action Action, resource Resource) bool {
	switch action {
	case ActionView, ActionComment:
		return actor.Department == resource.OwnerDepartment
	case ActionApprove:
		if resource.Status != models.StatusPending {
			return false
		}
		if p.RestrictFacultyApproval {
			return actor.Department == resource.OwnerDepartment
		}
		return true
	}
	return false
}

func (p *Policy) studentCan(actor Actor, action Action, resource Resource) bool {
	if actor.ID != resource.OwnerID {
		return false
	}
	switch action {
	case ActionView, ActionComment, ActionCreate:
		return true
	case ActionEdit, ActionDelete:
		return resource.Status != models.StatusApproved
	}
	return false
}

// CanAccessReport reports whether the actor may access a report at the given
// permission level. Owners and admins hold every permission; share grants
// carry exactly the granted level, with download implying view; public
// reports are viewable by anyone.
func (p *Policy) CanAccessReport(actor Actor, report *models.Report, permission models.SharePermission) bool {
	if actor.Role == models.RoleAdmin || actor.ID == report.GeneratedBy {
		return true
	}
	if report.IsPublic && permission == models.PermissionView {
		return true
	}
	for _, grant := range report.SharedWith {
		if grant.UserID != actor.ID {
			continue
		}
		if grant.Permission == permission {
			return true
		}
		if grant.Permission == models.PermissionEdit {
			return true
		}
		if grant.Permission == models.PermissionDownload && permission == models.PermissionView {
			return true
		}
	}
	return false
}

package applications

import (
	"placement-backend/internal/jobs"
	"placement-backend/internal/users"
)

// Actor is a previously-authenticated identity. The guard re-verifies
// ownership rather than trusting the role alone.
type Actor struct {
	UserID string
	Role   users.Role
}

// Authorize checks the actor against the requested transition. It is a pure
// check with no side effects: ownership first, then role, then reachability
// of the target from the current stage.
func Authorize(actor Actor, app Application, job jobs.Job, target Stage) error {
	switch actor.Role {
	case users.RoleEmployer:
		if job.EmployerID != actor.UserID {
			return ErrNotOwner
		}
	case users.RoleEmployee:
		if app.EmployeeID != actor.UserID {
			return ErrNotOwner
		}
	default:
		return ErrWrongRole
	}

	if role, restricted := EntryRole(target); restricted && role != actor.Role {
		return ErrWrongRole
	}

	if !app.Stage.ValidTarget(target) {
		return ErrInvalidTransition
	}
	return nil
}

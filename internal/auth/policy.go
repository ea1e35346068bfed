package auth

import (
	errors "github.com/frahmantamala/inspection-workflow/internal"
)

// Every role and ownership decision goes through these helpers so services
// never compare role strings themselves.

func RequireManager(actor *Actor) error {
	if !actor.IsManager() {
		return errors.ErrForbiddenRole
	}
	return nil
}

func RequireInspector(actor *Actor) error {
	if !actor.IsInspector() {
		return errors.ErrForbiddenRole
	}
	return nil
}

// RequireAssignee passes only for the inspector the record is assigned to.
func RequireAssignee(actor *Actor, inspectorID int64) error {
	if err := RequireInspector(actor); err != nil {
		return err
	}
	if actor.ID != inspectorID {
		return errors.ErrNotAssignee
	}
	return nil
}

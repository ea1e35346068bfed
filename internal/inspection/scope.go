package inspection

import "github.com/frahmantamala/inspection-workflow/internal/auth"

// Scope restricts which inspections a query may touch. Repositories apply it
// to every read so the visibility rule lives in one place.
type Scope struct {
	inspectorID int64
	all         bool
}

// ScopeFor is the visibility rule: managers see everything, inspectors see
// what is assigned to them, anyone else sees nothing.
func ScopeFor(actor *auth.Actor) Scope {
	switch {
	case actor.IsManager():
		return Scope{all: true}
	case actor.IsInspector():
		return Scope{inspectorID: actor.ID}
	default:
		return Scope{inspectorID: -1}
	}
}

// InspectorScope limits a query to one inspector regardless of who asks.
func InspectorScope(inspectorID int64) Scope {
	return Scope{inspectorID: inspectorID}
}

// SystemScope sees every inspection regardless of caller.
func SystemScope() Scope {
	return Scope{all: true}
}

func (s Scope) All() bool {
	return s.all
}

func (s Scope) InspectorID() int64 {
	return s.inspectorID
}

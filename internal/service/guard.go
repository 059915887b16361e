package service

import "github.com/iliyamo/contenthub/internal/model"

// Actor is the authenticated caller of an operation.  The zero value is
// an anonymous reader.
type Actor struct {
	UserID string
	Role   model.Role
}

// Anonymous reports whether no user is attached.
func (a Actor) Anonymous() bool { return a.UserID == "" }

// IsAdmin reports whether the actor carries the Admin role.
func (a Actor) IsAdmin() bool { return !a.Anonymous() && a.Role == model.RoleAdmin }

// CanMutate is the single ownership rule: the owner or any admin.
func CanMutate(ownerID, actorID string, role model.Role) bool {
	if actorID != "" && ownerID == actorID {
		return true
	}
	return role == model.RoleAdmin
}

// Authorize returns FORBIDDEN unless actor may mutate a resource owned by ownerID.
func Authorize(ownerID string, actor Actor) error {
	if actor.Anonymous() {
		return errUnauthorized("authentication required")
	}
	if !CanMutate(ownerID, actor.UserID, actor.Role) {
		return errForbidden("only the author or an admin can do this")
	}
	return nil
}

// requireAdmin returns FORBIDDEN for non-admin actors.
func requireAdmin(actor Actor) error {
	if actor.Anonymous() {
		return errUnauthorized("authentication required")
	}
	if !actor.IsAdmin() {
		return errForbidden("admin role required")
	}
	return nil
}

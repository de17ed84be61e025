package reseller

import (
	"slices"

	"github.com/xraph/reseller/id"
)

// Role is a coarse permission granted to an Actor by the identity layer.
type Role string

const (
	// RoleAdmin may run every lifecycle and wallet operation.
	RoleAdmin Role = "admin"
	// RoleSystem is held by internal callers such as provisioning, which
	// may debit wallets but not change lifecycle state.
	RoleSystem Role = "system"
)

// Actor is the already-authenticated caller of an operation. It is built
// by the identity layer; the engine never sees raw credentials.
type Actor struct {
	ID    id.UserID
	Roles []Role
}

// Admin returns an Actor holding RoleAdmin.
func Admin(userID id.UserID) Actor {
	return Actor{ID: userID, Roles: []Role{RoleAdmin}}
}

// System returns an Actor holding RoleSystem.
func System(userID id.UserID) Actor {
	return Actor{ID: userID, Roles: []Role{RoleSystem}}
}

// Has reports whether the actor holds role.
func (a Actor) Has(role Role) bool {
	return slices.Contains(a.Roles, role)
}

// authorize fails with ErrForbidden unless the actor has a valid user ID
// and holds one of roles.
func (a Actor) authorize(roles ...Role) error {
	if !a.ID.HasPrefix(id.PrefixUser) {
		return invalid("actor", "must be a %s_ identifier", id.PrefixUser)
	}
	for _, r := range roles {
		if a.Has(r) {
			return nil
		}
	}
	return ErrForbidden
}

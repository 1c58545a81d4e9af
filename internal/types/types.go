// README: Shared value objects: principals, roles, geo points.
package types

// Role is the closed set of actor roles resolved from a bearer credential.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
	RoleAdmin    Role = "admin"
	// RoleSystem is never resolved from a credential; it marks transitions
	// driven by the engine itself (verification gate, payment collaborator).
	RoleSystem Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleCourier, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Principal is an authenticated actor. Every service operation takes it
// explicitly; nothing reads ambient request state.
type Principal struct {
	ID   int64
	Role Role
}

// System is the internal actor used for engine-driven transitions.
var System = Principal{Role: RoleSystem}

type Point struct {
	Lat float64
	Lng float64
}

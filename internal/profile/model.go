// Package profile provides user profiles and their roles.
package profile

import "time"

// Role is what a profile is allowed to do in the workflows.
type Role string

const (
	RoleTenant  Role = "tenant"
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleBuyer   Role = "buyer"
)

// ValidRoles is the set of known roles.
var ValidRoles = []Role{RoleTenant, RoleOwner, RoleManager, RoleAdmin, RoleStaff, RoleBuyer}

// IsValid checks if a role is recognized.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanManage reports whether the role may approve bids and transfer ownership.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

// Profile is a person known to the system.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles
type Role string

const (
	RoleAgent      Role = "MPR"
	RoleOffice     Role = "OFFICE"
	RoleAccounting Role = "1S"
)

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAgent, RoleOffice, RoleAccounting:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	return string(r)
}

// OwnVisitsOnly reports whether the role is restricted to visits it manages
func (r Role) OwnVisitsOnly() bool {
	return r == RoleAgent
}

// CanEditCompletedVisit reports whether the role may change a visit after completion
func (r Role) CanEditCompletedVisit() bool {
	return r == RoleOffice || r == RoleAccounting
}

func (r Role) CanDeleteVisit() bool {
	return r == RoleOffice
}

// CanManageCatalog covers clients, products, prices and checklist questions
func (r Role) CanManageCatalog() bool {
	return r == RoleOffice
}

// CanSetStatus reports whether the role may advance visit status.
// The accounting integration only sets the processed and invoice markers.
func (r Role) CanSetStatus() bool {
	return r == RoleAgent || r == RoleOffice
}

// CanAssignManager reports whether the role may put a visit on another manager
func (r Role) CanAssignManager() bool {
	return r == RoleOffice || r == RoleAccounting
}

func (r Role) CanManageUsers() bool {
	return r == RoleOffice
}

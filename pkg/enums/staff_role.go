package enums

import "fmt"

// StaffRole identifies the contractor role a payout is attributed to.
type StaffRole string

const (
	StaffRolePhotographer StaffRole = "photographer"
	StaffRoleVideographer StaffRole = "videographer"
)

var validStaffRoles = []StaffRole{
	StaffRolePhotographer,
	StaffRoleVideographer,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}

package helper

import "slices"

func HasRole(role string, allowedRoles ...string) bool {
	return slices.Contains(allowedRoles, role)
}

func IsStaff(role string) bool {
	return HasRole(role, "staff")
}

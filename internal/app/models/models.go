package models

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin   RoleType = "ADMIN"
	RoleStaff   RoleType = "STAFF"
	RoleTeacher RoleType = "TEACHER"
	RoleStudent RoleType = "STUDENT"
	RoleParent  RoleType = "PARENT"
)

// IsValid reports whether r is one of the portal roles
func (r RoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// IsBackOffice reports roles that manage school data on behalf of others
func (r RoleType) IsBackOffice() bool {
	return r == RoleAdmin || r == RoleStaff
}

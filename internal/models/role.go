package models

// Role is the functional role of an identity inside one school.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// ProbeOrder is the fixed priority in which per-role profile tables are checked.
var ProbeOrder = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

// ParseRole returns the role named by s, or false for anything unknown.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return Role(s), true
	}
	return "", false
}

// ProfileTable is the table holding profile rows for the role.
func (r Role) ProfileTable() string {
	switch r {
	case RoleAdmin:
		return "admins"
	case RoleTeacher:
		return "teachers"
	case RoleStudent:
		return "students"
	case RoleParent:
		return "parents"
	}
	return ""
}

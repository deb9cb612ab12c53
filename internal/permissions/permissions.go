// Package permissions holds the static role to action allow-list consulted by
// route guards and returned to clients for UI gating.
package permissions

import (
	"sort"

	"schoolhub/internal/models"
)

type Action string

const (
	ManageSchool     Action = "school:manage"
	ViewSchool       Action = "school:view"
	ManageWhitelist  Action = "whitelist:manage"
	ManageStudents   Action = "students:manage"
	ViewStudents     Action = "students:view"
	ManageParents    Action = "parents:manage"
	ManageClasses    Action = "classes:manage"
	ViewClasses      Action = "classes:view"
	ManageSubjects   Action = "subjects:manage"
	ManageTimetable  Action = "timetable:manage"
	ViewTimetable    Action = "timetable:view"
	CreateAssignment Action = "assignments:create"
	ViewAssignments  Action = "assignments:view"
	DeleteAssignment Action = "assignments:delete"
	SubmitAssignment Action = "submissions:create"
	ViewSubmissions  Action = "submissions:view"
	GradeSubmission  Action = "submissions:grade"
	ManageFees       Action = "fees:manage"
	ViewFees         Action = "fees:view"
	SendMessage      Action = "messages:send"
	ViewMessages     Action = "messages:view"
	AITimetable      Action = "ai:timetable"
	AIPerformance    Action = "ai:performance"
	AIChat           Action = "ai:chat"
	AIFeeAnalytics   Action = "ai:fee_analytics"
)

type actionSet map[Action]struct{}

func setOf(actions ...Action) actionSet {
	s := make(actionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// table is the only source of grants. Changing access means editing it.
var table = map[models.Role]actionSet{
	models.RoleAdmin: setOf(
		ManageSchool, ViewSchool, ManageWhitelist,
		ManageStudents, ViewStudents, ManageParents,
		ManageClasses, ViewClasses, ManageSubjects,
		ManageTimetable, ViewTimetable,
		ViewAssignments, ViewSubmissions,
		ManageFees, ViewFees,
		SendMessage, ViewMessages,
		AITimetable, AIPerformance, AIChat, AIFeeAnalytics,
	),
	models.RoleTeacher: setOf(
		ViewSchool, ViewStudents, ViewClasses, ViewTimetable,
		CreateAssignment, DeleteAssignment, ViewAssignments, ViewSubmissions, GradeSubmission,
		SendMessage, ViewMessages,
		AIPerformance, AIChat,
	),
	models.RoleStudent: setOf(
		ViewSchool, ViewClasses, ViewTimetable,
		ViewAssignments, SubmitAssignment, ViewSubmissions,
		ViewFees, SendMessage, ViewMessages, AIChat,
	),
	models.RoleParent: setOf(
		ViewSchool, ViewTimetable, ViewAssignments, ViewSubmissions,
		ViewFees, SendMessage, ViewMessages, AIChat,
	),
}

// Can reports whether role may perform action. Unknown roles can do nothing.
func Can(role models.Role, action Action) bool {
	set, ok := table[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Actions lists the role's grants in a stable order.
func Actions(role models.Role) []string {
	set := table[role]
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, string(a))
	}
	sort.Strings(out)
	return out
}

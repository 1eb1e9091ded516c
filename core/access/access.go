// Package access maps user roles to the layouts they are shown and to the actions they may perform.
//
// ViewFor only decides what a client should display. Authorize is the policy boundary every mutating
// service call goes through; both rely on the same role grouping.
package access

import (
	"github.com/trezcool/masomo-console/core"
)

// Roles
const (
	RoleSuperAdmin  = "super-admin"
	RoleAdmin       = "admin"
	RoleInstitution = "institution"
	RolePrincipal   = "principal"
	RoleHOD         = "hod"
	RoleFaculty     = "faculty"
	RoleStudent     = "student"
	RoleParent      = "parent"
)

var (
	AdminRoles   = []string{RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal}
	FacultyRoles = []string{RoleHOD, RoleFaculty}
	AllRoles     = []string{RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD, RoleFaculty, RoleStudent, RoleParent}

	rolePriorities = map[string]int{
		RoleSuperAdmin:  40,
		RoleAdmin:       35,
		RoleInstitution: 32,
		RolePrincipal:   30,
		RoleHOD:         20,
		RoleFaculty:     15,
		RoleParent:      5,
		RoleStudent:     1,
	}
)

// Principal is the authenticated actor on whose behalf an operation runs.
type Principal struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Departments []string `json:"departments"`
}

// System is the principal used by scheduled jobs and the admin command line.
var System = Principal{ID: "system", Name: "System", Role: RoleSuperAdmin}

func (p Principal) IsAdmin() bool   { return IsAdminRole(p.Role) }
func (p Principal) IsFaculty() bool { return IsFacultyRole(p.Role) }
func (p Principal) IsStudent() bool { return p.Role == RoleStudent }

// InDepartment reports whether dept is within the principal's department whitelist.
func (p Principal) InDepartment(dept string) bool {
	if dept == "" {
		return false
	}
	for _, d := range p.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

func IsAdminRole(role string) bool   { return hasRole(AdminRoles, role) }
func IsFacultyRole(role string) bool { return hasRole(FacultyRoles, role) }
func IsValidRole(role string) bool   { return hasRole(AllRoles, role) }

func RolePriority(role string) int {
	return rolePriorities[role]
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Action is a mutating (or sensitive) operation subject to the access policy.
type Action string

const (
	ActionManageUsers        Action = "manage-users"
	ActionViewInvigilation   Action = "view-invigilation"
	ActionManageInvigilation Action = "manage-invigilation"
	ActionManageCourses      Action = "manage-courses"
	ActionManageHierarchy    Action = "manage-hierarchy"
	ActionManageEnrollments  Action = "manage-enrollments"
	ActionEnroll             Action = "enroll"
	ActionManagePrograms     Action = "manage-programs"
	ActionExport             Action = "export"
)

var policy = map[Action][]string{
	ActionManageUsers:        {RoleSuperAdmin, RoleAdmin},
	ActionViewInvigilation:   {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD, RoleFaculty},
	ActionManageInvigilation: {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD},
	ActionManageCourses:      {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD},
	ActionManageHierarchy:    {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD, RoleFaculty},
	ActionManageEnrollments:  {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal, RoleHOD, RoleFaculty},
	ActionEnroll:             {RoleStudent},
	ActionManagePrograms:     {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal},
	ActionExport:             {RoleSuperAdmin, RoleAdmin, RoleInstitution, RolePrincipal},
}

// ErrPermissionDenied is returned by Authorize when the policy rejects an action.
var ErrPermissionDenied = core.NewPermissionError("permission denied")

// Can reports whether role is allowed to perform action.
func Can(role string, action Action) bool {
	return hasRole(policy[action], role)
}

// Authorize returns ErrPermissionDenied unless p may perform action.
func Authorize(p Principal, action Action) error {
	if !Can(p.Role, action) {
		return ErrPermissionDenied
	}
	return nil
}

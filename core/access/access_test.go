package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-console/core"
)

func TestViewFor(t *testing.T) {
	tests := []struct {
		role       string
		wantLayout Layout
		wantCaps   []Capability
		noCaps     []Capability
	}{
		{role: RoleSuperAdmin, wantLayout: AdminView, wantCaps: []Capability{CapImportExport}, noCaps: []Capability{CapManageUnits, CapEnroll}},
		{role: RoleAdmin, wantLayout: AdminView, wantCaps: []Capability{CapImportExport}},
		{role: RoleInstitution, wantLayout: AdminView, wantCaps: []Capability{CapImportExport}},
		{role: RolePrincipal, wantLayout: AdminView, wantCaps: []Capability{CapImportExport}},
		{role: RoleHOD, wantLayout: FacultyView, wantCaps: []Capability{CapManageUnits, CapManageTopics}, noCaps: []Capability{CapImportExport, CapEnroll}},
		{role: RoleFaculty, wantLayout: FacultyView, wantCaps: []Capability{CapManageUnits, CapManageTopics}, noCaps: []Capability{CapImportExport, CapCreateCourse}},
		{role: RoleStudent, wantLayout: StudentView, wantCaps: []Capability{CapEnroll, CapViewMedia}, noCaps: []Capability{CapImportExport, CapManageUnits}},
		{role: RoleParent, wantLayout: GuestView, noCaps: []Capability{CapImportExport, CapManageUnits, CapEnroll}},
		{role: "lol", wantLayout: GuestView, noCaps: []Capability{CapImportExport, CapManageUnits, CapEnroll}},
		{role: "", wantLayout: GuestView},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			v := ViewFor(tt.role)
			assert.Equal(t, tt.wantLayout, v.Layout)
			assert.NotEmpty(t, v.StatCards)
			for _, c := range tt.wantCaps {
				assert.True(t, v.Has(c), "missing capability %s", c)
			}
			for _, c := range tt.noCaps {
				assert.False(t, v.Has(c), "unexpected capability %s", c)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		action  Action
		allowed []string
	}{
		{action: ActionExport, allowed: AdminRoles},
		{action: ActionManagePrograms, allowed: AdminRoles},
		{action: ActionManageUsers, allowed: []string{RoleSuperAdmin, RoleAdmin}},
		{action: ActionEnroll, allowed: []string{RoleStudent}},
		{action: ActionManageCourses, allowed: append(append([]string{}, AdminRoles...), RoleHOD)},
		{action: ActionManageHierarchy, allowed: append(append([]string{}, AdminRoles...), FacultyRoles...)},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, role := range append(AllRoles, "lol") {
				err := Authorize(Principal{Role: role}, tt.action)
				if hasRole(tt.allowed, role) {
					assert.NoError(t, err, role)
				} else {
					assert.Equal(t, ErrPermissionDenied, err, role)
					assert.True(t, core.IsPermissionDenied(err))
				}
			}
		})
	}
}

// The view never offers an affordance that the policy would reject.
func TestViewMatchesPolicy(t *testing.T) {
	for _, role := range AllRoles {
		v := ViewFor(role)
		if v.Has(CapImportExport) {
			assert.True(t, Can(role, ActionExport), role)
		}
		if v.Has(CapManageUnits) || v.Has(CapManageTopics) {
			assert.True(t, Can(role, ActionManageHierarchy), role)
		}
		if v.Has(CapEnroll) {
			assert.True(t, Can(role, ActionEnroll), role)
		}
		if v.Has(CapCreateCourse) {
			assert.True(t, Can(role, ActionManageCourses), role)
		}
		if v.Has(CapManageInvigilators) {
			assert.True(t, Can(role, ActionManageInvigilation), role)
		}
	}
}

func TestPrincipal_InDepartment(t *testing.T) {
	p := Principal{Role: RoleHOD, Departments: []string{"Computer Science", "Mathematics"}}
	assert.True(t, p.InDepartment("Mathematics"))
	assert.False(t, p.InDepartment("Physics"))
	assert.False(t, p.InDepartment(""))
}

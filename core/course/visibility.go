package course

import (
	"github.com/trezcool/masomo-console/core/access"
)

// Visible reports whether the course may be seen by p:
//   - admin roles see every course;
//   - hod and faculty see the courses they are assigned to, by display name, or whose department is in
//     their department whitelist;
//   - students see open courses and the ones they are enrolled in;
//   - parents see open courses;
//   - anyone else sees nothing.
func Visible(c Course, p access.Principal, enrolled bool) bool {
	switch {
	case p.IsAdmin():
		return true
	case p.IsFaculty():
		if contains(c.AssignedFaculty, p.Name) || contains(c.AssignedHODs, p.Name) {
			return true
		}
		if p.InDepartment(c.Department) {
			return true
		}
		for _, dept := range c.AssignedDepartments {
			if p.InDepartment(dept) {
				return true
			}
		}
		return false
	case p.Role == access.RoleStudent:
		return c.IsOpen() || enrolled
	case p.Role == access.RoleParent:
		return c.IsOpen()
	}
	return false
}

// seesDrafts reports whether p is shown the unpublished units, topics and content of visible courses.
func seesDrafts(p access.Principal) bool {
	return p.IsAdmin() || p.IsFaculty()
}

package access

// Layout is one of the dashboards a client renders.
type Layout string

const (
	AdminView   Layout = "AdminView"
	FacultyView Layout = "FacultyView"
	StudentView Layout = "StudentView"
	GuestView   Layout = "GuestView"
)

// Capability is a UI affordance shown on a layout. It is a display hint only.
type Capability string

const (
	CapImportExport       Capability = "import-export"
	CapCreateCourse       Capability = "create-course"
	CapManageInvigilators Capability = "manage-invigilators"
	CapManagePrograms     Capability = "manage-programs"
	CapManageUnits        Capability = "manage-units"
	CapManageTopics       Capability = "manage-topics"
	CapViewReports        Capability = "view-reports"
	CapEnroll             Capability = "enroll"
	CapViewMedia          Capability = "view-media"
	CapBrowseCatalog      Capability = "browse-catalog"
)

// Stat cards
const (
	CardTotalCourses      = "total-courses"
	CardActiveCourses     = "active-courses"
	CardTotalEnrollments  = "total-enrollments"
	CardTotalPrograms     = "total-programs"
	CardTotalInvigilators = "total-invigilators"
	CardUpcomingDuties    = "upcoming-duties"
	CardMyCourses         = "my-courses"
	CardMyStudents        = "my-students"
	CardEnrolledCourses   = "enrolled-courses"
	CardCompletedCourses  = "completed-courses"
	CardAverageProgress   = "average-progress"
	CardPublishedCourses  = "published-courses"
)

type View struct {
	Layout       Layout       `json:"layout"`
	Role         string       `json:"role"`
	StatCards    []string     `json:"stat_cards"`
	Capabilities []Capability `json:"capabilities"`
}

// Has reports whether the view offers capability c.
func (v View) Has(c Capability) bool {
	for _, vc := range v.Capabilities {
		if vc == c {
			return true
		}
	}
	return false
}

// ViewFor returns the layout a user with the given role is shown.
func ViewFor(role string) View {
	switch {
	case IsAdminRole(role):
		return View{
			Layout: AdminView,
			Role:   role,
			StatCards: []string{
				CardTotalCourses, CardActiveCourses, CardTotalEnrollments,
				CardTotalPrograms, CardTotalInvigilators, CardUpcomingDuties,
			},
			Capabilities: []Capability{
				CapImportExport, CapCreateCourse, CapManageInvigilators, CapManagePrograms, CapViewReports,
			},
		}
	case IsFacultyRole(role):
		caps := []Capability{CapManageUnits, CapManageTopics, CapViewReports}
		if role == RoleHOD {
			caps = append(caps, CapCreateCourse, CapManageInvigilators)
		}
		return View{
			Layout:       FacultyView,
			Role:         role,
			StatCards:    []string{CardMyCourses, CardMyStudents, CardUpcomingDuties},
			Capabilities: caps,
		}
	case role == RoleStudent:
		return View{
			Layout:       StudentView,
			Role:         role,
			StatCards:    []string{CardEnrolledCourses, CardCompletedCourses, CardAverageProgress},
			Capabilities: []Capability{CapEnroll, CapViewMedia, CapBrowseCatalog},
		}
	default:
		return View{
			Layout:       GuestView,
			Role:         role,
			StatCards:    []string{CardPublishedCourses},
			Capabilities: []Capability{CapBrowseCatalog},
		}
	}
}

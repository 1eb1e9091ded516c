package course

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/export"
)

type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	Published      int            `json:"published"`
	TotalEnrolled  int            `json:"total_enrolled"`
	TotalCapacity  int            `json:"total_capacity"`
	UtilizationPct float64        `json:"utilization_pct"`
	ContentByType  map[string]int `json:"content_by_type"`
}

// ComputeStats aggregates courses and their content items. Utilization only counts courses with a capacity.
func ComputeStats(courses []Course, contents []ContentItem) Stats {
	st := Stats{
		ByStatus:      make(map[string]int, len(Statuses)),
		ContentByType: make(map[string]int),
	}
	for _, s := range Statuses {
		st.ByStatus[s] = 0
	}
	var enrolledWithCap int
	for _, c := range courses {
		st.Total++
		st.ByStatus[c.Status]++
		if c.IsOpen() {
			st.Published++
		}
		st.TotalEnrolled += c.EnrolledStudents
		if c.Capacity > 0 {
			st.TotalCapacity += c.Capacity
			enrolledWithCap += c.EnrolledStudents
		}
	}
	if st.TotalCapacity > 0 {
		st.UtilizationPct = math.Round(float64(enrolledWithCap)/float64(st.TotalCapacity)*10000) / 100
	}
	for _, ci := range contents {
		st.ContentByType[ci.Type]++
	}
	return st
}

// Stats aggregates the courses matching filter that p may see.
func (svc *Service) Stats(ctx context.Context, p access.Principal, filter QueryFilter) (Stats, error) {
	courses, err := svc.QueryCourses(ctx, p, filter)
	if err != nil {
		return Stats{}, err
	}
	var contents []ContentItem
	for _, c := range courses {
		h, err := svc.repo.GetHierarchy(ctx, c.ID)
		if err != nil {
			return Stats{}, errors.Wrap(err, "getting hierarchy")
		}
		contents = append(contents, h.Contents...)
	}
	return ComputeStats(courses, contents), nil
}

// CoursesDataset projects courses for export.
func CoursesDataset(courses []Course) export.Dataset {
	ds := export.Dataset{
		Name: "courses",
		Columns: []string{
			"id", "code", "title", "category", "department", "instructor", "level", "language", "duration",
			"credits", "capacity", "enrolled_students", "status", "start_date", "end_date", "assigned_faculty",
			"assigned_hods", "assigned_departments", "tags", "created_by",
		},
		Rows: make([]export.Row, 0, len(courses)),
	}
	for _, c := range courses {
		ds.Rows = append(ds.Rows, export.Row{
			"id":                   c.ID,
			"code":                 c.Code,
			"title":                c.Title,
			"category":             c.Category,
			"department":           c.Department,
			"instructor":           c.Instructor,
			"level":                c.Level,
			"language":             c.Language,
			"duration":             c.Duration,
			"credits":              c.Credits,
			"capacity":             c.Capacity,
			"enrolled_students":    c.EnrolledStudents,
			"status":               c.Status,
			"start_date":           c.StartDate,
			"end_date":             c.EndDate,
			"assigned_faculty":     c.AssignedFaculty,
			"assigned_hods":        c.AssignedHODs,
			"assigned_departments": c.AssignedDepartments,
			"tags":                 c.Tags,
			"created_by":           c.CreatedBy,
		})
	}
	return ds
}

// EnrollmentsDataset projects enrollments for export.
func EnrollmentsDataset(enrs []Enrollment) export.Dataset {
	ds := export.Dataset{
		Name:    "enrollments",
		Columns: []string{"id", "student_id", "course_id", "status", "progress", "grade", "enrolled_at"},
		Rows:    make([]export.Row, 0, len(enrs)),
	}
	for _, e := range enrs {
		ds.Rows = append(ds.Rows, export.Row{
			"id":          e.ID,
			"student_id":  e.StudentID,
			"course_id":   e.CourseID,
			"status":      e.Status,
			"progress":    e.Progress,
			"grade":       e.Grade,
			"enrolled_at": e.EnrolledAt,
		})
	}
	return ds
}

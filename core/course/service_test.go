package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/course"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
	"github.com/trezcool/masomo-console/tests"
)

func setup(t *testing.T) (*course.Service, course.Repository, *inmemdb.DB) {
	t.Helper()
	validate, _ := testutil.NewValidator()
	db := testutil.SeededDB(t)
	repo := inmemdb.NewCourseRepository(db)
	return course.NewService(repo, validate), repo, db
}

func TestVisible(t *testing.T) {
	crs := course.Course{
		ID:                  "CRS9",
		Department:          "Mathematics",
		Status:              course.StatusDraft,
		AssignedFaculty:     []string{"Prof. Chen"},
		AssignedHODs:        []string{"Dr. Johnson"},
		AssignedDepartments: []string{"Statistics"},
	}
	open := crs
	open.Status = course.StatusActive

	tests := []struct {
		name     string
		c        course.Course
		p        access.Principal
		enrolled bool
		want     bool
	}{
		{name: "admin", c: crs, p: testutil.AsRole(access.RoleInstitution), want: true},
		{name: "assigned faculty", c: crs, p: access.Principal{Name: "Prof. Chen", Role: access.RoleFaculty}, want: true},
		{name: "assigned hod", c: crs, p: access.Principal{Name: "Dr. Johnson", Role: access.RoleHOD}, want: true},
		{name: "faculty of department", c: crs, p: testutil.AsRole(access.RoleFaculty, "Mathematics"), want: true},
		{name: "faculty of assigned department", c: crs, p: testutil.AsRole(access.RoleHOD, "Statistics"), want: true},
		{name: "unrelated faculty", c: crs, p: testutil.AsRole(access.RoleFaculty, "Business"), want: false},
		{name: "student: draft", c: crs, p: testutil.AsRole(access.RoleStudent), want: false},
		{name: "student: enrolled draft", c: crs, p: testutil.AsRole(access.RoleStudent), enrolled: true, want: true},
		{name: "student: open", c: open, p: testutil.AsRole(access.RoleStudent), want: true},
		{name: "parent: draft", c: crs, p: testutil.AsRole(access.RoleParent), want: false},
		{name: "parent: open", c: open, p: testutil.AsRole(access.RoleParent), want: true},
		{name: "guest", c: open, p: access.Principal{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, course.Visible(tt.c, tt.p, tt.enrolled))
		})
	}
}

func TestBuildTree(t *testing.T) {
	c := course.Course{ID: "CRS1"}
	h := course.Hierarchy{
		Units: []course.Unit{
			{ID: "UNIT2", CourseID: "CRS1", Order: 1, IsPublished: true},
			{ID: "UNIT1", CourseID: "CRS1", Order: 2, IsPublished: false},
			{ID: "UNIT3", CourseID: "CRS2", Order: 1, IsPublished: true},
		},
		Topics: []course.Topic{
			{ID: "TOPIC1", UnitID: "UNIT1", IsPublished: true},
			{ID: "TOPIC2", UnitID: "UNIT2", Order: 1, IsPublished: true},
		},
		Contents: []course.ContentItem{
			{ID: "CNT10", TopicID: "TOPIC2", Order: 1, IsPublished: true},
			{ID: "CNT9", TopicID: "TOPIC2", Order: 1, IsPublished: true},
			{ID: "CNT2", TopicID: "TOPIC2", Order: 0, IsPublished: false},
			{ID: "CNT1", TopicID: "TOPIC1", IsPublished: true},
		},
	}

	t.Run("everything", func(t *testing.T) {
		tree := course.BuildTree(c, h, false)
		units, topics, contents := tree.Count()
		assert.Equal(t, []int{2, 2, 4}, []int{units, topics, contents})
		assert.Equal(t, "UNIT2", tree.Units[0].ID)
		assert.Equal(t, "UNIT1", tree.Units[1].ID)

		var order []string
		for _, ci := range tree.Units[0].Topics[0].Contents {
			order = append(order, ci.ID)
		}
		assert.Equal(t, []string{"CNT2", "CNT9", "CNT10"}, order)
	})

	t.Run("published only", func(t *testing.T) {
		tree := course.BuildTree(c, h, true)
		units, topics, contents := tree.Count()
		// UNIT1 hides its published topic and content with it
		assert.Equal(t, []int{1, 1, 2}, []int{units, topics, contents})
	})
}

func TestComputeStats(t *testing.T) {
	courses := []course.Course{
		{Status: course.StatusPublished, Capacity: 50, EnrolledStudents: 20},
		{Status: course.StatusActive, Capacity: 0, EnrolledStudents: 100},
		{Status: course.StatusDraft, Capacity: 50, EnrolledStudents: 5},
	}
	contents := []course.ContentItem{{Type: course.TypeVideo}, {Type: course.TypeVideo}, {Type: course.TypeQuiz}}

	st := course.ComputeStats(courses, contents)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.Published)
	assert.Equal(t, 125, st.TotalEnrolled)
	assert.Equal(t, 100, st.TotalCapacity)
	assert.Equal(t, 25.0, st.UtilizationPct)
	assert.Equal(t, map[string]int{course.TypeVideo: 2, course.TypeQuiz: 1}, st.ContentByType)
	assert.Equal(t, 0, st.ByStatus[course.StatusArchived])
}

func TestRenderDescription(t *testing.T) {
	html, err := course.RenderDescription(course.Course{})
	require.NoError(t, err)
	assert.Empty(t, html)

	html, err = course.RenderDescription(course.Course{Description: "Learn **Go**\n\n- [x] tasks\n\n<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>Go</strong>")
	assert.Contains(t, html, `type="checkbox"`)
	assert.NotContains(t, html, "<script>")
}

func TestService_hierarchy(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	faculty := access.Principal{ID: testutil.FacultyID, Name: "Prof. Michael Chen", Role: access.RoleFaculty}

	// a new unit goes after its siblings
	u, err := svc.CreateUnit(ctx, faculty, "CRS001", course.UnitFields{Title: " Recursion "})
	require.NoError(t, err)
	assert.Equal(t, 3, u.Order)
	assert.Equal(t, "Recursion", u.Title)
	assert.Equal(t, "Prof. Michael Chen", u.CreatedBy)

	// reorder must name every sibling once
	err = svc.Reorder(ctx, faculty, course.LevelUnit, "CRS001", []string{u.ID, "UNIT001"})
	assert.EqualError(t, err, "must list every child exactly once")
	err = svc.Reorder(ctx, faculty, course.LevelUnit, "CRS001", []string{u.ID, "UNIT001", "UNIT001"})
	assert.EqualError(t, err, "must list every child exactly once")

	require.NoError(t, svc.Reorder(ctx, faculty, course.LevelContent, "TOPIC001", []string{"CNT003", "CNT001", "CNT002"}))
	tree, err := svc.Tree(ctx, faculty, "CRS001")
	require.NoError(t, err)
	var order []string
	for _, ci := range tree.Units[0].Topics[0].Contents {
		order = append(order, ci.ID)
	}
	assert.Equal(t, []string{"CNT003", "CNT001", "CNT002"}, order)

	// deleting a unit removes its descendants
	require.NoError(t, svc.DeleteUnit(ctx, faculty, "UNIT001"))
	_, err = repo.GetTopic(ctx, "TOPIC001")
	assert.Equal(t, course.ErrTopicNotFound, err)
	_, err = repo.GetContent(ctx, "CNT002")
	assert.Equal(t, course.ErrContentNotFound, err)

	// faculty of other departments cannot see the course
	outsider := testutil.AsRole(access.RoleFaculty, "Business")
	_, err = svc.CreateUnit(ctx, outsider, "CRS001", course.UnitFields{Title: "Nope"})
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_enrollments(t *testing.T) {
	svc, repo, db := setup(t)
	ctx := context.Background()
	alice := testutil.Principal(t, db, testutil.StudentID)

	// capacity 2 on CRS003
	bob := access.Principal{ID: "USR100", Name: "Bob", Role: access.RoleStudent}
	carol := access.Principal{ID: "USR101", Name: "Carol", Role: access.RoleStudent}
	_, err := svc.Enroll(ctx, alice, "CRS003")
	require.NoError(t, err)
	bobEnr, err := svc.Enroll(ctx, bob, "CRS003")
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, carol, "CRS003")
	assert.EqualError(t, err, "course is full")

	// withdrawing frees a seat
	_, err = svc.Withdraw(ctx, bob, bobEnr.ID)
	require.NoError(t, err)
	c, err := repo.GetCourse(ctx, "CRS003")
	require.NoError(t, err)
	assert.Equal(t, 1, c.EnrolledStudents)
	_, err = svc.Enroll(ctx, carol, "CRS003")
	require.NoError(t, err)

	// a draft course is hidden from students
	_, err = svc.Enroll(ctx, alice, "CRS002")
	assert.Equal(t, course.ErrNotFound, err)

	// students only list their own enrollments
	enrs, err := svc.QueryEnrollments(ctx, alice, course.EnrollmentFilter{StudentID: carol.ID})
	require.NoError(t, err)
	for _, e := range enrs {
		assert.Equal(t, alice.ID, e.StudentID)
	}
	assert.Len(t, enrs, 2)

	_, err = svc.QueryEnrollments(ctx, testutil.AsRole(access.RoleParent), course.EnrollmentFilter{})
	assert.Equal(t, access.ErrPermissionDenied, err)
}

func TestService_ToggleAssignment(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	admin := testutil.AsRole(access.RoleAdmin)

	c, err := svc.ToggleAssignment(ctx, admin, "CRS002", course.FieldFaculty, "Prof. Michael Chen", true)
	require.NoError(t, err)
	assert.Contains(t, c.AssignedFaculty, "Prof. Michael Chen")

	// the faculty member now sees the course
	faculty := access.Principal{ID: testutil.FacultyID, Name: "Prof. Michael Chen", Role: access.RoleFaculty}
	_, err = svc.GetCourse(ctx, faculty, "CRS002")
	assert.NoError(t, err)

	c, err = svc.ToggleAssignment(ctx, admin, "CRS002", course.FieldFaculty, "Prof. Michael Chen", false)
	require.NoError(t, err)
	for _, name := range c.AssignedFaculty {
		assert.False(t, strings.EqualFold(name, "Prof. Michael Chen"))
	}
}

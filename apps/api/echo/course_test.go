package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/tests"
)

const seedEnrollmentID = "6f1c2b7e-0d3a-4c58-9a8e-2f4b1d9c7a10"

func (app testApp) course(t *testing.T, id string) course.Course {
	t.Helper()
	c, err := app.crsRepo.GetCourse(context.Background(), id)
	require.NoError(t, err)
	return c
}

func treeIDs(tree course.Tree) (units, topics, contents []string) {
	for _, u := range tree.Units {
		units = append(units, u.ID)
		for _, tn := range u.Topics {
			topics = append(topics, tn.ID)
			for _, ci := range tn.Contents {
				contents = append(contents, ci.ID)
			}
		}
	}
	return
}

func Test_courseApi_query(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	all, err := app.crsRepo.QueryCourses(ctx, course.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	var allObjs []interface{}
	var contents []course.ContentItem
	for _, c := range all {
		allObjs = append(allObjs, c)
		h, err := app.crsRepo.GetHierarchy(ctx, c.ID)
		require.NoError(t, err)
		contents = append(contents, h.Contents...)
	}

	crs1, crs3 := app.course(t, "CRS001"), app.course(t, "CRS003")
	adminToken := app.token(t, testutil.AdminID)
	notFound := marchallObj(t, httpErr{Error: "course not found"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin sees everything", path: "/v1/courses", token: adminToken, wantData: marchallList(t, allObjs...)},
		{name: "faculty sees assigned courses", path: "/v1/courses", token: app.token(t, testutil.FacultyID), wantData: marchallList(t, crs1)},
		{name: "students see open courses", path: "/v1/courses", token: app.token(t, testutil.StudentID), wantData: marchallList(t, crs1, crs3)},
		{name: "parents see open courses", path: "/v1/courses", token: app.token(t, testutil.ParentID), wantData: marchallList(t, crs1, crs3)},
		{name: "status", path: "/v1/courses?status=Draft", token: adminToken, wantData: marchallList(t, app.course(t, "CRS002"))},
		{name: "search code", path: "/v1/courses?search=bus1", token: adminToken, wantData: marchallList(t, crs3)},
		{name: "category & department", path: "/v1/courses?category=Business&department=Computer+Science", token: adminToken, wantData: marchallList(t)},
		{name: "hidden draft", path: "/v1/courses/CRS002", token: app.token(t, testutil.StudentID), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "out of department", path: "/v1/courses/CRS003", token: app.token(t, testutil.FacultyID), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown", path: "/v1/courses/CRS404", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "stats", path: "/v1/courses/stats", token: adminToken, wantData: marchallObj(t, course.ComputeStats(all, contents))},
	}
	runHTTPTests(t, app, tests)
}

func Test_courseApi_tree(t *testing.T) {
	app := setup(t)

	tests := []struct {
		name                      string
		token                     string
		units, topics, contentIDs []string
	}{
		{
			name: "faculty sees drafts", token: app.token(t, testutil.FacultyID),
			units: []string{"UNIT001", "UNIT002"}, topics: []string{"TOPIC001", "TOPIC002"}, contentIDs: []string{"CNT001", "CNT002", "CNT003"},
		},
		{
			name: "students only see published nodes", token: app.token(t, testutil.StudentID),
			units: []string{"UNIT001"}, topics: []string{"TOPIC001"}, contentIDs: []string{"CNT001", "CNT002"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newAuthRequest(http.MethodGet, "/v1/courses/CRS001", tt.token))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var tree course.Tree
			decode(t, rec, &tree)
			assert.Equal(t, "CS101", tree.Code)
			assert.Contains(t, tree.DescriptionHTML, "<strong>computing</strong>")
			assert.Contains(t, tree.DescriptionHTML, "<li>problem solving</li>")

			units, topics, contents := treeIDs(tree)
			assert.Equal(t, tt.units, units)
			assert.Equal(t, tt.topics, topics)
			assert.Equal(t, tt.contentIDs, contents)
		})
	}
}

func Test_courseApi_createUpdateDelete(t *testing.T) {
	app := setup(t)

	hodToken := app.token(t, testutil.HODID)
	adminToken := app.token(t, testutil.AdminID)
	reqMsg := "this field is required"
	newCourse := func(code, title, category string) []byte {
		return marchallObj(t, map[string]interface{}{"code": code, "title": title, "category": category, "department": "Computer Science"})
	}

	tests := []httpTest{
		{
			name: "faculty cannot create", method: http.MethodPost, path: "/v1/courses", token: app.token(t, testutil.FacultyID),
			body: newCourse("CS201", "Algorithms", "Computer Science"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", method: http.MethodPost, path: "/v1/courses", token: hodToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"code": reqMsg, "title": reqMsg, "category": reqMsg}),
		},
		{
			name: "code taken (case insensitive)", method: http.MethodPost, path: "/v1/courses", token: hodToken,
			body: newCourse("cs101", "Dup", "Computer Science"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "a course with this code already exists"}),
		},
		{
			name: "invalid dates", method: http.MethodPut, path: "/v1/courses/CRS001", token: hodToken, body: []byte(`{"end_date":"2024-01-01"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"end_date": "end date must not be before start date"}),
		},
		{
			name: "update hidden course", method: http.MethodPut, path: "/v1/courses/CRS003", token: hodToken, body: []byte(`{"title":"x"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "toggle: unknown field", method: http.MethodPatch, path: "/v1/courses/CRS001/assignments", token: hodToken,
			body: []byte(`{"field":"owners","value":"x","checked":true}`), wantCode: http.StatusBadRequest,
		},
		{name: "delete: hod cannot delete hidden", method: http.MethodDelete, path: "/v1/courses/CRS002", token: hodToken, wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/v1/courses/CRS002", token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", method: http.MethodGet, path: "/v1/courses/CRS002", token: adminToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, app, tests)

	t.Run("create", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPost, "/v1/courses", hodToken, newCourse(" CS201 ", "Algorithms", "Computer Science")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var c course.Course
		decode(t, rec, &c)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "CS201", c.Code)
		assert.Equal(t, course.StatusDraft, c.Status)
		assert.Equal(t, "English", c.Language)
		assert.Equal(t, "Dr. Sarah Johnson", c.CreatedBy)
		assert.Zero(t, c.EnrolledStudents)
	})

	t.Run("update", func(t *testing.T) {
		orig := app.course(t, "CRS001")
		rec := app.serve(newAuthRequest(http.MethodPut, "/v1/courses/CRS001", hodToken, []byte(`{"capacity":0,"status":"Active"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c course.Course
		decode(t, rec, &c)
		assert.Zero(t, c.Capacity)
		assert.Equal(t, course.StatusActive, c.Status)
		assert.Equal(t, orig.Title, c.Title)
		assert.Equal(t, orig.Tags, c.Tags)
		assert.Equal(t, orig.EnrolledStudents, c.EnrolledStudents)
	})

	t.Run("toggle assignments", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPatch, "/v1/courses/CRS001/assignments", hodToken, []byte(`{"field":"tags","value":"go","checked":true}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"programming", "fundamentals", "go"}, app.course(t, "CRS001").Tags)

		rec = app.serve(newAuthRequest(http.MethodPatch, "/v1/courses/CRS001/assignments", hodToken, []byte(`{"field":"tags","value":"programming","checked":false}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"fundamentals", "go"}, app.course(t, "CRS001").Tags)
	})
}

func Test_courseApi_hierarchy(t *testing.T) {
	app := setup(t)

	facultyToken := app.token(t, testutil.FacultyID)
	studentToken := app.token(t, testutil.StudentID)

	tests := []httpTest{
		{name: "students cannot edit", method: http.MethodPost, path: "/v1/courses/CRS001/units", token: studentToken, body: []byte(`{"title":"x"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "students cannot read units", method: http.MethodGet, path: "/v1/units/UNIT001", token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "unit title required", method: http.MethodPost, path: "/v1/courses/CRS001/units", token: facultyToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "hidden course", method: http.MethodPost, path: "/v1/courses/CRS003/units", token: facultyToken, body: []byte(`{"title":"x"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "assigned hod reads unit", method: http.MethodGet, path: "/v1/units/UNIT001", token: app.token(t, testutil.HODID),
		},
		{
			name: "content: invalid type", method: http.MethodPost, path: "/v1/topics/TOPIC001/contents", token: facultyToken,
			body: []byte(`{"title":"x","type":"hologram"}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"type": "invalid content type"}),
		},
		{
			name: "content: url required", method: http.MethodPost, path: "/v1/topics/TOPIC001/contents", token: facultyToken,
			body: []byte(`{"title":"x","type":"vimeo"}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"url": "this field is required for vimeo content"}),
		},
		{
			name: "content: config mismatch", method: http.MethodPost, path: "/v1/topics/TOPIC001/contents", token: facultyToken,
			body: []byte(`{"title":"x","type":"pdf","quiz_config":{"passing_score":50}}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"quiz_config": "only allowed for quiz content"}),
		},
		{
			name: "reorder: incomplete", method: http.MethodPut, path: "/v1/topics/TOPIC001/contents/order", token: facultyToken,
			body: []byte(`{"ids":["CNT003","CNT001"]}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"ids": "must list every child exactly once"}),
		},
		{
			name: "unknown topic", method: http.MethodGet, path: "/v1/topics/TOPIC404", token: facultyToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "topic not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	var unit course.Unit
	t.Run("create unit appends", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPost, "/v1/courses/CRS001/units", facultyToken, []byte(`{"title":" Recursion "}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &unit)
		assert.Equal(t, "Recursion", unit.Title)
		assert.Equal(t, 3, unit.Order)
		assert.False(t, unit.IsPublished)
		assert.Equal(t, "Prof. Michael Chen", unit.CreatedBy)
	})

	t.Run("create topic & content", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPost, "/v1/units/"+unit.ID+"/topics", facultyToken, []byte(`{"title":"Base cases","is_published":true}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var topic course.Topic
		decode(t, rec, &topic)
		assert.Equal(t, 1, topic.Order)
		assert.Equal(t, unit.ID, topic.UnitID)
		assert.Equal(t, "CRS001", topic.CourseID)

		rec = app.serve(newAuthRequest(http.MethodPost, "/v1/topics/"+topic.ID+"/contents", facultyToken,
			[]byte(`{"title":"Quiz","type":"quiz","is_published":true,"quiz_config":{"passing_score":50,"max_attempts":2}}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var ci course.ContentItem
		decode(t, rec, &ci)
		assert.Equal(t, 1, ci.Order)
		assert.Equal(t, topic.ID, ci.TopicID)
		assert.Equal(t, unit.ID, ci.UnitID)
		require.NotNil(t, ci.QuizConfig)
		assert.Equal(t, 50, ci.QuizConfig.PassingScore)
	})

	t.Run("publish shows the unit to students", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPut, "/v1/units/"+unit.ID+"/publish", facultyToken, marchallObj(t, echoapi.PublishRequest{Published: true})))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.serve(newAuthRequest(http.MethodGet, "/v1/courses/CRS001", studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tree course.Tree
		decode(t, rec, &tree)
		units, _, _ := treeIDs(tree)
		assert.Equal(t, []string{"UNIT001", unit.ID}, units)
	})

	t.Run("reorder units", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPut, "/v1/courses/CRS001/units/order", facultyToken, []byte(`{"ids":["`+unit.ID+`","UNIT002","UNIT001"]}`)))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = app.serve(newAuthRequest(http.MethodGet, "/v1/courses/CRS001", facultyToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tree course.Tree
		decode(t, rec, &tree)
		units, _, _ := treeIDs(tree)
		assert.Equal(t, []string{unit.ID, "UNIT002", "UNIT001"}, units)
	})

	t.Run("update content", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPut, "/v1/contents/CNT002", facultyToken, []byte(`{"title":"Editor tricks"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var ci course.ContentItem
		decode(t, rec, &ci)
		assert.Equal(t, "Editor tricks", ci.Title)
		assert.Equal(t, course.TypeYoutube, ci.Type)
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", ci.URL)
	})

	t.Run("delete unit cascades", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodDelete, "/v1/units/UNIT001", facultyToken))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		for _, path := range []string{"/v1/units/UNIT001", "/v1/topics/TOPIC001", "/v1/contents/CNT001"} {
			rec = app.serve(newAuthRequest(http.MethodGet, path, facultyToken))
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})
}

func Test_courseApi_enrollments(t *testing.T) {
	app := setup(t)

	studentToken := app.token(t, testutil.StudentID)
	other1 := testutil.CreateUser(t, app.usrRepo, "Bob Otieno", "bob@test.test", strongPwd, access.RoleStudent, true)
	other2 := testutil.CreateUser(t, app.usrRepo, "Carol Njeri", "carol@test.test", strongPwd, access.RoleStudent, true)

	tests := []httpTest{
		{name: "staff cannot enroll", method: http.MethodPost, path: "/v1/courses/CRS003/enroll", token: app.token(t, testutil.FacultyID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "already enrolled", method: http.MethodPost, path: "/v1/courses/CRS001/enroll", token: studentToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "student is already enrolled in this course"}),
		},
		{
			name: "hidden course", method: http.MethodPost, path: "/v1/courses/CRS002/enroll", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{name: "enroll", method: http.MethodPost, path: "/v1/courses/CRS003/enroll", token: studentToken, wantCode: http.StatusCreated},
		{name: "enroll other", method: http.MethodPost, path: "/v1/courses/CRS003/enroll", token: getToken(t, app.conf, other1), wantCode: http.StatusCreated},
		{
			name: "course full", method: http.MethodPost, path: "/v1/courses/CRS003/enroll", token: getToken(t, app.conf, other2),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"capacity": "course is full"}),
		},
		{name: "parents cannot list enrollments", method: http.MethodGet, path: "/v1/enrollments", token: app.token(t, testutil.ParentID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "students cannot withdraw others", method: http.MethodDelete, path: "/v1/enrollments/" + seedEnrollmentID, token: getToken(t, app.conf, other1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "enrollment not found"}),
		},
		{
			name: "invalid progress", method: http.MethodPut, path: "/v1/enrollments/" + seedEnrollmentID, token: app.token(t, testutil.FacultyID),
			body: []byte(`{"status":"enrolled","progress":101}`), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)
	assert.Equal(t, 2, app.course(t, "CRS003").EnrolledStudents)

	t.Run("students only list their own", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodGet, "/v1/enrollments", getToken(t, app.conf, other1)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enrs []course.Enrollment
		decode(t, rec, &enrs)
		require.Len(t, enrs, 1)
		assert.Equal(t, other1.ID, enrs[0].StudentID)
		assert.Equal(t, "CRS003", enrs[0].CourseID)
	})

	t.Run("course enrollments", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodGet, "/v1/courses/CRS003/enrollments", app.token(t, testutil.AdminID)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enrs []course.Enrollment
		decode(t, rec, &enrs)
		assert.Len(t, enrs, 2)
	})

	t.Run("grade", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodPut, "/v1/enrollments/"+seedEnrollmentID, app.token(t, testutil.FacultyID), []byte(`{"status":"completed","progress":100,"grade":"A"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enr course.Enrollment
		decode(t, rec, &enr)
		assert.Equal(t, course.EnrollmentCompleted, enr.Status)
		assert.Equal(t, "A", enr.Grade)
		assert.Equal(t, 1, app.course(t, "CRS001").EnrolledStudents, "completed enrollments still count")
	})

	t.Run("withdraw then re-enroll", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodDelete, "/v1/enrollments/"+seedEnrollmentID, studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enr course.Enrollment
		decode(t, rec, &enr)
		assert.Equal(t, course.EnrollmentWithdrawn, enr.Status)
		assert.Zero(t, app.course(t, "CRS001").EnrolledStudents)

		rec = app.serve(newAuthRequest(http.MethodPost, "/v1/courses/CRS001/enroll", studentToken))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &enr)
		assert.Equal(t, seedEnrollmentID, enr.ID, "withdrawn enrollment is reactivated")
		assert.Equal(t, course.EnrollmentEnrolled, enr.Status)
		assert.Zero(t, enr.Progress)
		assert.Equal(t, 1, app.course(t, "CRS001").EnrolledStudents)
	})
}

package course

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/form"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("course not found")
	ErrUnitNotFound       = core.NewNotFoundError("unit not found")
	ErrTopicNotFound      = core.NewNotFoundError("topic not found")
	ErrContentNotFound    = core.NewNotFoundError("content not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrCodeExists         = errors.New("a course with this code already exists")
	ErrAlreadyEnrolled    = core.NewConflictError("student is already enrolled in this course")
	ErrNotOpen            = core.NewConflictError("course is not open for enrollment")
)

// Assignable list fields of a course, toggled one value at a time.
const (
	FieldFaculty     = "assigned_faculty"
	FieldHODs        = "assigned_hods"
	FieldDepartments = "assigned_departments"
	FieldOutcomes    = "outcomes"
	FieldTags        = "tags"
)

// Repository stores the course hierarchy as flat tables. Deleting a node removes all of its descendants.
type Repository interface {
	CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
	CreateCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id string) (Course, error)
	// QueryCourses returns the courses matching filter, in insertion order.
	QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	DeleteCourse(ctx context.Context, id string) error

	CreateUnit(ctx context.Context, u Unit) (Unit, error)
	GetUnit(ctx context.Context, id string) (Unit, error)
	UpdateUnit(ctx context.Context, u Unit) (Unit, error)
	DeleteUnit(ctx context.Context, id string) error

	CreateTopic(ctx context.Context, t Topic) (Topic, error)
	GetTopic(ctx context.Context, id string) (Topic, error)
	UpdateTopic(ctx context.Context, t Topic) (Topic, error)
	DeleteTopic(ctx context.Context, id string) error

	CreateContent(ctx context.Context, ci ContentItem) (ContentItem, error)
	GetContent(ctx context.Context, id string) (ContentItem, error)
	UpdateContent(ctx context.Context, ci ContentItem) (ContentItem, error)
	DeleteContent(ctx context.Context, id string) error

	// GetHierarchy returns every unit, topic and content item of a course.
	GetHierarchy(ctx context.Context, courseID string) (Hierarchy, error)

	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
	UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
}

// Service manages courses, their unit/topic/content hierarchy and enrollments.
type Service struct {
	repo     Repository
	validate *validator.Validate
	mu       sync.Mutex
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedIDs...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) validateCourse(ctx context.Context, f *CourseFields, excludedIDs ...string) error {
	f.Clean()
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if f.StartDate != "" && f.EndDate != "" && f.EndDate < f.StartDate {
		return core.NewFieldError("end_date", "end date must not be before start date")
	}
	return svc.checkUniqueness(ctx, f.Code, excludedIDs...)
}

func applyCourseFields(c *Course, f CourseFields) {
	c.Code = f.Code
	c.Title = f.Title
	c.Description = f.Description
	c.Category = f.Category
	c.Department = f.Department
	c.Instructor = f.Instructor
	c.Level = f.Level
	c.Language = f.Language
	c.Duration = f.Duration
	c.Credits = f.Credits
	c.Capacity = f.Capacity
	c.Status = f.Status
	c.StartDate = f.StartDate
	c.EndDate = f.EndDate
	c.AssignedFaculty = f.AssignedFaculty
	c.AssignedHODs = f.AssignedHODs
	c.AssignedDepartments = f.AssignedDepartments
	c.Outcomes = f.Outcomes
	c.Prerequisites = f.Prerequisites
	c.Tags = f.Tags
	c.Features = f.Features
	c.Thumbnail = f.Thumbnail
}

// CreateCourse adds a course with no enrollment, created by p.
func (svc *Service) CreateCourse(ctx context.Context, p access.Principal, f CourseFields) (Course, error) {
	if err := access.Authorize(p, access.ActionManageCourses); err != nil {
		return Course{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.validateCourse(ctx, &f); err != nil {
		return Course{}, err
	}
	c := Course{Audit: newAudit(p.Name)}
	applyCourseFields(&c, f)
	return svc.repo.CreateCourse(ctx, c)
}

// isEnrolled reports whether p, a student, holds a current enrollment in the course.
func (svc *Service) isEnrolled(ctx context.Context, p access.Principal, courseID string) (bool, error) {
	if !p.IsStudent() {
		return false, nil
	}
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID, StudentID: p.ID})
	if err != nil {
		return false, errors.Wrap(err, "querying enrollments")
	}
	for _, e := range enrs {
		if e.IsCurrent() {
			return true, nil
		}
	}
	return false, nil
}

// getVisible returns the course when p may see it. Hidden courses are reported as not found.
func (svc *Service) getVisible(ctx context.Context, p access.Principal, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	enrolled, err := svc.isEnrolled(ctx, p, id)
	if err != nil {
		return Course{}, err
	}
	if !Visible(c, p, enrolled) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) GetCourse(ctx context.Context, p access.Principal, id string) (Course, error) {
	return svc.getVisible(ctx, p, id)
}

// Tree returns the nested view of a visible course. Students and guests only get the published nodes.
func (svc *Service) Tree(ctx context.Context, p access.Principal, id string) (Tree, error) {
	c, err := svc.getVisible(ctx, p, id)
	if err != nil {
		return Tree{}, err
	}
	h, err := svc.repo.GetHierarchy(ctx, id)
	if err != nil {
		return Tree{}, errors.Wrap(err, "getting hierarchy")
	}
	tree := BuildTree(c, h, !seesDrafts(p))
	if tree.DescriptionHTML, err = RenderDescription(c); err != nil {
		return Tree{}, errors.Wrap(err, "rendering description")
	}
	return tree, nil
}

// QueryCourses returns the courses matching filter that p may see.
func (svc *Service) QueryCourses(ctx context.Context, p access.Principal, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	courses, err := svc.repo.QueryCourses(ctx, filter)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[string]bool)
	if p.IsStudent() {
		enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{StudentID: p.ID})
		if err != nil {
			return nil, errors.Wrap(err, "querying enrollments")
		}
		for _, e := range enrs {
			if e.IsCurrent() {
				enrolled[e.CourseID] = true
			}
		}
	}

	visible := make([]Course, 0, len(courses))
	for _, c := range courses {
		if Visible(c, p, enrolled[c.ID]) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// UpdateCourse replaces the editable fields of a course.
func (svc *Service) UpdateCourse(ctx context.Context, p access.Principal, id string, f CourseFields) (Course, error) {
	if err := access.Authorize(p, access.ActionManageCourses); err != nil {
		return Course{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	c, err := svc.getVisible(ctx, p, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.validateCourse(ctx, &f, id); err != nil {
		return Course{}, err
	}
	if f.Capacity > 0 && f.Capacity < c.EnrolledStudents {
		return Course{}, core.NewFieldError("capacity", "cannot be lower than the number of enrolled students")
	}
	applyCourseFields(&c, f)
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCourse(ctx, c)
}

// DeleteCourse removes a course along with its units, topics, content items and enrollments.
func (svc *Service) DeleteCourse(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManageCourses); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, err := svc.getVisible(ctx, p, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// ToggleAssignment adds value to (checked) or removes it from (unchecked) one of the list fields of a course.
func (svc *Service) ToggleAssignment(ctx context.Context, p access.Principal, id, field, value string, checked bool) (Course, error) {
	if err := access.Authorize(p, access.ActionManageCourses); err != nil {
		return Course{}, err
	}
	value = core.CleanString(value)
	if value == "" {
		return Course{}, core.NewFieldError("value", "this field is required")
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	c, err := svc.getVisible(ctx, p, id)
	if err != nil {
		return Course{}, err
	}
	switch field {
	case FieldFaculty:
		c.AssignedFaculty = form.Toggle(c.AssignedFaculty, value, checked)
	case FieldHODs:
		c.AssignedHODs = form.Toggle(c.AssignedHODs, value, checked)
	case FieldDepartments:
		c.AssignedDepartments = form.Toggle(c.AssignedDepartments, value, checked)
	case FieldOutcomes:
		c.Outcomes = form.Toggle(c.Outcomes, value, checked)
	case FieldTags:
		c.Tags = form.Toggle(c.Tags, value, checked)
	default:
		return Course{}, core.NewFieldError("field", "unknown field "+field)
	}
	c.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCourse(ctx, c)
}

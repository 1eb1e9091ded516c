package course

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

// Enroll enrolls p, a student, in an open course it can see.
// A withdrawn enrollment is reactivated instead of creating a new one.
func (svc *Service) Enroll(ctx context.Context, p access.Principal, courseID string) (Enrollment, error) {
	if err := access.Authorize(p, access.ActionEnroll); err != nil {
		return Enrollment{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	c, err := svc.getVisible(ctx, p, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	existing, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID, StudentID: p.ID})
	if err != nil {
		return Enrollment{}, err
	}
	for _, e := range existing {
		if e.IsCurrent() {
			return Enrollment{}, ErrAlreadyEnrolled
		}
	}
	if !c.IsOpen() {
		return Enrollment{}, ErrNotOpen
	}
	if c.Capacity > 0 && c.EnrolledStudents >= c.Capacity {
		return Enrollment{}, core.NewFieldError("capacity", "course is full")
	}

	now := core.NowFunc()
	var enr Enrollment
	if len(existing) > 0 {
		enr = existing[0]
		enr.Status, enr.Progress, enr.Grade = EnrollmentEnrolled, 0, ""
		enr.EnrolledAt, enr.UpdatedAt = now, now
		enr, err = svc.repo.UpdateEnrollment(ctx, enr)
	} else {
		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			ID:         uuid.New().String(),
			StudentID:  p.ID,
			CourseID:   courseID,
			Status:     EnrollmentEnrolled,
			EnrolledAt: now,
			UpdatedAt:  now,
		})
	}
	if err != nil {
		return Enrollment{}, err
	}

	c.EnrolledStudents++
	if _, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// QueryEnrollments returns the enrollments matching filter.
// Students only get their own, staff only those of the courses they can see.
func (svc *Service) QueryEnrollments(ctx context.Context, p access.Principal, filter EnrollmentFilter) ([]Enrollment, error) {
	switch {
	case p.IsStudent():
		filter.StudentID = p.ID
	case p.IsAdmin(), p.IsFaculty():
	default:
		return nil, access.ErrPermissionDenied
	}
	if filter.CourseID != "" {
		if _, err := svc.getVisible(ctx, p, filter.CourseID); err != nil {
			return nil, err
		}
	}

	enrs, err := svc.repo.QueryEnrollments(ctx, filter)
	if err != nil || p.IsAdmin() || p.IsStudent() || filter.CourseID != "" {
		return enrs, err
	}

	visible := make(map[string]bool)
	out := make([]Enrollment, 0, len(enrs))
	for _, e := range enrs {
		ok, seen := visible[e.CourseID]
		if !seen {
			c, err := svc.repo.GetCourse(ctx, e.CourseID)
			ok = err == nil && Visible(c, p, false)
			visible[e.CourseID] = ok
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (svc *Service) getEnrollment(ctx context.Context, p access.Principal, id string) (Enrollment, Course, error) {
	enr, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, Course{}, err
	}
	if p.IsStudent() && enr.StudentID != p.ID {
		return Enrollment{}, Course{}, ErrEnrollmentNotFound
	}
	c, err := svc.getVisible(ctx, p, enr.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			err = ErrEnrollmentNotFound
		}
		return Enrollment{}, Course{}, err
	}
	return enr, c, nil
}

// UpdateEnrollment changes the status, progress and grade of an enrollment, keeping the enrolled students
// counter of the course in sync.
func (svc *Service) UpdateEnrollment(ctx context.Context, p access.Principal, id string, f EnrollmentFields) (Enrollment, error) {
	if err := access.Authorize(p, access.ActionManageEnrollments); err != nil {
		return Enrollment{}, err
	}
	f.Grade = core.CleanString(f.Grade)
	if err := svc.validate.Struct(f); err != nil {
		return Enrollment{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	enr, c, err := svc.getEnrollment(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}

	wasCurrent := enr.IsCurrent()
	enr.Status, enr.Progress, enr.Grade = f.Status, f.Progress, f.Grade
	enr.UpdatedAt = core.NowFunc()

	switch {
	case wasCurrent && !enr.IsCurrent():
		decrement(&c)
	case !wasCurrent && enr.IsCurrent():
		if c.Capacity > 0 && c.EnrolledStudents >= c.Capacity {
			return Enrollment{}, core.NewFieldError("capacity", "course is full")
		}
		c.EnrolledStudents++
	}
	return svc.save(ctx, enr, c, wasCurrent != enr.IsCurrent())
}

// Withdraw marks an enrollment as withdrawn. Students may only withdraw their own enrollments.
func (svc *Service) Withdraw(ctx context.Context, p access.Principal, id string) (Enrollment, error) {
	if !p.IsStudent() {
		if err := access.Authorize(p, access.ActionManageEnrollments); err != nil {
			return Enrollment{}, err
		}
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	enr, c, err := svc.getEnrollment(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !enr.IsCurrent() {
		return enr, nil
	}
	enr.Status = EnrollmentWithdrawn
	enr.UpdatedAt = core.NowFunc()
	decrement(&c)
	return svc.save(ctx, enr, c, true)
}

func decrement(c *Course) {
	if c.EnrolledStudents > 0 {
		c.EnrolledStudents--
	}
}

func (svc *Service) save(ctx context.Context, enr Enrollment, c Course, courseChanged bool) (Enrollment, error) {
	enr, err := svc.repo.UpdateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, err
	}
	if courseChanged {
		if _, err = svc.repo.UpdateCourse(ctx, c); err != nil {
			return Enrollment{}, err
		}
	}
	return enr, nil
}

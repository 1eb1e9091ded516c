// Package report collects the exportable datasets of every domain on behalf of a principal.
package report

import (
	"context"
	"sort"

	"github.com/kat-co/vala"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/export"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
)

// Dataset names
const (
	Invigilators = "invigilators"
	Duties       = "duties"
	Courses      = "courses"
	Enrollments  = "enrollments"
	Programs     = "programs"
)

var ErrUnknownDataset = core.NewNotFoundError("unknown dataset")

// Sources holds the services datasets are read from.
type Sources struct {
	Invigilation *invigilation.Service
	Course       *course.Service
	Program      *program.Service
}

func NewSources(invSvc *invigilation.Service, crsSvc *course.Service, prgSvc *program.Service) Sources {
	vala.BeginValidation().Validate(
		vala.IsNotNil(invSvc, "invSvc"),
		vala.IsNotNil(crsSvc, "crsSvc"),
		vala.IsNotNil(prgSvc, "prgSvc"),
	).CheckAndPanic()
	return Sources{Invigilation: invSvc, Course: crsSvc, Program: prgSvc}
}

// Names returns the known dataset names, sorted.
func Names() []string {
	names := []string{Invigilators, Duties, Courses, Enrollments, Programs}
	sort.Strings(names)
	return names
}

// Dataset returns the named dataset, holding every record p may see.
// Exporting requires the export permission on top of the visibility rules of each domain.
func (s Sources) Dataset(ctx context.Context, p access.Principal, name string) (export.Dataset, error) {
	if err := access.Authorize(p, access.ActionExport); err != nil {
		return export.Dataset{}, err
	}

	switch name {
	case Invigilators:
		invs, err := s.Invigilation.Query(ctx, p, invigilation.QueryFilter{})
		if err != nil {
			return export.Dataset{}, err
		}
		return invigilation.InvigilatorsDataset(invs), nil
	case Duties:
		duties, err := s.Invigilation.QueryDuties(ctx, p, invigilation.DutyFilter{})
		if err != nil {
			return export.Dataset{}, err
		}
		return invigilation.DutiesDataset(duties), nil
	case Courses:
		courses, err := s.Course.QueryCourses(ctx, p, course.QueryFilter{})
		if err != nil {
			return export.Dataset{}, err
		}
		return course.CoursesDataset(courses), nil
	case Enrollments:
		enrs, err := s.Course.QueryEnrollments(ctx, p, course.EnrollmentFilter{})
		if err != nil {
			return export.Dataset{}, err
		}
		return course.EnrollmentsDataset(enrs), nil
	case Programs:
		prgs, err := s.Program.Query(ctx, p, program.QueryFilter{})
		if err != nil {
			return export.Dataset{}, err
		}
		return program.Dataset(prgs), nil
	}
	return export.Dataset{}, ErrUnknownDataset
}

package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/masomo-console/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.courses.filter(nil) {
		if strings.EqualFold(c.Code, code) && !isExcluded(c.ID, excludedIDs) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextID(PrefixCourse)
	repo.db.courses.put(c.ID, c)
	return cloneCourse(c), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses.get(id); ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.courses.filter(filter.Match), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.courses.has(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses.put(c.ID, c)
	return cloneCourse(c), nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.courses.has(id) {
		return course.ErrNotFound
	}
	repo.db.courses.remove(id)
	repo.db.units.remove(ids(repo.db.units.filter(func(u course.Unit) bool { return u.CourseID == id }), unitID)...)
	repo.db.topics.remove(ids(repo.db.topics.filter(func(t course.Topic) bool { return t.CourseID == id }), topicID)...)
	repo.db.contents.remove(ids(repo.db.contents.filter(func(ci course.ContentItem) bool { return ci.CourseID == id }), contentID)...)
	repo.db.enrollments.remove(ids(repo.db.enrollments.filter(func(e course.Enrollment) bool { return e.CourseID == id }), enrollmentID)...)
	return nil
}

// Units

func (repo *courseRepository) CreateUnit(ctx context.Context, u course.Unit) (course.Unit, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.courses.has(u.CourseID) {
		return course.Unit{}, course.ErrNotFound
	}
	u.ID = repo.db.nextID(PrefixUnit)
	repo.db.units.put(u.ID, u)
	return u, nil
}

func (repo *courseRepository) GetUnit(ctx context.Context, id string) (course.Unit, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if u, ok := repo.db.units.get(id); ok {
		return u, nil
	}
	return course.Unit{}, course.ErrUnitNotFound
}

func (repo *courseRepository) UpdateUnit(ctx context.Context, u course.Unit) (course.Unit, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.units.has(u.ID) {
		return course.Unit{}, course.ErrUnitNotFound
	}
	repo.db.units.put(u.ID, u)
	return u, nil
}

func (repo *courseRepository) DeleteUnit(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.units.has(id) {
		return course.ErrUnitNotFound
	}
	repo.db.units.remove(id)
	repo.db.topics.remove(ids(repo.db.topics.filter(func(t course.Topic) bool { return t.UnitID == id }), topicID)...)
	repo.db.contents.remove(ids(repo.db.contents.filter(func(ci course.ContentItem) bool { return ci.UnitID == id }), contentID)...)
	return nil
}

// Topics

func (repo *courseRepository) CreateTopic(ctx context.Context, t course.Topic) (course.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.units.has(t.UnitID) {
		return course.Topic{}, course.ErrUnitNotFound
	}
	t.ID = repo.db.nextID(PrefixTopic)
	repo.db.topics.put(t.ID, t)
	return t, nil
}

func (repo *courseRepository) GetTopic(ctx context.Context, id string) (course.Topic, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.topics.get(id); ok {
		return t, nil
	}
	return course.Topic{}, course.ErrTopicNotFound
}

func (repo *courseRepository) UpdateTopic(ctx context.Context, t course.Topic) (course.Topic, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.topics.has(t.ID) {
		return course.Topic{}, course.ErrTopicNotFound
	}
	repo.db.topics.put(t.ID, t)
	return t, nil
}

func (repo *courseRepository) DeleteTopic(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.topics.has(id) {
		return course.ErrTopicNotFound
	}
	repo.db.topics.remove(id)
	repo.db.contents.remove(ids(repo.db.contents.filter(func(ci course.ContentItem) bool { return ci.TopicID == id }), contentID)...)
	return nil
}

// Content items

func (repo *courseRepository) CreateContent(ctx context.Context, ci course.ContentItem) (course.ContentItem, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.topics.has(ci.TopicID) {
		return course.ContentItem{}, course.ErrTopicNotFound
	}
	ci.ID = repo.db.nextID(PrefixContent)
	repo.db.contents.put(ci.ID, ci)
	return cloneContent(ci), nil
}

func (repo *courseRepository) GetContent(ctx context.Context, id string) (course.ContentItem, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ci, ok := repo.db.contents.get(id); ok {
		return ci, nil
	}
	return course.ContentItem{}, course.ErrContentNotFound
}

func (repo *courseRepository) UpdateContent(ctx context.Context, ci course.ContentItem) (course.ContentItem, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.contents.has(ci.ID) {
		return course.ContentItem{}, course.ErrContentNotFound
	}
	repo.db.contents.put(ci.ID, ci)
	return cloneContent(ci), nil
}

func (repo *courseRepository) DeleteContent(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.contents.has(id) {
		return course.ErrContentNotFound
	}
	repo.db.contents.remove(id)
	return nil
}

func (repo *courseRepository) GetHierarchy(ctx context.Context, courseID string) (course.Hierarchy, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if !repo.db.courses.has(courseID) {
		return course.Hierarchy{}, course.ErrNotFound
	}
	return course.Hierarchy{
		Units:    repo.db.units.filter(func(u course.Unit) bool { return u.CourseID == courseID }),
		Topics:   repo.db.topics.filter(func(t course.Topic) bool { return t.CourseID == courseID }),
		Contents: repo.db.contents.filter(func(ci course.ContentItem) bool { return ci.CourseID == courseID }),
	}, nil
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.courses.has(e.CourseID) {
		return course.Enrollment{}, course.ErrNotFound
	}
	repo.db.enrollments.put(e.ID, e)
	return e, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, id string) (course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.enrollments.get(id); ok {
		return e, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.enrollments.filter(filter.Match), nil
}

func (repo *courseRepository) UpdateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.enrollments.has(e.ID) {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	repo.db.enrollments.put(e.ID, e)
	return e, nil
}

func ids[T any](rows []T, id func(T) string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, id(row))
	}
	return out
}

func unitID(u course.Unit) string             { return u.ID }
func topicID(t course.Topic) string           { return t.ID }
func contentID(ci course.ContentItem) string  { return ci.ID }
func enrollmentID(e course.Enrollment) string { return e.ID }

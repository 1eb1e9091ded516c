package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/user"
)

// Identifier prefixes
const (
	PrefixUser        = "USR"
	PrefixInvigilator = "INV"
	PrefixDuty        = "DUTY"
	PrefixCourse      = "CRS"
	PrefixUnit        = "UNIT"
	PrefixTopic       = "TOPIC"
	PrefixContent     = "CNT"
	PrefixProgram     = "PRG"
)

// DB keeps every collection in memory. A single lock guards all tables so that cascades and multi-table saves
// are atomic.
type DB struct {
	mu sync.RWMutex

	users        *table[user.User]
	invigilators *table[invigilation.Invigilator]
	duties       *table[invigilation.ExamDuty]
	courses      *table[course.Course]
	units        *table[course.Unit]
	topics       *table[course.Topic]
	contents     *table[course.ContentItem]
	enrollments  *table[course.Enrollment]
	programs     *table[program.Program]

	seqs map[string]*core.Sequence
}

func Open() *DB {
	db := &DB{
		users:        newTable(cloneUser),
		invigilators: newTable(cloneInvigilator),
		duties:       newTable(cloneDuty),
		courses:      newTable(cloneCourse),
		units:        newTable(func(u course.Unit) course.Unit { return u }),
		topics:       newTable(func(t course.Topic) course.Topic { return t }),
		contents:     newTable(cloneContent),
		enrollments:  newTable(func(e course.Enrollment) course.Enrollment { return e }),
		programs:     newTable(cloneProgram),
		seqs:         make(map[string]*core.Sequence),
	}
	for _, prefix := range []string{
		PrefixUser, PrefixInvigilator, PrefixDuty, PrefixCourse, PrefixUnit, PrefixTopic, PrefixContent, PrefixProgram,
	} {
		db.seqs[prefix] = core.NewSequence(prefix)
	}
	return db
}

func (db *DB) nextID(prefix string) string {
	return db.seqs[prefix].Next()
}

// Reset empties every table and restarts the sequences.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users.reset()
	db.invigilators.reset()
	db.duties.reset()
	db.courses.reset()
	db.units.reset()
	db.topics.reset()
	db.contents.reset()
	db.enrollments.reset()
	db.programs.reset()
	for _, seq := range db.seqs {
		seq.Reset(0)
	}
}

// IsEmpty reports whether no record at all is stored.
func (db *DB) IsEmpty() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.users.order) == 0 && len(db.invigilators.order) == 0 && len(db.duties.order) == 0 &&
		len(db.courses.order) == 0 && len(db.programs.order) == 0
}

// table stores rows by id, remembering insertion order. Rows are copied in and out so that callers never
// share slices or maps with the stored rows. Callers hold the DB lock.
type table[T any] struct {
	rows  map[string]T
	order []string
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]T), clone: clone}
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		return row, false
	}
	return t.clone(row), true
}

func (t *table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) put(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = t.clone(row)
}

func (t *table[T]) remove(ids ...string) {
	if len(ids) == 0 {
		return
	}
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			removed[id] = true
		}
	}
	order := t.order[:0]
	for _, id := range t.order {
		if !removed[id] {
			order = append(order, id)
		}
	}
	t.order = order
}

// filter returns copies of the rows matching match, in insertion order. A nil match returns every row.
func (t *table[T]) filter(match func(T) bool) []T {
	rows := make([]T, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		if match == nil || match(row) {
			rows = append(rows, t.clone(row))
		}
	}
	return rows
}

func (t *table[T]) reset() {
	t.rows = make(map[string]T)
	t.order = nil
}

// Copies

func cloneStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	return append(make([]string, 0, len(ss)), ss...)
}

func cloneUser(u user.User) user.User {
	u.Departments = cloneStrings(u.Departments)
	if u.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return u
}

func cloneInvigilator(inv invigilation.Invigilator) invigilation.Invigilator {
	inv.Qualifications = cloneStrings(inv.Qualifications)
	inv.Preferences.Shifts = cloneStrings(inv.Preferences.Shifts)
	if inv.Availability != nil {
		avail := make(map[string]string, len(inv.Availability))
		for date, status := range inv.Availability {
			avail[date] = status
		}
		inv.Availability = avail
	}
	if inv.HeldAvailability != nil {
		held := make(map[string]string, len(inv.HeldAvailability))
		for date, status := range inv.HeldAvailability {
			held[date] = status
		}
		inv.HeldAvailability = held
	}
	return inv
}

func cloneDuty(d invigilation.ExamDuty) invigilation.ExamDuty {
	d.AssignedInvigilators = cloneStrings(d.AssignedInvigilators)
	d.SubstituteInvigilators = cloneStrings(d.SubstituteInvigilators)
	return d
}

func cloneCourse(c course.Course) course.Course {
	c.AssignedFaculty = cloneStrings(c.AssignedFaculty)
	c.AssignedHODs = cloneStrings(c.AssignedHODs)
	c.AssignedDepartments = cloneStrings(c.AssignedDepartments)
	c.Outcomes = cloneStrings(c.Outcomes)
	c.Prerequisites = cloneStrings(c.Prerequisites)
	c.Tags = cloneStrings(c.Tags)
	c.Features.Badges = cloneStrings(c.Features.Badges)
	c.Features.Integrations = cloneStrings(c.Features.Integrations)
	return c
}

func cloneContent(ci course.ContentItem) course.ContentItem {
	if ci.ScormConfig != nil {
		scorm := *ci.ScormConfig
		ci.ScormConfig = &scorm
	}
	if ci.LTIConfig != nil {
		lti := *ci.LTIConfig
		if lti.CustomParams != nil {
			params := make(map[string]string, len(lti.CustomParams))
			for k, v := range lti.CustomParams {
				params[k] = v
			}
			lti.CustomParams = params
		}
		ci.LTIConfig = &lti
	}
	if ci.QuizConfig != nil {
		quiz := *ci.QuizConfig
		ci.QuizConfig = &quiz
	}
	return ci
}

func cloneProgram(prg program.Program) program.Program {
	prg.Specializations = cloneStrings(prg.Specializations)
	return prg
}

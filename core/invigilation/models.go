package invigilation

import (
	"time"

	"github.com/trezcool/masomo-console/core"
)

// Invigilator statuses
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusOnLeave  = "On Leave"
)

// Availability of an invigilator on a given date.
const (
	Available   = "available"
	Unavailable = "unavailable"
	Assigned    = "assigned"
)

// Duty statuses
const (
	DutyScheduled  = "Scheduled"
	DutyInProgress = "In Progress"
	DutyCompleted  = "Completed"
	DutyCancelled  = "Cancelled"
)

var (
	Statuses     = []string{StatusActive, StatusInactive, StatusOnLeave}
	DutyStatuses = []string{DutyScheduled, DutyInProgress, DutyCompleted, DutyCancelled}

	// dutyTransitions lists the statuses a duty may move to. Completed and Cancelled are terminal.
	dutyTransitions = map[string][]string{
		DutyScheduled:  {DutyInProgress, DutyCancelled},
		DutyInProgress: {DutyCompleted, DutyCancelled},
	}
)

type Preferences struct {
	Shifts   []string `json:"shifts"`
	MaxHours int      `json:"max_hours" validate:"gte=0"`
	Notes    string   `json:"notes"`
}

type Ratings struct {
	Punctuality     float64 `json:"punctuality" validate:"gte=0,lte=5"`
	Performance     float64 `json:"performance" validate:"gte=0,lte=5"`
	StudentHandling float64 `json:"student_handling" validate:"gte=0,lte=5"`
	Overall         float64 `json:"overall" validate:"gte=0,lte=5"`
}

type Invigilator struct {
	ID                 string            `json:"id"`
	EmployeeID         string            `json:"employee_id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	Department         string            `json:"department"`
	Designation        string            `json:"designation"`
	Experience         int               `json:"experience"`
	Qualifications     []string          `json:"qualifications"`
	Availability       map[string]string `json:"availability"`
	HeldAvailability   map[string]string `json:"held_availability,omitempty"` // availability before the date was assigned, "" if unset
	Preferences        Preferences       `json:"preferences"`
	Ratings            Ratings           `json:"ratings"`
	TotalDuties        int               `json:"total_duties"`
	CurrentMonthDuties int               `json:"current_month_duties"`
	Status             string            `json:"status"`
	CreatedAt          time.Time         `json:"created_at"` // UTC
	UpdatedAt          time.Time         `json:"updated_at"` // UTC
}

// holdAvailability marks the invigilator as assigned on date, keeping what was there before.
func (inv *Invigilator) holdAvailability(date string) {
	if inv.Availability == nil {
		inv.Availability = make(map[string]string)
	}
	if inv.Availability[date] != Assigned {
		if inv.HeldAvailability == nil {
			inv.HeldAvailability = make(map[string]string)
		}
		inv.HeldAvailability[date] = inv.Availability[date]
	}
	inv.Availability[date] = Assigned
}

// releaseAvailability restores the availability held for date.
// Dates assigned without a held value (e.g. seeded data) become available.
func (inv *Invigilator) releaseAvailability(date string) {
	if inv.Availability == nil {
		inv.Availability = make(map[string]string)
	}
	prev, ok := inv.HeldAvailability[date]
	switch {
	case !ok:
		inv.Availability[date] = Available
	case prev == "":
		delete(inv.Availability, date)
	default:
		inv.Availability[date] = prev
	}
	delete(inv.HeldAvailability, date)
	if len(inv.HeldAvailability) == 0 {
		inv.HeldAvailability = nil
	}
}

// Fields returns the editable fields of the invigilator.
func (inv Invigilator) Fields() InvigilatorFields {
	return InvigilatorFields{
		EmployeeID:     inv.EmployeeID,
		Name:           inv.Name,
		Email:          inv.Email,
		Phone:          inv.Phone,
		Department:     inv.Department,
		Designation:    inv.Designation,
		Experience:     inv.Experience,
		Qualifications: inv.Qualifications,
		Preferences:    inv.Preferences,
		Status:         inv.Status,
	}
}

// InvigilatorFields contains the information that may be provided to create or modify an Invigilator.
// Availability, ratings and duty counters have their own operations.
type InvigilatorFields struct {
	EmployeeID     string      `json:"employee_id" validate:"required,notblank"`
	Name           string      `json:"name" validate:"required,notblank"`
	Email          string      `json:"email" validate:"omitempty,email"`
	Phone          string      `json:"phone"`
	Department     string      `json:"department" validate:"required,notblank"`
	Designation    string      `json:"designation"`
	Experience     int         `json:"experience" validate:"gte=0"`
	Qualifications []string    `json:"qualifications"`
	Preferences    Preferences `json:"preferences"`
	Status         string      `json:"status"`
}

// NewInvigilatorFields returns the defaults of a creation draft.
func NewInvigilatorFields() InvigilatorFields {
	return InvigilatorFields{Status: StatusActive, Qualifications: []string{}, Preferences: Preferences{Shifts: []string{}}}
}

func (f *InvigilatorFields) Clean() {
	f.EmployeeID = core.CleanString(f.EmployeeID)
	f.Name = core.CleanString(f.Name)
	f.Email = core.CleanString(f.Email, true /* lower */)
	f.Phone = core.CleanString(f.Phone)
	f.Department = core.CleanString(f.Department)
	f.Designation = core.CleanString(f.Designation)
	f.Qualifications = core.CleanStrings(f.Qualifications)
	f.Preferences.Shifts = core.CleanStrings(f.Preferences.Shifts)
	if f.Status == "" {
		f.Status = StatusActive
	}
}

type ExamDuty struct {
	ID                     string    `json:"id"`
	ExamID                 string    `json:"exam_id"`
	Subject                string    `json:"subject"`
	Date                   string    `json:"date"` // YYYY-MM-DD
	StartTime              string    `json:"start_time"`
	EndTime                string    `json:"end_time"`
	Venue                  string    `json:"venue"`
	Capacity               int       `json:"capacity"`
	EnrolledStudents       int       `json:"enrolled_students"`
	RequiredInvigilators   int       `json:"required_invigilators"`
	AssignedInvigilators   []string  `json:"assigned_invigilators"`
	HeadInvigilator        string    `json:"head_invigilator"`
	SubstituteInvigilators []string  `json:"substitute_invigilators"`
	Status                 string    `json:"status"`
	Notes                  string    `json:"notes"`
	CreatedAt              time.Time `json:"created_at"` // UTC
	UpdatedAt              time.Time `json:"updated_at"` // UTC
}

// IsAssigned reports whether the invigilator holds this duty.
func (d ExamDuty) IsAssigned(invID string) bool {
	return indexOf(d.AssignedInvigilators, invID) >= 0
}

// IsOpen reports whether the duty may still be staffed.
func (d ExamDuty) IsOpen() bool {
	return d.Status == DutyScheduled || d.Status == DutyInProgress
}

func (d ExamDuty) IsFullyStaffed() bool {
	return len(d.AssignedInvigilators) >= d.RequiredInvigilators
}

func (d ExamDuty) Fields() DutyFields {
	return DutyFields{
		ExamID:                 d.ExamID,
		Subject:                d.Subject,
		Date:                   d.Date,
		StartTime:              d.StartTime,
		EndTime:                d.EndTime,
		Venue:                  d.Venue,
		Capacity:               d.Capacity,
		EnrolledStudents:       d.EnrolledStudents,
		RequiredInvigilators:   d.RequiredInvigilators,
		SubstituteInvigilators: d.SubstituteInvigilators,
		Status:                 d.Status,
		Notes:                  d.Notes,
	}
}

// DutyFields contains the information that may be provided to create or modify an ExamDuty.
// Assignments go through Service.Assign and Service.Unassign.
type DutyFields struct {
	ExamID                 string   `json:"exam_id" validate:"required,notblank"`
	Subject                string   `json:"subject"`
	Date                   string   `json:"date" validate:"required,isodate"`
	StartTime              string   `json:"start_time" validate:"required,clock"`
	EndTime                string   `json:"end_time" validate:"required,clock"`
	Venue                  string   `json:"venue" validate:"required,notblank"`
	Capacity               int      `json:"capacity" validate:"gte=0"`
	EnrolledStudents       int      `json:"enrolled_students" validate:"gte=0,ltefield=Capacity"`
	RequiredInvigilators   int      `json:"required_invigilators" validate:"gte=1"`
	SubstituteInvigilators []string `json:"substitute_invigilators"`
	Status                 string   `json:"status"`
	Notes                  string   `json:"notes"`
}

func NewDutyFields() DutyFields {
	return DutyFields{Status: DutyScheduled, RequiredInvigilators: 1, SubstituteInvigilators: []string{}}
}

func (f *DutyFields) Clean() {
	f.ExamID = core.CleanString(f.ExamID)
	f.Subject = core.CleanString(f.Subject)
	f.Date = core.CleanString(f.Date)
	f.StartTime = core.CleanString(f.StartTime)
	f.EndTime = core.CleanString(f.EndTime)
	f.Venue = core.CleanString(f.Venue)
	f.SubstituteInvigilators = core.CleanStrings(f.SubstituteInvigilators)
	if f.Status == "" {
		f.Status = DutyScheduled
	}
}

// QueryFilter narrows down invigilators. All set fields must match.
// Search does a case-insensitive match on one of Name, EmployeeID or Department.
type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Status     string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.Status = core.CleanString(qf.Status)
}

// Match reports whether inv satisfies every predicate of the filter.
func (qf QueryFilter) Match(inv Invigilator) bool {
	return core.ContainsFold(qf.Search, inv.Name, inv.EmployeeID, inv.Department) &&
		core.MatchFilter(qf.Department, inv.Department) &&
		core.MatchFilter(qf.Status, inv.Status)
}

// DutyFilter narrows down exam duties.
// Search does a case-insensitive match on one of ExamID, Subject or Venue.
type DutyFilter struct {
	Search        string `query:"search"`
	Status        string `query:"status"`
	Date          string `query:"date"`
	InvigilatorID string `query:"invigilator"`
}

func (df *DutyFilter) Clean() {
	df.Search = core.CleanString(df.Search)
	df.Status = core.CleanString(df.Status)
	df.Date = core.CleanString(df.Date)
	df.InvigilatorID = core.CleanString(df.InvigilatorID)
}

func (df DutyFilter) Match(d ExamDuty) bool {
	return core.ContainsFold(df.Search, d.ExamID, d.Subject, d.Venue) &&
		core.MatchFilter(df.Status, d.Status) &&
		core.MatchFilter(df.Date, d.Date) &&
		(df.InvigilatorID == "" || d.IsAssigned(df.InvigilatorID))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func remove(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

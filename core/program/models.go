package program

import (
	"time"

	"github.com/trezcool/masomo-console/core"
)

// Program types
const (
	TypeUndergraduate = "undergraduate"
	TypePostgraduate  = "postgraduate"
	TypeDiploma       = "diploma"
	TypeCertificate   = "certificate"
)

// Program statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDraft    = "draft"
)

var (
	Types    = []string{TypeUndergraduate, TypePostgraduate, TypeDiploma, TypeCertificate}
	Statuses = []string{StatusActive, StatusInactive, StatusDraft}

	// fields programs may be ordered by
	OrderingFields = []string{"name", "code", "department", "duration", "total_students", "created_at"}
)

type Program struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Code            string    `json:"code" db:"code"`
	Type            string    `json:"type" db:"type"`
	Department      string    `json:"department" db:"department"`
	Duration        int       `json:"duration" db:"duration"`
	TotalCredits    int       `json:"total_credits" db:"total_credits"`
	TotalStudents   int       `json:"total_students" db:"total_students"`
	Description     string    `json:"description" db:"description"`
	Status          string    `json:"status" db:"status"`
	Specializations []string  `json:"specializations" db:"-"`
	CreatedBy       string    `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (prg Program) Fields() Fields {
	return Fields{
		Name:            prg.Name,
		Code:            prg.Code,
		Type:            prg.Type,
		Department:      prg.Department,
		Duration:        prg.Duration,
		TotalCredits:    prg.TotalCredits,
		TotalStudents:   prg.TotalStudents,
		Description:     prg.Description,
		Status:          prg.Status,
		Specializations: prg.Specializations,
	}
}

// Fields contains the information that may be provided to create or modify a Program.
type Fields struct {
	Name            string   `json:"name" validate:"required,notblank"`
	Code            string   `json:"code" validate:"required,notblank"`
	Type            string   `json:"type" validate:"required,oneof=undergraduate postgraduate diploma certificate"`
	Department      string   `json:"department" validate:"required,notblank"`
	Duration        int      `json:"duration" validate:"gt=0,lte=10"`
	TotalCredits    int      `json:"total_credits" validate:"gte=0"`
	TotalStudents   int      `json:"total_students" validate:"gte=0"`
	Description     string   `json:"description"`
	Status          string   `json:"status" validate:"required,oneof=active inactive draft"`
	Specializations []string `json:"specializations"`
}

func NewFields() Fields {
	return Fields{
		Type:            TypeUndergraduate,
		Duration:        4,
		Status:          StatusDraft,
		Specializations: []string{},
	}
}

func (f *Fields) Clean() {
	f.Name = core.CleanString(f.Name)
	f.Code = core.CleanString(f.Code)
	f.Type = core.CleanString(f.Type)
	f.Department = core.CleanString(f.Department)
	f.Description = core.CleanString(f.Description)
	f.Status = core.CleanString(f.Status)
	f.Specializations = core.CleanStrings(f.Specializations)
}

// QueryFilter narrows down programs. All set fields must match.
// Search does a case-insensitive match on one of Name, Code or Department.
type QueryFilter struct {
	Search     string `query:"search"`
	Type       string `query:"type"`
	Status     string `query:"status"`
	Department string `query:"department"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Type = core.CleanString(qf.Type)
	qf.Status = core.CleanString(qf.Status)
	qf.Department = core.CleanString(qf.Department)
}

func (qf QueryFilter) Match(prg Program) bool {
	return core.ContainsFold(qf.Search, prg.Name, prg.Code, prg.Department) &&
		core.MatchFilter(qf.Type, prg.Type) &&
		core.MatchFilter(qf.Status, prg.Status) &&
		core.MatchFilter(qf.Department, prg.Department)
}

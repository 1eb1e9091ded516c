package invigilation

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("invigilator not found")
	ErrDutyNotFound       = core.NewNotFoundError("exam duty not found")
	ErrEmployeeIDExists   = errors.New("an invigilator with this employee id already exists")
	ErrAlreadyAssigned    = core.NewConflictError("invigilator is already assigned to this duty")
	ErrNotAssigned        = core.NewConflictError("invigilator is not assigned to this duty")
	ErrHasOpenDuties      = core.NewConflictError("invigilator still holds scheduled duties")
	ErrDutyClosed         = core.NewConflictError("duty is no longer open for assignments")
	ErrRescheduleAssigned = core.NewConflictError("unassign all invigilators before rescheduling the duty")
	ErrAvailabilityLocked = core.NewConflictError("invigilator is assigned to a duty on this date")
)

type Repository interface {
	CheckEmployeeIDUniqueness(ctx context.Context, employeeID string, excludedIDs ...string) error
	CreateInvigilator(ctx context.Context, inv Invigilator) (Invigilator, error)
	GetInvigilator(ctx context.Context, id string) (Invigilator, error)
	// QueryInvigilators returns the invigilators matching filter, in insertion order.
	QueryInvigilators(ctx context.Context, filter QueryFilter) ([]Invigilator, error)
	UpdateInvigilator(ctx context.Context, inv Invigilator) (Invigilator, error)
	DeleteInvigilator(ctx context.Context, id string) error

	CreateDuty(ctx context.Context, duty ExamDuty) (ExamDuty, error)
	GetDuty(ctx context.Context, id string) (ExamDuty, error)
	QueryDuties(ctx context.Context, filter DutyFilter) ([]ExamDuty, error)
	// SaveDuty replaces the duty and the given invigilators at once.
	SaveDuty(ctx context.Context, duty ExamDuty, invs ...Invigilator) (ExamDuty, error)
	DeleteDuty(ctx context.Context, id string) error

	// ResetMonthlyDuties zeroes every invigilator's current month counter and returns how many changed.
	ResetMonthlyDuties(ctx context.Context) (int, error)
}

// Service manages invigilators and their exam duties.
// Mutations are serialized since assignments touch a duty and an invigilator together.
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

func (svc *Service) checkUniqueness(ctx context.Context, employeeID string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmployeeIDUniqueness(ctx, employeeID, excludedIDs...); err != nil {
		if err == ErrEmployeeIDExists {
			return core.NewValidationError(err, core.FieldError{Field: "employee_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) validateInvigilator(ctx context.Context, f *InvigilatorFields, excludedIDs ...string) error {
	f.Clean()
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if indexOf(Statuses, f.Status) < 0 {
		return core.NewFieldError("status", "invalid status")
	}
	return svc.checkUniqueness(ctx, f.EmployeeID, excludedIDs...)
}

// Create adds an invigilator. Ratings and duty counters start at 0.
func (svc *Service) Create(ctx context.Context, p access.Principal, f InvigilatorFields) (Invigilator, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return Invigilator{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.validateInvigilator(ctx, &f); err != nil {
		return Invigilator{}, err
	}
	now := core.NowFunc()
	inv := Invigilator{Availability: make(map[string]string), CreatedAt: now, UpdatedAt: now}
	applyFields(&inv, f)
	return svc.repo.CreateInvigilator(ctx, inv)
}

func applyFields(inv *Invigilator, f InvigilatorFields) {
	inv.EmployeeID = f.EmployeeID
	inv.Name = f.Name
	inv.Email = f.Email
	inv.Phone = f.Phone
	inv.Department = f.Department
	inv.Designation = f.Designation
	inv.Experience = f.Experience
	inv.Qualifications = f.Qualifications
	inv.Preferences = f.Preferences
	inv.Status = f.Status
}

func (svc *Service) Get(ctx context.Context, p access.Principal, id string) (Invigilator, error) {
	if err := access.Authorize(p, access.ActionViewInvigilation); err != nil {
		return Invigilator{}, err
	}
	return svc.repo.GetInvigilator(ctx, id)
}

func (svc *Service) Query(ctx context.Context, p access.Principal, filter QueryFilter) ([]Invigilator, error) {
	if err := access.Authorize(p, access.ActionViewInvigilation); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryInvigilators(ctx, filter)
}

// Update replaces the editable fields of an invigilator.
func (svc *Service) Update(ctx context.Context, p access.Principal, id string, f InvigilatorFields) (Invigilator, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return Invigilator{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	inv, err := svc.repo.GetInvigilator(ctx, id)
	if err != nil {
		return Invigilator{}, err
	}
	if err = svc.validateInvigilator(ctx, &f, id); err != nil {
		return Invigilator{}, err
	}
	applyFields(&inv, f)
	inv.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateInvigilator(ctx, inv)
}

// Delete removes an invigilator who holds no open duty.
// Completed and cancelled duties keep the id for history.
func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, err := svc.repo.GetInvigilator(ctx, id); err != nil {
		return err
	}
	duties, err := svc.repo.QueryDuties(ctx, DutyFilter{InvigilatorID: id})
	if err != nil {
		return errors.Wrap(err, "querying duties")
	}
	for _, d := range duties {
		if d.IsOpen() {
			return ErrHasOpenDuties
		}
	}
	return svc.repo.DeleteInvigilator(ctx, id)
}

// UpdateAvailability sets whether an invigilator is available on date.
// The "assigned" state is managed by duty assignments only.
func (svc *Service) UpdateAvailability(ctx context.Context, p access.Principal, id, date, status string) (Invigilator, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return Invigilator{}, err
	}
	date = core.CleanString(date)
	switch {
	case date == "":
		return Invigilator{}, core.NewFieldError("date", "this field is required")
	case !core.IsISODate(date):
		return Invigilator{}, core.NewFieldError("date", "invalid date, expected format YYYY-MM-DD")
	case status != Available && status != Unavailable:
		return Invigilator{}, core.NewFieldError("status", "status must be one of available, unavailable")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	inv, err := svc.repo.GetInvigilator(ctx, id)
	if err != nil {
		return Invigilator{}, err
	}
	if inv.Availability[date] == Assigned {
		return Invigilator{}, ErrAvailabilityLocked
	}
	if inv.Availability == nil {
		inv.Availability = make(map[string]string)
	}
	inv.Availability[date] = status
	inv.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateInvigilator(ctx, inv)
}

// Rate replaces the four ratings of an invigilator.
func (svc *Service) Rate(ctx context.Context, p access.Principal, id string, r Ratings) (Invigilator, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return Invigilator{}, err
	}
	if err := svc.validate.Struct(r); err != nil {
		return Invigilator{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	inv, err := svc.repo.GetInvigilator(ctx, id)
	if err != nil {
		return Invigilator{}, err
	}
	inv.Ratings = r
	inv.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateInvigilator(ctx, inv)
}

// ResetMonthlyDuties starts a new month: every current month counter goes back to 0.
func (svc *Service) ResetMonthlyDuties(ctx context.Context) (int, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.repo.ResetMonthlyDuties(ctx)
}

// Stats computes the invigilator statistics over the invigilators matching filter.
func (svc *Service) Stats(ctx context.Context, p access.Principal, filter QueryFilter) (InvigilatorStats, error) {
	invs, err := svc.Query(ctx, p, filter)
	if err != nil {
		return InvigilatorStats{}, err
	}
	return ComputeInvigilatorStats(invs), nil
}

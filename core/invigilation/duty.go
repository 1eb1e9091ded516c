package invigilation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
)

func (svc *Service) validateDuty(ctx context.Context, f *DutyFields) error {
	f.Clean()
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if indexOf(DutyStatuses, f.Status) < 0 {
		return core.NewFieldError("status", "invalid status")
	}
	if f.EndTime <= f.StartTime {
		return core.NewFieldError("end_time", "end time must be after start time")
	}
	for _, id := range f.SubstituteInvigilators {
		if _, err := svc.repo.GetInvigilator(ctx, id); err != nil {
			if err == ErrNotFound {
				return core.NewFieldError("substitute_invigilators", "unknown invigilator "+id)
			}
			return err
		}
	}
	return nil
}

func applyDutyFields(d *ExamDuty, f DutyFields) {
	d.ExamID = f.ExamID
	d.Subject = f.Subject
	d.Date = f.Date
	d.StartTime = f.StartTime
	d.EndTime = f.EndTime
	d.Venue = f.Venue
	d.Capacity = f.Capacity
	d.EnrolledStudents = f.EnrolledStudents
	d.RequiredInvigilators = f.RequiredInvigilators
	d.SubstituteInvigilators = f.SubstituteInvigilators
	d.Status = f.Status
	d.Notes = f.Notes
}

func (svc *Service) CreateDuty(ctx context.Context, p access.Principal, f DutyFields) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return ExamDuty{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.validateDuty(ctx, &f); err != nil {
		return ExamDuty{}, err
	}
	now := core.NowFunc()
	d := ExamDuty{AssignedInvigilators: []string{}, CreatedAt: now, UpdatedAt: now}
	applyDutyFields(&d, f)
	return svc.repo.CreateDuty(ctx, d)
}

func (svc *Service) GetDuty(ctx context.Context, p access.Principal, id string) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionViewInvigilation); err != nil {
		return ExamDuty{}, err
	}
	return svc.repo.GetDuty(ctx, id)
}

func (svc *Service) QueryDuties(ctx context.Context, p access.Principal, filter DutyFilter) ([]ExamDuty, error) {
	if err := access.Authorize(p, access.ActionViewInvigilation); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryDuties(ctx, filter)
}

// CanTransition reports whether a duty may move from status `from` to status `to`.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return indexOf(dutyTransitions[from], to) >= 0
}

// UpdateDuty replaces the editable fields of a duty.
func (svc *Service) UpdateDuty(ctx context.Context, p access.Principal, id string, f DutyFields) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return ExamDuty{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDuty(ctx, id)
	if err != nil {
		return ExamDuty{}, err
	}
	if err = svc.validateDuty(ctx, &f); err != nil {
		return ExamDuty{}, err
	}
	if !CanTransition(d.Status, f.Status) {
		return ExamDuty{}, core.NewFieldError("status", "cannot move a duty from "+d.Status+" to "+f.Status)
	}
	if f.Date != d.Date && len(d.AssignedInvigilators) > 0 {
		return ExamDuty{}, ErrRescheduleAssigned
	}
	if f.RequiredInvigilators < len(d.AssignedInvigilators) {
		return ExamDuty{}, core.NewFieldError("required_invigilators", "cannot be lower than the number of assigned invigilators")
	}
	applyDutyFields(&d, f)
	d.UpdatedAt = core.NowFunc()
	return svc.repo.SaveDuty(ctx, d)
}

// DeleteDuty removes a duty. The invigilators of an open duty are released first.
func (svc *Service) DeleteDuty(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDuty(ctx, id)
	if err != nil {
		return err
	}
	if d.IsOpen() {
		for _, invID := range d.AssignedInvigilators {
			if d, err = svc.unassign(ctx, d, invID); err != nil {
				return errors.Wrapf(err, "releasing invigilator %s", invID)
			}
		}
	}
	return svc.repo.DeleteDuty(ctx, id)
}

// Assign adds an invigilator to a duty. The first assignee of a duty without head becomes its head.
// The invigilator is marked as assigned on the duty date and both duty counters are incremented.
func (svc *Service) Assign(ctx context.Context, p access.Principal, dutyID, invID string) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return ExamDuty{}, err
	}
	if core.CleanString(invID) == "" {
		return ExamDuty{}, core.NewFieldError("invigilator_id", "select an invigilator")
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDuty(ctx, dutyID)
	if err != nil {
		return ExamDuty{}, err
	}
	inv, err := svc.repo.GetInvigilator(ctx, invID)
	if err != nil {
		return ExamDuty{}, err
	}

	switch {
	case !d.IsOpen():
		return ExamDuty{}, ErrDutyClosed
	case d.IsAssigned(invID):
		return ExamDuty{}, ErrAlreadyAssigned
	case d.IsFullyStaffed():
		return ExamDuty{}, core.NewFieldError("invigilator_id", "duty is already fully staffed")
	case inv.Status != StatusActive:
		return ExamDuty{}, core.NewFieldError("invigilator_id", "invigilator is not active")
	case inv.Availability[d.Date] == Unavailable:
		return ExamDuty{}, core.NewFieldError("invigilator_id", "invigilator is unavailable on "+d.Date)
	}

	now := core.NowFunc()
	d.AssignedInvigilators = append(append([]string{}, d.AssignedInvigilators...), invID)
	if d.HeadInvigilator == "" {
		d.HeadInvigilator = invID
	}
	d.UpdatedAt = now

	inv.holdAvailability(d.Date)
	inv.TotalDuties++
	inv.CurrentMonthDuties++
	inv.UpdatedAt = now

	return svc.repo.SaveDuty(ctx, d, inv)
}

// Unassign removes an invigilator from a duty, clearing the head if it was them.
// The availability held before the assignment is restored unless they hold another open duty that day,
// and both duty counters are decremented, never below 0.
func (svc *Service) Unassign(ctx context.Context, p access.Principal, dutyID, invID string) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return ExamDuty{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDuty(ctx, dutyID)
	if err != nil {
		return ExamDuty{}, err
	}
	if !d.IsAssigned(invID) {
		return ExamDuty{}, ErrNotAssigned
	}
	return svc.unassign(ctx, d, invID)
}

func (svc *Service) unassign(ctx context.Context, d ExamDuty, invID string) (ExamDuty, error) {
	now := core.NowFunc()
	d.AssignedInvigilators = remove(d.AssignedInvigilators, invID)
	d.SubstituteInvigilators = remove(d.SubstituteInvigilators, invID)
	if d.HeadInvigilator == invID {
		d.HeadInvigilator = ""
	}
	d.UpdatedAt = now

	inv, err := svc.repo.GetInvigilator(ctx, invID)
	if err != nil {
		if err == ErrNotFound { // deleted since: only the duty changes
			return svc.repo.SaveDuty(ctx, d)
		}
		return ExamDuty{}, err
	}

	stillAssigned, err := svc.hasOtherDutyOn(ctx, invID, d)
	if err != nil {
		return ExamDuty{}, err
	}
	if !stillAssigned {
		inv.releaseAvailability(d.Date)
	}
	if inv.TotalDuties > 0 {
		inv.TotalDuties--
	}
	if inv.CurrentMonthDuties > 0 {
		inv.CurrentMonthDuties--
	}
	inv.UpdatedAt = now

	return svc.repo.SaveDuty(ctx, d, inv)
}

func (svc *Service) hasOtherDutyOn(ctx context.Context, invID string, d ExamDuty) (bool, error) {
	duties, err := svc.repo.QueryDuties(ctx, DutyFilter{Date: d.Date, InvigilatorID: invID})
	if err != nil {
		return false, errors.Wrap(err, "querying duties")
	}
	for _, other := range duties {
		if other.ID != d.ID && other.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

// SetHead promotes an assignee to head invigilator.
func (svc *Service) SetHead(ctx context.Context, p access.Principal, dutyID, invID string) (ExamDuty, error) {
	if err := access.Authorize(p, access.ActionManageInvigilation); err != nil {
		return ExamDuty{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDuty(ctx, dutyID)
	if err != nil {
		return ExamDuty{}, err
	}
	if !d.IsAssigned(invID) {
		return ExamDuty{}, ErrNotAssigned
	}
	d.HeadInvigilator = invID
	d.UpdatedAt = core.NowFunc()
	return svc.repo.SaveDuty(ctx, d)
}

// DutyStats computes the duty statistics over the duties matching filter.
func (svc *Service) DutyStats(ctx context.Context, p access.Principal, filter DutyFilter) (DutyStats, error) {
	duties, err := svc.QueryDuties(ctx, p, filter)
	if err != nil {
		return DutyStats{}, err
	}
	return ComputeDutyStats(duties, core.NowFunc().Format(core.DateLayout)), nil
}

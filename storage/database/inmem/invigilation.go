package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-console/core/invigilation"
)

type invigilationRepository struct {
	db *DB
}

var _ invigilation.Repository = (*invigilationRepository)(nil)

func NewInvigilationRepository(db *DB) invigilation.Repository {
	return &invigilationRepository{db: db}
}

func (repo *invigilationRepository) CheckEmployeeIDUniqueness(ctx context.Context, employeeID string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, inv := range repo.db.invigilators.filter(nil) {
		if inv.EmployeeID == employeeID && !isExcluded(inv.ID, excludedIDs) {
			return invigilation.ErrEmployeeIDExists
		}
	}
	return nil
}

func (repo *invigilationRepository) CreateInvigilator(ctx context.Context, inv invigilation.Invigilator) (invigilation.Invigilator, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inv.ID = repo.db.nextID(PrefixInvigilator)
	repo.db.invigilators.put(inv.ID, inv)
	return cloneInvigilator(inv), nil
}

func (repo *invigilationRepository) GetInvigilator(ctx context.Context, id string) (invigilation.Invigilator, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if inv, ok := repo.db.invigilators.get(id); ok {
		return inv, nil
	}
	return invigilation.Invigilator{}, invigilation.ErrNotFound
}

func (repo *invigilationRepository) QueryInvigilators(ctx context.Context, filter invigilation.QueryFilter) ([]invigilation.Invigilator, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.invigilators.filter(filter.Match), nil
}

func (repo *invigilationRepository) UpdateInvigilator(ctx context.Context, inv invigilation.Invigilator) (invigilation.Invigilator, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.invigilators.has(inv.ID) {
		return invigilation.Invigilator{}, invigilation.ErrNotFound
	}
	repo.db.invigilators.put(inv.ID, inv)
	return cloneInvigilator(inv), nil
}

func (repo *invigilationRepository) DeleteInvigilator(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.invigilators.has(id) {
		return invigilation.ErrNotFound
	}
	repo.db.invigilators.remove(id)
	return nil
}

func (repo *invigilationRepository) CreateDuty(ctx context.Context, duty invigilation.ExamDuty) (invigilation.ExamDuty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	duty.ID = repo.db.nextID(PrefixDuty)
	repo.db.duties.put(duty.ID, duty)
	return cloneDuty(duty), nil
}

func (repo *invigilationRepository) GetDuty(ctx context.Context, id string) (invigilation.ExamDuty, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if duty, ok := repo.db.duties.get(id); ok {
		return duty, nil
	}
	return invigilation.ExamDuty{}, invigilation.ErrDutyNotFound
}

func (repo *invigilationRepository) QueryDuties(ctx context.Context, filter invigilation.DutyFilter) ([]invigilation.ExamDuty, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.duties.filter(filter.Match), nil
}

func (repo *invigilationRepository) SaveDuty(ctx context.Context, duty invigilation.ExamDuty, invs ...invigilation.Invigilator) (invigilation.ExamDuty, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.duties.has(duty.ID) {
		return invigilation.ExamDuty{}, invigilation.ErrDutyNotFound
	}
	for _, inv := range invs {
		if !repo.db.invigilators.has(inv.ID) {
			return invigilation.ExamDuty{}, invigilation.ErrNotFound
		}
	}
	repo.db.duties.put(duty.ID, duty)
	for _, inv := range invs {
		repo.db.invigilators.put(inv.ID, inv)
	}
	return cloneDuty(duty), nil
}

func (repo *invigilationRepository) DeleteDuty(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.duties.has(id) {
		return invigilation.ErrDutyNotFound
	}
	repo.db.duties.remove(id)
	return nil
}

func (repo *invigilationRepository) ResetMonthlyDuties(ctx context.Context) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, inv := range repo.db.invigilators.filter(func(inv invigilation.Invigilator) bool { return inv.CurrentMonthDuties != 0 }) {
		inv.CurrentMonthDuties = 0
		repo.db.invigilators.put(inv.ID, inv)
		n++
	}
	return n, nil
}

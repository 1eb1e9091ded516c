package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/program"
)

type programRepository struct {
	db *DB
}

var _ program.Repository = (*programRepository)(nil)

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db}
}

func (repo *programRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, prg := range repo.db.programs.filter(nil) {
		if strings.EqualFold(prg.Code, code) && !isExcluded(prg.ID, excludedIDs) {
			return program.ErrCodeExists
		}
	}
	return nil
}

func (repo *programRepository) CreateProgram(ctx context.Context, prg program.Program) (program.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prg.ID = repo.db.nextID(PrefixProgram)
	repo.db.programs.put(prg.ID, prg)
	return cloneProgram(prg), nil
}

func (repo *programRepository) GetProgram(ctx context.Context, id string) (program.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prg, ok := repo.db.programs.get(id); ok {
		return prg, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) QueryPrograms(ctx context.Context, filter program.QueryFilter, orderings ...core.DBOrdering) ([]program.Program, error) {
	repo.db.mu.RLock()
	prgs := repo.db.programs.filter(filter.Match)
	repo.db.mu.RUnlock()

	if len(orderings) > 0 {
		sort.SliceStable(prgs, func(i, j int) bool {
			for _, ord := range orderings {
				if c := comparePrograms(prgs[i], prgs[j], ord.Field); c != 0 {
					return (c < 0) == ord.Ascending
				}
			}
			return false
		})
	}
	return prgs, nil
}

// comparePrograms compares a and b on field, returning -1, 0 or 1.
func comparePrograms(a, b program.Program, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "department":
		return strings.Compare(a.Department, b.Department)
	case "duration":
		return compareInts(a.Duration, b.Duration)
	case "total_students":
		return compareInts(a.TotalStudents, b.TotalStudents)
	case "created_at":
		return compareInts(int(a.CreatedAt.Sub(b.CreatedAt)), 0)
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *programRepository) UpdateProgram(ctx context.Context, prg program.Program) (program.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.programs.has(prg.ID) {
		return program.Program{}, program.ErrNotFound
	}
	repo.db.programs.put(prg.ID, prg)
	return cloneProgram(prg), nil
}

func (repo *programRepository) DeleteProgram(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.programs.has(id) {
		return program.ErrNotFound
	}
	repo.db.programs.remove(id)
	return nil
}

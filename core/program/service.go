package program

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
	ErrNotFound   = core.NewNotFoundError("program not found")
	ErrCodeExists = errors.New("a program with this code already exists")
)

type Repository interface {
	CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
	CreateProgram(ctx context.Context, prg Program) (Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	// QueryPrograms returns the programs matching filter, in insertion order unless orderings are given.
	QueryPrograms(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Program, error)
	UpdateProgram(ctx context.Context, prg Program) (Program, error)
	DeleteProgram(ctx context.Context, id string) error
}

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

func (svc *Service) validateFields(ctx context.Context, f *Fields, excludedIDs ...string) error {
	f.Clean()
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if err := svc.repo.CheckCodeUniqueness(ctx, f.Code, excludedIDs...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func applyFields(prg *Program, f Fields) {
	prg.Name = f.Name
	prg.Code = f.Code
	prg.Type = f.Type
	prg.Department = f.Department
	prg.Duration = f.Duration
	prg.TotalCredits = f.TotalCredits
	prg.TotalStudents = f.TotalStudents
	prg.Description = f.Description
	prg.Status = f.Status
	prg.Specializations = f.Specializations
}

func (svc *Service) Create(ctx context.Context, p access.Principal, f Fields) (Program, error) {
	if err := access.Authorize(p, access.ActionManagePrograms); err != nil {
		return Program{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.validateFields(ctx, &f); err != nil {
		return Program{}, err
	}
	now := core.NowFunc()
	prg := Program{CreatedBy: p.Name, CreatedAt: now, UpdatedAt: now}
	applyFields(&prg, f)
	return svc.repo.CreateProgram(ctx, prg)
}

// Get returns a program. Only program managers see programs that are not active.
func (svc *Service) Get(ctx context.Context, p access.Principal, id string) (Program, error) {
	prg, err := svc.repo.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	if !access.Can(p.Role, access.ActionManagePrograms) && prg.Status != StatusActive {
		return Program{}, ErrNotFound
	}
	return prg, nil
}

// Query returns the programs matching filter. Only program managers see programs that are not active.
func (svc *Service) Query(ctx context.Context, p access.Principal, filter QueryFilter, orderings ...core.DBOrdering) ([]Program, error) {
	filter.Clean()
	if !access.Can(p.Role, access.ActionManagePrograms) {
		if !core.MatchFilter(filter.Status, StatusActive) {
			return []Program{}, nil
		}
		filter.Status = StatusActive
	}
	return svc.repo.QueryPrograms(ctx, filter, core.CleanOrderings(orderings, OrderingFields...)...)
}

func (svc *Service) Update(ctx context.Context, p access.Principal, id string, f Fields) (Program, error) {
	if err := access.Authorize(p, access.ActionManagePrograms); err != nil {
		return Program{}, err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	prg, err := svc.repo.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	if err = svc.validateFields(ctx, &f, id); err != nil {
		return Program{}, err
	}
	applyFields(&prg, f)
	prg.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateProgram(ctx, prg)
}

func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManagePrograms); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, err := svc.repo.GetProgram(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteProgram(ctx, id)
}

// Stats aggregates the programs matching filter that p may see.
func (svc *Service) Stats(ctx context.Context, p access.Principal, filter QueryFilter) (Stats, error) {
	prgs, err := svc.Query(ctx, p, filter)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(prgs), nil
}

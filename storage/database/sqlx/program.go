package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/program"
)

const (
	programColumns = `id, name, code, type, department, duration, total_credits, total_students, description, status, specializations, created_by, created_at, updated_at`

	uniqueViolation   = "23505"
	programCodeUnique = "program_code_key"
)

type programRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Code            string         `db:"code"`
	Type            string         `db:"type"`
	Department      string         `db:"department"`
	Duration        int            `db:"duration"`
	TotalCredits    int            `db:"total_credits"`
	TotalStudents   int            `db:"total_students"`
	Description     null.String    `db:"description"`
	Status          string         `db:"status"`
	Specializations pq.StringArray `db:"specializations"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       null.Time      `db:"created_at"`
	UpdatedAt       null.Time      `db:"updated_at"`
}

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) program.Repository {
	return &programRepository{db: db}
}

func toRow(prg program.Program) programRow {
	specs := prg.Specializations
	if specs == nil {
		specs = []string{}
	}
	return programRow{
		ID:              prg.ID,
		Name:            prg.Name,
		Code:            prg.Code,
		Type:            prg.Type,
		Department:      prg.Department,
		Duration:        prg.Duration,
		TotalCredits:    prg.TotalCredits,
		TotalStudents:   prg.TotalStudents,
		Description:     null.NewString(prg.Description, prg.Description != ""),
		Status:          prg.Status,
		Specializations: specs,
		CreatedBy:       prg.CreatedBy,
		CreatedAt:       null.NewTime(prg.CreatedAt.UTC(), !prg.CreatedAt.IsZero()),
		UpdatedAt:       null.NewTime(prg.UpdatedAt.UTC(), !prg.UpdatedAt.IsZero()),
	}
}

func (row programRow) program() program.Program {
	specs := []string(row.Specializations)
	if specs == nil {
		specs = []string{}
	}
	return program.Program{
		ID:              row.ID,
		Name:            row.Name,
		Code:            row.Code,
		Type:            row.Type,
		Department:      row.Department,
		Duration:        row.Duration,
		TotalCredits:    row.TotalCredits,
		TotalStudents:   row.TotalStudents,
		Description:     row.Description.String,
		Status:          row.Status,
		Specializations: specs,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.Time.UTC(),
		UpdatedAt:       row.UpdatedAt.Time.UTC(),
	}
}

func trapNoRowsErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return program.ErrNotFound
	}
	return err
}

// trapUniqueErr maps the violation of the case-insensitive code index to program.ErrCodeExists.
// Any other violation (e.g. of the primary key) is returned as is.
func trapUniqueErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == programCodeUnique {
		return program.ErrCodeExists
	}
	return err
}

func (repo *programRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	q := `SELECT EXISTS (SELECT 1 FROM program WHERE lower(code) = lower($1) AND NOT (id = ANY($2)))`
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, code, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking program code uniqueness")
	}
	if exists {
		return program.ErrCodeExists
	}
	return nil
}

func (repo *programRepository) CreateProgram(ctx context.Context, prg program.Program) (program.Program, error) {
	q := `INSERT INTO program (name, code, type, department, duration, total_credits, total_students, description, status, specializations, created_by, created_at, updated_at)
		VALUES (:name, :code, :type, :department, :duration, :total_credits, :total_students, :description, :status, :specializations, :created_by, :created_at, :updated_at)
		RETURNING ` + programColumns

	rows, err := sqlx.NamedQueryContext(ctx, repo.db, q, toRow(prg))
	if err != nil {
		return program.Program{}, trapUniqueErr(err)
	}
	defer rows.Close()

	var row programRow
	if !rows.Next() {
		return program.Program{}, errors.Wrap(rows.Err(), "inserting program")
	}
	if err = rows.StructScan(&row); err != nil {
		return program.Program{}, errors.Wrap(err, "scanning program")
	}
	return row.program(), nil
}

func (repo *programRepository) GetProgram(ctx context.Context, id string) (program.Program, error) {
	var row programRow
	q := `SELECT ` + programColumns + ` FROM program WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return program.Program{}, trapNoRowsErr(err)
	}
	return row.program(), nil
}

func (repo *programRepository) QueryPrograms(ctx context.Context, filter program.QueryFilter, orderings ...core.DBOrdering) ([]program.Program, error) {
	q, args := buildProgramQuery(filter, orderings)

	var rows []programRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	prgs := make([]program.Program, 0, len(rows))
	for _, row := range rows {
		prgs = append(prgs, row.program())
	}
	return prgs, nil
}

// buildProgramQuery renders the SELECT statement for filter. Orderings must already be cleaned.
func buildProgramQuery(filter program.QueryFilter, orderings []core.DBOrdering) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		conds = append(conds, "(name ILIKE ? OR code ILIKE ? OR department ILIKE ?)")
		args = append(args, like, like, like)
	}
	eq := func(col, val string) {
		if val == "" || strings.EqualFold(val, "all") {
			return
		}
		conds = append(conds, "lower("+col+") = lower(?)")
		args = append(args, val)
	}
	eq("type", filter.Type)
	eq("status", filter.Status)
	eq("department", filter.Department)

	q := `SELECT ` + programColumns + ` FROM program`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	// ids are text: PRG1000 sorts before PRG101, so creation time breaks ties first
	orderList := make([]string, 0, len(orderings)+2)
	byCreation := false
	for _, ord := range orderings {
		orderList = append(orderList, ord.String())
		byCreation = byCreation || ord.Field == "created_at"
	}
	if !byCreation {
		orderList = append(orderList, "created_at ASC")
	}
	orderList = append(orderList, "id ASC")
	q += " ORDER BY " + strings.Join(orderList, ", ")

	return sqlx.Rebind(sqlx.DOLLAR, q), args
}

func (repo *programRepository) UpdateProgram(ctx context.Context, prg program.Program) (program.Program, error) {
	q := `UPDATE program SET name = :name, code = :code, type = :type, department = :department, duration = :duration,
		total_credits = :total_credits, total_students = :total_students, description = :description, status = :status,
		specializations = :specializations, updated_at = :updated_at
		WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, toRow(prg))
	if err != nil {
		return program.Program{}, trapUniqueErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return program.Program{}, program.ErrNotFound
	}
	return repo.GetProgram(ctx, prg.ID)
}

func (repo *programRepository) DeleteProgram(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM program WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting program")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return program.ErrNotFound
	}
	return nil
}

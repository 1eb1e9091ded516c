package program_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/program"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
	"github.com/trezcool/masomo-console/tests"
)

func setup(t *testing.T) *program.Service {
	t.Helper()
	validate, _ := testutil.NewValidator()
	return program.NewService(inmemdb.NewProgramRepository(testutil.SeededDB(t)), validate)
}

func ids(prgs []program.Program) []string {
	out := make([]string, 0, len(prgs))
	for _, prg := range prgs {
		out = append(out, prg.ID)
	}
	return out
}

func TestService_Query(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		p         access.Principal
		filter    program.QueryFilter
		orderings []core.DBOrdering
		want      []string
	}{
		{name: "manager", p: testutil.AsRole(access.RolePrincipal), want: []string{"PRG001", "PRG002", "PRG003"}},
		{name: "manager: drafts", p: testutil.AsRole(access.RoleAdmin), filter: program.QueryFilter{Status: "draft"}, want: []string{"PRG003"}},
		{name: "student", p: testutil.AsRole(access.RoleStudent), want: []string{"PRG001", "PRG002"}},
		{name: "student: drafts", p: testutil.AsRole(access.RoleStudent), filter: program.QueryFilter{Status: "draft"}, want: []string{}},
		{name: "search", p: testutil.AsRole(access.RoleAdmin), filter: program.QueryFilter{Search: "mba"}, want: []string{"PRG002"}},
		{
			name:      "ordering",
			p:         testutil.AsRole(access.RoleAdmin),
			orderings: []core.DBOrdering{{Field: "TOTAL_STUDENTS", Ascending: true}},
			want:      []string{"PRG003", "PRG002", "PRG001"},
		},
		{
			name:      "unknown ordering field",
			p:         testutil.AsRole(access.RoleAdmin),
			orderings: []core.DBOrdering{{Field: "password"}},
			want:      []string{"PRG001", "PRG002", "PRG003"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prgs, err := svc.Query(ctx, tt.p, tt.filter, tt.orderings...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(prgs))
		})
	}
}

func TestService_lifecycle(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	admin := access.Principal{ID: testutil.AdminID, Name: "Grace Admin", Role: access.RoleAdmin}
	student := testutil.AsRole(access.RoleStudent)

	f := program.NewFields()
	f.Name = " Data Engineering "
	f.Code = "bsc-cs"
	f.Department = "Computer Science"
	f.Specializations = []string{" Streaming ", ""}

	_, err := svc.Create(ctx, testutil.AsRole(access.RoleHOD), f)
	assert.Equal(t, access.ErrPermissionDenied, err)

	// codes are unique regardless of case
	_, err = svc.Create(ctx, admin, f)
	assert.EqualError(t, err, program.ErrCodeExists.Error())

	f.Code = "BSC-DE"
	prg, err := svc.Create(ctx, admin, f)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineering", prg.Name)
	assert.Equal(t, []string{"Streaming"}, prg.Specializations)
	assert.Equal(t, "Grace Admin", prg.CreatedBy)

	// drafts are hidden from non managers
	_, err = svc.Get(ctx, student, prg.ID)
	assert.Equal(t, program.ErrNotFound, err)

	f = prg.Fields()
	f.Status = program.StatusActive
	_, err = svc.Update(ctx, admin, prg.ID, f)
	require.NoError(t, err)
	got, err := svc.Get(ctx, student, prg.ID)
	require.NoError(t, err)
	assert.Equal(t, program.StatusActive, got.Status)

	require.NoError(t, svc.Delete(ctx, admin, prg.ID))
	assert.Equal(t, program.ErrNotFound, svc.Delete(ctx, admin, prg.ID))
}

func TestComputeStats(t *testing.T) {
	prgs := []program.Program{
		{Type: program.TypeUndergraduate, Status: program.StatusActive, Duration: 4, TotalCredits: 240, TotalStudents: 250},
		{Type: program.TypePostgraduate, Status: program.StatusActive, Duration: 2, TotalCredits: 120, TotalStudents: 80},
		{Type: program.TypeDiploma, Status: program.StatusDraft, Duration: 1, TotalCredits: 60},
	}
	assert.Equal(t, program.Stats{
		Total:  3,
		Active: 2,
		ByType: map[string]int{
			program.TypeUndergraduate: 1,
			program.TypePostgraduate:  1,
			program.TypeDiploma:       1,
			program.TypeCertificate:   0,
		},
		TotalStudents:   330,
		AverageDuration: 2.33,
		MinCredits:      60,
		MaxCredits:      240,
	}, program.ComputeStats(prgs))
}

func TestService_Query_conjunction(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		p            access.Principal
		search, dept string
		typ          string
	}{
		{p: testutil.AsRole(access.RoleAdmin), search: "science", dept: "Computer Science"},
		{p: testutil.AsRole(access.RoleAdmin), search: "a", dept: "mathematics"},
		{p: testutil.AsRole(access.RoleAdmin), search: "of", dept: "Business", typ: program.TypePostgraduate},
		{p: testutil.AsRole(access.RoleAdmin), search: "bsc", dept: "all", typ: "all"},
		{p: testutil.AsRole(access.RoleStudent), search: "a", dept: "Mathematics"},
		{p: testutil.AsRole(access.RoleStudent), search: "", dept: "Computer Science", typ: program.TypeUndergraduate},
	}
	for _, tt := range tests {
		t.Run(tt.p.Role+": "+tt.search+" & "+tt.dept+" & "+tt.typ, func(t *testing.T) {
			query := func(f program.QueryFilter) []string {
				prgs, err := svc.Query(ctx, tt.p, f)
				require.NoError(t, err)
				return ids(prgs)
			}
			bySearch := query(program.QueryFilter{Search: tt.search})
			byDept := query(program.QueryFilter{Department: tt.dept})
			byType := query(program.QueryFilter{Type: tt.typ})
			combined := query(program.QueryFilter{Search: tt.search, Department: tt.dept, Type: tt.typ})

			assert.Equal(t, intersect(intersect(bySearch, byDept), byType), combined)
		})
	}
}

// intersect keeps the ids of a that are also in b, in the order of a.
func intersect(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	out := make([]string, 0, len(a))
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func TestService_updateIdempotent(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	admin := testutil.AsRole(access.RoleAdmin)

	prg, err := svc.Get(ctx, admin, "PRG003")
	require.NoError(t, err)
	f := prg.Fields()
	f.Name = " Diploma in Applied Data Analytics "
	f.Code = "dip-ada"
	f.Status = program.StatusActive
	f.Specializations = []string{"BI", " ", "Visualisation"}

	once, err := svc.Update(ctx, admin, prg.ID, f)
	require.NoError(t, err)
	twice, err := svc.Update(ctx, admin, prg.ID, f)
	require.NoError(t, err)

	once.UpdatedAt, twice.UpdatedAt = time.Time{}, time.Time{}
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"BI", "Visualisation"}, twice.Specializations)
}

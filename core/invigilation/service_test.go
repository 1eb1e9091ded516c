package invigilation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/invigilation"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
	"github.com/trezcool/masomo-console/tests"
)

var admin = testutil.AsRole(access.RoleAdmin)

func setup(t *testing.T) (*invigilation.Service, invigilation.Repository) {
	t.Helper()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewInvigilationRepository(testutil.SeededDB(t))
	return invigilation.NewService(repo, validate), repo
}

func getInvigilator(t *testing.T, repo invigilation.Repository, id string) invigilation.Invigilator {
	t.Helper()
	inv, err := repo.GetInvigilator(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{invigilation.DutyScheduled, invigilation.DutyScheduled, true},
		{invigilation.DutyScheduled, invigilation.DutyInProgress, true},
		{invigilation.DutyScheduled, invigilation.DutyCancelled, true},
		{invigilation.DutyScheduled, invigilation.DutyCompleted, false},
		{invigilation.DutyInProgress, invigilation.DutyCompleted, true},
		{invigilation.DutyInProgress, invigilation.DutyScheduled, false},
		{invigilation.DutyCompleted, invigilation.DutyScheduled, false},
		{invigilation.DutyCancelled, invigilation.DutyInProgress, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+" -> "+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, invigilation.CanTransition(tt.from, tt.to))
		})
	}
}

func TestService_assignments(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	f := invigilation.NewDutyFields()
	f.ExamID = "CS102-FINAL"
	f.Date = "2024-12-10"
	f.StartTime = "13:00"
	f.EndTime = "15:00"
	f.Venue = "Lab 2"
	f.RequiredInvigilators = 2
	afternoon, err := svc.CreateDuty(ctx, admin, f)
	require.NoError(t, err)
	assert.Equal(t, []string{}, afternoon.AssignedInvigilators)

	// the first assignee becomes head
	afternoon, err = svc.Assign(ctx, admin, afternoon.ID, "INV001")
	require.NoError(t, err)
	assert.Equal(t, "INV001", afternoon.HeadInvigilator)
	inv := getInvigilator(t, repo, "INV001")
	assert.Equal(t, 25, inv.TotalDuties)
	assert.Equal(t, 4, inv.CurrentMonthDuties)

	// still assigned on that date through the afternoon duty
	morning, err := svc.Unassign(ctx, admin, "DUTY001", "INV001")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV003"}, morning.AssignedInvigilators)
	assert.Empty(t, morning.HeadInvigilator)
	inv = getInvigilator(t, repo, "INV001")
	assert.Equal(t, invigilation.Assigned, inv.Availability["2024-12-10"])
	assert.Equal(t, 24, inv.TotalDuties)

	_, err = svc.Unassign(ctx, admin, afternoon.ID, "INV001")
	require.NoError(t, err)
	inv = getInvigilator(t, repo, "INV001")
	assert.Equal(t, invigilation.Available, inv.Availability["2024-12-10"])
	assert.Equal(t, 23, inv.TotalDuties)
	assert.Equal(t, 2, inv.CurrentMonthDuties)

	// an assigned date cannot be edited by hand
	_, err = svc.UpdateAvailability(ctx, admin, "INV003", "2024-12-10", invigilation.Unavailable)
	assert.Equal(t, invigilation.ErrAvailabilityLocked, err)

	// unavailable invigilators are rejected
	_, err = svc.UpdateAvailability(ctx, admin, "INV002", "2024-12-10", invigilation.Unavailable)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, admin, afternoon.ID, "INV002")
	assert.EqualError(t, err, "invigilator is unavailable on 2024-12-10")

	// a fully staffed duty takes no more invigilators
	_, err = svc.Assign(ctx, admin, afternoon.ID, "INV003")
	require.NoError(t, err)
	_, err = svc.Assign(ctx, admin, afternoon.ID, "INV001")
	require.NoError(t, err)
	_, err = svc.UpdateAvailability(ctx, admin, "INV002", "2024-12-10", invigilation.Available)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, admin, afternoon.ID, "INV002")
	assert.EqualError(t, err, "duty is already fully staffed")
}

func TestService_countersNeverNegative(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	invf := invigilation.NewInvigilatorFields()
	invf.EmployeeID = "EMP-9001"
	invf.Name = "New Hire"
	invf.Department = "Computer Science"
	inv, err := svc.Create(ctx, admin, invf)
	require.NoError(t, err)
	assert.Zero(t, inv.TotalDuties)

	_, err = svc.Assign(ctx, admin, "DUTY001", inv.ID)
	require.NoError(t, err)
	inv = getInvigilator(t, repo, inv.ID)
	assert.Equal(t, 1, inv.TotalDuties)
	assert.Equal(t, 1, inv.CurrentMonthDuties)

	n, err := svc.ResetMonthlyDuties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // INV001, INV002, INV003 and the new hire

	_, err = svc.Unassign(ctx, admin, "DUTY001", inv.ID)
	require.NoError(t, err)
	inv = getInvigilator(t, repo, inv.ID)
	assert.Zero(t, inv.TotalDuties)
	assert.Zero(t, inv.CurrentMonthDuties)
}

func TestService_DeleteDuty(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.DeleteDuty(ctx, admin, "DUTY001"))

	for _, id := range []string{"INV001", "INV003"} {
		inv := getInvigilator(t, repo, id)
		assert.Equal(t, invigilation.Available, inv.Availability["2024-12-10"], id)
	}
	_, err := svc.GetDuty(ctx, admin, "DUTY001")
	assert.Equal(t, invigilation.ErrDutyNotFound, err)

	// nothing holds INV001 anymore
	assert.NoError(t, svc.Delete(ctx, admin, "INV001"))
}

func TestService_permissions(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	faculty := testutil.AsRole(access.RoleFaculty)
	_, err := svc.Query(ctx, faculty, invigilation.QueryFilter{})
	assert.NoError(t, err)
	_, err = svc.Assign(ctx, faculty, "DUTY001", "INV002")
	assert.Equal(t, access.ErrPermissionDenied, err)

	_, err = svc.Query(ctx, testutil.AsRole(access.RoleStudent), invigilation.QueryFilter{})
	assert.Equal(t, access.ErrPermissionDenied, err)
}

func TestService_DutyStats(t *testing.T) {
	svc, _ := setup(t)

	defer func(orig func() time.Time) { core.NowFunc = orig }(core.NowFunc)
	core.NowFunc = func() time.Time { return time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC) }

	st, err := svc.DutyStats(context.Background(), admin, invigilation.DutyFilter{})
	require.NoError(t, err)
	assert.Equal(t, invigilation.DutyStats{
		Total: 2,
		ByStatus: map[string]int{
			invigilation.DutyScheduled:  1,
			invigilation.DutyInProgress: 0,
			invigilation.DutyCompleted:  1,
			invigilation.DutyCancelled:  0,
		},
		Upcoming:     1,
		FullyStaffed: 0,
		Understaffed: 1,
		Required:     5,
		Assigned:     2,
		CoveragePct:  40,
	}, st)
}

func TestComputeInvigilatorStats(t *testing.T) {
	invs := []invigilation.Invigilator{
		{Status: invigilation.StatusActive, Ratings: invigilation.Ratings{Overall: 4.5}, TotalDuties: 10, CurrentMonthDuties: 2},
		{Status: invigilation.StatusActive, Ratings: invigilation.Ratings{Overall: 4}, TotalDuties: 5, CurrentMonthDuties: 1},
		{Status: invigilation.StatusOnLeave, Ratings: invigilation.Ratings{Overall: 3.5}, TotalDuties: 1},
		{Status: invigilation.StatusInactive},
	}
	assert.Equal(t, invigilation.InvigilatorStats{
		Total:         4,
		Active:        2,
		Inactive:      1,
		OnLeave:       1,
		AverageRating: 3,
		TotalDuties:   16,
		MonthDuties:   3,
	}, invigilation.ComputeInvigilatorStats(invs))

	assert.Equal(t, invigilation.InvigilatorStats{}, invigilation.ComputeInvigilatorStats(nil))
}

func TestService_releaseRestoresAvailability(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	newHire := func(t *testing.T, employeeID string) invigilation.Invigilator {
		f := invigilation.NewInvigilatorFields()
		f.EmployeeID = employeeID
		f.Name = "New Hire " + employeeID
		f.Department = "Computer Science"
		inv, err := svc.Create(ctx, admin, f)
		require.NoError(t, err)
		return inv
	}

	t.Run("no entry", func(t *testing.T) {
		inv := newHire(t, "EMP-9101")

		_, err := svc.Assign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invigilation.Assigned, getInvigilator(t, repo, inv.ID).Availability["2024-12-10"])

		_, err = svc.Unassign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		inv = getInvigilator(t, repo, inv.ID)
		assert.Empty(t, inv.Availability)
		assert.Empty(t, inv.HeldAvailability)
	})

	t.Run("explicit entry", func(t *testing.T) {
		inv := newHire(t, "EMP-9102")
		_, err := svc.UpdateAvailability(ctx, admin, inv.ID, "2024-12-10", invigilation.Available)
		require.NoError(t, err)

		_, err = svc.Assign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		_, err = svc.Unassign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"2024-12-10": invigilation.Available}, getInvigilator(t, repo, inv.ID).Availability)
	})

	t.Run("two duties on the same date", func(t *testing.T) {
		inv := newHire(t, "EMP-9103")

		f := invigilation.NewDutyFields()
		f.ExamID = "CS201-FINAL"
		f.Date = "2024-12-10"
		f.StartTime = "14:00"
		f.EndTime = "16:00"
		f.Venue = "Hall B"
		f.RequiredInvigilators = 1
		afternoon, err := svc.CreateDuty(ctx, admin, f)
		require.NoError(t, err)

		_, err = svc.Assign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		_, err = svc.Assign(ctx, admin, afternoon.ID, inv.ID)
		require.NoError(t, err)

		_, err = svc.Unassign(ctx, admin, "DUTY001", inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invigilation.Assigned, getInvigilator(t, repo, inv.ID).Availability["2024-12-10"])

		require.NoError(t, svc.DeleteDuty(ctx, admin, afternoon.ID))
		assert.Empty(t, getInvigilator(t, repo, inv.ID).Availability)
	})
}

func invigilatorIDs(invs []invigilation.Invigilator) []string {
	out := make([]string, 0, len(invs))
	for _, inv := range invs {
		out = append(out, inv.ID)
	}
	return out
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

func TestService_Query_conjunction(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		search, dept, status string
	}{
		{search: "emp-1", dept: "Computer Science"},
		{search: "science", dept: "Mathematics"},
		{search: "o", dept: "computer science", status: invigilation.StatusActive},
		{search: "dr.", dept: "all", status: "all"},
		{search: "", dept: "Business", status: invigilation.StatusOnLeave},
	}
	for _, tt := range tests {
		t.Run(tt.search+" & "+tt.dept+" & "+tt.status, func(t *testing.T) {
			query := func(f invigilation.QueryFilter) []string {
				invs, err := svc.Query(ctx, admin, f)
				require.NoError(t, err)
				return invigilatorIDs(invs)
			}
			bySearch := query(invigilation.QueryFilter{Search: tt.search})
			byDept := query(invigilation.QueryFilter{Department: tt.dept})
			byStatus := query(invigilation.QueryFilter{Status: tt.status})
			combined := query(invigilation.QueryFilter{Search: tt.search, Department: tt.dept, Status: tt.status})

			assert.Equal(t, intersect(intersect(bySearch, byDept), byStatus), combined)
		})
	}
}

func TestService_updateIdempotent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	t.Run("invigilator", func(t *testing.T) {
		inv, err := svc.Get(ctx, admin, "INV002")
		require.NoError(t, err)
		f := inv.Fields()
		f.Designation = " Senior Lecturer "
		f.Qualifications = []string{"PhD", " "}
		f.Status = invigilation.StatusOnLeave

		once, err := svc.Update(ctx, admin, inv.ID, f)
		require.NoError(t, err)
		twice, err := svc.Update(ctx, admin, inv.ID, f)
		require.NoError(t, err)

		once.UpdatedAt, twice.UpdatedAt = time.Time{}, time.Time{}
		assert.Equal(t, once, twice)
	})

	t.Run("duty", func(t *testing.T) {
		d, err := svc.GetDuty(ctx, admin, "DUTY001")
		require.NoError(t, err)
		f := d.Fields()
		f.Venue = "Main Hall"
		f.Status = invigilation.DutyInProgress

		once, err := svc.UpdateDuty(ctx, admin, d.ID, f)
		require.NoError(t, err)
		twice, err := svc.UpdateDuty(ctx, admin, d.ID, f)
		require.NoError(t, err)

		once.UpdatedAt, twice.UpdatedAt = time.Time{}, time.Time{}
		assert.Equal(t, once, twice)
	})
}

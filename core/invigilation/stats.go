package invigilation

import (
	"math"

	"github.com/trezcool/masomo-console/core/export"
)

type InvigilatorStats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Inactive      int     `json:"inactive"`
	OnLeave       int     `json:"on_leave"`
	AverageRating float64 `json:"average_rating"`
	TotalDuties   int     `json:"total_duties"`
	MonthDuties   int     `json:"current_month_duties"`
}

type DutyStats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	Upcoming     int            `json:"upcoming"`
	FullyStaffed int            `json:"fully_staffed"`
	Understaffed int            `json:"understaffed"`
	Required     int            `json:"required_invigilators"`
	Assigned     int            `json:"assigned_invigilators"`
	CoveragePct  float64        `json:"coverage_pct"`
}

func ComputeInvigilatorStats(invs []Invigilator) InvigilatorStats {
	var st InvigilatorStats
	var ratingSum float64
	for _, inv := range invs {
		st.Total++
		switch inv.Status {
		case StatusActive:
			st.Active++
		case StatusInactive:
			st.Inactive++
		case StatusOnLeave:
			st.OnLeave++
		}
		ratingSum += inv.Ratings.Overall
		st.TotalDuties += inv.TotalDuties
		st.MonthDuties += inv.CurrentMonthDuties
	}
	if st.Total > 0 {
		st.AverageRating = round(ratingSum / float64(st.Total))
	}
	return st
}

// ComputeDutyStats computes duty statistics; duties dated today or later and still scheduled are upcoming.
func ComputeDutyStats(duties []ExamDuty, today string) DutyStats {
	st := DutyStats{ByStatus: make(map[string]int, len(DutyStatuses))}
	for _, s := range DutyStatuses {
		st.ByStatus[s] = 0
	}
	for _, d := range duties {
		st.Total++
		st.ByStatus[d.Status]++
		if d.Status == DutyScheduled && d.Date >= today {
			st.Upcoming++
		}
		if d.IsOpen() {
			if d.IsFullyStaffed() {
				st.FullyStaffed++
			} else {
				st.Understaffed++
			}
		}
		st.Required += d.RequiredInvigilators
		st.Assigned += len(d.AssignedInvigilators)
	}
	if st.Required > 0 {
		st.CoveragePct = round(float64(st.Assigned) / float64(st.Required) * 100)
	}
	return st
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// InvigilatorsDataset projects invigilators for export.
func InvigilatorsDataset(invs []Invigilator) export.Dataset {
	ds := export.Dataset{
		Name: "invigilators",
		Columns: []string{
			"id", "employee_id", "name", "email", "phone", "department", "designation", "experience",
			"qualifications", "status", "overall_rating", "total_duties", "current_month_duties",
		},
		Rows: make([]export.Row, 0, len(invs)),
	}
	for _, inv := range invs {
		ds.Rows = append(ds.Rows, export.Row{
			"id":                   inv.ID,
			"employee_id":          inv.EmployeeID,
			"name":                 inv.Name,
			"email":                inv.Email,
			"phone":                inv.Phone,
			"department":           inv.Department,
			"designation":          inv.Designation,
			"experience":           inv.Experience,
			"qualifications":       inv.Qualifications,
			"status":               inv.Status,
			"overall_rating":       inv.Ratings.Overall,
			"total_duties":         inv.TotalDuties,
			"current_month_duties": inv.CurrentMonthDuties,
		})
	}
	return ds
}

// DutiesDataset projects exam duties for export.
func DutiesDataset(duties []ExamDuty) export.Dataset {
	ds := export.Dataset{
		Name: "exam-duties",
		Columns: []string{
			"id", "exam_id", "subject", "date", "start_time", "end_time", "venue", "capacity",
			"enrolled_students", "required_invigilators", "assigned_invigilators", "head_invigilator", "status",
		},
		Rows: make([]export.Row, 0, len(duties)),
	}
	for _, d := range duties {
		ds.Rows = append(ds.Rows, export.Row{
			"id":                    d.ID,
			"exam_id":               d.ExamID,
			"subject":               d.Subject,
			"date":                  d.Date,
			"start_time":            d.StartTime,
			"end_time":              d.EndTime,
			"venue":                 d.Venue,
			"capacity":              d.Capacity,
			"enrolled_students":     d.EnrolledStudents,
			"required_invigilators": d.RequiredInvigilators,
			"assigned_invigilators": d.AssignedInvigilators,
			"head_invigilator":      d.HeadInvigilator,
			"status":                d.Status,
		})
	}
	return ds
}

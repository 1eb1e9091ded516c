package program

import (
	"math"

	"github.com/trezcool/masomo-console/core/export"
)

type Stats struct {
	Total           int            `json:"total"`
	Active          int            `json:"active"`
	ByType          map[string]int `json:"by_type"`
	TotalStudents   int            `json:"total_students"`
	AverageDuration float64        `json:"average_duration"`
	MinCredits      int            `json:"min_credits"`
	MaxCredits      int            `json:"max_credits"`
}

func ComputeStats(prgs []Program) Stats {
	st := Stats{ByType: make(map[string]int, len(Types))}
	for _, t := range Types {
		st.ByType[t] = 0
	}
	var durationSum int
	for i, prg := range prgs {
		st.Total++
		if prg.Status == StatusActive {
			st.Active++
		}
		st.ByType[prg.Type]++
		st.TotalStudents += prg.TotalStudents
		durationSum += prg.Duration
		if i == 0 || prg.TotalCredits < st.MinCredits {
			st.MinCredits = prg.TotalCredits
		}
		if prg.TotalCredits > st.MaxCredits {
			st.MaxCredits = prg.TotalCredits
		}
	}
	if st.Total > 0 {
		st.AverageDuration = math.Round(float64(durationSum)/float64(st.Total)*100) / 100
	}
	return st
}

// Dataset projects programs for export.
func Dataset(prgs []Program) export.Dataset {
	ds := export.Dataset{
		Name: "programs",
		Columns: []string{
			"id", "name", "code", "type", "department", "duration", "total_credits", "total_students",
			"status", "specializations", "description",
		},
		Rows: make([]export.Row, 0, len(prgs)),
	}
	for _, prg := range prgs {
		ds.Rows = append(ds.Rows, export.Row{
			"id":              prg.ID,
			"name":            prg.Name,
			"code":            prg.Code,
			"type":            prg.Type,
			"department":      prg.Department,
			"duration":        prg.Duration,
			"total_credits":   prg.TotalCredits,
			"total_students":  prg.TotalStudents,
			"status":          prg.Status,
			"specializations": prg.Specializations,
			"description":     prg.Description,
		})
	}
	return ds
}

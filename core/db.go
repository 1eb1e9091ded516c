package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops the orderings on fields not listed in allowed.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				cleaned = append(cleaned, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return cleaned
}

package models

import "time"

// FilterSpec is a conjunction of optional row predicates.
//
// A nil Stations slice disables the station predicate; a non-nil empty slice
// selects no rows. Date bounds compare calendar dates and are inclusive, as
// are year bounds. An inverted interval selects no rows.
type FilterSpec struct {
	Stations []string   `json:"stations,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	YearFrom *int       `json:"year_from,omitempty"`
	YearTo   *int       `json:"year_to,omitempty"`
}

// Active reports whether any predicate is set
func (f FilterSpec) Active() bool {
	return f.Stations != nil || f.DateFrom != nil || f.DateTo != nil || f.YearFrom != nil || f.YearTo != nil
}

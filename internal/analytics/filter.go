// Package analytics derives dashboard views from a loaded observation table:
// filtering, grouped means, category distributions, correlation and the
// headline summary. Every function is pure; inputs are never modified.
package analytics

import (
	"time"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

// Apply narrows view to the rows matching every active predicate of spec.
// An inactive filter returns view unchanged.
func Apply(view dataset.View, spec models.FilterSpec) dataset.View {
	if !spec.Active() {
		return view
	}
	if spec.Stations != nil && len(spec.Stations) == 0 {
		return view.Empty()
	}
	if spec.DateFrom != nil && spec.DateTo != nil && dayOf(*spec.DateFrom) > dayOf(*spec.DateTo) {
		return view.Empty()
	}
	if spec.YearFrom != nil && spec.YearTo != nil && *spec.YearFrom > *spec.YearTo {
		return view.Empty()
	}

	var stations map[string]struct{}
	if spec.Stations != nil {
		stations = make(map[string]struct{}, len(spec.Stations))
		for _, s := range spec.Stations {
			stations[s] = struct{}{}
		}
	}

	from, to := -1, -1
	if spec.DateFrom != nil {
		from = dayOf(*spec.DateFrom)
	}
	if spec.DateTo != nil {
		to = dayOf(*spec.DateTo)
	}

	table := view.Table()
	return view.Select(func(row int) bool {
		if stations != nil {
			if _, ok := stations[table.Station(row)]; !ok {
				return false
			}
		}

		ts := table.Time(row)
		if from >= 0 || to >= 0 {
			d := dayOf(ts)
			if from >= 0 && d < from {
				return false
			}
			if to >= 0 && d > to {
				return false
			}
		}
		if spec.YearFrom != nil && ts.Year() < *spec.YearFrom {
			return false
		}
		if spec.YearTo != nil && ts.Year() > *spec.YearTo {
			return false
		}
		return true
	})
}

// dayOf packs the UTC calendar date of t into a sortable integer (YYYYMMDD).
func dayOf(t time.Time) int {
	y, m, d := t.UTC().Date()
	return y*10000 + int(m)*100 + d
}

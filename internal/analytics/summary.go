package analytics

import (
	"math"
	"time"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

// Summarize computes the headline metrics of view for measure: overall mean,
// the stations with the highest and lowest mean, and the covered time span.
// An empty view yields a summary with only counts set.
func Summarize(view dataset.View, measure string) (models.Summary, error) {
	summary := models.Summary{Measure: measure, Observations: view.Len()}

	col, err := column(view, measure)
	if err != nil {
		return summary, err
	}

	table := view.Table()
	stations := make(map[string]struct{})
	var sum float64
	var from, to time.Time
	for k := 0; k < view.Len(); k++ {
		row := view.Row(k)
		stations[table.Station(row)] = struct{}{}

		ts := table.Time(row)
		if k == 0 || ts.Before(from) {
			from = ts
		}
		if k == 0 || ts.After(to) {
			to = ts
		}

		if v := col.At(row); !math.IsNaN(v) {
			sum += v
			summary.ValidValues++
		}
	}
	summary.Stations = len(stations)
	if view.Len() > 0 {
		summary.From, summary.To = &from, &to
	}
	if summary.ValidValues > 0 {
		mean := sum / float64(summary.ValidValues)
		summary.Mean = &mean
	}

	byStation, err := Aggregate(view, models.GroupByStation, measure)
	if err != nil {
		return summary, err
	}
	if byStation.Len() > 0 {
		ranked := Rank(byStation, models.Descending)
		highest := ranked.Points[0]
		lowest := ranked.Points[ranked.Len()-1]
		summary.Highest, summary.Lowest = &highest, &lowest
	}
	return summary, nil
}

package models

import (
	"strings"
	"time"
)

// GroupBy names the key an aggregate series is grouped by
type GroupBy string

const (
	GroupByYear     GroupBy = "year"
	GroupByMonth    GroupBy = "month"
	GroupByHour     GroupBy = "hour"
	GroupByStation  GroupBy = "station"
	GroupByMonthEnd GroupBy = "month_end"
)

// ParseGroupBy validates a group key name.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupByYear, GroupByMonth, GroupByHour, GroupByStation, GroupByMonthEnd:
		return g, nil
	}
	return "", &ValidationError{
		Field:   "group",
		Value:   s,
		Message: "invalid group, expected one of year, month, hour, station, month_end",
	}
}

// SortOrder is the direction of a ranking
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortOrder validates a ranking direction; empty means descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return Descending, nil
	case "asc":
		return Ascending, nil
	}
	return "", &ValidationError{Field: "order", Value: s, Message: "invalid order, expected asc or desc"}
}

// SeriesPoint is one averaged group
type SeriesPoint struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// AggregateSeries is a derived, read-only sequence of (key, mean) pairs.
// Keys are unique; points are ascending by key unless ranked.
type AggregateSeries struct {
	GroupBy GroupBy       `json:"group_by"`
	Measure string        `json:"measure"`
	Points  []SeriesPoint `json:"points"`
}

// Len returns the number of points
func (s AggregateSeries) Len() int { return len(s.Points) }

// Summary holds the headline metrics of a filtered view.
type Summary struct {
	Measure      string       `json:"measure"`
	Observations int          `json:"observations"`
	ValidValues  int          `json:"valid_values"`
	Stations     int          `json:"stations"`
	Mean         *float64     `json:"mean,omitempty"`
	Highest      *SeriesPoint `json:"highest_station,omitempty"`
	Lowest       *SeriesPoint `json:"lowest_station,omitempty"`
	From         *time.Time   `json:"from,omitempty"`
	To           *time.Time   `json:"to,omitempty"`
}

// SamplePoint is one (covariate, target) pair drawn for display.
type SamplePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegressionLine is a least-squares fit target = Slope*covariate + Intercept.
type RegressionLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line
func (l RegressionLine) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// Correlation pairs a full-view Pearson coefficient with a display sample.
// Coefficient is computed over all N complete rows; Fit only over Sample.
type Correlation struct {
	Covariate   string          `json:"covariate"`
	Target      string          `json:"target"`
	Coefficient float64         `json:"coefficient"`
	Defined     bool            `json:"defined"`
	N           int             `json:"n"`
	Sample      []SamplePoint   `json:"sample"`
	Fit         *RegressionLine `json:"fit,omitempty"`
}

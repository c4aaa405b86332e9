package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

type group struct {
	key   string
	order int
	sum   float64
	count int
}

// Aggregate groups the rows of view by groupBy and averages measure within
// each group. Missing values are left out of the mean; a group with no valid
// value is omitted. Points are ordered by key (numerically for temporal keys).
func Aggregate(view dataset.View, groupBy models.GroupBy, measure string) (models.AggregateSeries, error) {
	series := models.AggregateSeries{GroupBy: groupBy, Measure: measure, Points: []models.SeriesPoint{}}

	keyOf, err := keyFunc(groupBy)
	if err != nil {
		return series, err
	}
	col, err := column(view, measure)
	if err != nil {
		return series, err
	}

	table := view.Table()
	groups := make(map[string]*group)
	for k := 0; k < view.Len(); k++ {
		row := view.Row(k)
		v := col.At(row)
		if math.IsNaN(v) {
			continue
		}
		key, order := keyOf(table, row)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, order: order}
			groups[key] = g
		}
		g.sum += v
		g.count++
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].key < ordered[j].key
	})

	for _, g := range ordered {
		series.Points = append(series.Points, models.SeriesPoint{
			Key:   g.key,
			Value: g.sum / float64(g.count),
			Count: g.count,
		})
	}
	return series, nil
}

// Rank returns a copy of series sorted by mean. Equal means keep key order.
func Rank(series models.AggregateSeries, order models.SortOrder) models.AggregateSeries {
	ranked := series
	ranked.Points = make([]models.SeriesPoint, len(series.Points))
	copy(ranked.Points, series.Points)

	sort.SliceStable(ranked.Points, func(i, j int) bool {
		if order == models.Ascending {
			return ranked.Points[i].Value < ranked.Points[j].Value
		}
		return ranked.Points[i].Value > ranked.Points[j].Value
	})
	return ranked
}

type keyFn func(t *dataset.Table, row int) (string, int)

func keyFunc(groupBy models.GroupBy) (keyFn, error) {
	switch groupBy {
	case models.GroupByYear:
		return func(t *dataset.Table, row int) (string, int) {
			y := t.Time(row).Year()
			return strconv.Itoa(y), y
		}, nil
	case models.GroupByMonth:
		return func(t *dataset.Table, row int) (string, int) {
			m := int(t.Time(row).Month())
			return strconv.Itoa(m), m
		}, nil
	case models.GroupByHour:
		return func(t *dataset.Table, row int) (string, int) {
			h := t.Time(row).Hour()
			return strconv.Itoa(h), h
		}, nil
	case models.GroupByMonthEnd:
		return func(t *dataset.Table, row int) (string, int) {
			end := monthEnd(t.Time(row))
			return end.Format("2006-01-02"), dayOf(end)
		}, nil
	case models.GroupByStation:
		// order 0 for every station falls through to key order
		return func(t *dataset.Table, row int) (string, int) {
			return t.Station(row), 0
		}, nil
	}
	return nil, &models.ValidationError{
		Field:   "group",
		Value:   string(groupBy),
		Message: fmt.Sprintf("invalid group %q", groupBy),
	}
}

// monthEnd returns the last calendar day of the month containing t.
func monthEnd(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// column resolves measure against the view's table.
func column(view dataset.View, measure string) (dataset.Column, error) {
	table := view.Table()
	if table == nil {
		return dataset.Column{}, &models.ParseError{Column: measure, Message: "no dataset loaded"}
	}
	col, ok := table.Column(measure)
	if !ok {
		return dataset.Column{}, &models.ParseError{
			Path:    table.Source(),
			Column:  measure,
			Message: "unknown measure",
		}
	}
	return col, nil
}

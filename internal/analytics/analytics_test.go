package analytics

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

func load(t *testing.T, lines ...string) *dataset.Table {
	t.Helper()
	table, err := dataset.Read("test", strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return table
}

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// fixture spans three stations over two years
func fixture(t *testing.T) *dataset.Table {
	return load(t,
		"year,month,day,hour,PM2.5,TEMP,station",
		"2013,3,1,0,10,1,Dongsi",
		"2013,3,1,1,20,2,Dongsi",
		"2013,12,31,23,30,3,Dingling",
		"2014,1,1,0,40,4,Dingling",
		"2014,6,15,12,NA,25,Huairou",
		"2014,6,15,13,60,26,Huairou",
	)
}

func stationsOf(v dataset.View) []string {
	out := make([]string, 0, v.Len())
	for k := 0; k < v.Len(); k++ {
		out = append(out, v.Table().Station(v.Row(k)))
	}
	return out
}

func TestApply(t *testing.T) {
	table := fixture(t)

	tests := []struct {
		name     string
		spec     models.FilterSpec
		expected []string
	}{
		{"no predicates", models.FilterSpec{}, []string{"Dongsi", "Dongsi", "Dingling", "Dingling", "Huairou", "Huairou"}},
		{"stations", models.FilterSpec{Stations: []string{"Huairou", "Dongsi"}}, []string{"Dongsi", "Dongsi", "Huairou", "Huairou"}},
		{"empty station set", models.FilterSpec{Stations: []string{}}, []string{}},
		{"unknown station", models.FilterSpec{Stations: []string{"Nowhere"}}, []string{}},
		{"date range inclusive", models.FilterSpec{DateFrom: date(2013, 12, 31), DateTo: date(2014, 1, 1)}, []string{"Dingling", "Dingling"}},
		{"date from only", models.FilterSpec{DateFrom: date(2014, 6, 15)}, []string{"Huairou", "Huairou"}},
		{"inverted dates", models.FilterSpec{DateFrom: date(2014, 1, 1), DateTo: date(2013, 1, 1)}, []string{}},
		{"year range", models.FilterSpec{YearFrom: intPtr(2014), YearTo: intPtr(2014)}, []string{"Dingling", "Huairou", "Huairou"}},
		{"inverted years", models.FilterSpec{YearFrom: intPtr(2015), YearTo: intPtr(2013)}, []string{}},
		{"conjunction", models.FilterSpec{Stations: []string{"Dingling"}, YearFrom: intPtr(2014)}, []string{"Dingling"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Apply(table.View(), tt.spec)
			assert.Equal(t, tt.expected, stationsOf(view))
		})
	}
}

func TestApply_OnlySelectedStationsInRange(t *testing.T) {
	table := fixture(t)
	spec := models.FilterSpec{
		Stations: []string{"Dongsi", "Huairou"},
		DateFrom: date(2013, 3, 1),
		DateTo:   date(2014, 6, 15),
	}

	view := Apply(table.View(), spec)
	require.NotZero(t, view.Len())
	for k := 0; k < view.Len(); k++ {
		row := view.Row(k)
		assert.Contains(t, spec.Stations, table.Station(row))
		assert.NotEqual(t, "Dingling", table.Station(row))
		d := dayOf(table.Time(row))
		assert.GreaterOrEqual(t, d, dayOf(*spec.DateFrom))
		assert.LessOrEqual(t, d, dayOf(*spec.DateTo))
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	table := fixture(t)
	all := table.View()

	_ = Apply(all, models.FilterSpec{Stations: []string{"Dongsi"}})

	assert.Equal(t, 6, all.Len())
	assert.Equal(t, 6, table.Len())
}

func TestAggregate_YearScenario(t *testing.T) {
	table := load(t,
		"year,month,day,hour,PM2.5,station",
		"2013,1,5,0,10,A",
		"2014,1,5,0,20,A",
		"2015,1,5,0,30,A",
	)

	view := Apply(table.View(), models.FilterSpec{YearFrom: intPtr(2013), YearTo: intPtr(2014)})
	series, err := Aggregate(view, models.GroupByYear, models.MeasurePM25)
	require.NoError(t, err)

	assert.Equal(t, []models.SeriesPoint{
		{Key: "2013", Value: 10, Count: 1},
		{Key: "2014", Value: 20, Count: 1},
	}, series.Points)
}

func TestAggregate_MissingValuesExcluded(t *testing.T) {
	table := load(t,
		"year,month,day,hour,PM2.5,station",
		"2013,1,1,7,NA,A",
		"2013,1,1,7,20,B",
		"2013,1,1,8,,A",
	)

	series, err := Aggregate(table.View(), models.GroupByHour, models.MeasurePM25)
	require.NoError(t, err)

	// hour 8 has no valid value and is omitted rather than reported as zero
	assert.Equal(t, []models.SeriesPoint{{Key: "7", Value: 20, Count: 1}}, series.Points)
}

func TestAggregate_HourKeys(t *testing.T) {
	lines := []string{"year,month,day,hour,PM2.5,station"}
	for d := 1; d <= 3; d++ {
		for h := 0; h < 24; h++ {
			lines = append(lines, strings.Join([]string{"2013", "1", strconv.Itoa(d), strconv.Itoa(h), strconv.Itoa(h * d), "A"}, ","))
		}
	}
	table := load(t, lines...)

	series, err := Aggregate(table.View(), models.GroupByHour, models.MeasurePM25)
	require.NoError(t, err)
	require.Equal(t, 24, series.Len())

	seen := make(map[string]bool)
	for i, p := range series.Points {
		assert.Equal(t, strconv.Itoa(i), p.Key, "numeric key order")
		assert.False(t, seen[p.Key])
		seen[p.Key] = true
		assert.Equal(t, 3, p.Count)
		assert.InDelta(t, float64(i*6)/3, p.Value, 1e-9)
	}
}

func TestAggregate_GroupKeys(t *testing.T) {
	table := fixture(t)

	tests := []struct {
		groupBy models.GroupBy
		keys    []string
	}{
		{models.GroupByYear, []string{"2013", "2014"}},
		{models.GroupByMonth, []string{"1", "3", "6", "12"}},
		{models.GroupByStation, []string{"Dingling", "Dongsi", "Huairou"}},
		{models.GroupByMonthEnd, []string{"2013-03-31", "2013-12-31", "2014-01-31", "2014-06-30"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.groupBy), func(t *testing.T) {
			series, err := Aggregate(table.View(), tt.groupBy, models.MeasurePM25)
			require.NoError(t, err)

			keys := make([]string, 0, series.Len())
			for _, p := range series.Points {
				keys = append(keys, p.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestAggregate_EmptyAndSingleRow(t *testing.T) {
	table := fixture(t)

	empty, err := Aggregate(table.View().Empty(), models.GroupByYear, models.MeasurePM25)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.NotNil(t, empty.Points)

	single := table.View().Select(func(row int) bool { return row == 3 })
	series, err := Aggregate(single, models.GroupByStation, models.MeasurePM25)
	require.NoError(t, err)
	assert.Equal(t, []models.SeriesPoint{{Key: "Dingling", Value: 40, Count: 1}}, series.Points)
}

func TestAggregate_Errors(t *testing.T) {
	table := fixture(t)

	_, err := Aggregate(table.View(), models.GroupByYear, "SO2")
	var pErr *models.ParseError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "SO2", pErr.Column)

	_, err = Aggregate(table.View(), models.GroupBy("week"), models.MeasurePM25)
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestRank(t *testing.T) {
	series := models.AggregateSeries{
		GroupBy: models.GroupByStation,
		Points: []models.SeriesPoint{
			{Key: "A", Value: 5},
			{Key: "B", Value: 9},
			{Key: "C", Value: 5},
			{Key: "D", Value: 1},
		},
	}

	desc := Rank(series, models.Descending)
	assert.Equal(t, []string{"B", "A", "C", "D"}, keysOf(desc))

	asc := Rank(series, models.Ascending)
	assert.Equal(t, []string{"D", "A", "C", "B"}, keysOf(asc))

	assert.Equal(t, []string{"A", "B", "C", "D"}, keysOf(series), "input untouched")
}

func keysOf(s models.AggregateSeries) []string {
	out := make([]string, 0, s.Len())
	for _, p := range s.Points {
		out = append(out, p.Key)
	}
	return out
}

func TestDistribution(t *testing.T) {
	table := load(t,
		"date,station,PM2.5",
		"2013-01-01,A,12",
		"2013-01-02,A,12.1",
		"2013-01-03,A,35.4",
		"2013-01-04,A,150.5",
		"2013-01-05,A,NA",
	)

	dist, err := Distribution(table.View(), models.MeasurePM25)
	require.NoError(t, err)

	assert.Equal(t, []models.CategoryCount{
		{Category: models.CategoryGood, Count: 1},
		{Category: models.CategoryModerate, Count: 2},
		{Category: models.CategorySensitive, Count: 0},
		{Category: models.CategoryUnhealthy, Count: 0},
		{Category: models.CategoryVeryUnhealthy, Count: 1},
		{Category: models.CategoryUnknown, Count: 1},
	}, dist)

	labels, err := Labels(table.View(), models.MeasurePM25)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryModerate, labels[1])
}

func TestDistribution_EmptyView(t *testing.T) {
	table := fixture(t)

	dist, err := Distribution(table.View().Empty(), models.MeasurePM25)
	require.NoError(t, err)
	require.Len(t, dist, 5)
	for _, c := range dist {
		assert.Zero(t, c.Count)
	}
}

func TestCorrelate_Symmetric(t *testing.T) {
	table := fixture(t)

	a, err := Correlate(table.View(), models.MeasureTemp, models.MeasurePM25, DefaultCorrelationOptions())
	require.NoError(t, err)
	b, err := Correlate(table.View(), models.MeasurePM25, models.MeasureTemp, DefaultCorrelationOptions())
	require.NoError(t, err)

	require.True(t, a.Defined)
	assert.InDelta(t, a.Coefficient, b.Coefficient, 1e-12)
	assert.GreaterOrEqual(t, a.Coefficient, -1.0)
	assert.LessOrEqual(t, a.Coefficient, 1.0)
	assert.Equal(t, 5, a.N, "row with missing PM2.5 is dropped")
}

func TestCorrelate_PerfectLine(t *testing.T) {
	table := load(t,
		"date,station,TEMP,PM2.5",
		"2013-01-01,A,1,5",
		"2013-01-02,A,2,7",
		"2013-01-03,A,3,9",
		"2013-01-04,A,4,11",
	)

	c, err := Correlate(table.View(), models.MeasureTemp, models.MeasurePM25, DefaultCorrelationOptions())
	require.NoError(t, err)

	assert.True(t, c.Defined)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
	require.NotNil(t, c.Fit)
	assert.InDelta(t, 2.0, c.Fit.Slope, 1e-9)
	assert.InDelta(t, 3.0, c.Fit.Intercept, 1e-9)
	assert.Equal(t, []models.SamplePoint{{X: 1, Y: 5}, {X: 2, Y: 7}, {X: 3, Y: 9}, {X: 4, Y: 11}}, c.Sample)
}

func TestCorrelate_Undefined(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"single pair", []string{"date,station,TEMP,PM2.5", "2013-01-01,A,1,5"}},
		{"constant covariate", []string{"date,station,TEMP,PM2.5", "2013-01-01,A,1,5", "2013-01-02,A,1,9"}},
		{"no complete pairs", []string{"date,station,TEMP,PM2.5", "2013-01-01,A,,5", "2013-01-02,A,3,"}},
		{"constant inexact covariate", constantRows("0.1", 7)},
		{"constant negative covariate", constantRows("-7.7", 1000)},
		{"constant short covariate", constantRows("0.3", 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Correlate(load(t, tt.lines...).View(), models.MeasureTemp, models.MeasurePM25, DefaultCorrelationOptions())
			require.NoError(t, err)
			assert.False(t, c.Defined)
			assert.Zero(t, c.Coefficient)
			assert.False(t, math.IsNaN(c.Coefficient))
			assert.Nil(t, c.Fit)
		})
	}
}

// constantRows builds n rows with a fixed TEMP and a varying PM2.5.
func constantRows(temp string, n int) []string {
	lines := []string{"date,station,TEMP,PM2.5"}
	start := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		lines = append(lines, day+",A,"+temp+","+strconv.Itoa(10+(i*3)%97))
	}
	return lines
}

func TestCorrelate_ConstantTarget(t *testing.T) {
	c, err := Correlate(load(t, constantRows("0.1", 5)...).View(), models.MeasurePM25, models.MeasureTemp, DefaultCorrelationOptions())
	require.NoError(t, err)
	assert.False(t, c.Defined)
	assert.Zero(t, c.Coefficient)
	require.NotNil(t, c.Fit, "covariate varies so a flat line is still fitted")
	assert.InDelta(t, 0.0, c.Fit.Slope, 1e-12)
	assert.InDelta(t, 0.1, c.Fit.Intercept, 1e-12)
}

func TestCorrelate_SampleIsDeterministic(t *testing.T) {
	lines := []string{"date,station,TEMP,PM2.5"}
	for i := 0; i < 50; i++ {
		lines = append(lines, "2013-01-01,A,"+strconv.Itoa(i)+","+strconv.Itoa(100-i))
	}
	table := load(t, lines...)
	opts := CorrelationOptions{SampleSize: 10, Seed: 42}

	a, err := Correlate(table.View(), models.MeasureTemp, models.MeasurePM25, opts)
	require.NoError(t, err)
	b, err := Correlate(table.View(), models.MeasureTemp, models.MeasurePM25, opts)
	require.NoError(t, err)

	assert.Equal(t, 50, a.N)
	require.Len(t, a.Sample, 10)
	assert.Equal(t, a.Sample, b.Sample)
	assert.InDelta(t, -1.0, a.Coefficient, 1e-12)

	seen := make(map[float64]bool)
	for i, p := range a.Sample {
		assert.False(t, seen[p.X], "drawn without replacement")
		seen[p.X] = true
		if i > 0 {
			assert.Greater(t, p.X, a.Sample[i-1].X, "kept in table order")
		}
	}
}

func TestCorrelate_UnknownMeasure(t *testing.T) {
	_, err := Correlate(fixture(t).View(), "CO", models.MeasurePM25, DefaultCorrelationOptions())
	var pErr *models.ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestSummarize(t *testing.T) {
	table := fixture(t)

	s, err := Summarize(table.View(), models.MeasurePM25)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Observations)
	assert.Equal(t, 5, s.ValidValues)
	assert.Equal(t, 3, s.Stations)
	require.NotNil(t, s.Mean)
	assert.InDelta(t, 32.0, *s.Mean, 1e-9)
	require.NotNil(t, s.Highest)
	assert.Equal(t, "Huairou", s.Highest.Key)
	require.NotNil(t, s.Lowest)
	assert.Equal(t, "Dongsi", s.Lowest.Key)
	assert.Equal(t, time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), *s.From)
	assert.Equal(t, time.Date(2014, 6, 15, 13, 0, 0, 0, time.UTC), *s.To)
}

func TestSummarize_EmptyView(t *testing.T) {
	s, err := Summarize(fixture(t).View().Empty(), models.MeasurePM25)
	require.NoError(t, err)

	assert.Zero(t, s.Observations)
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Highest)
	assert.Nil(t, s.From)
}

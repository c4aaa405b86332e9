package dataset

import (
	"math"
	"sort"
	"time"

	"air-quality-platform/internal/models"
)

// LoadStats describes how a table was built
type LoadStats struct {
	Files   int `json:"files"`
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

// Table is an immutable, column-oriented set of observations.
// Missing measurements are stored as NaN.
type Table struct {
	source   string
	measures []string
	stations []string
	times    []time.Time
	values   map[string][]float64
	stats    LoadStats
}

// Column is a read-only view of one measurement column
type Column struct {
	data []float64
}

// At returns the value at table row i (NaN when missing)
func (c Column) At(i int) float64 { return c.data[i] }

// Len returns the number of rows
func (c Column) Len() int { return len(c.data) }

// Source identifies where the table was loaded from
func (t *Table) Source() string { return t.source }

// Len returns the number of observations
func (t *Table) Len() int { return len(t.times) }

// Stats returns load statistics
func (t *Table) Stats() LoadStats { return t.stats }

// Measures returns the measurement column names in header order.
func (t *Table) Measures() []string {
	out := make([]string, len(t.measures))
	copy(out, t.measures)
	return out
}

// HasMeasure reports whether the table carries the named measurement column
func (t *Table) HasMeasure(measure string) bool {
	_, ok := t.values[measure]
	return ok
}

// Column returns the named measurement column.
func (t *Table) Column(measure string) (Column, bool) {
	data, ok := t.values[measure]
	if !ok {
		return Column{}, false
	}
	return Column{data: data}, true
}

// Station returns the station of row i
func (t *Table) Station(i int) string { return t.stations[i] }

// Time returns the timestamp of row i
func (t *Table) Time(i int) time.Time { return t.times[i] }

// Value returns measure at row i, NaN when missing or when the column is absent.
func (t *Table) Value(measure string, i int) float64 {
	data, ok := t.values[measure]
	if !ok {
		return math.NaN()
	}
	return data[i]
}

// Stations returns the distinct station names, sorted.
func (t *Table) Stations() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range t.stations {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Observation materializes row i for storage.
func (t *Table) Observation(i int) *models.Observation {
	obs := &models.Observation{
		Station:    t.stations[i],
		ObservedAt: t.times[i],
	}
	for _, m := range t.measures {
		obs.SetValue(m, t.values[m][i])
	}
	return obs
}

// View returns a view over every row of the table.
func (t *Table) View() View {
	return View{table: t, all: true}
}

// FromObservations builds a table from stored observations.
func FromObservations(source string, observations []*models.Observation) *Table {
	b := newBuilder(source)
	for _, m := range models.StoredMeasures {
		b.addMeasure(m)
	}
	for _, obs := range observations {
		b.appendRow(obs.Station, obs.ObservedAt.UTC())
		for _, m := range models.StoredMeasures {
			b.set(m, obs.Value(m))
		}
	}
	return b.build()
}

// View is an ordered selection of table rows. Views never modify their table.
type View struct {
	table *Table
	rows  []int
	all   bool
}

// Table returns the underlying table
func (v View) Table() *Table { return v.table }

// Len returns the number of selected rows
func (v View) Len() int {
	if v.table == nil {
		return 0
	}
	if v.all {
		return v.table.Len()
	}
	return len(v.rows)
}

// Row maps the k-th selected row to its table row index.
func (v View) Row(k int) int {
	if v.all {
		return k
	}
	return v.rows[k]
}

// Select returns a new view holding the rows for which keep returns true.
func (v View) Select(keep func(row int) bool) View {
	n := v.Len()
	rows := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if r := v.Row(k); keep(r) {
			rows = append(rows, r)
		}
	}
	return View{table: v.table, rows: rows}
}

// Empty returns a view of the same table with no rows
func (v View) Empty() View {
	return View{table: v.table, rows: []int{}}
}

// builder accumulates rows while loading. Adding a measure late pads
// earlier rows with NaN so files with different columns can be merged.
type builder struct {
	source   string
	measures []string
	stations []string
	times    []time.Time
	values   map[string][]float64
	stats    LoadStats
}

func newBuilder(source string) *builder {
	return &builder{
		source: source,
		values: make(map[string][]float64),
	}
}

func (b *builder) addMeasure(name string) {
	if _, ok := b.values[name]; ok {
		return
	}
	col := make([]float64, len(b.times))
	for i := range col {
		col[i] = math.NaN()
	}
	b.values[name] = col
	b.measures = append(b.measures, name)
}

// appendRow starts a new row with every measure missing
func (b *builder) appendRow(station string, ts time.Time) {
	b.stations = append(b.stations, station)
	b.times = append(b.times, ts)
	for _, m := range b.measures {
		b.values[m] = append(b.values[m], math.NaN())
	}
	b.stats.Rows++
}

// set writes measure on the most recently appended row
func (b *builder) set(measure string, v float64) {
	col := b.values[measure]
	col[len(col)-1] = v
}

func (b *builder) build() *Table {
	return &Table{
		source:   b.source,
		measures: b.measures,
		stations: b.stations,
		times:    b.times,
		values:   b.values,
		stats:    b.stats,
	}
}

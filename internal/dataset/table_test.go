package dataset

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-quality-platform/internal/models"
)

func mustRead(t *testing.T, lines ...string) *Table {
	t.Helper()
	table, err := Read("test", strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return table
}

func TestView_SelectDoesNotMutate(t *testing.T) {
	table := mustRead(t,
		"year,month,day,hour,PM2.5,station",
		"2013,1,1,0,1,A",
		"2013,1,1,1,2,B",
		"2013,1,1,2,3,A",
	)
	all := table.View()

	onlyA := all.Select(func(row int) bool { return table.Station(row) == "A" })
	onlyFirst := onlyA.Select(func(row int) bool { return table.Value("PM2.5", row) == 1 })

	assert.Equal(t, 3, all.Len())
	assert.Equal(t, 2, onlyA.Len())
	assert.Equal(t, 1, onlyFirst.Len())
	assert.Equal(t, 2, onlyA.Row(1), "rows keep table indices")
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 0, all.Empty().Len())
}

func TestView_ZeroValue(t *testing.T) {
	var v View
	assert.Equal(t, 0, v.Len())
}

func TestTable_MeasuresIsCopy(t *testing.T) {
	table := mustRead(t, "date,station,PM2.5", "2013-01-01,A,1")
	m := table.Measures()
	m[0] = "mutated"
	assert.Equal(t, []string{"PM2.5"}, table.Measures())
}

func TestTable_ColumnAndValue(t *testing.T) {
	table := mustRead(t, "date,station,PM2.5", "2013-01-01,A,7")

	col, ok := table.Column("PM2.5")
	require.True(t, ok)
	assert.Equal(t, 1, col.Len())
	assert.Equal(t, 7.0, col.At(0))

	_, ok = table.Column("CO")
	assert.False(t, ok)
	assert.True(t, math.IsNaN(table.Value("CO", 0)))
}

func TestFromObservations_RoundTrip(t *testing.T) {
	pm := 35.0
	temp := -2.5
	ts := time.Date(2016, 2, 1, 6, 0, 0, 0, time.UTC)
	obs := []*models.Observation{
		{Station: "Huairou", ObservedAt: ts, PM25: &pm, Temp: &temp},
	}

	table := FromObservations("db:observations", obs)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, models.StoredMeasures, table.Measures())
	assert.Equal(t, 35.0, table.Value(models.MeasurePM25, 0))
	assert.True(t, math.IsNaN(table.Value(models.MeasureCO, 0)))

	back := table.Observation(0)
	assert.Equal(t, "Huairou", back.Station)
	assert.Equal(t, ts, back.ObservedAt)
	require.NotNil(t, back.Temp)
	assert.Equal(t, -2.5, *back.Temp)
	assert.Nil(t, back.CO)
}

package models

import (
	"math"
	"time"
)

// Measure names as they appear in the source CSV header.
const (
	MeasurePM25 = "PM2.5"
	MeasurePM10 = "PM10"
	MeasureSO2  = "SO2"
	MeasureNO2  = "NO2"
	MeasureCO   = "CO"
	MeasureO3   = "O3"
	MeasureTemp = "TEMP"
	MeasurePres = "PRES"
	MeasureDewp = "DEWP"
	MeasureRain = "RAIN"
	MeasureWSPM = "WSPM"
)

// StoredMeasures lists the measures persisted by the observation store, in column order.
var StoredMeasures = []string{
	MeasurePM25, MeasurePM10, MeasureSO2, MeasureNO2, MeasureCO, MeasureO3,
	MeasureTemp, MeasurePres, MeasureDewp, MeasureRain, MeasureWSPM,
}

// Station represents a fixed monitoring location
type Station struct {
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Observation represents one (station, timestamp) measurement record.
// NULL values represented as pointers, matching the storage schema.
type Observation struct {
	Station    string    `json:"station" db:"station"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
	PM25       *float64  `json:"pm25,omitempty" db:"pm25"`
	PM10       *float64  `json:"pm10,omitempty" db:"pm10"`
	SO2        *float64  `json:"so2,omitempty" db:"so2"`
	NO2        *float64  `json:"no2,omitempty" db:"no2"`
	CO         *float64  `json:"co,omitempty" db:"co"`
	O3         *float64  `json:"o3,omitempty" db:"o3"`
	Temp       *float64  `json:"temp,omitempty" db:"temp"`
	Pres       *float64  `json:"pres,omitempty" db:"pres"`
	Dewp       *float64  `json:"dewp,omitempty" db:"dewp"`
	Rain       *float64  `json:"rain,omitempty" db:"rain"`
	WSPM       *float64  `json:"wspm,omitempty" db:"wspm"`
}

func (o *Observation) field(measure string) **float64 {
	switch measure {
	case MeasurePM25:
		return &o.PM25
	case MeasurePM10:
		return &o.PM10
	case MeasureSO2:
		return &o.SO2
	case MeasureNO2:
		return &o.NO2
	case MeasureCO:
		return &o.CO
	case MeasureO3:
		return &o.O3
	case MeasureTemp:
		return &o.Temp
	case MeasurePres:
		return &o.Pres
	case MeasureDewp:
		return &o.Dewp
	case MeasureRain:
		return &o.Rain
	case MeasureWSPM:
		return &o.WSPM
	}
	return nil
}

// Value returns the named measurement, or NaN when it is missing or not stored.
func (o *Observation) Value(measure string) float64 {
	f := o.field(measure)
	if f == nil || *f == nil {
		return math.NaN()
	}
	return **f
}

// SetValue stores a measurement; NaN and unknown measures are recorded as missing.
func (o *Observation) SetValue(measure string, v float64) {
	f := o.field(measure)
	if f == nil {
		return
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*f = nil
		return
	}
	*f = &v
}

// IsStoredMeasure reports whether the observation store has a column for measure
func IsStoredMeasure(measure string) bool {
	var o Observation
	return o.field(measure) != nil
}

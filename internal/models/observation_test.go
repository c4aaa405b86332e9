package models

import (
	"errors"
	"io/fs"
	"math"
	"testing"
)

func TestObservation_ValueAndSetValue(t *testing.T) {
	var obs Observation

	for _, m := range StoredMeasures {
		if v := obs.Value(m); !math.IsNaN(v) {
			t.Errorf("Value(%q) on empty observation = %v, want NaN", m, v)
		}
	}

	obs.SetValue(MeasurePM25, 42.5)
	if obs.PM25 == nil {
		t.Fatal("PM25 should not be nil after SetValue")
	}
	if got := obs.Value(MeasurePM25); got != 42.5 {
		t.Errorf("Value(PM2.5) = %v, want 42.5", got)
	}

	obs.SetValue(MeasurePM25, math.NaN())
	if obs.PM25 != nil {
		t.Error("PM25 should be nil after setting NaN")
	}

	obs.SetValue("wd", 3)
	if v := obs.Value("wd"); !math.IsNaN(v) {
		t.Errorf("Value(wd) = %v, want NaN for unstored measure", v)
	}
}

func TestIsStoredMeasure(t *testing.T) {
	if !IsStoredMeasure(MeasureDewp) {
		t.Error("DEWP should be a stored measure")
	}
	if IsStoredMeasure("No") {
		t.Error("No should not be a stored measure")
	}
}

func TestParseGroupBy(t *testing.T) {
	tests := []struct {
		in      string
		want    GroupBy
		wantErr bool
	}{
		{"year", GroupByYear, false},
		{"Month", GroupByMonth, false},
		{" hour ", GroupByHour, false},
		{"station", GroupByStation, false},
		{"month_end", GroupByMonthEnd, false},
		{"week", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGroupBy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGroupBy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGroupBy(%q) = %q, want %q", tt.in, got, tt.want)
			}
			var vErr *ValidationError
			if tt.wantErr && !errors.As(err, &vErr) {
				t.Errorf("error should be a *ValidationError, got %T", err)
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	if o, err := ParseSortOrder(""); err != nil || o != Descending {
		t.Errorf("ParseSortOrder(\"\") = %q, %v; want desc", o, err)
	}
	if o, err := ParseSortOrder("ASC"); err != nil || o != Ascending {
		t.Errorf("ParseSortOrder(ASC) = %q, %v; want asc", o, err)
	}
	if _, err := ParseSortOrder("sideways"); err == nil {
		t.Error("ParseSortOrder(sideways) should fail")
	}
}

func TestFilterSpec_Active(t *testing.T) {
	if (FilterSpec{}).Active() {
		t.Error("zero FilterSpec should be inactive")
	}
	if !(FilterSpec{Stations: []string{}}).Active() {
		t.Error("empty non-nil station selection is an active predicate")
	}
	y := 2014
	if !(FilterSpec{YearTo: &y}).Active() {
		t.Error("year bound should make the filter active")
	}
}

// TestErrors tests error classification
func TestErrors(t *testing.T) {
	missing := &MissingFileError{Path: "all_data.csv"}
	if !errors.Is(missing, fs.ErrNotExist) {
		t.Error("MissingFileError should match fs.ErrNotExist")
	}
	if missing.IsTransient() {
		t.Error("MissingFileError should not be transient")
	}

	parse := &ParseError{Path: "a.csv", Column: "year", Message: "required column missing"}
	if got, want := parse.Error(), `a.csv: column "year": required column missing`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	v := &ValidationError{Field: "date", Value: "x", Message: "invalid date format"}
	if v.Error() != "invalid date format" {
		t.Errorf("Error() = %v, want %v", v.Error(), "invalid date format")
	}
	if v.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}

func TestRegressionLineAt(t *testing.T) {
	l := RegressionLine{Slope: 2, Intercept: 1}
	if got := l.At(3); got != 7 {
		t.Errorf("At(3) = %v, want 7", got)
	}
}

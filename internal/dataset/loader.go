package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"air-quality-platform/internal/models"
)

// Columns that never hold measurements.
var reservedColumns = map[string]struct{}{
	"no":       {},
	"year":     {},
	"month":    {},
	"day":      {},
	"hour":     {},
	"date":     {},
	"datetime": {},
	"station":  {},
	"wd":       {},
}

var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"null": {},
	"none": {},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// LoadPath loads a CSV file, or every *.csv file of a directory merged in name order.
func LoadPath(path string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.MissingFileError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, &models.MissingFileError{
			Path: path,
			Err:  fmt.Errorf("no csv files in %s: %w", path, fs.ErrNotExist),
		}
	}
	sort.Strings(files)

	b := newBuilder(path)
	for _, f := range files {
		if err := readFile(b, f); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

// LoadFile loads one CSV file into a table.
func LoadFile(path string) (*Table, error) {
	b := newBuilder(path)
	if err := readFile(b, path); err != nil {
		return nil, err
	}
	return b.build(), nil
}

// Read parses CSV from r. name is used in error messages and as the table source.
func Read(name string, r io.Reader) (*Table, error) {
	b := newBuilder(name)
	if err := readCSV(b, name, r); err != nil {
		return nil, err
	}
	b.stats.Files = 1
	return b.build(), nil
}

func readFile(b *builder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &models.MissingFileError{Path: path, Err: err}
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if err := readCSV(b, path, bufio.NewReader(f)); err != nil {
		return err
	}
	b.stats.Files++
	return nil
}

// layout records where the timestamp, station and measures live in one file
type layout struct {
	station  int
	date     int
	year     int
	month    int
	day      int
	hour     int
	measures map[string]int
}

func readCSV(b *builder, name string, src io.Reader) error {
	r := csv.NewReader(src)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &models.ParseError{Path: name, Message: "empty file, header row required"}
		}
		return fmt.Errorf("read header: %w", err)
	}

	lay, err := resolveLayout(name, header)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(lay.measures))
	for m := range lay.measures {
		names = append(names, m)
	}
	// header order keeps Measures() stable
	sort.Slice(names, func(i, j int) bool { return lay.measures[names[i]] < lay.measures[names[j]] })
	for _, m := range names {
		b.addMeasure(m)
	}

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s: read row %d: %w", name, b.stats.Rows+b.stats.Skipped+1, err)
		}

		ts, ok := lay.timestamp(rec)
		if !ok {
			b.stats.Skipped++
			continue
		}
		station := strings.TrimSpace(field(rec, lay.station))
		if station == "" {
			b.stats.Skipped++
			continue
		}

		b.appendRow(station, ts)
		for _, m := range names {
			b.set(m, parseMeasure(field(rec, lay.measures[m])))
		}
	}
}

func resolveLayout(name string, header []string) (*layout, error) {
	lay := &layout{station: -1, date: -1, year: -1, month: -1, day: -1, hour: -1, measures: make(map[string]int)}
	datetimeCol := -1

	for i, raw := range header {
		col := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch strings.ToLower(col) {
		case "station":
			lay.station = i
		case "datetime":
			datetimeCol = i
		case "date":
			lay.date = i
		case "year":
			lay.year = i
		case "month":
			lay.month = i
		case "day":
			lay.day = i
		case "hour":
			lay.hour = i
		}
		if _, reserved := reservedColumns[strings.ToLower(col)]; reserved || col == "" {
			continue
		}
		lay.measures[col] = i
	}
	if datetimeCol >= 0 {
		lay.date = datetimeCol
	}

	if lay.station < 0 {
		return nil, &models.ParseError{Path: name, Column: "station", Message: "required column missing"}
	}
	if lay.date < 0 {
		for _, req := range []struct {
			col string
			idx int
		}{{"year", lay.year}, {"month", lay.month}, {"day", lay.day}} {
			if req.idx < 0 {
				return nil, &models.ParseError{
					Path:    name,
					Column:  req.col,
					Message: "required for timestamp derivation when no date column is present",
				}
			}
		}
	}
	return lay, nil
}

// timestamp parses the date column or composes year/month/day[/hour] in UTC.
func (l *layout) timestamp(rec []string) (time.Time, bool) {
	if l.date >= 0 {
		return parseDate(field(rec, l.date))
	}

	year, ok := parseInt(field(rec, l.year))
	if !ok {
		return time.Time{}, false
	}
	month, ok := parseInt(field(rec, l.month))
	if !ok || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, ok := parseInt(field(rec, l.day))
	if !ok || day < 1 || day > 31 {
		return time.Time{}, false
	}
	hour := 0
	if l.hour >= 0 {
		hour, ok = parseInt(field(rec, l.hour))
		if !ok || hour < 0 || hour > 23 {
			return time.Time{}, false
		}
	}

	ts := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if ts.Day() != day {
		// e.g. 31 April normalized into May
		return time.Time{}, false
	}
	return ts, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	// pandas writes integer columns with NaNs as floats ("2013.0")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseMeasure(s string) float64 {
	s = strings.TrimSpace(s)
	if _, missing := missingTokens[strings.ToLower(s)]; missing {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

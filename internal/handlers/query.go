package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"air-quality-platform/internal/models"
)

const dateLayout = "2006-01-02"

// parseFilter reads the filter parameters shared by every dashboard endpoint.
// station may be repeated or comma separated; a station parameter with no
// names selects nothing.
func parseFilter(q url.Values) (models.FilterSpec, error) {
	var spec models.FilterSpec

	if values, ok := q["station"]; ok {
		spec.Stations = []string{}
		for _, v := range values {
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					spec.Stations = append(spec.Stations, name)
				}
			}
		}
	}

	var err error
	if spec.DateFrom, err = parseDateParam(q, "start_date"); err != nil {
		return spec, err
	}
	if spec.DateTo, err = parseDateParam(q, "end_date"); err != nil {
		return spec, err
	}
	if spec.YearFrom, err = parseYearParam(q, "year_from"); err != nil {
		return spec, err
	}
	if spec.YearTo, err = parseYearParam(q, "year_to"); err != nil {
		return spec, err
	}
	return spec, nil
}

func parseDateParam(q url.Values, name string) (*time.Time, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, &models.ValidationError{
			Field:   name,
			Value:   s,
			Message: "invalid " + name + " format, expected YYYY-MM-DD",
		}
	}
	return &t, nil
}

func parseYearParam(q url.Values, name string) (*int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 || year > 9999 {
		return nil, &models.ValidationError{
			Field:   name,
			Value:   s,
			Message: "invalid " + name + ", expected a four digit year",
		}
	}
	return &year, nil
}

// param returns the trimmed query value or def when it is absent
func param(q url.Values, name, def string) string {
	if s := strings.TrimSpace(q.Get(name)); s != "" {
		return s
	}
	return def
}

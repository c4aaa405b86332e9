package models

import "math"

// Category is an AQI health-impact bucket for PM2.5 concentrations
type Category string

const (
	CategoryGood          Category = "Good"
	CategoryModerate      Category = "Moderate"
	CategorySensitive     Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     Category = "Unhealthy"
	CategoryVeryUnhealthy Category = "Very Unhealthy"
	CategoryUnknown       Category = "Unknown"
)

// Upper band limits, inclusive.
const (
	goodMax      = 12.0
	moderateMax  = 35.4
	sensitiveMax = 55.4
	unhealthyMax = 150.4
)

// Categories returns the defined labels in ascending severity. Unknown is not included.
func Categories() []Category {
	return []Category{
		CategoryGood,
		CategoryModerate,
		CategorySensitive,
		CategoryUnhealthy,
		CategoryVeryUnhealthy,
	}
}

// Categorize maps a concentration to its category. Non-finite input is Unknown.
func Categorize(v float64) Category {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return CategoryUnknown
	case v <= goodMax:
		return CategoryGood
	case v <= moderateMax:
		return CategoryModerate
	case v <= sensitiveMax:
		return CategorySensitive
	case v <= unhealthyMax:
		return CategoryUnhealthy
	default:
		return CategoryVeryUnhealthy
	}
}

// CategoryCount is the number of observations falling in one category
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

package models

import "time"

// Reading represents a single parsed kWh observation
type Reading struct {
	At      time.Time `json:"at"`       // full timestamp, midnight when the row had no time of day
	HasTime bool      `json:"has_time"` // whether the source row carried a time of day
	KWh     float64   `json:"kwh"`
	Cost    float64   `json:"cost"`
}

// Day returns the reading's calendar day at midnight UTC
func (r Reading) Day() time.Time {
	return time.Date(r.At.Year(), r.At.Month(), r.At.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString returns the reading's day as an ISO date
func (r Reading) DateString() string {
	return r.At.Format("2006-01-02")
}

// TimeString returns the reading's time of day, or an empty string when absent
func (r Reading) TimeString() string {
	if !r.HasTime {
		return ""
	}
	return r.At.Format("15:04")
}

// Hour returns the reading's hour of day, falling back to the given default
// when the source row carried no time of day
func (r Reading) Hour(defaultHour int) int {
	if !r.HasTime {
		return defaultHour
	}
	return r.At.Hour()
}

// IsWeekend reports whether the reading falls on a Saturday or Sunday
func (r Reading) IsWeekend() bool {
	wd := r.At.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

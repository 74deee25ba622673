package sandbox

import (
	"database/sql/driver"
	"strconv"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// Planner prompts steer the model toward Postgres-style date helpers, so the
// sandbox registers SQLite shims for them. Registration is process-wide.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("date_trunc", 2, sqlDateTrunc)
	sqlite.MustRegisterDeterministicScalarFunction("date_part", 2, sqlDatePart)
	sqlite.MustRegisterDeterministicScalarFunction("extract", 2, sqlDatePart)
	sqlite.MustRegisterDeterministicScalarFunction("to_char", 2, sqlToChar)
}

func sqlDateTrunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	unit, ok := args[0].(string)
	if !ok {
		return nil, nil
	}
	t, ok := parseDatetimeValue(args[1])
	if !ok {
		return nil, nil
	}

	var truncated time.Time
	switch strings.ToLower(unit) {
	case "second":
		truncated = t.Truncate(time.Second)
	case "minute":
		truncated = t.Truncate(time.Minute)
	case "hour":
		truncated = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case "day":
		truncated = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case "week":
		monday := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
		truncated = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	case "month":
		truncated = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "quarter":
		startMonth := time.Month((int(t.Month())-1)/3*3 + 1)
		truncated = time.Date(t.Year(), startMonth, 1, 0, 0, 0, 0, t.Location())
	case "year":
		truncated = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		truncated = t
	}

	return truncated.Format("2006-01-02T15:04:05"), nil
}

func sqlDatePart(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	field, ok := args[0].(string)
	if !ok {
		return nil, nil
	}
	t, ok := parseDatetimeValue(args[1])
	if !ok {
		return nil, nil
	}

	switch strings.ToLower(field) {
	case "year":
		return float64(t.Year()), nil
	case "month":
		return float64(t.Month()), nil
	case "day", "dayofmonth":
		return float64(t.Day()), nil
	case "doy":
		return float64(t.YearDay()), nil
	case "week", "isoweek":
		_, week := t.ISOWeek()
		return float64(week), nil
	case "quarter":
		return float64((int(t.Month())-1)/3 + 1), nil
	case "dow", "weekday":
		// Postgres convention: Sunday is 0
		return float64(int(t.Weekday())), nil
	case "hour":
		return float64(t.Hour()), nil
	}
	return nil, nil
}

func sqlToChar(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	t, ok := parseDatetimeValue(args[0])
	if !ok {
		return nil, nil
	}
	format, ok := args[1].(string)
	if !ok {
		return nil, nil
	}

	isoDay := (int(t.Weekday())+6)%7 + 1
	_, isoWeek := t.ISOWeek()

	replacer := strings.NewReplacer(
		"YYYY", t.Format("2006"),
		"YY", t.Format("06"),
		"MM", t.Format("01"),
		"DD", t.Format("02"),
		"ID", strconv.Itoa(isoDay),
		"IW", strconv.Itoa(isoWeek),
	)
	return replacer.Replace(format), nil
}

var valueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDatetimeValue(v driver.Value) (time.Time, bool) {
	switch value := v.(type) {
	case string:
		text := strings.TrimSpace(value)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range valueLayouts {
			if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
				return t, true
			}
		}
	case int64:
		return time.Unix(value, 0).UTC(), true
	case float64:
		return time.Unix(int64(value), 0).UTC(), true
	}
	return time.Time{}, false
}

package analytics

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/energyinsight/energyinsight/pkg/models"
)

// ErrEmptyDataset is returned when a CSV contains no parseable rows
var ErrEmptyDataset = errors.New("no valid rows found in CSV")

// Diagnostics reports how many rows parsed and why the rest were skipped
type Diagnostics struct {
	ParsedCount    int            `json:"parsed_count"`
	SkippedCount   int            `json:"skipped_count"`
	SkippedReasons map[string]int `json:"skipped_reasons,omitempty"`
}

func (d *Diagnostics) skip(reason string) {
	d.SkippedCount++
	if d.SkippedReasons == nil {
		d.SkippedReasons = make(map[string]int)
	}
	d.SkippedReasons[reason]++
}

// datetime layouts accepted in the single-column format
var datetimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseCSV parses UTF-8 CSV content into ordered readings. Two header layouts
// are accepted (case-insensitive): datetime,kwh[,cost] or date,time,kwh[,cost].
// Rows that fail to parse are recorded as diagnostics rather than aborting the
// upload; only a fully unparseable file is fatal. Rows without a cost are
// filled from the dataset's own average rate, or defaultRate when no row
// carries a cost at all and the cost column is present. When the cost column
// is absent entirely, every cost is zero.
func ParseCSV(data []byte, defaultRate float64) ([]models.Reading, Diagnostics, error) {
	var diag Diagnostics

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, diag, ErrEmptyDataset
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	datetimeIdx, hasDatetime := cols["datetime"]
	dateIdx, hasDate := cols["date"]
	timeIdx, hasTime := cols["time"]
	kwhIdx, hasKWh := cols["kwh"]
	costIdx, hasCost := cols["cost"]

	if !hasKWh || (!hasDatetime && !hasDate) {
		missing := []string{}
		if !hasKWh {
			missing = append(missing, "kwh")
		}
		if !hasDatetime && !hasDate {
			missing = append(missing, "datetime or date")
		}
		return nil, diag, fmt.Errorf("CSV requires columns: %s", strings.Join(missing, ", "))
	}

	// A cost of NaN marks rows waiting for the rate fill below.
	var readings []models.Reading
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			diag.skip("malformed row")
			continue
		}

		var at time.Time
		var withTime bool
		if hasDatetime {
			at, withTime, err = parseDatetimeField(field(record, datetimeIdx))
		} else {
			timeRaw := ""
			if hasTime {
				timeRaw = field(record, timeIdx)
			}
			at, withTime, err = parseDateTimeFields(field(record, dateIdx), timeRaw)
		}
		if err != nil {
			diag.skip(err.Error())
			continue
		}

		kwhRaw := field(record, kwhIdx)
		if kwhRaw == "" {
			diag.skip("missing kwh")
			continue
		}
		kwh, err := strconv.ParseFloat(kwhRaw, 64)
		if err != nil || math.IsNaN(kwh) || math.IsInf(kwh, 0) {
			diag.skip("invalid kwh")
			continue
		}
		if kwh < 0 {
			diag.skip("negative kwh")
			continue
		}

		cost := math.NaN()
		if hasCost {
			if costRaw := field(record, costIdx); costRaw != "" {
				if v, err := strconv.ParseFloat(costRaw, 64); err == nil && v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
					cost = v
				}
			}
		} else {
			cost = 0
		}

		readings = append(readings, models.Reading{At: at, HasTime: withTime, KWh: kwh, Cost: cost})
		diag.ParsedCount++
	}

	if len(readings) == 0 {
		return nil, diag, ErrEmptyDataset
	}

	fillCosts(readings, defaultRate)

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].At.Before(readings[j].At)
	})

	return readings, diag, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseDatetimeField(raw string) (time.Time, bool, error) {
	if raw == "" {
		return time.Time{}, false, errors.New("missing datetime")
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, errors.New("invalid datetime")
}

func parseDateTimeFields(dateRaw, timeRaw string) (time.Time, bool, error) {
	if dateRaw == "" {
		return time.Time{}, false, errors.New("missing date")
	}
	day, err := time.ParseInLocation("2006-01-02", dateRaw, time.UTC)
	if err != nil {
		return time.Time{}, false, errors.New("invalid date")
	}
	if timeRaw == "" {
		return day, false, nil
	}
	layout := "15:04"
	if strings.Count(timeRaw, ":") == 2 {
		layout = "15:04:05"
	}
	tod, err := time.Parse(layout, timeRaw)
	if err != nil {
		return time.Time{}, false, errors.New("invalid time")
	}
	at := day.Add(time.Duration(tod.Hour())*time.Hour +
		time.Duration(tod.Minute())*time.Minute +
		time.Duration(tod.Second())*time.Second)
	return at, true, nil
}

// fillCosts resolves rows parsed without a cost. When some rows carry costs
// the dataset's own average rate prices the rest; defaultRate only applies in
// the degenerate case where costed rows sum to zero kWh.
func fillCosts(readings []models.Reading, defaultRate float64) {
	var costSum, kwhWithCost float64
	anyProvided := false
	for _, r := range readings {
		if !math.IsNaN(r.Cost) {
			anyProvided = true
			costSum += r.Cost
			kwhWithCost += r.KWh
		}
	}

	if !anyProvided {
		for i := range readings {
			readings[i].Cost = 0
		}
		return
	}

	rate := defaultRate
	if kwhWithCost > 0 {
		rate = costSum / kwhWithCost
	}
	for i := range readings {
		if math.IsNaN(readings[i].Cost) {
			readings[i].Cost = readings[i].KWh * rate
		}
	}
}

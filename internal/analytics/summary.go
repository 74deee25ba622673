package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// ErrInsufficientData is returned when a summary is requested for no readings
var ErrInsufficientData = errors.New("insufficient data to build summary")

// Cost breakdown segment names
const (
	SegmentPeakHours = "Peak Hours"
	SegmentOffPeak   = "Off-Peak"
	SegmentWeekend   = "Weekend"
)

// PreviousTotals carries the immediately preceding dataset's headline figures,
// used to compute percent-change deltas on the stat cards
type PreviousTotals struct {
	TotalKWh  float64
	TotalCost float64
	TotalCO2  float64
}

type dailyTotal struct {
	day  time.Time
	kwh  float64
	cost float64
}

// BuildSummary aggregates readings into the full derived summary. prev may be
// nil, in which case stat-card changes are reported as neutral.
func BuildSummary(readings []models.Reading, cfg *config.Config, prev *PreviousTotals) (*models.Summary, error) {
	if len(readings) == 0 {
		return nil, ErrInsufficientData
	}

	var totalKWh, totalCost float64
	for _, r := range readings {
		totalKWh += r.KWh
		totalCost += r.Cost
	}
	totalCO2 := totalKWh * cfg.CO2Factor

	daily := aggregateDailyTotals(readings)

	usage := make([]models.UsagePoint, 0, len(daily))
	for _, d := range daily {
		usage = append(usage, models.UsagePoint{Date: d.day.Format("2006-01-02"), KWh: round2(d.kwh)})
	}

	peak := peakDay(daily)

	stats := []models.StatCard{
		statCard("Total Consumption", round2(totalKWh), "kWh", prevChange(prev, totalKWh, func(p *PreviousTotals) float64 { return p.TotalKWh })),
		statCard("Total Cost", round2(totalCost), "", prevChange(prev, totalCost, func(p *PreviousTotals) float64 { return p.TotalCost })),
		statCard("CO₂ Emission", round2(totalCO2), "kg", prevChange(prev, totalCO2, func(p *PreviousTotals) float64 { return p.TotalCO2 })),
		{
			Title:      "Peak Usage Day",
			Value:      round1(peak.kwh),
			Unit:       "kWh",
			Change:     peak.day.Format("2006-01-02"),
			ChangeType: models.ChangeNeutral,
			Trend:      "Highest daily consumption",
		},
	}

	breakdown := costBreakdown(readings, cfg)

	badges := []models.Badge{
		{Label: "Carbon", Value: fmt.Sprintf("%.1f kg CO₂", totalCO2)},
		{Label: "Cost", Value: fmt.Sprintf("%.2f €", totalCost)},
		{Label: "Window", Value: fmt.Sprintf("%s → %s",
			daily[0].day.Format("2006-01-02"),
			daily[len(daily)-1].day.Format("2006-01-02"))},
	}

	insights := ComputeInsights(readings, cfg)

	return &models.Summary{
		Stats:           stats,
		Usage:           usage,
		CostBreakdown:   breakdown,
		Badges:          badges,
		Recommendations: []models.Recommendation{},
		Insights:        insights,
	}, nil
}

type cardChange struct {
	change     string
	changeType string
	trend      string
}

func statCard(title string, value float64, unit string, ch cardChange) models.StatCard {
	return models.StatCard{
		Title:      title,
		Value:      value,
		Unit:       unit,
		Change:     ch.change,
		ChangeType: ch.changeType,
		Trend:      ch.trend,
	}
}

// prevChange compares a total against the preceding dataset's counterpart.
// Without a prior dataset the change is neutral with no numeric delta.
func prevChange(prev *PreviousTotals, current float64, pick func(*PreviousTotals) float64) cardChange {
	neutral := cardChange{change: "N/A", changeType: models.ChangeNeutral, trend: "Based on latest dataset"}
	if prev == nil {
		return neutral
	}
	base := pick(prev)
	if base <= 0 {
		return neutral
	}
	pct := (current - base) / base * 100
	switch {
	case pct > 0.005:
		return cardChange{change: fmt.Sprintf("+%.1f%%", pct), changeType: models.ChangeIncrease, trend: "vs previous upload"}
	case pct < -0.005:
		return cardChange{change: fmt.Sprintf("%.1f%%", pct), changeType: models.ChangeDecrease, trend: "vs previous upload"}
	default:
		return cardChange{change: "0.0%", changeType: models.ChangeNeutral, trend: "vs previous upload"}
	}
}

func aggregateDailyTotals(readings []models.Reading) []dailyTotal {
	byDay := make(map[time.Time]*dailyTotal)
	for _, r := range readings {
		day := r.Day()
		dt, ok := byDay[day]
		if !ok {
			dt = &dailyTotal{day: day}
			byDay[day] = dt
		}
		dt.kwh += r.KWh
		dt.cost += r.Cost
	}

	ordered := make([]dailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		ordered = append(ordered, *dt)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].day.Before(ordered[j].day) })
	return ordered
}

// peakDay returns the day with the highest kWh, earliest date winning ties
func peakDay(daily []dailyTotal) dailyTotal {
	best := daily[0]
	for _, d := range daily[1:] {
		if d.kwh > best.kwh {
			best = d
		}
	}
	return best
}

// costBreakdown assigns every reading to exactly one segment by a fixed
// hour-range policy: weekend dates first, then the configured peak-hours
// range, everything else off-peak. Readings without a time of day classify
// via the configured default hour.
func costBreakdown(readings []models.Reading, cfg *config.Config) []models.CostSegment {
	buckets := map[string]float64{}
	for _, r := range readings {
		buckets[segmentFor(r, cfg)] += r.Cost
	}

	segments := make([]models.CostSegment, 0, 3)
	for _, name := range []string{SegmentPeakHours, SegmentOffPeak, SegmentWeekend} {
		if v, ok := buckets[name]; ok {
			segments = append(segments, models.CostSegment{Segment: name, Value: round2(v)})
		}
	}
	return segments
}

func segmentFor(r models.Reading, cfg *config.Config) string {
	if r.IsWeekend() {
		return SegmentWeekend
	}
	hour := r.Hour(cfg.DefaultHour)
	if hour >= cfg.PeakStartHour && hour < cfg.PeakEndHour {
		return SegmentPeakHours
	}
	return SegmentOffPeak
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

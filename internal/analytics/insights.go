package analytics

import (
	"sort"
	"time"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/pkg/models"
)

// ComputeInsights derives the higher-order analyses from a reading sequence.
// Every sub-insight is computed independently; the ones lacking sufficient
// signal come back nil. Returns nil only for an empty sequence.
func ComputeInsights(readings []models.Reading, cfg *config.Config) *models.Insights {
	if len(readings) == 0 {
		return nil
	}

	daily := aggregateDailyTotals(readings)

	var totalKWh, totalCost float64
	for _, r := range readings {
		totalKWh += r.KWh
		totalCost += r.Cost
	}

	avgCostPerKWh := 0.0
	if totalKWh > 0 {
		avgCostPerKWh = totalCost / totalKWh
	}

	peak := peakDay(daily)
	window := peakWindow(readings, len(daily), cfg)

	shiftKWh := 0.0
	if window != nil {
		shiftKWh = round2(cfg.ShiftFraction * window.AvgKWhPerDay)
	}

	return &models.Insights{
		PeakDay:           snapshot(peak),
		WeekendVsWeekday:  weekendWeekdayComparison(daily),
		TopExpensiveDays:  topExpensiveDays(daily, cfg.TopDays),
		QuarterUsage:      quarterUsage(readings),
		PeakWindow:        window,
		AverageCostPerKWh: avgCostPerKWh,
		ShiftKWh:          shiftKWh,
		DaysCovered:       len(daily),
		CO2Factor:         cfg.CO2Factor,
	}
}

func snapshot(d dailyTotal) models.DailyCostSnapshot {
	return models.DailyCostSnapshot{
		Date: d.day.Format("2006-01-02"),
		KWh:  round2(d.kwh),
		Cost: round2(d.cost),
	}
}

// topExpensiveDays ranks distinct days by total cost, earliest date first on
// ties, and keeps the top n
func topExpensiveDays(daily []dailyTotal, n int) []models.DailyCostSnapshot {
	ranked := make([]dailyTotal, len(daily))
	copy(ranked, daily)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].cost != ranked[j].cost {
			return ranked[i].cost > ranked[j].cost
		}
		return ranked[i].day.Before(ranked[j].day)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]models.DailyCostSnapshot, 0, len(ranked))
	for _, d := range ranked {
		out = append(out, snapshot(d))
	}
	return out
}

// weekendWeekdayComparison needs at least one day in each partition
func weekendWeekdayComparison(daily []dailyTotal) *models.WeekendWeekdayComparison {
	var weekend, weekday []dailyTotal
	for _, d := range daily {
		wd := d.day.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			weekend = append(weekend, d)
		} else {
			weekday = append(weekday, d)
		}
	}
	if len(weekend) == 0 || len(weekday) == 0 {
		return nil
	}

	weekendDaily, weekendPerKWh := partitionAverages(weekend)
	weekdayDaily, weekdayPerKWh := partitionAverages(weekday)

	return &models.WeekendWeekdayComparison{
		WeekendAvgCostPerKWh: round2(weekendPerKWh),
		WeekdayAvgCostPerKWh: round2(weekdayPerKWh),
		WeekendAvgDailyCost:  round2(weekendDaily),
		WeekdayAvgDailyCost:  round2(weekdayDaily),
		WeekendDays:          len(weekend),
		WeekdayDays:          len(weekday),
	}
}

func partitionAverages(entries []dailyTotal) (avgDailyCost, avgCostPerKWh float64) {
	var cost, kwh float64
	for _, d := range entries {
		cost += d.cost
		kwh += d.kwh
	}
	avgDailyCost = cost / float64(len(entries))
	if kwh > 0 {
		avgCostPerKWh = cost / kwh
	}
	return avgDailyCost, avgCostPerKWh
}

// quarterUsage splits the covered range into two halves by elapsed time and
// compares their consumption. Needs the dataset to span more than one day.
func quarterUsage(readings []models.Reading) *models.QuarterUsageComparison {
	first := readings[0]
	last := readings[len(readings)-1]
	if !last.Day().After(first.Day()) {
		return nil
	}

	mid := first.At.Add(last.At.Sub(first.At) / 2)

	var startKWh, endKWh float64
	for _, r := range readings {
		if r.At.After(mid) {
			endKWh += r.KWh
		} else {
			startKWh += r.KWh
		}
	}

	cmp := &models.QuarterUsageComparison{
		StartLabel: first.DateString(),
		StartKWh:   round2(startKWh),
		EndLabel:   last.DateString(),
		EndKWh:     round2(endKWh),
		DeltaKWh:   round2(endKWh - startKWh),
	}
	if startKWh > 0 {
		pct := round2((endKWh - startKWh) / startKWh * 100)
		cmp.DeltaPercent = &pct
	}
	return cmp
}

// peakWindow finds the contiguous hour range with the highest average kWh per
// covered day. Only readings that carry a time of day participate; without
// any, there is no window.
func peakWindow(readings []models.Reading, daysCovered int, cfg *config.Config) *models.PeakWindow {
	var hourly [24]float64
	timed := false
	for _, r := range readings {
		if !r.HasTime {
			continue
		}
		timed = true
		hourly[r.At.Hour()] += r.KWh
	}
	if !timed || daysCovered == 0 {
		return nil
	}

	width := cfg.PeakWindowHours
	bestTotal := -1.0
	bestStart := 0
	for start := 0; start < 24; start++ {
		var total float64
		for offset := 0; offset < width; offset++ {
			total += hourly[(start+offset)%24]
		}
		if total > bestTotal {
			bestTotal = total
			bestStart = start
		}
	}
	if bestTotal <= 0 {
		return nil
	}

	return &models.PeakWindow{
		StartHour:    bestStart,
		EndHour:      (bestStart + width) % 24,
		AvgKWhPerDay: round2(bestTotal / float64(daysCovered)),
	}
}

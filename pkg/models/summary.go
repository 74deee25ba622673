package models

// Change types for stat cards
const (
	ChangeIncrease = "increase"
	ChangeDecrease = "decrease"
	ChangeNeutral  = "neutral"
)

// StatCard is one headline figure on the dashboard
type StatCard struct {
	Title      string  `json:"title"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Change     string  `json:"change"`
	ChangeType string  `json:"change_type"`
	Trend      string  `json:"trend"`
}

// UsagePoint is one day of summed consumption
type UsagePoint struct {
	Date string  `json:"date"`
	KWh  float64 `json:"kwh"`
}

// CostSegment is one bucket of the cost breakdown
type CostSegment struct {
	Segment string  `json:"segment"`
	Value   float64 `json:"value"`
}

// Badge is a compact label/value pair shown next to the stats
type Badge struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DailyCostSnapshot captures one day's totals
type DailyCostSnapshot struct {
	Date string  `json:"date"`
	KWh  float64 `json:"kwh"`
	Cost float64 `json:"cost"`
}

// WeekendWeekdayComparison contrasts weekend and weekday spending
type WeekendWeekdayComparison struct {
	WeekendAvgCostPerKWh float64 `json:"weekend_avg_cost_per_kwh"`
	WeekdayAvgCostPerKWh float64 `json:"weekday_avg_cost_per_kwh"`
	WeekendAvgDailyCost  float64 `json:"weekend_avg_daily_cost"`
	WeekdayAvgDailyCost  float64 `json:"weekday_avg_daily_cost"`
	WeekendDays          int     `json:"weekend_days"`
	WeekdayDays          int     `json:"weekday_days"`
}

// QuarterUsageComparison contrasts the first and second half of the covered range
type QuarterUsageComparison struct {
	StartLabel   string   `json:"start_label"`
	StartKWh     float64  `json:"start_kwh"`
	EndLabel     string   `json:"end_label"`
	EndKWh       float64  `json:"end_kwh"`
	DeltaKWh     float64  `json:"delta_kwh"`
	DeltaPercent *float64 `json:"delta_percent,omitempty"`
}

// PeakWindow is the contiguous hour range with the highest average usage
type PeakWindow struct {
	StartHour     int     `json:"start_hour"`
	EndHour       int     `json:"end_hour"`
	AvgKWhPerDay  float64 `json:"avg_kwh_per_day"`
}

// Insights holds the derived higher-order analyses for a dataset
type Insights struct {
	PeakDay           DailyCostSnapshot         `json:"peak_day"`
	WeekendVsWeekday  *WeekendWeekdayComparison `json:"weekend_vs_weekday,omitempty"`
	TopExpensiveDays  []DailyCostSnapshot       `json:"top_expensive_days"`
	QuarterUsage      *QuarterUsageComparison   `json:"quarter_usage,omitempty"`
	PeakWindow        *PeakWindow               `json:"peak_window,omitempty"`
	AverageCostPerKWh float64                   `json:"average_cost_per_kwh"`
	ShiftKWh          float64                   `json:"shift_kwh"`
	DaysCovered       int                       `json:"days_covered"`
	CO2Factor         float64                   `json:"co2_factor"`
}

// RecommendationImpact quantifies a recommendation's expected effect
type RecommendationImpact struct {
	Value  string `json:"value"`
	Period string `json:"period"`
}

// RecommendationText is the localized body of a recommendation
type RecommendationText struct {
	Title  string   `json:"title"`
	Impact string   `json:"impact"`
	Tips   []string `json:"tips"`
}

// RecommendationContent carries both language versions
type RecommendationContent struct {
	EN RecommendationText `json:"en"`
	FR RecommendationText `json:"fr"`
}

// Recommendation is one actionable suggestion derived from the summary
type Recommendation struct {
	Category string                 `json:"category"`
	Impact   RecommendationImpact   `json:"impact"`
	Tips     []string               `json:"tips"`
	Content  *RecommendationContent `json:"content,omitempty"`
}

// Summary is the full derived view over one uploaded dataset
type Summary struct {
	Stats           []StatCard       `json:"stats"`
	Usage           []UsagePoint     `json:"usage"`
	CostBreakdown   []CostSegment    `json:"cost_breakdown"`
	Badges          []Badge          `json:"badges"`
	Recommendations []Recommendation `json:"recommendations"`
	Insights        *Insights        `json:"insights,omitempty"`
}

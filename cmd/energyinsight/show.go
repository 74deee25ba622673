package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/energyinsight/energyinsight/internal/database"
)

var showCmd = &cobra.Command{
	Use:   "show <dataset-id>",
	Short: "Show one dataset's summary and insights",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid dataset id %q", args[0])
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	detail, err := db.DatasetDetail(id, user)
	if errors.Is(err, database.ErrDatasetNotFound) {
		return fmt.Errorf("dataset %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	d := detail.Dataset
	fmt.Printf("Dataset #%d  %s  (uploaded %s)\n", d.ID, d.OriginalFilename, d.UploadedAt)
	fmt.Printf("  %.2f kWh, %.2f €, %.2f kg CO₂, %d rows\n",
		d.TotalKWh, d.TotalCost, d.TotalCO2, d.RowCount)

	if s := detail.Summary; s != nil {
		if len(s.CostBreakdown) > 0 {
			fmt.Println("\nCost breakdown:")
			for _, seg := range s.CostBreakdown {
				fmt.Printf("  %-12s %8.2f €\n", seg.Segment, seg.Value)
			}
		}
		if in := s.Insights; in != nil {
			fmt.Println("\nInsights:")
			fmt.Printf("  Peak day: %s (%.2f kWh)\n", in.PeakDay.Date, in.PeakDay.KWh)
			if in.WeekendVsWeekday != nil {
				fmt.Printf("  Weekend vs weekday: %.2f vs %.2f €/day\n",
					in.WeekendVsWeekday.WeekendAvgDailyCost, in.WeekendVsWeekday.WeekdayAvgDailyCost)
			}
			if in.QuarterUsage != nil {
				fmt.Printf("  Usage delta: %.2f kWh (%s → %s)\n",
					in.QuarterUsage.DeltaKWh, in.QuarterUsage.StartLabel, in.QuarterUsage.EndLabel)
			}
			if len(in.TopExpensiveDays) > 0 {
				fmt.Println("  Most expensive days:")
				for _, day := range in.TopExpensiveDays {
					fmt.Printf("    %s  %8.2f €\n", day.Date, day.Cost)
				}
			}
		}
		for _, rec := range s.Recommendations {
			if rec.Content != nil {
				fmt.Printf("\n[%s] %s — %s %s\n", rec.Category, rec.Content.EN.Title,
					rec.Impact.Value, rec.Impact.Period)
				for _, tip := range rec.Content.EN.Tips {
					fmt.Printf("  - %s\n", tip)
				}
			}
		}
	}

	fmt.Printf("\n%d reading(s)\n", len(detail.Readings))
	return nil
}

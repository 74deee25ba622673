package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/energyinsight/energyinsight/internal/analytics"
	"github.com/energyinsight/energyinsight/internal/database"
	"github.com/energyinsight/energyinsight/internal/recommend"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Parse a usage CSV and store its analytics",
	Long: `Parses an energy usage CSV, computes the analytics summary and insights,
and stores the dataset for the given user. Re-uploading identical content is
rejected as a duplicate.

Accepted header layouts: datetime,kwh[,cost] or date,time,kwh[,cost]`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	path := args[0]
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return fmt.Errorf("only .csv files are supported")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	readings, diag, err := analytics.ParseCSV(data, cfg.DefaultRate)
	if err != nil {
		return fmt.Errorf("parsing CSV: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Stat-card deltas compare against the user's previous dataset, if any
	var prev *analytics.PreviousTotals
	if latest, err := db.LatestDataset(user); err != nil {
		return fmt.Errorf("loading previous dataset: %w", err)
	} else if latest != nil {
		prev = &analytics.PreviousTotals{
			TotalKWh:  latest.TotalKWh,
			TotalCost: latest.TotalCost,
			TotalCO2:  latest.TotalCO2,
		}
	}

	summary, err := analytics.BuildSummary(readings, cfg, prev)
	if err != nil {
		return fmt.Errorf("building summary: %w", err)
	}

	log := newLogger()
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	recommend.New(newLLMClient(cfg, log), log).Apply(ctx, summary)

	fingerprint := analytics.Fingerprint(user, readings)
	datasetID, err := db.SaveDataset(user, filepath.Base(path), readings, summary, fingerprint)
	if errors.Is(err, database.ErrDuplicateDataset) {
		return fmt.Errorf("identical dataset already stored for this user")
	}
	if err != nil {
		return fmt.Errorf("storing dataset: %w", err)
	}

	fmt.Printf("Stored dataset #%d (%s rows", datasetID, humanize.Comma(int64(diag.ParsedCount)))
	if diag.SkippedCount > 0 {
		fmt.Printf(", %d skipped", diag.SkippedCount)
	}
	fmt.Println(")")

	for reason, count := range diag.SkippedReasons {
		fmt.Printf("  skipped %d: %s\n", count, reason)
	}

	fmt.Println()
	for _, stat := range summary.Stats {
		change := ""
		if stat.Change != "N/A" {
			change = fmt.Sprintf("  (%s)", stat.Change)
		}
		fmt.Printf("%-18s %10s %s%s\n", stat.Title,
			humanize.CommafWithDigits(stat.Value, 2), stat.Unit, change)
	}

	if in := summary.Insights; in != nil {
		fmt.Println()
		fmt.Printf("Peak day: %s (%.2f kWh, %.2f €)\n", in.PeakDay.Date, in.PeakDay.KWh, in.PeakDay.Cost)
		if in.PeakWindow != nil {
			fmt.Printf("Peak window: %02d:00–%02d:00 (%.2f kWh/day avg)\n",
				in.PeakWindow.StartHour, in.PeakWindow.EndHour, in.PeakWindow.AvgKWhPerDay)
		}
		fmt.Printf("Average cost: %.3f €/kWh over %d days\n", in.AverageCostPerKWh, in.DaysCovered)
	}

	return nil
}

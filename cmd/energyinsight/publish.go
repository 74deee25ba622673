package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/energyinsight/energyinsight/internal/publisher"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the latest summary to MQTT",
	Long:  `Publishes the user's most recent summary figures as retained MQTT states for home-automation dashboards.`,
	RunE:  runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	user, err := requireUser()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	summary, err := db.LatestSummary(user)
	if err != nil {
		return fmt.Errorf("loading latest summary: %w", err)
	}
	if summary == nil {
		return fmt.Errorf("no summary available, upload a dataset first")
	}

	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	if err := pub.PublishSummary(summary); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}

	fmt.Printf("✓ Published %d stat(s) to %s/*\n", len(summary.Stats), cfg.MQTT.TopicPrefix)
	return nil
}

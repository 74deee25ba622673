package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored datasets",
	Long:  `Displays the stored datasets for a user, newest first.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of datasets to show")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	datasets, err := db.ListDatasets(user, listLimit)
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}

	if len(datasets) == 0 {
		fmt.Printf("No datasets found for %s\n", user)
		return nil
	}

	fmt.Printf("\nDatasets for %s:\n", user)
	fmt.Println("--------------------------------------------------------------------------")
	fmt.Printf("%-5s  %-24s  %10s  %10s  %6s\n", "ID", "File", "kWh", "Cost", "Rows")
	fmt.Println("--------------------------------------------------------------------------")

	for _, d := range datasets {
		fmt.Printf("%-5d  %-24s  %10.2f  %10.2f  %6d\n",
			d.ID, d.OriginalFilename, d.TotalKWh, d.TotalCost, d.RowCount)
	}

	fmt.Println("--------------------------------------------------------------------------")
	fmt.Printf("%d dataset(s)\n", len(datasets))

	return nil
}

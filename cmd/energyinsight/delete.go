package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/energyinsight/energyinsight/internal/database"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <dataset-id>",
	Short: "Delete a dataset and all of its readings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := db.DeleteDataset(id, user); err != nil {
		if errors.Is(err, database.ErrDatasetNotFound) {
			return fmt.Errorf("dataset %d not found", id)
		}
		return fmt.Errorf("deleting dataset: %w", err)
	}

	fmt.Printf("Deleted dataset #%d\n", id)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/energyinsight/energyinsight/internal/chat"
	"github.com/energyinsight/energyinsight/pkg/models"
)

var (
	chatShowSQL     bool
	chatContextFile string
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask a question about your stored readings",
	Long: `Answers a natural-language question about the user's stored readings.
The question is planned into a single read-only SQL statement and executed in
an ephemeral sandbox containing only that user's rows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatShowSQL, "show-sql", false, "Print the executed SQL and analysis notes")
	chatCmd.Flags().StringVar(&chatContextFile, "context", "", "JSON file with prior conversation turns")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var history []models.ChatMessage
	if chatContextFile != "" {
		data, err := os.ReadFile(chatContextFile)
		if err != nil {
			return fmt.Errorf("reading context file: %w", err)
		}
		if err := json.Unmarshal(data, &history); err != nil {
			return fmt.Errorf("parsing context file: %w", err)
		}
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	log := newLogger()
	defer log.Sync()

	client := newLLMClient(cfg, log)
	if client == nil {
		return fmt.Errorf("chat requires a configured language model provider (set openai.api_key or OPENAI_API_KEY)")
	}

	agent := chat.NewAgent(client, db, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	response, err := agent.Run(ctx, user, prompt, history)
	if err != nil {
		return fmt.Errorf("running chat: %w", err)
	}

	fmt.Println(response.Content)
	if chatShowSQL {
		if response.Analysis != "" {
			fmt.Printf("\n[analysis] %s\n", response.Analysis)
		}
		if response.SQL != "" {
			fmt.Printf("[sql] %s\n", response.SQL)
		}
	}

	return nil
}

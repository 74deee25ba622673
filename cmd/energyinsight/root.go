package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/energyinsight/energyinsight/internal/config"
	"github.com/energyinsight/energyinsight/internal/database"
	"github.com/energyinsight/energyinsight/internal/llm"
)

var (
	cfgFile string
	dbPath  string
	userID  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "energyinsight",
	Short: "Analyze energy usage CSVs and ask questions about your data",
	Long: `Energy Insight ingests energy-usage CSV files, derives analytics and
insights, and answers natural-language questions about your own readings
through a sandboxed SQL layer. All data stays in a local SQLite database.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user identity owning the data (required)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// requireUser validates the --user flag
func requireUser() (string, error) {
	if userID == "" {
		return "", fmt.Errorf("--user is required")
	}
	return userID, nil
}

// newLogger builds the process logger, stderr only so command output stays clean
func newLogger() *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newLLMClient wires the model provider, or nil when unconfigured
func newLLMClient(cfg *config.Config, log *zap.Logger) llm.Client {
	client, err := llm.NewOpenAI(cfg.OpenAI, log)
	if err != nil {
		log.Warn("language model provider unavailable", zap.Error(err))
		return nil
	}
	return client
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/nlquery/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

const defaultConfigFile = "nlquery.yaml"

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
	maxRows   int
	timeout   time.Duration
	noLLM     bool
)

var rootCmd = &cobra.Command{
	Use:   "nlquery",
	Short: "Natural-language questions to safe, read-only SQL",
	Long: `nlquery turns a natural-language question into a single bounded,
read-only SQL query, adapts it to PostgreSQL, MySQL or Oracle and runs it.

Features:
  - Keyword rules, or an OpenAI-compatible model when configured
  - Token-based validation: one SELECT, no writes, no comments, row limit enforced
  - Dialect adaptation of row limits and placeholders
  - Read-only transactions with timeouts
  - Built-in synthetic banking dataset when no database is reachable`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile,
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().IntVar(&maxRows, "max-rows", 0,
		"Override the maximum number of rows a query may return")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0,
		"Override the query execution timeout")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false,
		"Use keyword rules only, even when a model is configured")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	MaxRows   int
	Timeout   time.Duration
	NoLLM     bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		MaxRows:   maxRows,
		Timeout:   timeout,
		NoLLM:     noLLM,
	}
}

// configPath returns the file to load, or "" when the default file is absent
// so that nlquery runs on defaults and environment variables alone.
func configPath() string {
	path := GetConfigFile()
	if path != defaultConfigFile {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

// loadConfig loads, overrides and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.MaxRows, overrides.Timeout, overrides.NoLLM)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

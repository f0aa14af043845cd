package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/config"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Dataset flags (override config if set)
	flagDataPath  string
	flagCachePath string
	flagThreshold float64
	flagSeed      int64
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is rebuilt by loadConfig; commands read it after initialization.
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "swiggy",
	Short: "Swiggy delivery analysis: clean, explore and model food delivery orders",
	Long: `swiggy loads a food delivery dataset (or synthesizes one), cleans it, and
produces descriptive statistics, late delivery probabilities, charts and a
late delivery classifier, either as a report or as a web dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.swiggy/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.StringVar(&flagDataPath, "data", "", "source dataset path, CSV or XLSX (overrides config)")
	f.StringVar(&flagCachePath, "cache", "", "cleaned dataset cache path (overrides config)")
	f.Float64Var(&flagThreshold, "threshold", 0, "late delivery threshold in minutes (overrides config)")
	f.Int64Var(&flagSeed, "seed", 0, "random seed for synthesis and the train/test split (overrides config)")
	f.StringVar(&flagLogFormat, "log-format", "", "log format: text | json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so every command still runs
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("data") && flagDataPath != "" {
		cfg.DataPath = flagDataPath
	}
	if f.Changed("cache") && flagCachePath != "" {
		cfg.CachePath = flagCachePath
	}
	if f.Changed("threshold") && flagThreshold > 0 {
		cfg.LateThresholdMin = flagThreshold
	}
	if f.Changed("seed") {
		cfg.RandomSeed = flagSeed
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	l, err := logging.New(os.Stderr, level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		l, _ = logging.New(os.Stderr, level, "text")
	}
	logger = l
	slog.SetDefault(l)
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/config"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/logging"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set swiggy configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "data_path: %s\n", cfg.DataPath)
		fmt.Fprintf(out, "cache_path: %s\n", cfg.CachePath)
		if cfg.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Fprintf(out, "random_seed: %d\n", cfg.RandomSeed)
		fmt.Fprintf(out, "sample_size: %d\n", cfg.SampleSize)
		fmt.Fprintf(out, "synthesize_missing: %t\n", cfg.SynthesizeMissing)
		fmt.Fprintf(out, "delivery_minutes_per_km: %g\n", cfg.MinutesPerKM)
		fmt.Fprintf(out, "late_threshold_min: %g\n", cfg.LateThresholdMin)
		fmt.Fprintf(out, "classifier_features: %s\n", strings.Join(cfg.ClassifierFeatures, ","))
		fmt.Fprintf(out, "classifier_test_size: %g\n", cfg.ClassifierTestSize)
		if cfg.GroupTopK > 0 {
			fmt.Fprintf(out, "group_top_k: %d\n", cfg.GroupTopK)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Start from the file, not the flag-overridden view
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "data_path":
		c.DataPath = val
	case "cache_path":
		c.CachePath = val
	case "sheet_name":
		c.SheetName = val
	case "random_seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for random_seed: %w", err)
		}
		c.RandomSeed = i
	case "sample_size":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for sample_size: %v", val)
		}
		c.SampleSize = i
	case "synthesize_missing":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for synthesize_missing: %w", err)
		}
		c.SynthesizeMissing = b
	case "delivery_minutes_per_km":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for delivery_minutes_per_km: %v", val)
		}
		c.MinutesPerKM = f
	case "late_threshold_min":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for late_threshold_min: %v", val)
		}
		c.LateThresholdMin = f
	case "classifier_features":
		var feats []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				feats = append(feats, s)
			}
		}
		c.ClassifierFeatures = feats
	case "classifier_test_size":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for classifier_test_size: %w", err)
		}
		c.ClassifierTestSize = f
	case "group_top_k":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for group_top_k: %v", val)
		}
		c.GroupTopK = i
	case "listen_addr":
		c.ListenAddr = val
	case "chart_width", "chart_height":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		if key == "chart_width" {
			c.ChartWidth = i
		} else {
			c.ChartHeight = i
		}
	case "log_level":
		if _, err := logging.ParseLevel(val); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

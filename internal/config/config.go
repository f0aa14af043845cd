package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataPath  string `mapstructure:"data_path" yaml:"data_path"`
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
	SheetName string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Synthetic dataset
	RandomSeed        int64   `mapstructure:"random_seed" yaml:"random_seed"`
	SampleSize        int     `mapstructure:"sample_size" yaml:"sample_size"`
	SynthesizeMissing bool    `mapstructure:"synthesize_missing" yaml:"synthesize_missing"`
	MinutesPerKM      float64 `mapstructure:"delivery_minutes_per_km" yaml:"delivery_minutes_per_km"`

	LateThresholdMin float64 `mapstructure:"late_threshold_min" yaml:"late_threshold_min"`

	// Classifier
	ClassifierFeatures []string `mapstructure:"classifier_features" yaml:"classifier_features"`
	ClassifierTestSize float64  `mapstructure:"classifier_test_size" yaml:"classifier_test_size"`

	// Presentation
	GroupTopK   int    `mapstructure:"group_top_k" yaml:"group_top_k"`
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Defaults returns the configuration used when neither a config file nor
// environment overrides are present.
func Defaults() *Global {
	return &Global{
		DataPath:           filepath.Join("data", "swiggy.csv"),
		CachePath:          filepath.Join("data", "swiggy_cleaned.csv"),
		RandomSeed:         42,
		SampleSize:         200,
		SynthesizeMissing:  true,
		MinutesPerKM:       4,
		LateThresholdMin:   45,
		ClassifierFeatures: []string{"Rider_Distance_KM", "Preparation_Time_Min", "Customer_Rating"},
		ClassifierTestSize: 0.25,
		GroupTopK:          0,
		ListenAddr:         ":7860",
		ChartWidth:         800,
		ChartHeight:        400,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.swiggy/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".swiggy")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SWIGGY")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("cache_path", d.CachePath)
	v.SetDefault("sheet_name", d.SheetName)
	v.SetDefault("random_seed", d.RandomSeed)
	v.SetDefault("sample_size", d.SampleSize)
	v.SetDefault("synthesize_missing", d.SynthesizeMissing)
	v.SetDefault("delivery_minutes_per_km", d.MinutesPerKM)
	v.SetDefault("late_threshold_min", d.LateThresholdMin)
	v.SetDefault("classifier_features", d.ClassifierFeatures)
	v.SetDefault("classifier_test_size", d.ClassifierTestSize)
	v.SetDefault("group_top_k", d.GroupTopK)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("chart_width", d.ChartWidth)
	v.SetDefault("chart_height", d.ChartHeight)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".swiggy"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values that would make the pipeline meaningless.
func (c *Global) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data_path must not be empty")
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size must be >= 0, got %d", c.SampleSize)
	}
	if c.ClassifierTestSize <= 0 || c.ClassifierTestSize >= 1 {
		return fmt.Errorf("classifier_test_size must be in (0,1), got %v", c.ClassifierTestSize)
	}
	if len(c.ClassifierFeatures) == 0 {
		return fmt.Errorf("classifier_features must list at least one column")
	}
	return nil
}

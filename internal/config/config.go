package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/basketloom-cli/internal/basket"
	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/report"
)

// Global configuration structure.
type Global struct {
	// Mining thresholds
	MinSupport    float64  `mapstructure:"min_support" yaml:"min_support"`
	MinConfidence float64  `mapstructure:"min_confidence" yaml:"min_confidence"`
	MaxLen        int      `mapstructure:"max_len" yaml:"max_len"`
	Workers       int      `mapstructure:"workers" yaml:"workers"`
	SortBy        []string `mapstructure:"sort_by" yaml:"sort_by"`

	// Input layout
	Layout          string   `mapstructure:"layout" yaml:"layout"`
	TransactionCols []string `mapstructure:"transaction_cols" yaml:"transaction_cols"`
	ItemCol         string   `mapstructure:"item_col" yaml:"item_col"`
	Delimiter       string   `mapstructure:"delimiter" yaml:"delimiter"`
	Header          bool     `mapstructure:"header" yaml:"header"`
	Lowercase       bool     `mapstructure:"lowercase" yaml:"lowercase"`

	// Report
	TopItems     int    `mapstructure:"top_items" yaml:"top_items"`
	TopItemsets  int    `mapstructure:"top_itemsets" yaml:"top_itemsets"`
	TopRules     int    `mapstructure:"top_rules" yaml:"top_rules"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	WatchInterval string `mapstructure:"watch_interval" yaml:"watch_interval"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.basketloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".basketloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.basketloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
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
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BASKETLOOM")
	v.AutomaticEnv()

	mo := mining.DefaultOptions()
	v.SetDefault("min_support", mo.MinSupport)
	v.SetDefault("min_confidence", mo.MinConfidence)
	v.SetDefault("max_len", mo.MaxLen)
	v.SetDefault("workers", mo.Workers)
	v.SetDefault("sort_by", []string{string(mining.MetricConfidence), string(mining.MetricLift)})

	bo := basket.DefaultOptions()
	v.SetDefault("layout", string(bo.Format))
	v.SetDefault("transaction_cols", bo.TransactionCols)
	v.SetDefault("item_col", bo.ItemCol)
	v.SetDefault("delimiter", "")
	v.SetDefault("header", bo.Header)
	v.SetDefault("lowercase", bo.Lowercase)

	ro := report.DefaultOptions()
	v.SetDefault("top_items", ro.TopItems)
	v.SetDefault("top_itemsets", ro.TopItemsets)
	v.SetDefault("top_rules", ro.TopRules)
	v.SetDefault("output_format", string(report.FormatMarkdown))

	v.SetDefault("watch_interval", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist; the default location is optional
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// MiningOptions converts the thresholds into session options. Only the sort
// metrics are checked here; callers validate once overrides are applied.
func (c *Global) MiningOptions() (mining.Options, error) {
	sortBy, err := mining.ParseMetrics(c.SortBy)
	if err != nil {
		return mining.Options{}, err
	}
	return mining.Options{
		MinSupport:    c.MinSupport,
		MinConfidence: c.MinConfidence,
		MaxLen:        c.MaxLen,
		Workers:       c.Workers,
		SortBy:        sortBy,
	}, nil
}

// LoaderOptions converts the input layout settings.
func (c *Global) LoaderOptions() (basket.Options, error) {
	layout, err := basket.ParseFormat(c.Layout)
	if err != nil {
		return basket.Options{}, err
	}
	delim, err := basket.ParseDelimiter(c.Delimiter)
	if err != nil {
		return basket.Options{}, err
	}
	o := basket.DefaultOptions()
	o.Format = layout
	o.TransactionCols = append([]string(nil), c.TransactionCols...)
	o.ItemCol = c.ItemCol
	o.Delimiter = delim
	o.Header = c.Header
	o.Lowercase = c.Lowercase
	return o, nil
}

// ReportOptions converts the report limits.
func (c *Global) ReportOptions() report.Options {
	return report.Options{TopItems: c.TopItems, TopItemsets: c.TopItemsets, TopRules: c.TopRules}
}

// Interval parses WatchInterval.
func (c *Global) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.WatchInterval)
	if err != nil {
		return 0, fmt.Errorf("watch interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch interval must be positive, got %s", d)
	}
	return d, nil
}

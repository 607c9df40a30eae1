package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/basketloom-cli/internal/basket"
	cfgpkg "github.com/KaramelBytes/basketloom-cli/internal/config"
	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/report"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set BasketLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "min_support: %g\n", cfg.MinSupport)
		fmt.Fprintf(out, "min_confidence: %g\n", cfg.MinConfidence)
		if cfg.MaxLen > 0 {
			fmt.Fprintf(out, "max_len: %d\n", cfg.MaxLen)
		}
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "sort_by: %s\n", strings.Join(cfg.SortBy, ","))
		fmt.Fprintf(out, "layout: %s\n", cfg.Layout)
		fmt.Fprintf(out, "transaction_cols: %s\n", strings.Join(cfg.TransactionCols, ","))
		fmt.Fprintf(out, "item_col: %s\n", cfg.ItemCol)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(out, "header: %t\n", cfg.Header)
		fmt.Fprintf(out, "lowercase: %t\n", cfg.Lowercase)
		fmt.Fprintf(out, "top_items: %d\n", cfg.TopItems)
		fmt.Fprintf(out, "top_itemsets: %d\n", cfg.TopItemsets)
		fmt.Fprintf(out, "top_rules: %d\n", cfg.TopRules)
		fmt.Fprintf(out, "output_format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "watch_interval: %s\n", cfg.WatchInterval)
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
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "min_support":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("invalid min_support: %s (want a fraction in (0, 1])", val)
		}
		c.MinSupport = f
	case "min_confidence":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid min_confidence: %s (want a fraction in [0, 1])", val)
		}
		c.MinConfidence = f
	case "max_len", "workers", "top_items", "top_itemsets", "top_rules":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "max_len":
			c.MaxLen = i
		case "workers":
			c.Workers = i
		case "top_items":
			c.TopItems = i
		case "top_itemsets":
			c.TopItemsets = i
		case "top_rules":
			c.TopRules = i
		}
	case "sort_by":
		ms, err := mining.ParseMetrics(strings.Split(val, ","))
		if err != nil {
			return err
		}
		c.SortBy = make([]string, 0, len(ms))
		for _, m := range ms {
			c.SortBy = append(c.SortBy, string(m))
		}
	case "layout":
		f, err := basket.ParseFormat(val)
		if err != nil {
			return err
		}
		c.Layout = string(f)
	case "transaction_cols":
		var cols []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cols = append(cols, p)
			}
		}
		c.TransactionCols = cols
	case "item_col":
		c.ItemCol = val
	case "delimiter":
		if _, err := basket.ParseDelimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "header", "lowercase":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "header" {
			c.Header = b
		} else {
			c.Lowercase = b
		}
	case "output_format":
		f, err := report.ParseFormat(val)
		if err != nil {
			return err
		}
		c.OutputFormat = string(f)
	case "watch_interval":
		prev := c.WatchInterval
		c.WatchInterval = val
		if _, err := c.Interval(); err != nil {
			c.WatchInterval = prev
			return err
		}
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text|json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/report"
)

var (
	itemsetsFlags miningFlags
	itemsetsLen   int

	rulesFlags     miningFlags
	rulesFilterBy  string
	rulesFilterMin float64

	itemsFlags miningFlags
)

var itemsetsCmd = &cobra.Command{
	Use:   "itemsets <file>",
	Short: "List frequent itemsets with their support",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := itemsetsFlags.resolve(cmd)
		if err != nil {
			return err
		}
		rep, err := runMining(args[0], j, nil)
		if err != nil {
			return err
		}
		if itemsetsLen > 0 {
			res := rep.Result()
			kept := res.Itemsets[:0:0]
			for _, fi := range res.Itemsets {
				if fi.Length == itemsetsLen {
					kept = append(kept, fi)
				}
			}
			res.Itemsets = kept
		}
		if j.format == report.FormatMarkdown {
			return emit(cmd, j, []byte(rep.ItemsetsMarkdown()))
		}
		data, err := report.Encode(rep.ItemsetRows(), j.format)
		if err != nil {
			return err
		}
		return emit(cmd, j, data)
	},
}

var rulesCmd = &cobra.Command{
	Use:     "rules <file>",
	Short:   "List association rules",
	Example: `  basketloom rules Groceries_dataset.csv --sort-by lift --filter lift --min 1.0`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := rulesFlags.resolve(cmd)
		if err != nil {
			return err
		}
		var filterBy mining.Metric
		if rulesFilterBy != "" {
			if filterBy, err = mining.ParseMetric(rulesFilterBy); err != nil {
				return err
			}
		}
		rep, err := runMining(args[0], j, nil)
		if err != nil {
			return err
		}
		if filterBy != "" {
			res := rep.Result()
			if res.Rules, err = mining.FilterRules(res.Rules, filterBy, rulesFilterMin); err != nil {
				return err
			}
		}
		if j.format == report.FormatMarkdown {
			return emit(cmd, j, []byte(rep.RulesMarkdown()))
		}
		data, err := report.Encode(rep.RuleRows(), j.format)
		if err != nil {
			return err
		}
		return emit(cmd, j, data)
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items <file>",
	Short: "Show the most frequent items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := itemsFlags.resolve(cmd)
		if err != nil {
			return err
		}
		ds, s, err := openSession(args[0], j, nil)
		if err != nil {
			return err
		}
		// item counts come straight from the matrix; nothing is mined
		res := &mining.Result{
			Transactions: s.Matrix().Len(),
			Items:        len(s.Matrix().Items()),
			Options:      s.Options(),
			Frequencies:  s.ItemFrequencies(),
		}
		ro := j.report
		ro.Source = ds.Name
		rep := report.New(res, ro)
		if j.format == report.FormatMarkdown {
			return emit(cmd, j, []byte(rep.ItemsMarkdown()))
		}
		data, err := report.Encode(rep.ItemRows(), j.format)
		if err != nil {
			return err
		}
		return emit(cmd, j, data)
	},
}

func init() {
	itemsetsFlags.register(itemsetsCmd)
	itemsetsCmd.Flags().IntVar(&itemsetsLen, "length", 0, "only show itemsets of this length")

	rulesFlags.register(rulesCmd)
	rulesCmd.Flags().StringVar(&rulesFilterBy, "filter", "", "keep rules whose metric reaches --min (support|confidence|lift|leverage|conviction|zhangs_metric)")
	rulesCmd.Flags().Float64Var(&rulesFilterMin, "min", 0, "threshold for --filter")
	rulesCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("min") && rulesFilterBy == "" {
			return fmt.Errorf("--min requires --filter")
		}
		return nil
	}

	itemsFlags.register(itemsCmd)

	rootCmd.AddCommand(itemsetsCmd, rulesCmd, itemsCmd)
}

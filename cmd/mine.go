package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/basketloom-cli/internal/basket"
	"github.com/KaramelBytes/basketloom-cli/internal/logging"
	"github.com/KaramelBytes/basketloom-cli/internal/metrics"
	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/report"
	"github.com/KaramelBytes/basketloom-cli/internal/utils"
)

// miningFlags are shared by every command that mines a file. Values only
// override the configuration when the flag was set explicitly.
type miningFlags struct {
	minSupport    float64
	minConfidence float64
	maxLen        int
	workers       int
	sortBy        []string

	layout        string
	txCols        []string
	itemCol       string
	delimiter     string
	noHeader      bool
	caseSensitive bool
	maxRows       int
	sheet         string
	sheetIndex    int

	topItems    int
	topItemsets int
	topRules    int
	format      string
	output      string
	metricsFile string
}

func (mf *miningFlags) register(cmd *cobra.Command) {
	mo := mining.DefaultOptions()
	ro := report.DefaultOptions()
	f := cmd.Flags()
	f.Float64VarP(&mf.minSupport, "min-support", "s", mo.MinSupport, "minimum support as a fraction of transactions, in (0, 1]")
	f.Float64VarP(&mf.minConfidence, "min-confidence", "c", mo.MinConfidence, "minimum rule confidence, in [0, 1]")
	f.IntVar(&mf.maxLen, "max-len", 0, "maximum itemset length (0 = unlimited)")
	f.IntVar(&mf.workers, "workers", mo.Workers, "goroutines used to count candidate supports")
	f.StringSliceVar(&mf.sortBy, "sort-by", nil, "rule sort metrics, e.g. confidence,lift (support|confidence|lift|leverage|conviction|zhangs_metric)")

	f.StringVar(&mf.layout, "layout", "", "input layout: long (one row per item) or wide (one row per basket)")
	f.StringSliceVar(&mf.txCols, "tx-cols", nil, "columns that identify a transaction (long layout)")
	f.StringVar(&mf.itemCol, "item-col", "", "column holding the item label (long layout)")
	f.StringVar(&mf.delimiter, "delimiter", "", "CSV delimiter: , ; | or tab (default from extension)")
	f.BoolVar(&mf.noHeader, "no-header", false, "first row is data, not column names (wide layout)")
	f.BoolVar(&mf.caseSensitive, "case-sensitive", false, "keep item label case instead of lowercasing")
	f.IntVar(&mf.maxRows, "max-rows", 0, "maximum data rows to read (0 = all)")
	f.StringVar(&mf.sheet, "sheet", "", "XLSX sheet name")
	f.IntVar(&mf.sheetIndex, "sheet-index", 1, "XLSX sheet index (1-based) when --sheet is empty")

	f.IntVar(&mf.topItems, "top-items", ro.TopItems, "items shown in the frequency table (0 = all)")
	f.IntVar(&mf.topItemsets, "top-itemsets", ro.TopItemsets, "itemsets shown (0 = all)")
	f.IntVar(&mf.topRules, "top-rules", ro.TopRules, "rules shown (0 = all)")
	f.StringVar(&mf.format, "format", "", "output format: md|json|yaml")
	f.StringVarP(&mf.output, "output", "o", "", "write the report to this file instead of stdout")
	f.StringVar(&mf.metricsFile, "metrics-file", "", "write prometheus metrics in textfile format to this path")
}

// job is a fully resolved mining invocation.
type job struct {
	loader basket.Options
	mining mining.Options
	report report.Options
	format report.Format
	output string
}

func (mf *miningFlags) resolve(cmd *cobra.Command) (*job, error) {
	c, err := settings()
	if err != nil {
		return nil, err
	}
	lo, err := c.LoaderOptions()
	if err != nil {
		return nil, err
	}
	mo, err := c.MiningOptions()
	if err != nil {
		return nil, err
	}
	ro := c.ReportOptions()

	f := cmd.Flags()
	if f.Changed("min-support") {
		mo.MinSupport = mf.minSupport
	}
	if f.Changed("min-confidence") {
		mo.MinConfidence = mf.minConfidence
	}
	if f.Changed("max-len") {
		mo.MaxLen = mf.maxLen
	}
	if f.Changed("workers") {
		mo.Workers = mf.workers
	}
	if f.Changed("sort-by") {
		if mo.SortBy, err = mining.ParseMetrics(mf.sortBy); err != nil {
			return nil, err
		}
	}
	if err := mo.Validate(); err != nil {
		return nil, err
	}

	if f.Changed("layout") {
		if lo.Format, err = basket.ParseFormat(mf.layout); err != nil {
			return nil, err
		}
	}
	if f.Changed("tx-cols") {
		lo.TransactionCols = append([]string(nil), mf.txCols...)
	}
	if f.Changed("item-col") {
		lo.ItemCol = mf.itemCol
	}
	if f.Changed("delimiter") {
		if lo.Delimiter, err = basket.ParseDelimiter(mf.delimiter); err != nil {
			return nil, err
		}
	}
	if f.Changed("no-header") {
		lo.Header = !mf.noHeader
	}
	if f.Changed("case-sensitive") {
		lo.Lowercase = !mf.caseSensitive
	}
	lo.MaxRows = mf.maxRows
	lo.Sheet = mf.sheet
	lo.SheetIndex = mf.sheetIndex

	if f.Changed("top-items") {
		ro.TopItems = mf.topItems
	}
	if f.Changed("top-itemsets") {
		ro.TopItemsets = mf.topItemsets
	}
	if f.Changed("top-rules") {
		ro.TopRules = mf.topRules
	}

	format, err := report.ParseFormat(c.OutputFormat)
	if err != nil {
		return nil, err
	}
	if mf.output != "" {
		format = report.FormatFromPath(mf.output, format)
	}
	if f.Changed("format") {
		if format, err = report.ParseFormat(mf.format); err != nil {
			return nil, err
		}
	}
	return &job{loader: lo, mining: mo, report: ro, format: format, output: mf.output}, nil
}

// openSession loads path and binds a mining session to it.
func openSession(path string, j *job, obs mining.Observer) (*basket.Dataset, *mining.Session, error) {
	log := logging.WithComponent("loader")
	ds, err := basket.LoadFile(path, j.loader)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range ds.Warnings {
		log.Warn(w, "file", ds.Name)
	}
	log.Debug("dataset loaded", "file", ds.Name, "rows", ds.Rows, "transactions", len(ds.Transactions))
	m, err := ds.Matrix()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", ds.Name, err)
	}
	opts := []mining.MineOption{mining.WithLogger(logging.WithComponent("miner"))}
	if obs != nil {
		opts = append(opts, mining.WithObserver(obs))
	}
	s, err := mining.NewSession(m, j.mining, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ds, s, nil
}

// runMining executes one full session over path and wraps it in a report.
// met may be nil.
func runMining(path string, j *job, met *metrics.Metrics) (*report.Report, error) {
	var obs mining.Observer
	if met != nil {
		obs = met
	}
	ds, s, err := openSession(path, j, obs)
	if err != nil {
		if met != nil {
			met.ObserveFailure()
		}
		return nil, err
	}
	res, err := s.Run()
	if err != nil {
		if met != nil {
			met.ObserveFailure()
		}
		return nil, err
	}
	if met != nil {
		met.ObserveRun(res)
	}
	ro := j.report
	ro.Source = ds.Name
	ro.Warnings = ds.Warnings
	return report.New(res, ro), nil
}

// emit writes data to the job's output file, or to stdout.
func emit(cmd *cobra.Command, j *job, data []byte) error {
	if j.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := writeOutput(j.output, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", j.output)
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}

func writeMetrics(path string, met *metrics.Metrics) {
	if path == "" || met == nil {
		return
	}
	if err := met.WriteTextfile(path); err != nil {
		slog.Warn("write metrics failed", "path", path, "err", err)
	}
}

var mineFlags miningFlags

var mineCmd = &cobra.Command{
	Use:   "mine <file>",
	Short: "Mine frequent itemsets and association rules and print the full report",
	Example: `  basketloom mine Groceries_dataset.csv
  basketloom mine baskets.tsv --layout wide -s 0.01 -c 0.2 --format json -o out/report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := mineFlags.resolve(cmd)
		if err != nil {
			return err
		}
		met := metrics.New()
		rep, err := runMining(args[0], j, met)
		writeMetrics(mineFlags.metricsFile, met)
		if err != nil {
			return err
		}
		data, err := rep.Render(j.format)
		if err != nil {
			return err
		}
		return emit(cmd, j, data)
	},
}

func init() {
	mineFlags.register(mineCmd)
	rootCmd.AddCommand(mineCmd)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/basketloom-cli/internal/logging"
	"github.com/KaramelBytes/basketloom-cli/internal/metrics"
	"github.com/KaramelBytes/basketloom-cli/internal/utils"
)

// settleDelay batches bursts of write events from one save.
const settleDelay = 250 * time.Millisecond

var (
	watchFlags      miningFlags
	watchInterval   time.Duration
	watchIterations int
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-mine a file periodically and whenever it changes, rewriting the output",
	Long: `watch keeps a report file current. Every --interval, and shortly after the input file
is written, a fresh mining session runs and the output file is replaced atomically. A failed
run is logged and the previous output is kept. Stop with Ctrl-C.`,
	Example: `  basketloom watch Groceries_dataset.csv -o dashboard/report.json --interval 30s`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := watchFlags.resolve(cmd)
		if err != nil {
			return err
		}
		if j.output == "" {
			return errors.New("watch requires --output")
		}
		interval := watchInterval
		if !cmd.Flags().Changed("interval") {
			c, err := settings()
			if err != nil {
				return err
			}
			if interval, err = c.Interval(); err != nil {
				return err
			}
		}
		if interval <= 0 {
			return fmt.Errorf("interval must be positive, got %s", interval)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		w := &watcher{
			path:       args[0],
			job:        j,
			interval:   interval,
			iterations: watchIterations,
			metricsOut: watchFlags.metricsFile,
			met:        metrics.New(),
			out:        cmd,
		}
		return w.run(ctx)
	},
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "time between runs (default from config watch_interval)")
	watchCmd.Flags().IntVar(&watchIterations, "iterations", 0, "stop after this many runs (0 = until interrupted)")
	rootCmd.AddCommand(watchCmd)
}

type watcher struct {
	path       string
	job        *job
	interval   time.Duration
	iterations int
	metricsOut string
	met        *metrics.Metrics
	out        *cobra.Command

	runs int
	last utils.Fingerprint
}

func (w *watcher) run(ctx context.Context) error {
	log := logging.WithComponent("watch").With("file", w.path, "output", w.job.output)

	// the first run must succeed so bad input is reported immediately
	if err := w.once(); err != nil {
		return err
	}
	if w.done() {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()
	// watch the directory: editors often replace the file instead of writing it
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	target := filepath.Clean(w.path)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	var settle <-chan time.Time

	log.Info("watching", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped", "runs", w.runs)
			return nil
		case <-ticker.C:
			w.rerun(log, "interval")
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle = time.After(settleDelay)
			continue
		case <-settle:
			settle = nil
			fp, err := utils.Stat(w.path)
			if err == nil && fp.Same(w.last) {
				continue
			}
			w.rerun(log, "file changed")
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "err", err)
			continue
		}
		if w.done() {
			log.Info("watch finished", "runs", w.runs)
			return nil
		}
	}
}

func (w *watcher) rerun(log *slog.Logger, reason string) {
	if err := w.once(); err != nil {
		log.Error("mining run failed; keeping previous output", "reason", reason, "err", err)
	}
}

// once runs one session and replaces the output file.
func (w *watcher) once() error {
	w.runs++
	fp, statErr := utils.Stat(w.path)
	rep, err := runMining(w.path, w.job, w.met)
	writeMetrics(w.metricsOut, w.met)
	if err != nil {
		return err
	}
	if err := rep.Write(w.job.output, w.job.format); err != nil {
		return err
	}
	if statErr == nil {
		w.last = fp
	}
	res := rep.Result()
	fmt.Fprintf(w.out.OutOrStdout(), "✓ [%s] run %d: %d itemsets, %d rules -> %s\n",
		time.Now().Format(time.TimeOnly), w.runs, len(res.Itemsets), len(res.Rules), w.job.output)
	return nil
}

func (w *watcher) done() bool {
	return w.iterations > 0 && w.runs >= w.iterations
}

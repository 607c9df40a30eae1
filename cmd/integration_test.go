package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/report"
)

// resetFlags clears values and Changed state that persist on the shared
// command tree between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(fl *pflag.Flag) {
			if !fl.Changed {
				return
			}
			if sv, ok := fl.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = fl.Value.Set(fl.DefValue)
			}
			fl.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// groceriesFixture writes four baskets in the long layout:
// {milk, bread}, {bread, eggs}, {milk, bread, eggs}, {milk}.
func groceriesFixture(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "groceries.csv")
	data := "Member_number,Date,itemDescription\n" +
		"1,01-01-2015,milk\n1,01-01-2015,bread\n" +
		"2,01-01-2015,Bread\n2,01-01-2015,eggs\n" +
		"3,02-01-2015,milk\n3,02-01-2015,bread\n3,02-01-2015,eggs\n" +
		"4,02-01-2015,milk\n"
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestCLI_MineMarkdown(t *testing.T) {
	p := groceriesFixture(t)
	out := runCmd(t, "mine", p, "-s", "0.5", "-c", "0.5")

	for _, section := range []string{"[MINING SUMMARY]", "[TOP ITEMS]", "[ITEMSET LENGTHS]", "[FREQUENT ITEMSETS]", "[ASSOCIATION RULES]"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "File: groceries.csv")
	assert.Contains(t, out, "Transactions: 4")
	assert.Contains(t, out, "Frequent itemsets: 5")
	assert.Contains(t, out, "Rules: 4")
	assert.Contains(t, out, "| bread, eggs | 0.5000 | 2 | 2 |")
	assert.Contains(t, out, "| eggs | bread | 0.5000 | 1.0000 | 1.3333 | 0.1250 | inf |")
}

func TestCLI_MineJSONToFileWithMetrics(t *testing.T) {
	p := groceriesFixture(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out", "report.json")
	metricsPath := filepath.Join(dir, "basketloom.prom")

	out := runCmd(t, "mine", p, "-s", "0.5", "-c", "0.5", "-o", outPath, "--metrics-file", metricsPath)
	assert.Contains(t, out, "✓ Wrote "+outPath)

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc report.Document
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, "groceries.csv", doc.Source)
	assert.Equal(t, 4, doc.Transactions)
	assert.Equal(t, 5, doc.TotalItemsets)
	assert.Equal(t, 4, doc.TotalRules)
	require.Len(t, doc.Rules, 4)
	assert.Equal(t, []string{"eggs"}, doc.Rules[0].Antecedents)
	assert.Nil(t, doc.Rules[0].Conviction)
	require.NotNil(t, doc.Rules[1].Conviction)
	assert.Equal(t, []mining.LengthBucket{{Length: 1, Count: 3}, {Length: 2, Count: 2}}, doc.Lengths)

	m, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(m), `basketloom_runs_total{status="ok"} 1`)
	assert.Contains(t, string(m), "basketloom_rules 4")
}

func TestCLI_MineYAMLStdout(t *testing.T) {
	p := groceriesFixture(t)
	out := runCmd(t, "mine", p, "-s", "0.5", "--format", "yaml")
	assert.Contains(t, out, "frequent_itemsets:")
	assert.Contains(t, out, "itemset_length: 2")
}

func TestCLI_MineRejectsInvalidThresholds(t *testing.T) {
	p := groceriesFixture(t)
	_, err := execute("mine", p, "-s", "0")
	assert.ErrorIs(t, err, mining.ErrInvalidParameter)

	_, err = execute("mine", p, "-c", "1.5")
	assert.ErrorIs(t, err, mining.ErrInvalidParameter)

	_, err = execute("mine", p, "--sort-by", "weight")
	assert.ErrorIs(t, err, mining.ErrInvalidParameter)
}

func TestCLI_MineMissingColumn(t *testing.T) {
	p := groceriesFixture(t)
	_, err := execute("mine", p, "--item-col", "product")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "product" not found`)
}

func TestCLI_Views(t *testing.T) {
	p := groceriesFixture(t)

	out := runCmd(t, "itemsets", p, "-s", "0.5", "--length", "2", "--format", "json")
	var sets []report.ItemsetRow
	require.NoError(t, json.Unmarshal([]byte(out), &sets))
	require.Len(t, sets, 2)
	assert.Equal(t, []string{"bread", "eggs"}, sets[0].Itemsets)
	assert.Equal(t, []string{"bread", "milk"}, sets[1].Itemsets)

	out = runCmd(t, "rules", p, "-s", "0.5", "-c", "0.5", "--filter", "lift", "--min", "1", "--format", "json")
	var rules []report.RuleRow
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.Len(t, rules, 2)
	for _, r := range rules {
		assert.Greater(t, r.Lift, 1.0)
	}

	out = runCmd(t, "items", p, "--top-items", "2")
	assert.Contains(t, out, "1. bread: 3")
	assert.Contains(t, out, "2. milk: 3")
	assert.NotContains(t, out, "eggs")
	assert.NotContains(t, out, "[ASSOCIATION RULES]")
}

func TestCLI_RulesMinRequiresFilter(t *testing.T) {
	p := groceriesFixture(t)
	_, err := execute("rules", p, "--min", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--min requires --filter")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	p := groceriesFixture(t)

	runCmd(t, "config", "set", "min_support", "0.5")
	runCmd(t, "config", "set", "sort_by", "lift,confidence")
	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "min_support: 0.5\n")
	assert.Contains(t, out, "sort_by: lift,confidence\n")

	// thresholds now come from the saved config
	out = runCmd(t, "itemsets", p, "--format", "json")
	var sets []report.ItemsetRow
	require.NoError(t, json.Unmarshal([]byte(out), &sets))
	assert.Len(t, sets, 5)

	_, err := execute("config", "set", "min_support", "2")
	assert.Error(t, err)
	_, err = execute("config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestCLI_WatchIterations(t *testing.T) {
	p := groceriesFixture(t)
	outPath := filepath.Join(t.TempDir(), "report.md")

	out := runCmd(t, "watch", p, "-s", "0.5", "-o", outPath, "--interval", "20ms", "--iterations", "2")
	assert.Contains(t, out, "run 1:")
	assert.Contains(t, out, "run 2:")

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "[MINING SUMMARY]"))
}

func TestCLI_WatchRequiresOutput(t *testing.T) {
	p := groceriesFixture(t)
	_, err := execute("watch", p, "--iterations", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --output")
}

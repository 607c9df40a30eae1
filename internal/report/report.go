// Package report renders mining results for people (Markdown) and for
// dashboards (JSON/YAML rows).
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

// Options limits how many rows each section shows; 0 means all.
type Options struct {
	TopItems    int
	TopItemsets int
	TopRules    int
	// Source names the input file in the summary.
	Source string
	// Warnings from loading are carried into the notes section.
	Warnings []string
}

// DefaultOptions shows the ten most frequent items, as the dashboard did,
// and the first fifty itemsets and rules.
func DefaultOptions() Options {
	return Options{TopItems: 10, TopItemsets: 50, TopRules: 50}
}

// Report wraps one mining result.
type Report struct {
	res *mining.Result
	opt Options
}

// New returns a report over res.
func New(res *mining.Result, opt Options) *Report {
	return &Report{res: res, opt: opt}
}

// Result returns the wrapped result.
func (r *Report) Result() *mining.Result { return r.res }

// ItemsetRow is one frequent itemset in exported form.
type ItemsetRow struct {
	Itemsets []string `json:"itemsets" yaml:"itemsets"`
	Support  float64  `json:"support" yaml:"support"`
	Count    int      `json:"count" yaml:"count"`
	Length   int      `json:"itemset_length" yaml:"itemset_length"`
}

// RuleRow is one association rule in exported form. Conviction is nil when
// infinite (confidence 1).
type RuleRow struct {
	Antecedents       []string `json:"antecedents" yaml:"antecedents"`
	Consequents       []string `json:"consequents" yaml:"consequents"`
	AntecedentSupport float64  `json:"antecedent_support" yaml:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support" yaml:"consequent_support"`
	Support           float64  `json:"support" yaml:"support"`
	Confidence        float64  `json:"confidence" yaml:"confidence"`
	Lift              float64  `json:"lift" yaml:"lift"`
	Leverage          float64  `json:"leverage" yaml:"leverage"`
	Conviction        *float64 `json:"conviction" yaml:"conviction"`
	ZhangsMetric      float64  `json:"zhangs_metric" yaml:"zhangs_metric"`
}

// ItemRow is one entry of the item frequency table.
type ItemRow struct {
	Item    string  `json:"item" yaml:"item"`
	Count   int     `json:"count" yaml:"count"`
	Support float64 `json:"support" yaml:"support"`
}

// ItemsetRows converts up to TopItemsets itemsets.
func (r *Report) ItemsetRows() []ItemsetRow {
	src := head(r.res.Itemsets, r.opt.TopItemsets)
	out := make([]ItemsetRow, 0, len(src))
	for _, fi := range src {
		out = append(out, ItemsetRow{
			Itemsets: fi.Items.Strings(),
			Support:  fi.Support,
			Count:    fi.Count,
			Length:   fi.Length,
		})
	}
	return out
}

// RuleRows converts up to TopRules rules.
func (r *Report) RuleRows() []RuleRow {
	src := head(r.res.Rules, r.opt.TopRules)
	out := make([]RuleRow, 0, len(src))
	for _, ar := range src {
		row := RuleRow{
			Antecedents:       ar.Antecedent.Strings(),
			Consequents:       ar.Consequent.Strings(),
			AntecedentSupport: ar.AntecedentSupport,
			ConsequentSupport: ar.ConsequentSupport,
			Support:           ar.Support,
			Confidence:        ar.Confidence,
			Lift:              ar.Lift,
			Leverage:          ar.Leverage,
			ZhangsMetric:      ar.ZhangsMetric,
		}
		if !math.IsInf(ar.Conviction, 0) && !math.IsNaN(ar.Conviction) {
			c := ar.Conviction
			row.Conviction = &c
		}
		out = append(out, row)
	}
	return out
}

// ItemRows converts up to TopItems item frequencies.
func (r *Report) ItemRows() []ItemRow {
	src := head(r.res.Frequencies, r.opt.TopItems)
	out := make([]ItemRow, 0, len(src))
	for _, f := range src {
		out = append(out, ItemRow{Item: string(f.Item), Count: f.Count, Support: f.Support})
	}
	return out
}

func head[T any](s []T, n int) []T {
	if n > 0 && n < len(s) {
		return s[:n]
	}
	return s
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

func joinItems(items []string) string {
	if len(items) == 0 {
		return "(empty)"
	}
	vals := make([]string, len(items))
	for i, it := range items {
		vals[i] = safeVal(it)
	}
	return strings.Join(vals, ", ")
}

func fmtConviction(c *float64) string {
	if c == nil {
		return "inf"
	}
	return fmt.Sprintf("%.4f", *c)
}

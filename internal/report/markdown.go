package report

import (
	"fmt"
	"strings"
)

// Markdown renders every section.
func (r *Report) Markdown() string {
	var b strings.Builder
	r.writeSummary(&b)
	r.writeItems(&b)
	r.writeLengths(&b)
	r.writeItemsets(&b)
	r.writeRules(&b)
	r.writeNotes(&b)
	return b.String()
}

// ItemsMarkdown renders only the item frequency table.
func (r *Report) ItemsMarkdown() string {
	var b strings.Builder
	r.writeItems(&b)
	return b.String()
}

// ItemsetsMarkdown renders only the frequent itemsets.
func (r *Report) ItemsetsMarkdown() string {
	var b strings.Builder
	r.writeItemsets(&b)
	return b.String()
}

// RulesMarkdown renders only the association rules.
func (r *Report) RulesMarkdown() string {
	var b strings.Builder
	r.writeRules(&b)
	return b.String()
}

func (r *Report) writeSummary(b *strings.Builder) {
	res := r.res
	b.WriteString("[MINING SUMMARY]\n")
	if r.opt.Source != "" {
		fmt.Fprintf(b, "File: %s\n", r.opt.Source)
	}
	if res.RunID != "" {
		fmt.Fprintf(b, "Run: %s\n", res.RunID)
	}
	fmt.Fprintf(b, "Transactions: %d\n", res.Transactions)
	fmt.Fprintf(b, "Distinct items: %d\n", res.Items)
	fmt.Fprintf(b, "Min support: %g (%s)\n", res.Options.MinSupport, minCountNote(res.Options.MinSupport, res.Transactions))
	fmt.Fprintf(b, "Min confidence: %g\n", res.Options.MinConfidence)
	if res.Options.MaxLen > 0 {
		fmt.Fprintf(b, "Max itemset length: %d\n", res.Options.MaxLen)
	}
	if len(res.Options.SortBy) > 0 {
		keys := make([]string, len(res.Options.SortBy))
		for i, m := range res.Options.SortBy {
			keys[i] = string(m)
		}
		fmt.Fprintf(b, "Rules sorted by: %s\n", strings.Join(keys, ", "))
	}
	fmt.Fprintf(b, "Frequent itemsets: %d\n", len(res.Itemsets))
	fmt.Fprintf(b, "Rules: %d\n\n", len(res.Rules))
}

func minCountNote(support float64, n int) string {
	if n <= 0 {
		return "no transactions"
	}
	return fmt.Sprintf("~%.1f of %d transactions", support*float64(n), n)
}

func (r *Report) writeItems(b *strings.Builder) {
	rows := r.ItemRows()
	if r.opt.TopItems > 0 {
		fmt.Fprintf(b, "[TOP ITEMS] (top %d)\n", r.opt.TopItems)
	} else {
		b.WriteString("[TOP ITEMS]\n")
	}
	if len(rows) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for i, it := range rows {
		fmt.Fprintf(b, "%d. %s: %d (support %.4f)\n", i+1, safeVal(it.Item), it.Count, it.Support)
	}
	b.WriteString("\n")
}

func (r *Report) writeLengths(b *strings.Builder) {
	b.WriteString("[ITEMSET LENGTHS]\n")
	if len(r.res.LengthHistogram) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	for _, lb := range r.res.LengthHistogram {
		fmt.Fprintf(b, "- length %d: %d\n", lb.Length, lb.Count)
	}
	b.WriteString("\n")
}

func (r *Report) writeItemsets(b *strings.Builder) {
	rows := r.ItemsetRows()
	b.WriteString("[FREQUENT ITEMSETS]\n")
	if len(rows) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	b.WriteString("| itemsets | support | count | length |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %.4f | %d | %d |\n", joinItems(row.Itemsets), row.Support, row.Count, row.Length)
	}
	if total := len(r.res.Itemsets); total > len(rows) {
		fmt.Fprintf(b, "(showing %d of %d)\n", len(rows), total)
	}
	b.WriteString("\n")
}

func (r *Report) writeRules(b *strings.Builder) {
	rows := r.RuleRows()
	b.WriteString("[ASSOCIATION RULES]\n")
	if len(rows) == 0 {
		b.WriteString("(none)\n\n")
		return
	}
	b.WriteString("| antecedents | consequents | support | confidence | lift | leverage | conviction |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s | %.4f | %.4f | %.4f | %.4f | %s |\n",
			joinItems(row.Antecedents), joinItems(row.Consequents),
			row.Support, row.Confidence, row.Lift, row.Leverage, fmtConviction(row.Conviction))
	}
	if total := len(r.res.Rules); total > len(rows) {
		fmt.Fprintf(b, "(showing %d of %d)\n", len(rows), total)
	}
	b.WriteString("\n")
}

func (r *Report) writeNotes(b *strings.Builder) {
	var notes []string
	notes = append(notes, r.opt.Warnings...)
	if len(r.res.Itemsets) == 0 {
		notes = append(notes, "no itemset reaches the minimum support; try lowering --min-support")
	} else if len(r.res.Rules) == 0 {
		notes = append(notes, "no rule reaches the minimum confidence; try lowering --min-confidence")
	}
	if len(notes) == 0 {
		return
	}
	b.WriteString("[NOTES]\n")
	for _, n := range notes {
		fmt.Fprintf(b, "- %s\n", n)
	}
}

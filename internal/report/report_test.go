package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

func groceriesResult(t *testing.T, minSupport, minConfidence float64) *mining.Result {
	t.Helper()
	m, err := mining.NewTransactionMatrix([][]mining.Item{
		{"milk", "bread"},
		{"bread", "eggs"},
		{"milk", "bread", "eggs"},
		{"milk"},
	})
	require.NoError(t, err)
	opts := mining.DefaultOptions()
	opts.MinSupport = minSupport
	opts.MinConfidence = minConfidence
	s, err := mining.NewSession(m, opts)
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	return res
}

func TestMarkdownSections(t *testing.T) {
	opt := DefaultOptions()
	opt.Source = "groceries.csv"
	opt.Warnings = []string{"skipped 1 rows with an empty itemDescription"}
	md := New(groceriesResult(t, 0.5, 0.5), opt).Markdown()

	order := []string{"[MINING SUMMARY]", "[TOP ITEMS]", "[ITEMSET LENGTHS]", "[FREQUENT ITEMSETS]", "[ASSOCIATION RULES]", "[NOTES]"}
	last := -1
	for _, s := range order {
		i := strings.Index(md, s)
		require.GreaterOrEqual(t, i, 0, "missing %s", s)
		assert.Greater(t, i, last, "%s out of order", s)
		last = i
	}
	assert.Contains(t, md, "File: groceries.csv\n")
	assert.Contains(t, md, "Min support: 0.5 (~2.0 of 4 transactions)\n")
	assert.Contains(t, md, "Rules sorted by: confidence, lift\n")
	assert.Contains(t, md, "1. bread: 3 (support 0.7500)\n")
	assert.Contains(t, md, "- length 2: 2\n")
	assert.Contains(t, md, "| milk | bread | 0.5000 | 0.6667 | 0.8889 | -0.0625 | 0.7500 |\n")
	assert.Contains(t, md, "- skipped 1 rows with an empty itemDescription\n")
}

func TestMarkdownEmptyResult(t *testing.T) {
	md := New(groceriesResult(t, 1, 0.5), DefaultOptions()).Markdown()
	assert.Contains(t, md, "[FREQUENT ITEMSETS]\n(none)\n")
	assert.Contains(t, md, "[ASSOCIATION RULES]\n(none)\n")
	assert.Contains(t, md, "no itemset reaches the minimum support")
}

func TestMarkdownLimits(t *testing.T) {
	r := New(groceriesResult(t, 0.25, 0), Options{TopItems: 1, TopItemsets: 2, TopRules: 3})
	md := r.Markdown()
	assert.Contains(t, md, "[TOP ITEMS] (top 1)\n1. bread: 3")
	assert.NotContains(t, md, "2. milk")
	assert.Contains(t, md, "(showing 2 of ")
	assert.Contains(t, md, "(showing 3 of ")
	assert.Len(t, r.ItemsetRows(), 2)
	assert.Len(t, r.RuleRows(), 3)

	only := r.RulesMarkdown()
	assert.True(t, strings.HasPrefix(only, "[ASSOCIATION RULES]"))
	assert.NotContains(t, only, "[MINING SUMMARY]")
}

func TestJSONDocument(t *testing.T) {
	r := New(groceriesResult(t, 0.5, 0.5), Options{Source: "g.csv"})
	b, err := r.Render(FormatJSON)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	rules := raw["rules"].([]any)
	require.Len(t, rules, 4)
	first := rules[0].(map[string]any)
	assert.Equal(t, []any{"eggs"}, first["antecedents"])
	assert.Nil(t, first["conviction"], "infinite conviction encodes as null")
	assert.Equal(t, 1.0, first["confidence"])

	itemsets := raw["frequent_itemsets"].([]any)
	require.Len(t, itemsets, 5)
	assert.Equal(t, 2.0, itemsets[4].(map[string]any)["itemset_length"])
	assert.Equal(t, "g.csv", raw["source"])
}

func TestYAMLDocument(t *testing.T) {
	r := New(groceriesResult(t, 0.5, 0.5), DefaultOptions())
	b, err := r.Render(FormatYAML)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, yaml.Unmarshal(b, &doc))
	assert.Equal(t, 5, doc.TotalItemsets)
	assert.Equal(t, 4, doc.TotalRules)
	require.NotEmpty(t, doc.TopItems)
	assert.Equal(t, ItemRow{Item: "bread", Count: 3, Support: 0.75}, doc.TopItems[0])
	assert.Nil(t, doc.Rules[0].Conviction)
}

func TestWriteAtomically(t *testing.T) {
	r := New(groceriesResult(t, 0.5, 0.5), DefaultOptions())
	p := filepath.Join(t.TempDir(), "reports", "latest.md")
	require.NoError(t, r.Write(p, FormatMarkdown))
	require.NoError(t, r.Write(p, FormatMarkdown))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown(), string(b))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "Markdown": FormatMarkdown, "json": FormatJSON, "YML": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)

	assert.Equal(t, FormatJSON, FormatFromPath("out/report.JSON", FormatMarkdown))
	assert.Equal(t, FormatYAML, FormatFromPath("r.yml", FormatMarkdown))
	assert.Equal(t, FormatJSON, FormatFromPath("report.txt", FormatJSON))

	_, err = Encode(struct{}{}, FormatMarkdown)
	assert.Error(t, err)
}

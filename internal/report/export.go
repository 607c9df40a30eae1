package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
	"github.com/KaramelBytes/basketloom-cli/internal/utils"
)

// Format is an output encoding.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat resolves a format name; "" means Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format: %s (use md|json|yaml)", s)
}

// FormatFromPath picks a format from a file extension, falling back to def.
func FormatFromPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return def
}

// Document is the exported form of a report.
type Document struct {
	RunID         string                `json:"run_id" yaml:"run_id"`
	Source        string                `json:"source,omitempty" yaml:"source,omitempty"`
	GeneratedAt   time.Time             `json:"generated_at" yaml:"generated_at"`
	DurationMS    int64                 `json:"duration_ms" yaml:"duration_ms"`
	Transactions  int                   `json:"transactions" yaml:"transactions"`
	Items         int                   `json:"items" yaml:"items"`
	Options       mining.Options        `json:"options" yaml:"options"`
	TopItems      []ItemRow             `json:"top_items" yaml:"top_items"`
	Lengths       []mining.LengthBucket `json:"itemset_lengths" yaml:"itemset_lengths"`
	Itemsets      []ItemsetRow          `json:"frequent_itemsets" yaml:"frequent_itemsets"`
	TotalItemsets int                   `json:"total_itemsets" yaml:"total_itemsets"`
	Rules         []RuleRow             `json:"rules" yaml:"rules"`
	TotalRules    int                   `json:"total_rules" yaml:"total_rules"`
	Warnings      []string              `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Document builds the export document.
func (r *Report) Document() Document {
	lengths := r.res.LengthHistogram
	if lengths == nil {
		lengths = []mining.LengthBucket{}
	}
	return Document{
		RunID:         r.res.RunID,
		Source:        r.opt.Source,
		GeneratedAt:   r.res.StartedAt.UTC(),
		DurationMS:    r.res.Duration.Milliseconds(),
		Transactions:  r.res.Transactions,
		Items:         r.res.Items,
		Options:       r.res.Options,
		TopItems:      r.ItemRows(),
		Lengths:       lengths,
		Itemsets:      r.ItemsetRows(),
		TotalItemsets: len(r.res.Itemsets),
		Rules:         r.RuleRows(),
		TotalRules:    len(r.res.Rules),
		Warnings:      r.opt.Warnings,
	}
}

// Render encodes the full report.
func (r *Report) Render(f Format) ([]byte, error) {
	if f == FormatMarkdown || f == "" {
		return []byte(r.Markdown()), nil
	}
	return Encode(r.Document(), f)
}

// Encode marshals v as JSON or YAML.
func Encode(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot encode %s", f)
}

// Write renders the report and replaces path atomically.
func (r *Report) Write(path string, f Format) error {
	data, err := r.Render(f)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}

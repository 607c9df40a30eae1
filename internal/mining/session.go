package mining

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Options are the tunable parameters of a mining session.
type Options struct {
	// MinSupport is a fraction of transactions in (0, 1].
	MinSupport float64 `json:"min_support" yaml:"min_support"`
	// MinConfidence is a fraction in [0, 1].
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	// MaxLen caps itemset length; 0 means unlimited.
	MaxLen int `json:"max_len,omitempty" yaml:"max_len,omitempty"`
	// Workers shards support counting; values below 2 count sequentially.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// SortBy orders the rules; empty means confidence then lift.
	SortBy []Metric `json:"sort_by,omitempty" yaml:"sort_by,omitempty"`
}

// DefaultOptions mirrors the thresholds used on the groceries dataset.
func DefaultOptions() Options {
	return Options{
		MinSupport:    0.003,
		MinConfidence: 0.05,
		Workers:       1,
		SortBy:        append([]Metric(nil), DefaultSort...),
	}
}

// Validate checks every threshold and option.
func (o Options) Validate() error {
	if math.IsNaN(o.MinSupport) || o.MinSupport <= 0 || o.MinSupport > 1 {
		return fmt.Errorf("%w: min support %v outside (0, 1]", ErrInvalidParameter, o.MinSupport)
	}
	if math.IsNaN(o.MinConfidence) || o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %v outside [0, 1]", ErrInvalidParameter, o.MinConfidence)
	}
	if o.MaxLen < 0 {
		return fmt.Errorf("%w: max length %d is negative", ErrInvalidParameter, o.MaxLen)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidParameter, o.Workers)
	}
	for _, m := range o.SortBy {
		if _, err := ParseMetric(string(m)); err != nil {
			return err
		}
	}
	return nil
}

// ItemFrequency is the number of transactions containing a single item.
type ItemFrequency struct {
	Item    Item    `json:"item" yaml:"item"`
	Count   int     `json:"count" yaml:"count"`
	Support float64 `json:"support" yaml:"support"`
}

// LengthBucket counts frequent itemsets of one length.
type LengthBucket struct {
	Length int `json:"itemset_length" yaml:"itemset_length"`
	Count  int `json:"count" yaml:"count"`
}

// Result is the complete output of one session run.
type Result struct {
	RunID           string            `json:"run_id" yaml:"run_id"`
	Transactions    int               `json:"transactions" yaml:"transactions"`
	Items           int               `json:"items" yaml:"items"`
	Options         Options           `json:"options" yaml:"options"`
	Itemsets        []FrequentItemset `json:"frequent_itemsets" yaml:"frequent_itemsets"`
	Rules           []AssociationRule `json:"rules" yaml:"rules"`
	Frequencies     []ItemFrequency   `json:"item_frequencies" yaml:"item_frequencies"`
	LengthHistogram []LengthBucket    `json:"itemset_lengths" yaml:"itemset_lengths"`
	StartedAt       time.Time         `json:"started_at" yaml:"started_at"`
	Duration        time.Duration     `json:"duration" yaml:"duration"`
}

// Session owns a transaction matrix and its mining configuration. Every
// method returns freshly built results; a session holds no state between
// calls, so periodic callers simply call Run again.
type Session struct {
	matrix *TransactionMatrix
	opts   Options
	extra  []MineOption
	logger *slog.Logger
}

// NewSession validates opts and binds them to m. Extra options (logger,
// observer) are forwarded to Mine; MaxLen and Workers always come from opts.
func NewSession(m *TransactionMatrix, opts Options, extra ...MineOption) (*Session, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil transaction matrix", ErrInvalidInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.SortBy) == 0 {
		opts.SortBy = append([]Metric(nil), DefaultSort...)
	}
	cfg := mineConfig{}
	for _, o := range extra {
		o(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{matrix: m, opts: opts, extra: extra, logger: logger}, nil
}

// Options returns the session's effective options.
func (s *Session) Options() Options { return s.opts }

// Matrix returns the session's transaction matrix.
func (s *Session) Matrix() *TransactionMatrix { return s.matrix }

// Mine returns the frequent itemsets at the session's minimum support.
func (s *Session) Mine() ([]FrequentItemset, error) {
	opts := append(append([]MineOption(nil), s.extra...), WithMaxLen(s.opts.MaxLen), WithWorkers(s.opts.Workers))
	return Mine(s.matrix, s.opts.MinSupport, opts...)
}

// GenerateRules derives rules from itemsets at the session's minimum
// confidence and orders them by the session's sort metrics.
func (s *Session) GenerateRules(itemsets []FrequentItemset) ([]AssociationRule, error) {
	rules, err := generateRules(itemsets, s.opts.MinConfidence)
	if err != nil {
		return nil, err
	}
	SortRules(rules, s.opts.SortBy...)
	return rules, nil
}

// ItemFrequencies counts every distinct item over the raw matrix, most
// frequent first, ties by item.
func (s *Session) ItemFrequencies() []ItemFrequency {
	m := s.matrix
	out := make([]ItemFrequency, len(m.items))
	for i, it := range m.items {
		c := m.cols[i].count()
		out[i] = ItemFrequency{Item: it, Count: c, Support: float64(c) / float64(m.n)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Item < out[j].Item
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// Run mines itemsets, derives rules and item frequencies, and stamps the
// result with a fresh run ID. Nothing is returned on failure.
func (s *Session) Run() (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.With("run_id", runID)

	itemsets, err := s.Mine()
	if err != nil {
		return nil, fmt.Errorf("mine itemsets: %w", err)
	}
	rules, err := s.GenerateRules(itemsets)
	if err != nil {
		return nil, fmt.Errorf("generate rules: %w", err)
	}
	res := &Result{
		RunID:           runID,
		Transactions:    s.matrix.Len(),
		Items:           len(s.matrix.items),
		Options:         s.opts,
		Itemsets:        itemsets,
		Rules:           rules,
		Frequencies:     s.ItemFrequencies(),
		LengthHistogram: LengthHistogram(itemsets),
		StartedAt:       start,
		Duration:        time.Since(start),
	}
	log.Info("mining run complete",
		"transactions", res.Transactions,
		"items", res.Items,
		"itemsets", len(itemsets),
		"rules", len(rules),
		"duration", res.Duration,
	)
	return res, nil
}

// LengthHistogram counts itemsets per length, shortest first.
func LengthHistogram(itemsets []FrequentItemset) []LengthBucket {
	counts := map[int]int{}
	for _, fi := range itemsets {
		counts[fi.Length]++
	}
	out := make([]LengthBucket, 0, len(counts))
	for l, c := range counts {
		out = append(out, LengthBucket{Length: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Length < out[j].Length })
	return out
}

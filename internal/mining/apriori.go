package mining

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// FrequentItemset is an itemset whose support meets the mining threshold.
type FrequentItemset struct {
	Items   Itemset `json:"itemsets" yaml:"itemsets"`
	Support float64 `json:"support" yaml:"support"`
	// Count is the number of transactions containing Items.
	Count int `json:"count" yaml:"count"`
	// Length is |Items|, carried for length histograms.
	Length int `json:"itemset_length" yaml:"itemset_length"`
}

// LevelStats summarizes one level of the level-wise search.
type LevelStats struct {
	Level      int
	Candidates int // generated by the join step
	Pruned     int // dropped because a (k-1)-subset was infrequent
	Counted    int // support-counted against the matrix
	Frequent   int
}

// Observer receives per-level statistics while mining.
type Observer interface {
	ObserveLevel(LevelStats)
}

// supportEpsilon absorbs float error in minSupport*N before rounding up to
// the minimum transaction count.
const supportEpsilon = 1e-9

// parallelThreshold is the smallest candidate batch worth sharding.
const parallelThreshold = 64

type mineConfig struct {
	maxLen   int
	workers  int
	logger   *slog.Logger
	observer Observer
}

// MineOption configures Mine.
type MineOption func(*mineConfig)

// WithMaxLen caps the itemset length; 0 means unlimited.
func WithMaxLen(n int) MineOption { return func(c *mineConfig) { c.maxLen = n } }

// WithWorkers shards support counting across n goroutines. Output is
// identical for any n.
func WithWorkers(n int) MineOption { return func(c *mineConfig) { c.workers = n } }

// WithLogger sets the logger used for per-level debug output.
func WithLogger(l *slog.Logger) MineOption { return func(c *mineConfig) { c.logger = l } }

// WithObserver registers an observer for per-level statistics.
func WithObserver(o Observer) MineOption { return func(c *mineConfig) { c.observer = o } }

// candidate is an itemset in column-index space. Column indexes follow the
// canonical item order, so sorting by index sorts by label.
type candidate struct {
	cols  []int
	count int
}

// Mine runs the Apriori level-wise search over m and returns every itemset
// whose support is at least minSupport, ordered by length and then
// lexicographically by item.
//
// Supports are compared on exact counts: an itemset is frequent when its
// count reaches ceil(minSupport*N), so the result does not depend on float
// rounding of count/N.
func Mine(m *TransactionMatrix, minSupport float64, opts ...MineOption) ([]FrequentItemset, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil transaction matrix", ErrInvalidInput)
	}
	if math.IsNaN(minSupport) || minSupport <= 0 || minSupport > 1 {
		return nil, fmt.Errorf("%w: min support %v outside (0, 1]", ErrInvalidParameter, minSupport)
	}
	cfg := mineConfig{workers: 1}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxLen < 0 {
		return nil, fmt.Errorf("%w: max length %d is negative", ErrInvalidParameter, cfg.maxLen)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	minCount := int(math.Ceil(minSupport*float64(m.n) - supportEpsilon))
	if minCount < 1 {
		minCount = 1
	}

	// Level 1
	level := make([]candidate, 0, len(m.items))
	for i := range m.items {
		if c := m.cols[i].count(); c >= minCount {
			level = append(level, candidate{cols: []int{i}, count: c})
		}
	}
	cfg.report(LevelStats{Level: 1, Candidates: len(m.items), Counted: len(m.items), Frequent: len(level)})

	var out []FrequentItemset
	for k := 2; len(level) > 0; k++ {
		out = appendFrequent(out, m, level)
		if cfg.maxLen > 0 && k > cfg.maxLen {
			break
		}
		cands, generated := joinAndPrune(level)
		if err := countSupports(m, cands, cfg.workers); err != nil {
			return nil, err
		}
		next := cands[:0]
		for _, c := range cands {
			if c.count >= minCount {
				next = append(next, c)
			}
		}
		cfg.report(LevelStats{
			Level:      k,
			Candidates: generated,
			Pruned:     generated - len(cands),
			Counted:    len(cands),
			Frequent:   len(next),
		})
		level = next
	}
	if out == nil {
		out = []FrequentItemset{}
	}
	return out, nil
}

func (c *mineConfig) report(st LevelStats) {
	c.logger.Debug("apriori level",
		"level", st.Level,
		"candidates", st.Candidates,
		"pruned", st.Pruned,
		"frequent", st.Frequent,
	)
	if c.observer != nil {
		c.observer.ObserveLevel(st)
	}
}

func appendFrequent(out []FrequentItemset, m *TransactionMatrix, level []candidate) []FrequentItemset {
	for _, c := range level {
		items := make(Itemset, len(c.cols))
		for i, col := range c.cols {
			items[i] = m.items[col]
		}
		out = append(out, FrequentItemset{
			Items:   items,
			Support: float64(c.count) / float64(m.n),
			Count:   c.count,
			Length:  len(items),
		})
	}
	return out
}

// joinAndPrune builds the size-k candidates from the sorted, frequent
// size-(k-1) level. Two itemsets are joined when they share their first k-2
// items; since the level is sorted, such itemsets are adjacent, and joining
// i<j once produces each candidate exactly once and in sorted order. A
// candidate survives only if every (k-1)-subset is in the level. It returns
// the survivors and the number generated before pruning.
func joinAndPrune(level []candidate) ([]candidate, int) {
	if len(level) < 2 {
		return nil, 0
	}
	prev := make(map[string]struct{}, len(level))
	for _, c := range level {
		prev[colsKey(c.cols, -1)] = struct{}{}
	}
	k := len(level[0].cols) + 1
	var (
		out       []candidate
		generated int
	)
	for i := 0; i < len(level); i++ {
		a := level[i].cols
		for j := i + 1; j < len(level); j++ {
			b := level[j].cols
			if !samePrefix(a, b, k-2) {
				break
			}
			generated++
			cols := make([]int, k)
			copy(cols, a)
			cols[k-1] = b[k-2]
			if hasInfrequentSubset(cols, prev) {
				continue
			}
			out = append(out, candidate{cols: cols})
		}
	}
	return out, generated
}

func samePrefix(a, b []int, n int) bool {
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasInfrequentSubset checks the (k-1)-subsets of cols. Dropping either of
// the last two items yields a join parent, which is frequent by construction.
func hasInfrequentSubset(cols []int, prev map[string]struct{}) bool {
	for skip := 0; skip < len(cols)-2; skip++ {
		if _, ok := prev[colsKey(cols, skip)]; !ok {
			return true
		}
	}
	return false
}

// colsKey encodes cols, leaving out position skip (-1 keeps all).
func colsKey(cols []int, skip int) string {
	buf := make([]byte, 0, len(cols)*2)
	for i, c := range cols {
		if i == skip {
			continue
		}
		buf = binary.AppendUvarint(buf, uint64(c))
	}
	return string(buf)
}

// countSupports fills in count for every candidate. Each worker owns a
// contiguous slice of cands, so the result is independent of scheduling.
func countSupports(m *TransactionMatrix, cands []candidate, workers int) error {
	if workers <= 1 || len(cands) < parallelThreshold {
		for i := range cands {
			cands[i].count = m.countColumns(cands[i].cols)
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (len(cands) + workers - 1) / workers
	for start := 0; start < len(cands); start += chunk {
		part := cands[start:min(start+chunk, len(cands))]
		g.Go(func() error {
			for i := range part {
				part[i].count = m.countColumns(part[i].cols)
			}
			return nil
		})
	}
	return g.Wait()
}

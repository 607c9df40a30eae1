package mining

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// AssociationRule is a directional rule Antecedent -> Consequent derived from
// a frequent itemset.
type AssociationRule struct {
	Antecedent        Itemset `json:"antecedents" yaml:"antecedents"`
	Consequent        Itemset `json:"consequents" yaml:"consequents"`
	AntecedentSupport float64 `json:"antecedent_support" yaml:"antecedent_support"`
	ConsequentSupport float64 `json:"consequent_support" yaml:"consequent_support"`
	Support           float64 `json:"support" yaml:"support"`
	Confidence        float64 `json:"confidence" yaml:"confidence"`
	Lift              float64 `json:"lift" yaml:"lift"`
	Leverage          float64 `json:"leverage" yaml:"leverage"`
	// Conviction is +Inf when Confidence is 1.
	Conviction   float64 `json:"conviction" yaml:"conviction"`
	ZhangsMetric float64 `json:"zhangs_metric" yaml:"zhangs_metric"`
}

// String renders the rule as "{a} -> {b}".
func (r AssociationRule) String() string {
	return r.Antecedent.String() + " -> " + r.Consequent.String()
}

// ruleEpsilon is the tolerance applied when comparing a rule metric against
// its threshold, so that e.g. 0.5/0.75 passes a 2/3 threshold. Metric values
// within it of each other also sort as ties.
const ruleEpsilon = 1e-12

// maxRuleItemsetLen bounds antecedent enumeration (2^k - 2 splits).
const maxRuleItemsetLen = 62

// Metric names a rule metric usable for sorting and filtering.
type Metric string

const (
	MetricSupport    Metric = "support"
	MetricConfidence Metric = "confidence"
	MetricLift       Metric = "lift"
	MetricLeverage   Metric = "leverage"
	MetricConviction Metric = "conviction"
	MetricZhang      Metric = "zhangs_metric"
)

// Metrics lists every supported metric.
var Metrics = []Metric{MetricSupport, MetricConfidence, MetricLift, MetricLeverage, MetricConviction, MetricZhang}

// DefaultSort is the rule order used when none is configured.
var DefaultSort = []Metric{MetricConfidence, MetricLift}

// ParseMetric resolves a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "zhang" {
		name = string(MetricZhang)
	}
	for _, m := range Metrics {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, s)
}

// ParseMetrics resolves a list of metric names.
func ParseMetrics(names []string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m, err := ParseMetric(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Value returns the rule's value for metric m.
func (m Metric) Value(r AssociationRule) float64 {
	switch m {
	case MetricSupport:
		return r.Support
	case MetricConfidence:
		return r.Confidence
	case MetricLift:
		return r.Lift
	case MetricLeverage:
		return r.Leverage
	case MetricConviction:
		return r.Conviction
	case MetricZhang:
		return r.ZhangsMetric
	}
	return math.NaN()
}

// bounded reports whether the metric is a probability in [0, 1].
func (m Metric) bounded() bool {
	return m == MetricSupport || m == MetricConfidence
}

// GenerateRules derives every rule A -> F\A for each frequent itemset F with
// at least two items and non-empty proper subset A, keeping those with
// confidence >= minConfidence. Supports of A and F\A are looked up in
// itemsets, which must be downward closed (as returned by Mine).
//
// Rules are ordered by confidence, then lift (both descending), then by
// antecedent and consequent in canonical order.
func GenerateRules(itemsets []FrequentItemset, minConfidence float64) ([]AssociationRule, error) {
	rules, err := generateRules(itemsets, minConfidence)
	if err != nil {
		return nil, err
	}
	SortRules(rules, DefaultSort...)
	return rules, nil
}

// generateRules enumerates and filters rules without ordering them.
func generateRules(itemsets []FrequentItemset, minConfidence float64) ([]AssociationRule, error) {
	if math.IsNaN(minConfidence) || minConfidence < 0 || minConfidence > 1 {
		return nil, fmt.Errorf("%w: min confidence %v outside [0, 1]", ErrInvalidParameter, minConfidence)
	}
	supports := make(map[string]float64, len(itemsets))
	for _, fi := range itemsets {
		supports[fi.Items.Key()] = fi.Support
	}
	lookup := func(s Itemset) (float64, error) {
		v, ok := supports[s.Key()]
		if !ok {
			return 0, fmt.Errorf("%w: support of %s not in frequent itemsets", ErrInvalidInput, s)
		}
		return v, nil
	}

	rules := []AssociationRule{}
	for _, fi := range itemsets {
		k := len(fi.Items)
		if k < 2 {
			continue
		}
		if k > maxRuleItemsetLen {
			return nil, fmt.Errorf("%w: itemset of %d items is too large for rule enumeration", ErrInvalidInput, k)
		}
		full := uint64(1)<<uint(k) - 1
		for mask := uint64(1); mask < full; mask++ {
			ante, cons := split(fi.Items, mask)
			supA, err := lookup(ante)
			if err != nil {
				return nil, err
			}
			supC, err := lookup(cons)
			if err != nil {
				return nil, err
			}
			r := newRule(ante, cons, supA, supC, fi.Support)
			if r.Confidence+ruleEpsilon >= minConfidence {
				rules = append(rules, r)
			}
		}
	}
	return rules, nil
}

// split partitions items by mask: set bits go to the antecedent.
func split(items Itemset, mask uint64) (Itemset, Itemset) {
	ante := make(Itemset, 0, len(items))
	cons := make(Itemset, 0, len(items))
	for i, it := range items {
		if mask&(1<<uint(i)) != 0 {
			ante = append(ante, it)
		} else {
			cons = append(cons, it)
		}
	}
	return ante, cons
}

func newRule(ante, cons Itemset, supA, supC, supAC float64) AssociationRule {
	conf := supAC / supA
	r := AssociationRule{
		Antecedent:        ante,
		Consequent:        cons,
		AntecedentSupport: supA,
		ConsequentSupport: supC,
		Support:           supAC,
		Confidence:        conf,
		Lift:              conf / supC,
		Leverage:          supAC - supA*supC,
	}
	if 1-conf <= ruleEpsilon {
		r.Conviction = math.Inf(1)
	} else {
		r.Conviction = (1 - supC) / (1 - conf)
	}
	denom := math.Max(supAC*(1-supA), supA*(supC-supAC))
	if denom > 0 {
		r.ZhangsMetric = r.Leverage / denom
	}
	return r
}

// SortRules orders rules in place by the given metrics, each descending,
// falling back to the canonical (antecedent, consequent) order. Values that
// differ only by float rounding (1/10 ÷ 3/10 against 3/10 ÷ 9/10) are ties.
func SortRules(rules []AssociationRule, by ...Metric) {
	if len(by) == 0 {
		by = DefaultSort
	}
	sort.SliceStable(rules, func(i, j int) bool {
		for _, m := range by {
			a, b := m.Value(rules[i]), m.Value(rules[j])
			if !sameValue(a, b) {
				return a > b
			}
		}
		if c := compareItemsets(rules[i].Antecedent, rules[j].Antecedent); c != 0 {
			return c < 0
		}
		return compareItemsets(rules[i].Consequent, rules[j].Consequent) < 0
	})
}

func sameValue(a, b float64) bool {
	return a == b || math.Abs(a-b) <= ruleEpsilon
}

// FilterRules keeps rules whose metric value is at least threshold. Support
// and confidence thresholds must lie in [0, 1].
func FilterRules(rules []AssociationRule, metric Metric, threshold float64) ([]AssociationRule, error) {
	if math.IsNaN(metric.Value(AssociationRule{})) {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidParameter, metric)
	}
	if math.IsNaN(threshold) || (metric.bounded() && (threshold < 0 || threshold > 1)) {
		return nil, fmt.Errorf("%w: %s threshold %v out of range", ErrInvalidParameter, metric, threshold)
	}
	out := make([]AssociationRule, 0, len(rules))
	for _, r := range rules {
		if metric.Value(r)+ruleEpsilon >= threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

package mining

import (
	"sort"
	"strings"
)

// Item is an opaque item label, e.g. "whole milk".
type Item string

// Itemset is a sorted set of distinct items. Build one with NewItemset so that
// two itemsets holding the same items compare equal regardless of input order.
type Itemset []Item

// keySep separates items inside a canonical key; it is not expected in labels.
const keySep = "\x1f"

// NewItemset returns a sorted, deduplicated copy of items.
func NewItemset(items ...Item) Itemset {
	if len(items) == 0 {
		return Itemset{}
	}
	out := make(Itemset, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Len returns the number of items.
func (s Itemset) Len() int { return len(s) }

// Key returns the canonical string form used for hashing and lookups.
func (s Itemset) Key() string {
	switch len(s) {
	case 0:
		return ""
	case 1:
		return string(s[0])
	}
	var b strings.Builder
	for i, it := range s {
		if i > 0 {
			b.WriteString(keySep)
		}
		b.WriteString(string(it))
	}
	return b.String()
}

// String renders the itemset as "{a, b, c}".
func (s Itemset) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}

// Strings returns the items as plain strings, in canonical order.
func (s Itemset) Strings() []string {
	out := make([]string, len(s))
	for i, it := range s {
		out[i] = string(it)
	}
	return out
}

// Contains reports whether it is a member of s.
func (s Itemset) Contains(it Item) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= it })
	return i < len(s) && s[i] == it
}

// Equal reports whether both itemsets hold the same items.
func (s Itemset) Equal(o Itemset) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether s and o share at least one item.
func (s Itemset) Intersects(o Itemset) bool {
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			return true
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Union returns the items present in either set.
func (s Itemset) Union(o Itemset) Itemset {
	out := make(Itemset, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < o[j]:
			out = append(out, s[i])
			i++
		default:
			out = append(out, o[j])
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, o[j:]...)
}

// Minus returns the items of s that are not in o.
func (s Itemset) Minus(o Itemset) Itemset {
	out := make(Itemset, 0, len(s))
	for _, it := range s {
		if !o.Contains(it) {
			out = append(out, it)
		}
	}
	return out
}

// compareItemsets orders itemsets lexicographically by item; a proper prefix
// sorts first.
func compareItemsets(a, b Itemset) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

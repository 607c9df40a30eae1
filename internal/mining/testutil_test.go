package mining

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// groceries is the four-basket fixture used across tests.
func groceries() [][]Item {
	return [][]Item{
		{"milk", "bread"},
		{"milk", "bread", "eggs"},
		{"milk"},
		{"bread", "eggs"},
	}
}

func mustMatrix(t *testing.T, txs [][]Item) *TransactionMatrix {
	t.Helper()
	m, err := NewTransactionMatrix(txs)
	require.NoError(t, err)
	return m
}

// randomBaskets draws n transactions over the first k letters; item i is
// included with a probability that decays with i so that larger itemsets
// become frequent at low thresholds.
func randomBaskets(seed int64, n, k int) [][]Item {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]Item, n)
	for t := range out {
		var tx []Item
		for i := 0; i < k; i++ {
			p := 0.7 / float64(1+i/3)
			if rng.Float64() < p {
				tx = append(tx, Item(string(rune('a'+i))))
			}
		}
		out[t] = tx
	}
	return out
}

// bruteCount scans every transaction for s.
func bruteCount(txs [][]Item, s Itemset) int {
	n := 0
	for _, tx := range txs {
		set := map[Item]bool{}
		for _, it := range tx {
			set[it] = true
		}
		all := true
		for _, it := range s {
			if !set[it] {
				all = false
				break
			}
		}
		if all {
			n++
		}
	}
	return n
}

// bruteFrequent enumerates every subset of the item universe.
func bruteFrequent(txs [][]Item, universe []Item, minSupport float64) map[string]int {
	out := map[string]int{}
	for mask := 1; mask < 1<<len(universe); mask++ {
		var s Itemset
		for i, it := range universe {
			if mask&(1<<i) != 0 {
				s = append(s, it)
			}
		}
		s = NewItemset(s...)
		c := bruteCount(txs, s)
		if c > 0 && float64(c)/float64(len(txs)) >= minSupport-1e-12 {
			out[s.Key()] = c
		}
	}
	return out
}

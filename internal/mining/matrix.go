package mining

import (
	"fmt"
	"math/bits"
	"sort"
)

// bitset marks transaction indexes, 64 per word.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) { b[i>>6] |= 1 << (uint(i) & 63) }

func (b bitset) count() int {
	total := 0
	for _, w := range b {
		total += bits.OnesCount64(w)
	}
	return total
}

// TransactionMatrix is an immutable transaction x item membership table. It is
// stored column-wise: one bitset of transactions per distinct item, so the
// support count of an itemset is the popcount of the AND of its columns.
type TransactionMatrix struct {
	n     int
	items []Item // sorted; position is the column index
	index map[Item]int
	cols  []bitset
}

// NewTransactionMatrix builds a matrix from transactions. Duplicate items
// within a transaction collapse to presence. Empty transactions are kept and
// count toward N.
func NewTransactionMatrix(transactions [][]Item) (*TransactionMatrix, error) {
	if len(transactions) == 0 {
		return nil, fmt.Errorf("%w: no transactions", ErrInvalidInput)
	}
	seen := map[Item]struct{}{}
	for t, tx := range transactions {
		for _, it := range tx {
			if it == "" {
				return nil, fmt.Errorf("%w: empty item label in transaction %d", ErrInvalidInput, t)
			}
			seen[it] = struct{}{}
		}
	}
	m := &TransactionMatrix{
		n:     len(transactions),
		items: make([]Item, 0, len(seen)),
		index: make(map[Item]int, len(seen)),
	}
	for it := range seen {
		m.items = append(m.items, it)
	}
	sort.Slice(m.items, func(i, j int) bool { return m.items[i] < m.items[j] })
	m.cols = make([]bitset, len(m.items))
	for i, it := range m.items {
		m.index[it] = i
		m.cols[i] = newBitset(m.n)
	}
	for t, tx := range transactions {
		for _, it := range tx {
			m.cols[m.index[it]].set(t)
		}
	}
	return m, nil
}

// Len returns N, the number of transactions.
func (m *TransactionMatrix) Len() int { return m.n }

// Items returns the distinct items across all transactions in canonical order.
func (m *TransactionMatrix) Items() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Count returns the exact number of transactions containing every item of s.
// The empty itemset is contained in every transaction.
func (m *TransactionMatrix) Count(s Itemset) int {
	cols := make([]int, 0, len(s))
	for _, it := range s {
		c, ok := m.index[it]
		if !ok {
			return 0
		}
		cols = append(cols, c)
	}
	return m.countColumns(cols)
}

// Support returns Count(s) / N.
func (m *TransactionMatrix) Support(s Itemset) float64 {
	return float64(m.Count(s)) / float64(m.n)
}

// countColumns ANDs the given columns word by word without allocating.
func (m *TransactionMatrix) countColumns(cols []int) int {
	switch len(cols) {
	case 0:
		return m.n
	case 1:
		return m.cols[cols[0]].count()
	}
	first := m.cols[cols[0]]
	rest := cols[1:]
	total := 0
	for w, word := range first {
		for _, c := range rest {
			word &= m.cols[c][w]
			if word == 0 {
				break
			}
		}
		total += bits.OnesCount64(word)
	}
	return total
}

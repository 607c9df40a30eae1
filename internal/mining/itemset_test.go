package mining

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewItemsetSortsAndDedupes(t *testing.T) {
	s := NewItemset("milk", "bread", "milk", "eggs")
	assert.Equal(t, Itemset{"bread", "eggs", "milk"}, s)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "{bread, eggs, milk}", s.String())
	assert.Equal(t, NewItemset("eggs", "milk", "bread").Key(), s.Key())
	assert.Empty(t, NewItemset())
}

func TestItemsetSetOperations(t *testing.T) {
	a := NewItemset("a", "b", "c")
	b := NewItemset("b", "d")

	assert.True(t, a.Contains("b"))
	assert.False(t, a.Contains("d"))
	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(NewItemset("x", "y")))
	assert.Equal(t, Itemset{"a", "b", "c", "d"}, a.Union(b))
	assert.Equal(t, Itemset{"a", "c"}, a.Minus(b))
	assert.True(t, a.Equal(NewItemset("c", "a", "b")))
	assert.False(t, a.Equal(b))
}

func TestCompareItemsets(t *testing.T) {
	tests := []struct {
		name string
		a, b Itemset
		want int
	}{
		{"equal", Itemset{"a", "b"}, Itemset{"a", "b"}, 0},
		{"first item decides", Itemset{"a", "z"}, Itemset{"b"}, -1},
		{"prefix sorts first", Itemset{"a"}, Itemset{"a", "b"}, -1},
		{"later item decides", Itemset{"a", "c"}, Itemset{"a", "b"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareItemsets(tt.a, tt.b))
		})
	}
}

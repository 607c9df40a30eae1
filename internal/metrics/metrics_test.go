package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

func runSession(t *testing.T, m *Metrics) *mining.Result {
	t.Helper()
	matrix, err := mining.NewTransactionMatrix([][]mining.Item{
		{"a", "b", "c"},
		{"a", "b", "c"},
		{"a", "d"},
		{"a", "d"},
	})
	require.NoError(t, err)
	opts := mining.DefaultOptions()
	opts.MinSupport = 0.5
	s, err := mining.NewSession(matrix, opts, mining.WithObserver(m))
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	m.ObserveRun(res)
	return res
}

func TestObserveRun(t *testing.T) {
	m := New()
	res := runSession(t, m)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Transactions))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DistinctItems))
	assert.Equal(t, float64(len(res.Rules)), testutil.ToFloat64(m.Rules))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FrequentItemsets.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FrequentItemsets.WithLabelValues("3")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandidatesTotal.WithLabelValues("3")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PrunedTotal.WithLabelValues("3")))

	m.ObserveFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	runSession(t, m)

	path := filepath.Join(t.TempDir(), "basketloom.prom")
	require.NoError(t, m.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(b)
	assert.True(t, strings.Contains(body, `basketloom_runs_total{status="ok"} 1`), body)
	assert.Contains(t, body, "basketloom_frequent_itemsets")
}

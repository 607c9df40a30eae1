package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/basketloom-cli/internal/basket"
	"github.com/KaramelBytes/basketloom-cli/internal/mining"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.003, c.MinSupport)
	assert.Equal(t, 0.05, c.MinConfidence)
	assert.Equal(t, []string{"confidence", "lift"}, c.SortBy)
	assert.Equal(t, "long", c.Layout)
	assert.Equal(t, []string{"Member_number", "Date"}, c.TransactionCols)
	assert.Equal(t, "itemDescription", c.ItemCol)
	assert.True(t, c.Lowercase)
	assert.Equal(t, 10, c.TopItems)
	assert.Equal(t, "md", c.OutputFormat)

	mo, err := c.MiningOptions()
	require.NoError(t, err)
	assert.Equal(t, mining.DefaultOptions(), mo)

	lo, err := c.LoaderOptions()
	require.NoError(t, err)
	assert.Equal(t, basket.DefaultOptions(), lo)

	d, err := c.Interval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte("min_support: 0.02\nlayout: wide\nsort_by: [lift]\n"), 0o644))
	t.Setenv("BASKETLOOM_MIN_CONFIDENCE", "0.4")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.02, c.MinSupport)
	assert.Equal(t, 0.4, c.MinConfidence)
	assert.Equal(t, "wide", c.Layout)

	mo, err := c.MiningOptions()
	require.NoError(t, err)
	assert.Equal(t, []mining.Metric{mining.MetricLift}, mo.SortBy)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.MinSupport = 0.01
	c.ItemCol = "product"
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".basketloom", "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.01, again.MinSupport)
	assert.Equal(t, "product", again.ItemCol)
}

func TestInvalidSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	bad := *c
	bad.MinSupport = 0
	mo, err := bad.MiningOptions()
	require.NoError(t, err)
	assert.ErrorIs(t, mo.Validate(), mining.ErrInvalidParameter)

	bad = *c
	bad.SortBy = []string{"weight"}
	_, err = bad.MiningOptions()
	assert.ErrorIs(t, err, mining.ErrInvalidParameter)

	bad = *c
	bad.Delimiter = "::"
	_, err = bad.LoaderOptions()
	assert.Error(t, err)

	bad = *c
	bad.WatchInterval = "-1s"
	_, err = bad.Interval()
	assert.Error(t, err)
}

package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out", "report.md")
	require.NoError(t, EnsureDir(filepath.Dir(p)))

	require.NoError(t, SafeWriteFile(p, []byte("first")))
	require.NoError(t, SafeWriteFile(p, []byte("second")))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSafeWriteFileMissingDir(t *testing.T) {
	err := SafeWriteFile(filepath.Join(t.TempDir(), "nope", "x.json"), []byte("{}"))
	assert.Error(t, err)
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))

	_, err = PrettyJSON(make(chan int))
	assert.Error(t, err)
}

func TestStatFingerprint(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n"), 0o644))
	before, err := Stat(p)
	require.NoError(t, err)
	assert.Equal(t, int64(4), before.Size)

	later := before.ModTime.Add(2 * time.Second)
	require.NoError(t, os.WriteFile(p, []byte("a,b\nc,d\n"), 0o644))
	require.NoError(t, os.Chtimes(p, later, later))
	after, err := Stat(p)
	require.NoError(t, err)
	assert.False(t, before.Same(after))
	assert.True(t, after.Same(after))

	_, err = Stat(filepath.Dir(p))
	assert.Error(t, err)
}

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	require.NoError(t, SafeWriteFile(p, []byte("a,b\n")))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(b))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "sales.exceptional.csv")
	assert.Equal(t, p, UniquePath(p))

	require.NoError(t, os.WriteFile(p, nil, 0o644))
	second := UniquePath(p)
	assert.Equal(t, filepath.Join(dir, "sales__2.exceptional.csv"), second)

	require.NoError(t, os.WriteFile(second, nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "sales__3.exceptional.csv"), UniquePath(p))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"count": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"count\": 2\n}", string(b))

	_, err = PrettyJSON(func() {})
	require.Error(t, err)
}

func TestEnsureDir(t *testing.T) {
	d := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(d))
	info, err := os.Stat(d)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

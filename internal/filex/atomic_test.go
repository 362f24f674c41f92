package filex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAtomicFile_CommitPublishes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	a, err := CreateAtomic(path, 0o600)
	require.NoError(t, err)

	_, err = a.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "nothing visible before commit")

	require.NoError(t, a.Commit())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, []string{"out.bin"}, listNames(t, dir))
	assert.Equal(t, path, a.Name())
}

func TestAtomicFile_AbortDiscards(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	a, err := CreateAtomic(path, 0o600)
	require.NoError(t, err)
	_, err = a.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, a.Abort())
	require.NoError(t, a.Abort(), "abort is idempotent")

	assert.Empty(t, listNames(t, dir))

	_, err = a.Write([]byte("more"))
	require.ErrorIs(t, err, ErrFinished)
	require.ErrorIs(t, a.Commit(), ErrFinished)
}

func TestAtomicFile_CommitOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	a, err := CreateAtomic(path, 0o600)
	require.NoError(t, err)
	_, err = a.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, a.Commit())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}

func TestCreateAtomic_MissingDir(t *testing.T) {
	_, err := CreateAtomic(filepath.Join(t.TempDir(), "nope", "out.bin"), 0o600)
	require.Error(t, err)
}

func TestSweepTemp_RemovesOnlyStaleTemps(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, TempPrefix+"old")
	fresh := filepath.Join(dir, TempPrefix+"new")
	keep := filepath.Join(dir, "blob.enc")
	for _, p := range []string{stale, fresh, keep} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(keep, old, old))

	n, err := SweepTemp(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{TempPrefix + "new", "blob.enc"}, listNames(t, dir))
}

func TestSweepTemp_MissingDir(t *testing.T) {
	_, err := SweepTemp(filepath.Join(t.TempDir(), "absent"), time.Hour)
	require.Error(t, err)
}

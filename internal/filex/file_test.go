package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureSubdDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureSubdDir("vault")
	require.NoError(t, err)

	want := filepath.Join(tmp, "vault")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureSubdDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	first, err := EnsureSubdDir("vault")
	require.NoError(t, err)

	second, err := EnsureSubdDir("vault")
	require.NoError(t, err)

	require.Equal(t, first, second)
	fi, err := os.Stat(second)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureSubdDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("vault", []byte("x"), 0o660))

	_, err := EnsureSubdDir("vault")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestEnsureDir_AbsoluteAndRelative(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	abs := filepath.Join(tmp, "a", "b")
	got, err := EnsureDir(abs)
	require.NoError(t, err)
	require.Equal(t, abs, got)

	got, err = EnsureDir("rel")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "rel"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

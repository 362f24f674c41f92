//go:build linux || darwin

package keys

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDisableCoreDumps(t *testing.T) {
	var orig unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_CORE, &orig))
	t.Cleanup(func() { _ = unix.Setrlimit(unix.RLIMIT_CORE, &orig) })

	require.NoError(t, DisableCoreDumps())

	var got unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_CORE, &got))
	require.Zero(t, got.Cur)
}

//go:build linux || darwin

package keys

import "golang.org/x/sys/unix"

func lockMemory(b []byte) error   { return unix.Mlock(b) }
func unlockMemory(b []byte) error { return unix.Munlock(b) }

// DisableCoreDumps sets the core file limit to zero so key material cannot
// end up in a crash dump.
func DisableCoreDumps() error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlim); err != nil {
		return err
	}
	rlim.Cur = 0
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}

//go:build !linux && !darwin

package keys

func lockMemory(b []byte) error   { return nil }
func unlockMemory(b []byte) error { return nil }

// DisableCoreDumps is a no-op on this platform.
func DisableCoreDumps() error { return nil }

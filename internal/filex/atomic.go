package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix marks in-progress files; anything carrying it is never a
// finished artifact.
const TempPrefix = ".tmp-"

var ErrFinished = errors.New("file already committed or aborted")

// AtomicFile is a writer whose content becomes visible at its final path only
// on Commit. Until then the bytes live in a temp file in the same directory,
// which Abort removes.
type AtomicFile struct {
	f    *os.File
	tmp  string
	path string
	mode os.FileMode
	done bool
}

// CreateAtomic opens a temp file next to path.
func CreateAtomic(path string, mode os.FileMode) (*AtomicFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), TempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary file: %w", err)
	}

	return &AtomicFile{f: f, tmp: f.Name(), path: path, mode: mode}, nil
}

// Name returns the final path.
func (a *AtomicFile) Name() string {
	return a.path
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, ErrFinished
	}
	return a.f.Write(p)
}

// Commit flushes the temp file and renames it over the final path.
func (a *AtomicFile) Commit() error {
	if a.done {
		return ErrFinished
	}
	a.done = true

	if err := a.f.Sync(); err != nil {
		a.cleanup()
		return fmt.Errorf("sync %s: %w", a.tmp, err)
	}
	if err := a.f.Chmod(a.mode); err != nil {
		a.cleanup()
		return fmt.Errorf("chmod %s: %w", a.tmp, err)
	}
	if err := a.f.Close(); err != nil {
		_ = os.Remove(a.tmp)
		return fmt.Errorf("close %s: %w", a.tmp, err)
	}
	if err := os.Rename(a.tmp, a.path); err != nil {
		_ = os.Remove(a.tmp)
		return fmt.Errorf("rename %s: %w", a.path, err)
	}
	return nil
}

// Abort discards everything written so far. Aborting a finished file is a
// no-op.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	return a.cleanup()
}

func (a *AtomicFile) cleanup() error {
	_ = a.f.Close()
	if err := os.Remove(a.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SweepTemp removes temp files in dir older than maxAge and returns how many
// were removed. They are leftovers of writes interrupted by a crash.
func SweepTemp(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

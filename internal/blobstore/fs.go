package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/filex"
	"github.com/dmitrijs2005/encrypter/internal/locator"
	"github.com/google/uuid"
)

const (
	fileScheme = "file://"
	blobExt    = ".enc"
)

// FSStore keeps blobs as files in one directory.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := filex.EnsureDir(abs); err != nil {
		return nil, err
	}
	return &FSStore{dir: abs}, nil
}

func (s *FSStore) Dir() string { return s.dir }

func (s *FSStore) Create(_ context.Context) (string, locator.Sink, error) {
	path := filepath.Join(s.dir, uuid.NewString()+blobExt)

	af, err := filex.CreateAtomic(path, 0o600)
	if err != nil {
		return "", nil, err
	}
	return fileScheme + filepath.ToSlash(path), af, nil
}

func (s *FSStore) path(loc string) (string, error) {
	if !strings.HasPrefix(loc, fileScheme) {
		return "", fmt.Errorf("%w: %s", ErrForeignLocator, loc)
	}

	p := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(loc, fileScheme)))
	if filepath.Dir(p) != s.dir {
		return "", fmt.Errorf("%w: %s", ErrForeignLocator, loc)
	}
	return p, nil
}

func (s *FSStore) Open(_ context.Context, loc string) (io.ReadCloser, error) {
	p, err := s.path(loc)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", loc, common.ErrorNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Remove(_ context.Context, loc string) error {
	p, err := s.path(loc)
	if err != nil {
		return err
	}

	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", loc, common.ErrorNotFound)
	}
	return err
}

// Sweep removes temp files older than maxAge left by interrupted writes.
func (s *FSStore) Sweep(maxAge time.Duration) (int, error) {
	return filex.SweepTemp(s.dir, maxAge)
}

package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/encrypter/internal/filex"
	"github.com/dmitrijs2005/encrypter/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// StdioLocation reads from stdin on Open and writes to stdout on Create.
	StdioLocation = "-"

	fallbackMime = "application/octet-stream"
	fallbackName = "decrypted"
	maxUnique    = 1000
)

var ErrInvalidLocation = errors.New("invalid location")

// FileLocator resolves filesystem paths and file:// URIs.
type FileLocator struct {
	stdin  io.Reader
	stdout io.Writer
}

func NewFileLocator() *FileLocator {
	return &FileLocator{stdin: os.Stdin, stdout: os.Stdout}
}

func resolvePath(loc string) (string, error) {
	if loc == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if !strings.HasPrefix(loc, "file://") {
		return filepath.Clean(loc), nil
	}

	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: %s has no path", ErrInvalidLocation, loc)
	}
	return filepath.FromSlash(u.Path), nil
}

func (l *FileLocator) Open(_ context.Context, loc string) (*Source, error) {
	if loc == StdioLocation {
		return &Source{
			DisplayName: "stdin",
			MimeType:    fallbackMime,
			Size:        models.UnknownSize,
			Body:        io.NopCloser(l.stdin),
		}, nil
	}

	path, err := resolvePath(loc)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidLocation, path)
	}

	src := &Source{
		DisplayName: info.Name(),
		MimeType:    fallbackMime,
		Size:        models.UnknownSize,
		Body:        f,
	}
	if !info.Mode().IsRegular() {
		return src, nil
	}

	src.Size = info.Size()
	src.MimeType, err = detectMime(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}
	return src, nil
}

// detectMime sniffs the head of f and rewinds it.
func detectMime(f *os.File) (string, error) {
	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return m.String(), nil
}

type stdoutSink struct {
	io.Writer
}

func (stdoutSink) Commit() error { return nil }
func (stdoutSink) Abort() error  { return nil }

func (l *FileLocator) Create(_ context.Context, loc, suggestedName, mimeType string) (Sink, string, error) {
	if loc == StdioLocation {
		return stdoutSink{l.stdout}, StdioLocation, nil
	}

	path, err := resolvePath(loc)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		path, err = uniquePath(filepath.Join(path, safeName(suggestedName, mimeType)))
		if err != nil {
			return nil, "", err
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}

	af, err := filex.CreateAtomic(path, 0o600)
	if err != nil {
		return nil, "", err
	}
	return af, path, nil
}

// safeName strips directories from name and appends an extension matching
// mimeType when the name has none.
func safeName(name, mimeType string) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || strings.HasPrefix(name, filex.TempPrefix) {
		name = fallbackName
	}
	if filepath.Ext(name) == "" {
		if m := mimetype.Lookup(mimeType); m != nil {
			name += m.Extension()
		}
	}
	return name
}

// uniquePath returns path, or "name (n).ext" for the first n that is free.
func uniquePath(path string) (string, error) {
	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return path, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i < maxUnique; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free name for %s", ErrInvalidLocation, path)
}

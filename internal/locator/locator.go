// Package locator turns user-supplied locations into byte streams: a source
// to read plaintext or ciphertext from, and a sink that becomes visible only
// once committed.
package locator

import (
	"context"
	"io"
)

// Source is an opened content location.
type Source struct {
	DisplayName string
	MimeType    string
	// Size is models.UnknownSize when the location cannot report it.
	Size int64
	Body io.ReadCloser
}

// Sink receives content. Nothing is published until Commit; Abort discards
// the partial output.
type Sink interface {
	io.Writer
	Commit() error
	Abort() error
}

type StreamLocator interface {
	Open(ctx context.Context, loc string) (*Source, error)
	// Create prepares a destination. When loc names a directory the file is
	// placed inside it under suggestedName. The returned string is the final
	// location.
	Create(ctx context.Context, loc, suggestedName, mimeType string) (Sink, string, error)
}

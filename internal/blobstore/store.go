// Package blobstore holds ciphertext blobs. Each blob gets a fresh opaque
// locator at creation and is published only when its sink commits.
package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/encrypter/internal/locator"
)

// ErrForeignLocator is returned for locators another store produced.
var ErrForeignLocator = errors.New("locator does not belong to this store")

type Store interface {
	// Create reserves a new blob and returns its locator together with the
	// sink that fills it.
	Create(ctx context.Context) (string, locator.Sink, error)
	Open(ctx context.Context, loc string) (io.ReadCloser, error)
	// Remove deletes a blob. A blob that is already gone yields an error
	// matching common.ErrorNotFound.
	Remove(ctx context.Context, loc string) error
}

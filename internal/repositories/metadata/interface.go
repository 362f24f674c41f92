// Package metadata stores small key/value settings next to the ledger: the
// software key store's wrapped key and the credential enrollment live here.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value table.
//
// Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

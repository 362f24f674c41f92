package keys

import (
	"sync"

	"github.com/dmitrijs2005/encrypter/internal/common"
)

// Handle scopes one unlocked key to a single request. After Release the key
// bytes are wiped and Key reports ErrKeyExpired.
type Handle struct {
	mu       sync.Mutex
	key      []byte
	locked   bool
	released bool
}

// NewHandle takes ownership of key; Release wipes it.
func NewHandle(key []byte) *Handle {
	h := &Handle{key: key}
	h.locked = lockMemory(key) == nil
	return h
}

func (h *Handle) Key() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, ErrKeyExpired
	}
	return h.key, nil
}

// Release is idempotent.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return
	}
	h.released = true

	common.WipeByteArray(h.key)
	if h.locked {
		_ = unlockMemory(h.key)
	}
	h.key = nil
}

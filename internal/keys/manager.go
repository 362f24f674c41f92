package keys

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/encrypter/internal/logging"
)

// KeyState is the outcome of EnsureKey. KeyUnknown accompanies every error.
type KeyState int

const (
	KeyUnknown KeyState = iota
	KeyExisted
	KeyCreated
)

func (s KeyState) String() string {
	switch s {
	case KeyExisted:
		return "existed"
	case KeyCreated:
		return "created"
	default:
		return "unknown"
	}
}

// Manager is the entry point for key lifecycle. Prompts are serialized so
// concurrent requests never race for the user's attention.
type Manager struct {
	mu       sync.Mutex
	provider Provider
	log      logging.Logger
}

func NewManager(p Provider, log logging.Logger) *Manager {
	return &Manager{provider: p, log: log.With("module", "keys", "provider", p.Name())}
}

// EnsureKey makes sure a master key exists. KeyCreated means files
// encrypted under an earlier key cannot be recovered.
func (m *Manager) EnsureKey(ctx context.Context) (KeyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.provider.Eligible(ctx); err != nil {
		return KeyUnknown, err
	}

	ok, err := m.provider.Exists(ctx)
	if err != nil {
		return KeyUnknown, err
	}
	if ok {
		return KeyExisted, nil
	}

	if err := m.provider.Generate(ctx); err != nil {
		return KeyUnknown, err
	}

	m.log.Warn(ctx, "new master key created; files encrypted under a previous key are unrecoverable")
	return KeyCreated, nil
}

// Authorize unlocks the key for one request. The caller must Release the
// handle when the request finishes.
func (m *Manager) Authorize(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.provider.Eligible(ctx); err != nil {
		return nil, err
	}

	key, err := m.provider.Unlock(ctx)
	if err != nil {
		m.log.Debug(ctx, "authorization failed", "error", err)
		return nil, err
	}
	return NewHandle(key), nil
}

// Reset drops the stored key so that the next EnsureKey creates a new one.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.provider.Reset(ctx); err != nil {
		return err
	}
	m.log.Warn(ctx, "master key removed")
	return nil
}

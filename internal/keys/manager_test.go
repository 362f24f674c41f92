package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records which operations were reached.
type countingProvider struct {
	eligibleErr error
	exists      bool
	generated   int
	unlocked    int
	resets      int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Eligible(context.Context) error { return p.eligibleErr }

func (p *countingProvider) Exists(context.Context) (bool, error) { return p.exists, nil }

func (p *countingProvider) Generate(context.Context) error {
	p.generated++
	p.exists = true
	return nil
}

func (p *countingProvider) Unlock(context.Context) ([]byte, error) {
	p.unlocked++
	return make([]byte, 32), nil
}

func (p *countingProvider) Reset(context.Context) error {
	p.resets++
	p.exists = false
	return nil
}

func TestManager_EnsureKey(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{}
	m := NewManager(p, discardLogger())

	st, err := m.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, KeyCreated, st)

	st, err = m.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, KeyExisted, st)
	assert.Equal(t, 1, p.generated)

	require.NoError(t, m.Reset(ctx))
	st, err = m.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, KeyCreated, st)
	assert.Equal(t, "created", st.String())
}

func TestManager_IneligibleNeverTouchesStore(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{eligibleErr: unavailable(ReasonNoSecureLock)}
	m := NewManager(p, discardLogger())

	st, err := m.EnsureKey(ctx)
	require.ErrorIs(t, err, ErrAuthUnavailable)
	assert.Equal(t, KeyUnknown, st)
	assert.Equal(t, "unknown", st.String())

	_, err = m.Authorize(ctx)
	require.ErrorIs(t, err, ErrAuthUnavailable)

	assert.Zero(t, p.generated)
	assert.Zero(t, p.unlocked)
}

func TestManager_AuthorizeEndToEnd(t *testing.T) {
	ctx := context.Background()
	auth := newScriptedAuth("pw")
	p, _ := newTestProvider(t, auth)
	require.NoError(t, p.Enroll(ctx, []byte("pw")))

	m := NewManager(p, discardLogger())
	st, err := m.EnsureKey(ctx)
	require.NoError(t, err)
	require.Equal(t, KeyCreated, st)

	h, err := m.Authorize(ctx)
	require.NoError(t, err)

	key, err := h.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	h.Release()
	_, err = h.Key()
	require.ErrorIs(t, err, ErrKeyExpired)
}

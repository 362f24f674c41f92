package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/blobstore"
	"github.com/dmitrijs2005/encrypter/internal/config"
	"github.com/dmitrijs2005/encrypter/internal/filex"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/server/auth"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.ChunkSize = 4096
	cfg.MaxAuthAttempts = 1
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	require.NoError(t, cfg.Validate())
	return cfg
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, discardLogger(), keys.ContextAuthenticator{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)

	ctx := keys.WithCredential(context.Background(), []byte("correct horse"))

	_, err := a.Keys.EnsureKey(ctx)
	require.ErrorIs(t, err, keys.ErrAuthUnavailable)

	require.NoError(t, a.Provider.Enroll(ctx, []byte("correct horse")))

	st, err := a.Keys.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, keys.KeyCreated, st)

	data := bytes.Repeat([]byte("vault "), 5000)
	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, data, 0o600))

	rec, err := a.Vault.Encrypt(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	dst := filepath.Join(t.TempDir(), "restored.txt")
	_, err = a.Vault.Decrypt(ctx, rec, dst)
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = a.Vault.Decrypt(keys.WithCredential(context.Background(), []byte("wrong")), rec, dst)
	assert.Equal(t, vault.KindAuthCancelled, vault.KindOf(err))
}

func TestApp_ReenrollInvalidatesKey(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	ctx := keys.WithCredential(context.Background(), []byte("pw"))

	require.NoError(t, a.Provider.Enroll(ctx, []byte("pw")))
	_, err := a.Keys.EnsureKey(ctx)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(src, []byte("abc"), 0o600))
	rec, err := a.Vault.Encrypt(ctx, src)
	require.NoError(t, err)

	require.NoError(t, a.Provider.Enroll(ctx, []byte("pw")))

	_, err = a.Vault.Decrypt(ctx, rec, filepath.Join(t.TempDir(), "out"))
	assert.Equal(t, vault.KindKeyInvalidated, vault.KindOf(err))

	require.NoError(t, a.Keys.Reset(ctx))
	st, err := a.Keys.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, keys.KeyCreated, st)
}

func TestApp_StateSurvivesReopen(t *testing.T) {
	cfg := testConfig(t)
	ctx := keys.WithCredential(context.Background(), []byte("pw"))

	a, err := New(context.Background(), cfg, discardLogger(), keys.ContextAuthenticator{})
	require.NoError(t, err)
	require.NoError(t, a.Provider.Enroll(ctx, []byte("pw")))
	_, err = a.Keys.EnsureKey(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b := newApp(t, cfg)
	st, err := b.Keys.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, keys.KeyExisted, st)
}

func TestApp_SweepsStaleTempFiles(t *testing.T) {
	cfg := testConfig(t)

	_, err := filex.EnsureDir(cfg.BlobDir())
	require.NoError(t, err)
	stale := filepath.Join(cfg.BlobDir(), filex.TempPrefix+"old")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-2 * staleTempAge)
	require.NoError(t, os.Chtimes(stale, old, old))

	newApp(t, cfg)

	_, err = os.Stat(stale)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestApp_S3Backend(t *testing.T) {
	orig := newS3Store
	t.Cleanup(func() { newS3Store = orig })

	var got blobstore.S3Config
	newS3Store = func(_ context.Context, c blobstore.S3Config) (blobstore.Store, error) {
		got = c
		return blobstore.NewFSStore(filepath.Join(c.SpoolDir, "fake"))
	}

	cfg := testConfig(t)
	cfg.BlobBackend = config.BlobBackendS3
	cfg.S3Bucket = "archive"
	newApp(t, cfg)

	assert.Equal(t, "archive", got.Bucket)
	assert.Equal(t, cfg.SpoolDir(), got.SpoolDir)

	boom := errors.New("no endpoint")
	newS3Store = func(context.Context, blobstore.S3Config) (blobstore.Store, error) { return nil, boom }
	_, err := New(context.Background(), cfg, discardLogger(), keys.ContextAuthenticator{})
	require.ErrorIs(t, err, boom)
}

func TestApp_IssueToken(t *testing.T) {
	a := newApp(t, testConfig(t))

	tok, err := a.IssueToken("laptop")
	require.NoError(t, err)

	id, err := auth.GetClientIDFromToken(tok, []byte(a.Config.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "laptop", id)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	a := newApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

package files

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE files (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  name           TEXT    NOT NULL,
  mime           TEXT    NOT NULL,
  locator        TEXT    NOT NULL UNIQUE,
  size           INTEGER NOT NULL,
  encrypted      INTEGER NOT NULL DEFAULT 1,
  cipher_version INTEGER,
  chunk_size     INTEGER,
  nonce          BLOB,
  tag            BLOB,
  created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	require.NoError(t, err)
	return db
}

func encryptedRecord(locator string) *models.FileRecord {
	return &models.FileRecord{
		ID:          models.NoID,
		DisplayName: "photo.jpg",
		MimeType:    "image/jpeg",
		Locator:     locator,
		Size:        2048,
		Encrypted:   true,
		Cipher: &cryptox.Metadata{
			Version:   cryptox.StreamVersion,
			ChunkSize: 4096,
			Nonce:     []byte{0x01, 0x02},
			Tag:       []byte{0x0A, 0x0B},
		},
	}
}

func TestInsertAndGetByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Insert(ctx, encryptedRecord("file://a.enc"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "photo.jpg", got.DisplayName)
	assert.Equal(t, "image/jpeg", got.MimeType)
	assert.Equal(t, "file://a.enc", got.Locator)
	assert.Equal(t, int64(2048), got.Size)
	assert.True(t, got.Encrypted)
	assert.False(t, got.CreatedAt.IsZero())

	require.NotNil(t, got.Cipher)
	assert.Equal(t, cryptox.StreamVersion, got.Cipher.Version)
	assert.Equal(t, 4096, got.Cipher.ChunkSize)
	assert.Equal(t, []byte{0x01, 0x02}, got.Cipher.Nonce)
	assert.Equal(t, []byte{0x0A, 0x0B}, got.Cipher.Tag)
	assert.Equal(t, int64(2048), got.Cipher.Size)
}

func TestInsert_PlaintextHasNoCipher(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := &models.FileRecord{DisplayName: "a.txt", MimeType: "text/plain", Locator: "file://a.txt", Size: 3}
	id, err := r.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Encrypted)
	assert.Nil(t, got.Cipher)
}

func TestInsert_DuplicateLocatorFails(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Insert(ctx, encryptedRecord("file://same.enc"))
	require.NoError(t, err)

	_, err = r.Insert(ctx, encryptedRecord("file://same.enc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert file")
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_InsertionOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	empty, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, loc := range []string{"file://1", "file://2", "file://3"} {
		_, err := r.Insert(ctx, encryptedRecord(loc))
		require.NoError(t, err)
	}

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, f := range got {
		assert.Equal(t, int64(i+1), f.ID)
	}
}

func TestDeleteByID_AndIdsNotReused(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id1, err := r.Insert(ctx, encryptedRecord("file://1"))
	require.NoError(t, err)
	id2, err := r.Insert(ctx, encryptedRecord("file://2"))
	require.NoError(t, err)

	ok, err := r.DeleteByID(ctx, id2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DeleteByID(ctx, id2)
	require.NoError(t, err)
	assert.False(t, ok)

	id3, err := r.Insert(ctx, encryptedRecord("file://3"))
	require.NoError(t, err)
	assert.Greater(t, id3, id2)

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id1, got[0].ID)
	assert.Equal(t, id3, got[1].ID)
}

func TestSQLiteRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Insert(ctx, encryptedRecord("file://x"))
	require.ErrorContains(t, err, "failed to insert file")

	_, err = r.GetByID(ctx, 1)
	require.ErrorContains(t, err, "failed to get file 1")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to select files")

	_, err = r.DeleteByID(ctx, 1)
	require.ErrorContains(t, err, "failed to delete file")
}

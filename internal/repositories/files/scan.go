package files

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/models"
)

const selectColumns = `id, name, mime, locator, size, encrypted, cipher_version, chunk_size, nonce, tag, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// timestamp accepts the representations SQL drivers use for time columns.
type timestamp struct {
	t time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.t = time.Time{}
		return nil
	case time.Time:
		ts.t = v
		return nil
	case int64:
		ts.t = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.t = t
			return nil
		}
	}
	return fmt.Errorf("unsupported time format %q", s)
}

func scanRecord(s rowScanner) (*models.FileRecord, error) {
	var (
		f         models.FileRecord
		version   sql.NullInt64
		chunkSize sql.NullInt64
		nonce     []byte
		tag       []byte
		created   timestamp
	)

	if err := s.Scan(&f.ID, &f.DisplayName, &f.MimeType, &f.Locator, &f.Size, &f.Encrypted,
		&version, &chunkSize, &nonce, &tag, &created); err != nil {
		return nil, err
	}

	if version.Valid {
		f.Cipher = &cryptox.Metadata{
			Version:   int(version.Int64),
			ChunkSize: int(chunkSize.Int64),
			Nonce:     nonce,
			Tag:       tag,
			Size:      f.Size,
		}
	}
	f.CreatedAt = created.t

	return &f, nil
}

// cipherArgs returns the nullable cipher columns of f.
func cipherArgs(f *models.FileRecord) (version, chunkSize any, nonce, tag []byte) {
	if f.Cipher == nil {
		return nil, nil, nil, nil
	}
	return int64(f.Cipher.Version), int64(f.Cipher.ChunkSize), f.Cipher.Nonce, f.Cipher.Tag
}

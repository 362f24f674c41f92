// Package models defines the vault's data records.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
)

// NoID marks a record that has not been committed to the ledger.
const NoID int64 = -1

// UnknownSize marks a source whose byte count is not known in advance.
const UnknownSize int64 = -1

// Kind is a coarse file category derived from the MIME type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindFile  Kind = "file"
)

// FileRecord describes an encrypted file known to the ledger, or an
// ephemeral plaintext file produced by decryption.
//
// DisplayName, MimeType and Size always describe the original plaintext,
// even for encrypted records. Locator points at the ciphertext blob for
// encrypted records and at the plaintext location otherwise.
type FileRecord struct {
	ID          int64
	DisplayName string
	MimeType    string
	Locator     string
	Size        int64
	Encrypted   bool

	// Cipher is nil for plaintext records.
	Cipher *cryptox.Metadata

	CreatedAt time.Time
}

// IsPersisted reports whether the record carries a ledger id.
func (f *FileRecord) IsPersisted() bool {
	return f.ID != NoID
}

// Kind classifies the record by the top-level MIME type.
func (f *FileRecord) Kind() Kind {
	switch {
	case strings.HasPrefix(f.MimeType, "image"):
		return KindImage
	case strings.HasPrefix(f.MimeType, "video"):
		return KindVideo
	case strings.HasPrefix(f.MimeType, "audio"):
		return KindAudio
	default:
		return KindFile
	}
}

// FormattedSize renders Size for listings.
func (f *FileRecord) FormattedSize() string {
	return common.FormatSize(f.Size)
}

func (f *FileRecord) String() string {
	state := "plain"
	if f.Encrypted {
		state = "enc"
	}
	return fmt.Sprintf("%d,%s,%s,%s,%s,%s", f.ID, f.DisplayName, f.MimeType, f.FormattedSize(), f.Locator, state)
}

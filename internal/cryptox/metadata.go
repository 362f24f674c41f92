package cryptox

import (
	"encoding/binary"
	"fmt"
)

const (
	// StreamVersion identifies the chunk layout produced by Engine.
	StreamVersion = 1

	// NonceSize is the size of the per-stream random nonce.
	NonceSize = 32

	// TagSize is the size of the stream-wide authentication tag.
	TagSize = 32

	// MaxChunkSize bounds the chunk size accepted from stored metadata.
	MaxChunkSize = 16 * 1024 * 1024
)

// Metadata is everything needed, besides the key, to decrypt a blob. It is
// stored alongside the file record, never inside the blob.
type Metadata struct {
	Version   int
	ChunkSize int
	Nonce     []byte
	Tag       []byte
	// Size is the number of plaintext bytes processed.
	Size int64
}

// Validate checks that m describes a stream Engine can read.
func (m *Metadata) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: missing cipher metadata", ErrIntegrity)
	}
	if m.Version != StreamVersion {
		return fmt.Errorf("%w: unsupported stream version %d", ErrIntegrity, m.Version)
	}
	if m.ChunkSize <= 0 || m.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: invalid chunk size %d", ErrIntegrity, m.ChunkSize)
	}
	if len(m.Nonce) != NonceSize {
		return fmt.Errorf("%w: invalid nonce length %d", ErrIntegrity, len(m.Nonce))
	}
	if len(m.Tag) != TagSize {
		return fmt.Errorf("%w: invalid tag length %d", ErrIntegrity, len(m.Tag))
	}
	return nil
}

// header is the authenticated prefix mixed into every chunk and the stream tag.
func (m *Metadata) header() []byte {
	h := make([]byte, 0, 1+4+NonceSize)
	h = append(h, byte(m.Version))
	h = binary.BigEndian.AppendUint32(h, uint32(m.ChunkSize))
	h = append(h, m.Nonce...)
	return h
}

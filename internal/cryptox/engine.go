package cryptox

import (
	"bufio"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DefaultChunkSize is the plaintext size of every chunk but the last.
const DefaultChunkSize = 64 * 1024

const streamInfo = "encrypter stream v1"

// KeySource yields the master key for one operation. Key keeps failing once
// the source expired.
type KeySource interface {
	Key() ([]byte, error)
}

// Committer is implemented by destinations that must not become visible until
// the stream verified.
type Committer interface {
	Commit() error
}

// Aborter is implemented by destinations that can discard partial output.
type Aborter interface {
	Abort() error
}

// Engine encrypts and decrypts arbitrarily large streams in fixed-size chunks,
// so memory use is bounded by a few chunk buffers regardless of input size.
//
// Each stream gets a fresh random nonce from which per-stream AES-256-GCM and
// HMAC-SHA256 keys are derived with HKDF. Chunk i is sealed under a counter
// nonce with associated data (header, i, last), which rejects reordered,
// dropped, truncated or extended chunks. The stream tag is an HMAC over the
// header and every chunk tag.
type Engine struct {
	chunkSize int
	pool      *bufferPool
}

// NewEngine returns an Engine producing chunks of chunkSize bytes. A
// non-positive chunkSize selects DefaultChunkSize.
func NewEngine(chunkSize int) *Engine {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		chunkSize = DefaultChunkSize
	}
	return &Engine{
		chunkSize: chunkSize,
		pool:      newBufferPool(chunkSize + chunkOverhead),
	}
}

// ChunkSize reports the plaintext chunk size used for encryption.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// chunkOverhead is the AES-GCM tag appended to every chunk.
const chunkOverhead = 16

// EncryptStream reads plaintext from r until EOF and writes ciphertext to w.
// The returned Metadata must be kept to decrypt the stream later.
func (e *Engine) EncryptStream(ks KeySource, r io.Reader, w io.Writer) (*Metadata, error) {
	key, err := ks.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}

	meta := &Metadata{Version: StreamVersion, ChunkSize: e.chunkSize, Nonce: make([]byte, NonceSize)}
	if _, err := rand.Read(meta.Nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, mac, err := streamKeys(key, meta.Nonce)
	if err != nil {
		return nil, err
	}

	header := meta.header()
	mac.Write(header)

	plain := e.pool.get()
	defer e.pool.put(plain)
	sealed := e.pool.get()
	defer e.pool.put(sealed)

	br := bufio.NewReaderSize(r, e.chunkSize)
	nonce := make([]byte, aead.NonceSize())

	var index uint64
	for {
		if _, err := ks.Key(); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrKey, index, err)
		}

		n, err := io.ReadFull(br, (*plain)[:e.chunkSize])
		last, err := isLastChunk(br, err)
		if err != nil {
			return nil, fmt.Errorf("%w: read plaintext: %w", ErrIO, err)
		}

		chunkNonce(nonce, index)
		out := aead.Seal((*sealed)[:0], nonce, (*plain)[:n], chunkAD(header, index, last))

		if _, err := w.Write(out); err != nil {
			return nil, fmt.Errorf("%w: write ciphertext: %w", ErrIO, err)
		}
		mac.Write(out[len(out)-chunkOverhead:])

		meta.Size += int64(n)
		index++

		if last {
			break
		}
	}

	meta.Tag = finishTag(mac, index, meta.Size)
	return meta, nil
}

// DecryptStream verifies and decrypts the blob read from r into w.
//
// Chunks are authenticated before their plaintext is written. If w is a
// Committer it is committed only once the stream tag matched; on any failure
// w is aborted if it is an Aborter.
func (e *Engine) DecryptStream(ks KeySource, meta *Metadata, r io.Reader, w io.Writer) (err error) {
	defer func() {
		if err == nil {
			return
		}
		if a, ok := w.(Aborter); ok {
			_ = a.Abort()
		}
	}()

	if err := meta.Validate(); err != nil {
		return err
	}

	key, err := ks.Key()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKey, err)
	}

	aead, mac, err := streamKeys(key, meta.Nonce)
	if err != nil {
		return err
	}

	header := meta.header()
	mac.Write(header)

	sealedSize := meta.ChunkSize + chunkOverhead

	var sealed, plain []byte
	if meta.ChunkSize == e.chunkSize {
		sb, pb := e.pool.get(), e.pool.get()
		defer e.pool.put(sb)
		defer e.pool.put(pb)
		sealed, plain = *sb, *pb
	} else {
		sealed, plain = make([]byte, sealedSize), make([]byte, sealedSize)
	}

	br := bufio.NewReaderSize(r, sealedSize)
	nonce := make([]byte, aead.NonceSize())

	var index uint64
	var size int64
	for {
		if _, err := ks.Key(); err != nil {
			return fmt.Errorf("%w: chunk %d: %w", ErrKey, index, err)
		}

		n, rerr := io.ReadFull(br, sealed[:sealedSize])
		if errors.Is(rerr, io.EOF) {
			return fmt.Errorf("%w: stream truncated before final chunk", ErrIntegrity)
		}
		last, rerr := isLastChunk(br, rerr)
		if rerr != nil {
			return fmt.Errorf("%w: read ciphertext: %w", ErrIO, rerr)
		}
		if n < chunkOverhead {
			return fmt.Errorf("%w: chunk %d too short", ErrIntegrity, index)
		}

		chunkNonce(nonce, index)
		out, oerr := aead.Open(plain[:0], nonce, sealed[:n], chunkAD(header, index, last))
		if oerr != nil {
			return fmt.Errorf("%w: chunk %d failed authentication", ErrIntegrity, index)
		}
		mac.Write(sealed[n-chunkOverhead : n])

		if _, werr := w.Write(out); werr != nil {
			return fmt.Errorf("%w: write plaintext: %w", ErrIO, werr)
		}

		size += int64(len(out))
		index++

		if last {
			break
		}
	}

	if !hmac.Equal(finishTag(mac, index, size), meta.Tag) {
		return fmt.Errorf("%w: stream tag mismatch", ErrIntegrity)
	}

	if c, ok := w.(Committer); ok {
		if err := c.Commit(); err != nil {
			return fmt.Errorf("%w: commit destination: %w", ErrIO, err)
		}
	}

	return nil
}

// isLastChunk interprets the result of io.ReadFull on br: a short read ends
// the stream, a full read is last only if nothing follows it.
func isLastChunk(br *bufio.Reader, err error) (bool, error) {
	switch {
	case err == nil:
		if _, perr := br.Peek(1); perr != nil {
			if errors.Is(perr, io.EOF) {
				return true, nil
			}
			return false, perr
		}
		return false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true, nil
	default:
		return false, err
	}
}

func streamKeys(key, nonce []byte) (cipher.AEAD, hash.Hash, error) {
	material := make([]byte, 64)
	defer clear(material)

	kdf := hkdf.New(sha256.New, key, nonce, []byte(streamInfo))
	if _, err := io.ReadFull(kdf, material); err != nil {
		return nil, nil, fmt.Errorf("derive stream keys: %w", err)
	}

	aead, err := newGCM(material[:32])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrKey, err)
	}

	return aead, hmac.New(sha256.New, material[32:]), nil
}

func chunkNonce(dst []byte, index uint64) {
	clear(dst)
	binary.BigEndian.PutUint64(dst[len(dst)-8:], index)
}

func chunkAD(header []byte, index uint64, last bool) []byte {
	const chunkIndexSize = 8

	ad := make([]byte, len(header)+chunkIndexSize+1)
	copy(ad, header)
	binary.BigEndian.PutUint64(ad[len(header):], index)
	if last {
		ad[len(ad)-1] = 1
	}

	return ad
}

func finishTag(mac hash.Hash, chunks uint64, size int64) []byte {
	var trailer [16]byte
	binary.BigEndian.PutUint64(trailer[:8], chunks)
	binary.BigEndian.PutUint64(trailer[8:], uint64(size))
	mac.Write(trailer[:])
	return mac.Sum(nil)
}

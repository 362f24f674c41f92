// Package cryptox holds the vault's cryptography: credential key derivation,
// key wrapping, and the chunked streaming cipher used for file content.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the size of the random salt used with DeriveMasterKey.
const SaltSize = 16

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

var errShortWrapped = errors.New("wrapped key too short")

// WrapKey seals key under kek with AES-GCM. The random 12-byte nonce is
// prepended to the result. ad binds the wrapped key to its context (for
// example an enrollment id) and must be presented again to UnwrapKey.
func WrapKey(key, kek, ad []byte) ([]byte, error) {
	aesgcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, key, ad), nil
}

// UnwrapKey reverses WrapKey. It fails if kek or ad differ from the ones used
// to wrap.
func UnwrapKey(wrapped, kek, ad []byte) ([]byte, error) {
	aesgcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(wrapped) < ns+aesgcm.Overhead() {
		return nil, errShortWrapped
	}

	return aesgcm.Open(nil, wrapped[:ns], wrapped[ns:], ad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

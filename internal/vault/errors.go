package vault

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/encrypter/internal/common"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/keys"
)

// Op names a coordinator operation.
type Op string

const (
	OpEncrypt Op = "encrypt"
	OpDecrypt Op = "decrypt"
	OpList    Op = "list"
	OpGet     Op = "get"
	OpDelete  Op = "delete"
)

// Kind is the category of a failed operation.
type Kind int

const (
	KindAuthUnavailable Kind = iota + 1
	KindAuthCancelled
	KindKeyInvalidated
	KindKeyStore
	KindIntegrity
	KindIO
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthUnavailable:
		return "auth unavailable"
	case KindAuthCancelled:
		return "auth cancelled"
	case KindKeyInvalidated:
		return "key invalidated"
	case KindKeyStore:
		return "key store error"
	case KindIntegrity:
		return "integrity error"
	case KindIO:
		return "i/o error"
	case KindNotFound:
		return "not found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrNotEncrypted is returned when decrypting a record that has no
// ciphertext behind it.
var ErrNotEncrypted = errors.New("record is not encrypted")

type Error struct {
	Kind Kind
	Op   Op
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is short guidance suitable for showing to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindAuthUnavailable:
		var ae *keys.AuthUnavailableError
		if errors.As(e.Err, &ae) {
			switch ae.Reason {
			case keys.ReasonNoEnrollment:
				return "No credential is enrolled. Run 'encrypter enroll' first."
			case keys.ReasonNoSecureLock:
				return "The credential cannot be read securely. Run from an interactive terminal."
			}
		}
		return "This device cannot authenticate you, so the vault key cannot be used."
	case KindAuthCancelled:
		return "Authentication was cancelled."
	case KindKeyInvalidated:
		return "The vault key was invalidated by a change of credential. Run 'encrypter init --reset' to create a new key; existing files cannot be recovered."
	case KindKeyStore:
		return "The key store failed. Try again."
	case KindIntegrity:
		return "The encrypted file is corrupted or was tampered with."
	case KindIO:
		return "The file could not be read or written."
	case KindNotFound:
		return "No such file in the vault."
	default:
		return e.Error()
	}
}

// Explain returns user guidance for err. Errors from the key layer are
// classified first; anything else is returned verbatim.
func Explain(err error) string {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Message()
	}
	if k := kindFor(err); k != KindIO {
		return (&Error{Kind: k, Err: err}).Message()
	}
	return err.Error()
}

// KindOf returns the kind of err, or 0 if err is not a *Error.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

func classify(op Op, err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Kind: kindFor(err), Op: op, Err: err}
}

func kindFor(err error) Kind {
	switch {
	case errors.Is(err, keys.ErrAuthUnavailable):
		return KindAuthUnavailable
	case errors.Is(err, keys.ErrAuthCancelled):
		return KindAuthCancelled
	case errors.Is(err, keys.ErrKeyInvalidated):
		return KindKeyInvalidated
	case errors.Is(err, keys.ErrKeyStore),
		errors.Is(err, keys.ErrKeyExpired),
		errors.Is(err, cryptox.ErrKey):
		return KindKeyStore
	case errors.Is(err, cryptox.ErrIntegrity), errors.Is(err, ErrNotEncrypted):
		return KindIntegrity
	case errors.Is(err, cryptox.ErrIO):
		return KindIO
	case errors.Is(err, common.ErrorNotFound):
		return KindNotFound
	default:
		return KindIO
	}
}

package keys

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthUnavailable matches every *AuthUnavailableError.
	ErrAuthUnavailable = errors.New("authentication unavailable")
	ErrAuthCancelled   = errors.New("authentication cancelled")
	ErrKeyInvalidated  = errors.New("key permanently invalidated")
	ErrKeyStore        = errors.New("key store error")
	ErrKeyExpired      = errors.New("key handle expired")
	ErrKeyNotFound     = errors.New("key not found")
)

// Reason tells why authentication cannot be performed at all.
type Reason int

const (
	ReasonNoSensor Reason = iota + 1
	ReasonNoEnrollment
	ReasonNoSecureLock
)

func (r Reason) String() string {
	switch r {
	case ReasonNoSensor:
		return "no authenticator available"
	case ReasonNoEnrollment:
		return "no credential enrolled"
	case ReasonNoSecureLock:
		return "no secure input available"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

type AuthUnavailableError struct {
	Reason Reason
}

func (e *AuthUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthUnavailable, e.Reason)
}

func (e *AuthUnavailableError) Is(target error) bool {
	return target == ErrAuthUnavailable
}

func unavailable(r Reason) error {
	return &AuthUnavailableError{Reason: r}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrKeyStore, op, err)
}

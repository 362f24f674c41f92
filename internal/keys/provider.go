// Package keys manages the vault's single master key: it creates the key
// lazily, keeps it only in wrapped form, and unlocks it for one request at a
// time after the user authenticates.
package keys

import "context"

// Provider is the capability the rest of the vault sees. Implementations
// decide where the key lives and how the user proves presence.
type Provider interface {
	Name() string
	// Eligible reports an *AuthUnavailableError when authentication cannot
	// happen at all.
	Eligible(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Generate(ctx context.Context) error
	Unlock(ctx context.Context) ([]byte, error)
	Reset(ctx context.Context) error
}

// KeyStore persists the wrapped master key.
type KeyStore interface {
	Name() string
	// Probe reports an *AuthUnavailableError if the backend is unusable on
	// this host.
	Probe() error
	// Load returns ErrKeyNotFound when nothing is stored.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, wrapped []byte) error
	Delete(ctx context.Context) error
}

// Enrollment is the registered credential: its salt, a verifier for the
// derived key, and an id the wrapped key is bound to.
type Enrollment struct {
	ID       string
	Salt     []byte
	Verifier []byte
}

type EnrollmentStore interface {
	// LoadEnrollment returns (nil, nil) if no credential is enrolled.
	LoadEnrollment(ctx context.Context) (*Enrollment, error)
	SaveEnrollment(ctx context.Context, e *Enrollment) error
}

// Authenticator obtains a credential from the user.
type Authenticator interface {
	// Available reports whether any authentication input exists.
	Available() bool
	// Secure reports whether the credential can be read without echo.
	Secure() bool
	// Prompt returns ErrAuthCancelled when the user declines.
	Prompt(ctx context.Context, reason string) ([]byte, error)
}

package cryptox

import "errors"

var (
	// ErrIntegrity reports ciphertext or metadata that fails authentication:
	// tampering, truncation, trailing data or a wrong key.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrIO reports a failure reading the source or writing the destination.
	ErrIO = errors.New("stream i/o failed")

	// ErrKey reports a key handle that expired or was revoked mid-operation.
	ErrKey = errors.New("key unavailable")
)

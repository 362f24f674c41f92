package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound control API requests.
const AccessTokenHeaderName = "access_token"

// MasterKeySize is the size in bytes of the vault master key (AES-256).
const MasterKeySize = 32

// CredentialHeaderName is the gRPC metadata key carrying the vault
// credential used to unlock the key for a single request.
const CredentialHeaderName = "credential"

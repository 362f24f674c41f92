// Package config handles configuration for the vault tools: defaults, an
// optional JSON overlay, and command-line flags, validated as a whole.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/keys"
)

const (
	KeyBackendSoftware = "software"
	KeyBackendKeyring  = "keyring"

	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"

	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config holds runtime settings shared by the CLI and the daemon.
//
// DatabaseDSN may be empty for SQLite, in which case the ledger lives in
// DataDir. S3 settings are only consulted when BlobBackend is "s3".
type Config struct {
	DataDir               string        `validate:"required"`
	DatabaseDriver        string        `validate:"oneof=sqlite pgx"`
	DatabaseDSN           string        `validate:"required_if=DatabaseDriver pgx"`
	KeyBackend            string        `validate:"oneof=software keyring"`
	BlobBackend           string        `validate:"oneof=fs s3"`
	ChunkSize             int           `validate:"min=1024,max=16777216"`
	MaxAuthAttempts       int           `validate:"min=1,max=10"`
	EndpointAddrGRPC      string        `validate:"required"`
	SecretKey             string        `validate:"required"`
	TokenValidityDuration time.Duration `validate:"gt=0"`
	S3RootUser            string        `validate:"required_if=BlobBackend s3"`
	S3RootPassword        string        `validate:"required_if=BlobBackend s3"`
	S3Bucket              string        `validate:"required_if=BlobBackend s3"`
	S3Region              string
	S3BaseEndpoint        string
	LogLevel              string `validate:"oneof=debug info warn error"`
	LogFormat             string `validate:"oneof=text json"`
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "encrypter")
	}
	return ".encrypter"
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden for any shared deployment.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = ""
	c.KeyBackend = KeyBackendSoftware
	c.BlobBackend = BlobBackendFS
	c.ChunkSize = cryptox.DefaultChunkSize
	c.MaxAuthAttempts = keys.DefaultMaxAttempts
	c.EndpointAddrGRPC = "127.0.0.1:50051"
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "vault"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig builds the daemon configuration from defaults, the JSON file
// named by -c/-config, and finally the remaining flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load returns defaults overlaid with the JSON file at path, if any. Callers
// apply their own flags and then Validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := loadJsonFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns the data source name for the ledger.
func (c *Config) DSN() string {
	if c.DatabaseDriver == DriverSQLite && c.DatabaseDSN == "" {
		return filepath.Join(c.DataDir, "vault.db")
	}
	return c.DatabaseDSN
}

// BlobDir is where the filesystem blob store keeps ciphertext.
func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "blobs")
}

// SpoolDir is where ciphertext waits before upload to S3.
func (c *Config) SpoolDir() string {
	return filepath.Join(c.DataDir, "spool")
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/encrypter/internal/flagx"
	"github.com/dmitrijs2005/encrypter/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "1h" strings or
// integer nanoseconds. Zero values leave the current setting untouched.
type JsonConfig struct {
	DataDir               string         `json:"data_dir"`
	DatabaseDriver        string         `json:"database_driver"`
	DatabaseDSN           string         `json:"database_dsn"`
	KeyBackend            string         `json:"key_backend"`
	BlobBackend           string         `json:"blob_backend"`
	ChunkSize             int            `json:"chunk_size"`
	MaxAuthAttempts       int            `json:"max_auth_attempts"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	LogLevel              string         `json:"log_level"`
	LogFormat             string         `json:"log_format"`
}

// parseJson applies the file named by -c/-config in args, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}
	return loadJsonFile(config, path)
}

func loadJsonFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.DataDir, c.DataDir)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.KeyBackend, c.KeyBackend)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	if c.ChunkSize != 0 {
		config.ChunkSize = c.ChunkSize
	}
	if c.MaxAuthAttempts != 0 {
		config.MaxAuthAttempts = c.MaxAuthAttempts
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
}

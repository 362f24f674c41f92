package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/flagx"
)

var daemonFlags = []string{
	"-a", "-w", "-r", "-d", "-k", "-o", "-n", "-m", "-s", "-t",
	"-u", "-p", "-b", "-g", "-e", "-l", "-f",
}

// parseFlags populates Config from the daemon's short flags:
//
//	-a string   gRPC bind address
//	-w string   data directory
//	-r string   database driver (sqlite|pgx)
//	-d string   database DSN
//	-k string   key backend (software|keyring)
//	-o string   blob backend (fs|s3)
//	-n int      cipher chunk size in bytes
//	-m int      credential attempts per authorization
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u, -p      S3 root user and password
//	-b, -g, -e  S3 bucket, region and base endpoint
//	-l, -f      log level and format
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("vaultd", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DataDir, "w", config.DataDir, "data directory")
	fs.StringVar(&config.DatabaseDriver, "r", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KeyBackend, "k", config.KeyBackend, "key backend")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend")
	fs.IntVar(&config.ChunkSize, "n", config.ChunkSize, "cipher chunk size")
	fs.IntVar(&config.MaxAuthAttempts, "m", config.MaxAuthAttempts, "credential attempts")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	if err := fs.Parse(flagx.FilterArgs(args, daemonFlags)); err != nil {
		return err
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	return nil
}

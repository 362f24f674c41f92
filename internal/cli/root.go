package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/encrypter/internal/app"
	"github.com/dmitrijs2005/encrypter/internal/config"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// env carries process stdio and the opened vault between cobra hooks.
type env struct {
	in            *os.File
	out           io.Writer
	errOut        io.Writer
	authenticator func(in *os.File, out io.Writer) keys.Authenticator

	configPath string
	overrides  options

	app *app.App
}

type options struct {
	dataDir     string
	dbDriver    string
	dbDSN       string
	keyBackend  string
	blobBackend string
	maxAttempts int
	logLevel    string
}

func newEnv() *env {
	return &env{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		authenticator: func(in *os.File, out io.Writer) keys.Authenticator {
			return keys.NewTerminalAuthenticator(in, out)
		},
	}
}

// Execute runs the CLI with process stdio and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	e := newEnv()
	if err := run(ctx, e, args); err != nil {
		fmt.Fprintln(e.errOut, "Error:", vault.Explain(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, e *env, args []string) error {
	root := newRootCommand(e)
	root.SetArgs(args)
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.errOut)

	err := root.ExecuteContext(ctx)
	if e.app != nil {
		if cerr := e.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
		e.app = nil
	}
	return err
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "encrypter [flags] command",
		Short:         "Encrypted file vault",
		Long:          "Keeps files encrypted at rest under a key that is only released after you authenticate.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&e.configPath, "config", "c", "", "path to a JSON config file")
	pf.StringVar(&e.overrides.dataDir, "data-dir", "", "vault data directory")
	pf.StringVar(&e.overrides.dbDriver, "db-driver", "", "ledger driver (sqlite or pgx)")
	pf.StringVar(&e.overrides.dbDSN, "db-dsn", "", "ledger data source name")
	pf.StringVar(&e.overrides.keyBackend, "key-backend", "", "key store (software or keyring)")
	pf.StringVar(&e.overrides.blobBackend, "blob-backend", "", "ciphertext store (fs or s3)")
	pf.IntVar(&e.overrides.maxAttempts, "max-attempts", 0, "credential attempts per unlock")
	pf.StringVar(&e.overrides.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCommand(e),
		newEnrollCommand(e),
		newEncryptCommand(e),
		newDecryptCommand(e),
		newListCommand(e),
		newDeleteCommand(e),
		newTokenCommand(e),
		newVersionCommand(e),
	)
	return root
}

// overlay copies flags the user actually set onto cfg.
func overlay(cfg *config.Config, fs *pflag.FlagSet, o options) {
	if fs.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if fs.Changed("db-driver") {
		cfg.DatabaseDriver = o.dbDriver
	}
	if fs.Changed("db-dsn") {
		cfg.DatabaseDSN = o.dbDSN
	}
	if fs.Changed("key-backend") {
		cfg.KeyBackend = o.keyBackend
	}
	if fs.Changed("blob-backend") {
		cfg.BlobBackend = o.blobBackend
	}
	if fs.Changed("max-attempts") {
		cfg.MaxAuthAttempts = o.maxAttempts
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
}

func (e *env) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	overlay(cfg, cmd.Flags(), e.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := e.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, "text", e.errOut)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, logger, e.authenticator(e.in, e.errOut))
	if err != nil {
		return err
	}
	e.app = a
	return nil
}

// Package app assembles the vault from configuration and owns its long-lived
// resources: the ledger connection, the key manager and the coordinator.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/encrypter/internal/blobstore"
	"github.com/dmitrijs2005/encrypter/internal/config"
	"github.com/dmitrijs2005/encrypter/internal/cryptox"
	"github.com/dmitrijs2005/encrypter/internal/dbx"
	"github.com/dmitrijs2005/encrypter/internal/filex"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/locator"
	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/registry"
	"github.com/dmitrijs2005/encrypter/internal/repositories/repomanager"
	"github.com/dmitrijs2005/encrypter/internal/server/auth"
	gs "github.com/dmitrijs2005/encrypter/internal/server/grpc"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"golang.org/x/sync/errgroup"
)

const (
	staleTempAge  = time.Hour
	sweepInterval = 30 * time.Minute
)

var newS3Store = func(ctx context.Context, c blobstore.S3Config) (blobstore.Store, error) {
	return blobstore.NewS3Store(ctx, c)
}

type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Registry *registry.Registry
	Provider *keys.GatedProvider
	Keys     *keys.Manager
	Vault    *vault.Coordinator

	db      *sql.DB
	fsStore *blobstore.FSStore
}

// New opens the ledger, runs migrations and wires every component. auth is
// the source of user credentials for this process.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, authenticator keys.Authenticator) (*App, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	db, repos, err := repomanager.Open(ctx, cfg.DatabaseDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, db: db}

	serial := dbx.NewSerial(db)
	a.Registry = registry.New(serial, repos)

	meta := keys.NewMetadataStore(serial, repos)
	var store keys.KeyStore = meta
	if cfg.KeyBackend == config.KeyBackendKeyring {
		store = keys.NewKernelKeyring(cfg.DataDir)
	}
	a.Provider = keys.NewGatedProvider(authenticator, meta, store, logger, keys.WithMaxAttempts(cfg.MaxAuthAttempts))
	a.Keys = keys.NewManager(a.Provider, logger)

	blobs, err := a.openBlobStore(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	vlog := logger.With("module", "vault")
	a.Vault = vault.New(a.Keys, cryptox.NewEngine(cfg.ChunkSize), a.Registry, blobs, locator.NewFileLocator(), logger,
		vault.WithStateObserver(func(op vault.Op, from, to vault.State) {
			vlog.Debug(context.Background(), "state", "op", op, "from", from, "to", to)
		}))

	logger.Debug(ctx, "vault ready", "driver", repos.Driver(), "keys", a.Provider.Name(), "blobs", cfg.BlobBackend)
	return a, nil
}

func (a *App) openBlobStore(ctx context.Context) (blobstore.Store, error) {
	switch a.Config.BlobBackend {
	case config.BlobBackendS3:
		s, err := newS3Store(ctx, blobstore.S3Config{
			Region:       a.Config.S3Region,
			RootUser:     a.Config.S3RootUser,
			RootPassword: a.Config.S3RootPassword,
			BaseEndpoint: a.Config.S3BaseEndpoint,
			Bucket:       a.Config.S3Bucket,
			SpoolDir:     a.Config.SpoolDir(),
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		return s, nil
	default:
		fs, err := blobstore.NewFSStore(a.Config.BlobDir())
		if err != nil {
			return nil, fmt.Errorf("blob dir: %w", err)
		}
		a.fsStore = fs
		a.sweep(ctx)
		return fs, nil
	}
}

// sweep removes ciphertext fragments left by interrupted writes.
func (a *App) sweep(ctx context.Context) {
	if a.fsStore == nil {
		return
	}
	n, err := a.fsStore.Sweep(staleTempAge)
	if err != nil {
		a.Logger.Warn(ctx, "sweep failed", "error", err)
		return
	}
	if n > 0 {
		a.Logger.Info(ctx, "removed abandoned temp files", "count", n)
	}
}

// IssueToken signs an access token for the control API.
func (a *App) IssueToken(clientID string) (string, error) {
	return auth.GenerateToken(clientID, []byte(a.Config.SecretKey), a.Config.TokenValidityDuration)
}

// Close waits for in-flight requests and releases the ledger.
func (a *App) Close() error {
	a.Vault.Wait()
	return a.db.Close()
}

// Serve runs the control API and the periodic sweeper until ctx is done or
// one of them fails.
func (a *App) Serve(ctx context.Context) error {
	srv := gs.NewGRPCServer(a.Config.EndpointAddrGRPC, a.Logger, a.Vault, a.Config.SecretKey)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.sweep(ctx)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.Logger.Info(ctx, "Starting app...")
	a.initSignalHandler(cancelFunc)

	return a.Serve(ctx)
}

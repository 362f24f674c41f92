// Package grpc exposes the vault over a token-protected gRPC control API.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/encrypter/internal/logging"
	"github.com/dmitrijs2005/encrypter/internal/models"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"google.golang.org/grpc"
)

// Vault is the subset of the coordinator the API serves.
type Vault interface {
	EncryptAsync(ctx context.Context, source string) <-chan vault.Result
	DecryptAsync(ctx context.Context, rec *models.FileRecord, destination string) <-chan vault.Result
	ListFiles(ctx context.Context) ([]*models.FileRecord, error)
	GetFile(ctx context.Context, id int64) (*models.FileRecord, error)
	DeleteFile(ctx context.Context, id int64) (bool, error)
}

type GRPCServer struct {
	address   string
	vault     Vault
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, v Vault, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		vault:     v,
		jwtSecret: []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterVaultServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

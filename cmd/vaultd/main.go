package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/encrypter/internal/app"
	"github.com/dmitrijs2005/encrypter/internal/buildinfo"
	"github.com/dmitrijs2005/encrypter/internal/config"
	"github.com/dmitrijs2005/encrypter/internal/keys"
	"github.com/dmitrijs2005/encrypter/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	if err := keys.DisableCoreDumps(); err != nil {
		log.Printf("core dumps: %v", err)
	}

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, "json", os.Stdout)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx := context.Background()

	// Credentials arrive per request in gRPC metadata.
	a, err := app.New(ctx, cfg, logger, keys.ContextAuthenticator{})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
	}

}

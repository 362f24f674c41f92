package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/encrypter/internal/cli"
	"github.com/dmitrijs2005/encrypter/internal/keys"
)

func main() {
	_ = keys.DisableCoreDumps()
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}

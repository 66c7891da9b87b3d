package main

import (
	"os"

	"github.com/ggoodman/lsp-server-go/internal/cli"
)

// The entry point for the lsp-server binary. stdout carries the protocol, so
// nothing else may write to it.
func main() {
	os.Exit(cli.Execute())
}

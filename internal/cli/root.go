package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ggoodman/lsp-server-go/internal"
)

// Root is the command tree.
type Root struct {
	Serve        ServeCmd        `cmd:"" default:"1" help:"Run a language server session over stdio."`
	Version      VersionCmd      `cmd:"" help:"Show version information."`
	ConfigSchema ConfigSchemaCmd `cmd:"" name:"config-schema" help:"Print the JSON Schema of the initializationOptions payload."`
}

// Streams are the process streams handed to commands.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Execute parses os.Args, runs the selected command and returns the process
// exit status.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return run(ctx, os.Args[1:], &Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
}

func run(ctx context.Context, args []string, streams *Streams) int {
	var root Root
	parser, err := kong.New(&root,
		kong.Name(internal.Name),
		kong.Description("A language server bootstrap speaking LSP over stdin/stdout."),
		kong.UsageOnError(),
		kong.Writers(streams.Stdout, streams.Stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(streams),
	)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "%s: %v\n", internal.Name, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%v", err)
		return 1
	}

	if err := kctx.Run(); err != nil {
		fmt.Fprintf(streams.Stderr, "%s: %v\n", internal.Name, err)
		return 1
	}
	return 0
}

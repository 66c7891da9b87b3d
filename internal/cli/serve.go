package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/lsp-server-go/internal"
	"github.com/ggoodman/lsp-server-go/internal/diag"
	"github.com/ggoodman/lsp-server-go/internal/engine"
	"github.com/ggoodman/lsp-server-go/internal/startup"
	"github.com/ggoodman/lsp-server-go/server"
	"github.com/ggoodman/lsp-server-go/stdio"
)

// Represents the default 'lsp-server serve' command.
type ServeCmd struct{}

// Executes one session. Diagnostics are set up before anything touches the
// protocol streams; failing that is a startup failure.
func (c *ServeCmd) Run(ctx context.Context, s *Streams) error {
	cfg, err := startup.FromEnv()
	if err != nil {
		return &server.Error{Kind: server.KindStartup, Err: err}
	}
	startup.ApplyTraceback()

	d, err := diag.Init(ctx, cfg, diag.WithStderr(s.Stderr), diag.WithProgramName(internal.Name))
	if err != nil {
		return &server.Error{Kind: server.KindStartup, Err: err}
	}
	defer func() {
		if err := d.Close(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(s.Stderr, "%s: close diagnostics: %v\n", internal.Name, err)
		}
	}()

	d.Logger.DebugContext(ctx, "build", slog.String("version", internal.VersionString()))

	srv := server.New(
		engine.New(),
		server.WithLogger(d.Logger),
		server.WithProfiler(d.Profiler),
		server.WithServerInfo(internal.Name, internal.Version()),
		server.WithTransport(stdio.WithIO(s.Stdin, s.Stdout)),
	)
	return srv.Run(ctx)
}

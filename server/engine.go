package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
	"github.com/ggoodman/lsp-server-go/internal/profile"
	"github.com/ggoodman/lsp-server-go/session"
	"github.com/ggoodman/lsp-server-go/stdio"
	"go.lsp.dev/protocol"
)

// Session is everything the engine receives for one session. It is passed by
// value; the server does not touch it after the handoff.
type Session struct {
	// ID identifies the session in logs.
	ID string
	// Roots is the non-empty, ordered list of workspace root directories.
	Roots []string
	// ClientCapabilities is what the client declared in initialize.
	ClientCapabilities protocol.ClientCapabilities
	// Config is the resolved session configuration, never absent.
	Config session.Config

	Sender   stdio.Sender
	Receiver stdio.Receiver

	Logger   *slog.Logger
	Profiler *profile.Profiler
}

// Engine handles all protocol traffic after the handshake.
//
// Serve is called exactly once. It must return after it has answered the
// shutdown request, leaving the exit notification to the server. A returned
// error fails the session. Serve runs on the session goroutine; panics on
// that goroutine are recovered by the server, panics on goroutines the engine
// starts are not.
type Engine interface {
	Serve(ctx context.Context, s Session) error
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, s Session) error

func (f EngineFunc) Serve(ctx context.Context, s Session) error { return f(ctx, s) }

// handoff calls the engine once and maps its error onto a failure Kind.
func (s *Server) handoff(ctx context.Context, sess Session) error {
	ctx, end := s.prof.Span(ctx, "main_loop")
	defer end()

	err := s.engine.Serve(ctx, sess)
	if err == nil {
		return nil
	}
	var pe *jsonrpc.ProtocolError
	if errors.As(err, &pe) {
		return &Error{Kind: KindProtocol, Err: err}
	}
	return &Error{Kind: KindEngine, Err: err}
}

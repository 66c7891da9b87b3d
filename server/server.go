package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/ggoodman/lsp-server-go/capabilities"
	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
	"github.com/ggoodman/lsp-server-go/internal/logctx"
	"github.com/ggoodman/lsp-server-go/internal/profile"
	"github.com/ggoodman/lsp-server-go/lsp"
	"github.com/ggoodman/lsp-server-go/session"
	"github.com/ggoodman/lsp-server-go/stdio"
	"github.com/google/uuid"
)

// Server runs a single session. It is not reusable.
type Server struct {
	engine Engine
	log    *slog.Logger
	prof   *profile.Profiler
	info   lsp.ServerInfo
	getwd  func() (string, error)

	transportOpts []stdio.Option

	// io is set while the transport goroutines are running and unjoined.
	io *stdio.IOThreads
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProfiler sets the profiler used for the handshake and main_loop spans.
func WithProfiler(p *profile.Profiler) Option {
	return func(s *Server) { s.prof = p }
}

// WithServerInfo sets the name and version reported in the initialize result.
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = lsp.ServerInfo{Name: name, Version: version}
	}
}

// WithWorkingDir overrides how the fallback workspace root is determined.
func WithWorkingDir(getwd func() (string, error)) Option {
	return func(s *Server) {
		if getwd != nil {
			s.getwd = getwd
		}
	}
}

// WithTransport passes options to the stdio transport, typically
// stdio.WithIO in tests.
func WithTransport(opts ...stdio.Option) Option {
	return func(s *Server) {
		s.transportOpts = append(s.transportOpts, opts...)
	}
}

// New creates a Server that hands the session to engine.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		log:    slog.New(slog.DiscardHandler),
		info:   lsp.ServerInfo{Name: "lsp-server"},
		getwd:  os.Getwd,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the session from transport setup to transport join and
// returns nil only for a clean initialize..shutdown..exit sequence. A panic
// on the calling goroutine is recovered and reported as KindFault; whatever
// the outcome, a terminating event is logged before Run returns.
func (s *Server) Run(ctx context.Context) error {
	s.log.InfoContext(ctx, "lifecycle: server started", slog.Int("pid", os.Getpid()))
	err := s.guard(ctx)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	s.log.Log(ctx, level, "lifecycle: terminating process", slog.String("outcome", outcome(err)))
	return err
}

func (s *Server) guard(ctx context.Context) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.log.ErrorContext(ctx, "server panicked",
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
		if s.io != nil {
			s.io.Abort()
			if jerr := s.joinIO(ctx); jerr != nil {
				s.log.WarnContext(ctx, "io shutdown after panic failed", slog.String("err", jerr.Error()))
			}
		}
		err = &Error{Kind: KindFault, Err: fmt.Errorf("%w: %v", ErrServerPanicked, r)}
	}()
	return s.runInner(ctx)
}

func (s *Server) runInner(ctx context.Context) error {
	cwd, err := s.getwd()
	if err != nil {
		return &Error{Kind: KindStartup, Err: fmt.Errorf("resolve working directory: %w", err)}
	}
	caps, err := capabilities.Advertised()
	if err != nil {
		return &Error{Kind: KindStartup, Err: fmt.Errorf("encode capabilities: %w", err)}
	}

	opts := append([]stdio.Option{stdio.WithLogger(s.log)}, s.transportOpts...)
	conn, threads := stdio.Open(opts...)
	s.io = threads

	err = s.serve(ctx, conn, cwd, caps)
	if err != nil {
		threads.Detach()
	}
	jerr := s.joinIO(ctx)

	switch {
	case jerr == nil:
		return err
	case isProtocol(jerr):
		// A framing failure is what ended the session, whatever the engine
		// made of the closed receiver.
		return &Error{Kind: KindProtocol, Err: errors.Join(jerr, err)}
	case err != nil:
		s.log.WarnContext(ctx, "io shutdown after failed session", slog.String("err", jerr.Error()))
		return err
	default:
		return &Error{Kind: KindShutdownIO, Err: jerr}
	}
}

func (s *Server) serve(ctx context.Context, conn stdio.Conn, cwd string, caps json.RawMessage) error {
	hctx, end := s.prof.Span(ctx, "handshake")
	params, err := s.handshake(hctx, conn, caps)
	end()
	if err != nil {
		return err
	}

	id := uuid.NewString()
	sd := &logctx.SessionData{SessionID: id}
	if params.ClientInfo != nil {
		sd.ClientName = params.ClientInfo.Name
	}
	ctx = logctx.WithSessionData(ctx, sd)

	p := session.Initialize(ctx, s.log, cwd, params, conn.Sender)
	sd.Roots = len(p.Roots)
	s.log.InfoContext(ctx, "session initialized", slog.Any("roots", p.Roots))

	err = s.handoff(ctx, Session{
		ID:                 id,
		Roots:              p.Roots,
		ClientCapabilities: p.ClientCapabilities,
		Config:             p.Config,
		Sender:             conn.Sender,
		Receiver:           conn.Receiver,
		Logger:             s.log,
		Profiler:           s.prof,
	})
	if err != nil {
		return err
	}
	return s.awaitExit(ctx, conn.Receiver)
}

// joinIO joins the transport goroutines once.
func (s *Server) joinIO(ctx context.Context) error {
	t := s.io
	s.io = nil
	s.log.InfoContext(ctx, "shutting down IO...")
	err := t.Join()
	s.log.InfoContext(ctx, "... IO is down")
	return err
}

func isProtocol(err error) bool {
	var pe *jsonrpc.ProtocolError
	return errors.As(err, &pe)
}

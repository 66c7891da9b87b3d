// Package engine is the reference processing engine run by the lsp-server
// binary. It owns the session after the handshake: it answers shutdown,
// rejects every other request with MethodNotFound, and keeps the workspace
// roots under watch, either through the client or with fsnotify.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
	"github.com/ggoodman/lsp-server-go/internal/logctx"
	"github.com/ggoodman/lsp-server-go/internal/outbound"
	"github.com/ggoodman/lsp-server-go/lsp"
	"github.com/ggoodman/lsp-server-go/server"
	"github.com/ggoodman/lsp-server-go/stdio"
)

var (
	// ErrExitWithoutShutdown is returned when the client sends exit, or goes
	// away, before asking for shutdown.
	ErrExitWithoutShutdown = errors.New("client exited without shutdown")

	errSessionEnded = errors.New("session ended")
)

// Engine implements server.Engine.
type Engine struct {
	log      *slog.Logger
	onChange func(fsnotify.Event)

	// watchReady is called once the initial walk of the roots is done.
	watchReady func()
}

var _ server.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger. Without it the session's logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithChangeHook is called for every file event the server-side watcher
// reports. It runs on the watcher goroutine.
func WithChangeHook(fn func(fsnotify.Event)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Serve runs the main loop until shutdown has been answered.
func (e *Engine) Serve(ctx context.Context, s server.Session) error {
	log := e.log
	if log == nil {
		log = s.Logger
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	d := outbound.New(senderTransport{s.Sender})
	var wg sync.WaitGroup
	defer func() {
		d.Close(errSessionEnded)
		cancel()
		wg.Wait()
	}()

	if s.Config.UseClientWatching && clientCanWatch(s) {
		e.registerClientWatchers(ctx, &wg, log, d, s.Roots)
	} else {
		e.watchRoots(ctx, &wg, log, s.Roots, s.Config.ExcludeGlobs)
	}

	for {
		msg, err := s.Receiver.Receive(ctx)
		if err != nil {
			if errors.Is(err, stdio.ErrTransportClosed) {
				return fmt.Errorf("%w: client disconnected", ErrExitWithoutShutdown)
			}
			return err
		}

		mctx := logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
			Method: msg.Method,
			ID:     msg.ID.String(),
			Type:   msg.Type(),
		})
		log.DebugContext(mctx, "message received")

		switch msg.Type() {
		case "response":
			if !d.OnResponse(msg.AsResponse()) {
				log.DebugContext(mctx, "dropping unmatched response")
			}
		case "notification":
			if msg.Method == string(lsp.ExitNotificationMethod) {
				return ErrExitWithoutShutdown
			}
			e.handleNotification(mctx, log, msg)
		case "request":
			if msg.Method == string(lsp.ShutdownMethod) {
				_, end := s.Profiler.Span(mctx, "shutdown")
				err := s.Sender.Reply(msg.ID, nil)
				end()
				if err != nil {
					return fmt.Errorf("reply to shutdown: %w", err)
				}
				log.InfoContext(mctx, "shutdown requested")
				return nil
			}
			if err := s.Sender.ReplyError(msg.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+msg.Method); err != nil {
				return fmt.Errorf("reply to %s: %w", msg.Method, err)
			}
		}
	}
}

func (e *Engine) handleNotification(ctx context.Context, log *slog.Logger, msg *jsonrpc.AnyMessage) {
	switch lsp.Method(msg.Method) {
	case lsp.CancelRequestNotificationMethod:
		// Requests are answered inline, so there is never one in flight.
		log.DebugContext(ctx, "ignoring cancellation")
	case lsp.DidChangeWatchedFilesNotificationMethod:
		var p struct {
			Changes []json.RawMessage `json:"changes"`
		}
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			log.WarnContext(ctx, "invalid didChangeWatchedFiles params", slog.String("err", err.Error()))
			return
		}
		log.DebugContext(ctx, "client reported file changes", slog.Int("count", len(p.Changes)))
	default:
		log.DebugContext(ctx, "ignoring notification")
	}
}

// senderTransport lets the outbound dispatcher write through the session.
type senderTransport struct {
	s stdio.Sender
}

func (t senderTransport) SendRequest(_ context.Context, req *jsonrpc.Request) error {
	return t.s.Send(req)
}

func (t senderTransport) SendCancel(_ context.Context, id *jsonrpc.RequestID) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return t.s.Notify(string(lsp.CancelRequestNotificationMethod), lsp.CancelParams{ID: raw})
}

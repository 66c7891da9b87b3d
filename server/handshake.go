package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
	"github.com/ggoodman/lsp-server-go/lsp"
	"github.com/ggoodman/lsp-server-go/stdio"
)

// handshake waits for initialize, answers it with caps, and waits for the
// initialized notification. Requests that arrive first are answered with
// ServerNotInitialized; notifications other than exit are dropped.
func (s *Server) handshake(ctx context.Context, conn stdio.Conn, caps json.RawMessage) (lsp.InitializeParams, error) {
	var params lsp.InitializeParams

	req, err := s.awaitInitialize(ctx, conn)
	if err != nil {
		return params, err
	}

	if len(req.Params) == 0 {
		err = errors.New("missing params")
	} else {
		err = json.Unmarshal(req.Params, &params)
	}
	if err != nil {
		if rerr := conn.Sender.ReplyError(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params: "+err.Error()); rerr != nil {
			s.log.WarnContext(ctx, "failed to reply to initialize", slog.String("err", rerr.Error()))
		}
		return params, protocolf("invalid initialize params: %w", err)
	}

	info := s.info
	result := lsp.InitializeResult{Capabilities: caps, ServerInfo: &info}
	if err := conn.Sender.Reply(req.ID, result); err != nil {
		return params, protocolf("send initialize result: %w", err)
	}

	next, err := conn.Receiver.Receive(ctx)
	if err != nil {
		if errors.Is(err, stdio.ErrTransportClosed) {
			return params, protocolf("expected initialized notification, got disconnected")
		}
		return params, protocolf("waiting for initialized: %w", err)
	}
	if next.Type() != "notification" || next.Method != string(lsp.InitializedNotificationMethod) {
		return params, protocolf("expected initialized notification, got %s %q", next.Type(), next.Method)
	}

	client := ""
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.log.InfoContext(ctx, "handshake complete", slog.String("client", client))
	return params, nil
}

func (s *Server) awaitInitialize(ctx context.Context, conn stdio.Conn) (*jsonrpc.AnyMessage, error) {
	for {
		msg, err := conn.Receiver.Receive(ctx)
		if err != nil {
			if errors.Is(err, stdio.ErrTransportClosed) {
				return nil, protocolf("expected initialize request, got disconnected")
			}
			return nil, protocolf("waiting for initialize: %w", err)
		}

		switch msg.Type() {
		case "request":
			if msg.Method == string(lsp.InitializeMethod) {
				return msg, nil
			}
			s.log.DebugContext(ctx, "request before initialize", slog.String("method", msg.Method))
			if err := conn.Sender.ReplyError(msg.ID, jsonrpc.ErrorCodeServerNotInitialized, "server not initialized"); err != nil {
				return nil, protocolf("reply to %q before initialize: %w", msg.Method, err)
			}
		case "notification":
			if msg.Method == string(lsp.ExitNotificationMethod) {
				return nil, protocolf("expected initialize request, got exit notification")
			}
			s.log.DebugContext(ctx, "dropping notification before initialize", slog.String("method", msg.Method))
		default:
			s.log.DebugContext(ctx, "dropping response before initialize")
		}
	}
}

// awaitExit consumes the exit notification that must follow the engine's
// return.
func (s *Server) awaitExit(ctx context.Context, r stdio.Receiver) error {
	msg, err := r.Receive(ctx)
	if err != nil {
		if errors.Is(err, stdio.ErrTransportClosed) {
			return protocolf("expected exit notification, got disconnected")
		}
		return protocolf("waiting for exit: %w", err)
	}
	if msg.Type() != "notification" || msg.Method != string(lsp.ExitNotificationMethod) {
		return protocolf("expected exit notification, got %s %q", msg.Type(), msg.Method)
	}
	return nil
}

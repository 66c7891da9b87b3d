package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ggoodman/lsp-server-go/lsp"
	"go.lsp.dev/protocol"
)

// Notifier sends a notification to the client.
type Notifier interface {
	Notify(method string, params any) error
}

// Params are the resolved session parameters handed to the engine. They are
// created once per session and not modified afterwards.
type Params struct {
	Roots              []string
	Config             Config
	ClientCapabilities protocol.ClientCapabilities
}

// Initialize resolves roots and configuration from the initialize request.
func Initialize(ctx context.Context, log *slog.Logger, cwd string, p lsp.InitializeParams, n Notifier) Params {
	return Params{
		Roots:              ResolveRoots(cwd, p),
		Config:             ResolveConfig(ctx, log, p.InitializationOptions, n),
		ClientCapabilities: p.Capabilities,
	}
}

// ResolveConfig decodes raw. When it is absent or fails to decode, the
// failure is logged, reported to the user with one error-level
// window/showMessage, and the default is used.
func ResolveConfig(ctx context.Context, log *slog.Logger, raw json.RawMessage, n Notifier) Config {
	cfg, err := DecodeConfig(raw)
	if err == nil {
		return cfg
	}

	log.ErrorContext(ctx, "failed to deserialize config", slog.String("err", err.Error()))
	msg := lsp.ShowMessageParams{
		Type:    lsp.MessageTypeError,
		Message: "failed to deserialize config: " + err.Error(),
	}
	if nerr := n.Notify(string(lsp.ShowMessageNotificationMethod), msg); nerr != nil {
		log.WarnContext(ctx, "failed to notify client of config error", slog.String("err", nerr.Error()))
	}
	return DefaultConfig()
}

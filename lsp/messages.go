package lsp

import (
	"encoding/json"

	"go.lsp.dev/protocol"
)

// Method is an LSP method identifier used in JSON-RPC messages.
type Method string

// LSP method names used by the bootstrap and the reference engine.
const (
	// Lifecycle
	InitializeMethod              Method = "initialize"
	InitializedNotificationMethod Method = "initialized"
	ShutdownMethod                Method = "shutdown"
	ExitNotificationMethod        Method = "exit"

	// Window
	ShowMessageNotificationMethod Method = "window/showMessage"

	// Client
	RegisterCapabilityMethod Method = "client/registerCapability"

	// Workspace
	DidChangeWatchedFilesNotificationMethod Method = "workspace/didChangeWatchedFiles"

	// General
	CancelRequestNotificationMethod Method = "$/cancelRequest"
)

// ClientInfo identifies the client application, when it says so.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitzero"`
}

// InitializeParams is the payload of the initialize request.
//
// RootURI and RootPath are both optional; RootPath is deprecated by the
// protocol but still sent by older clients. InitializationOptions is kept raw
// because its schema belongs to the server, not the protocol.
type InitializeParams struct {
	ProcessID             *int32                      `json:"processId,omitempty"`
	ClientInfo            *ClientInfo                 `json:"clientInfo,omitempty"`
	RootPath              string                      `json:"rootPath,omitzero"`
	RootURI               string                      `json:"rootUri,omitzero"`
	InitializationOptions json.RawMessage             `json:"initializationOptions,omitempty"`
	Capabilities          protocol.ClientCapabilities `json:"capabilities"`
	Trace                 string                      `json:"trace,omitzero"`
	WorkspaceFolders      []protocol.WorkspaceFolder  `json:"workspaceFolders,omitempty"`
}

// ServerInfo identifies this server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitzero"`
}

// InitializeResult is the response to the initialize request. Capabilities is
// pre-serialized so that the advertised set is computed exactly once.
type InitializeResult struct {
	Capabilities json.RawMessage `json:"capabilities"`
	ServerInfo   *ServerInfo     `json:"serverInfo,omitempty"`
}

// ShowMessageParams is re-exported for callers that only import this package.
type ShowMessageParams = protocol.ShowMessageParams

// MessageTypeError is the severity used for user-visible error notifications.
const MessageTypeError = protocol.MessageTypeError

// CancelParams is the payload of $/cancelRequest.
type CancelParams struct {
	ID json.RawMessage `json:"id"`
}

// Registration requests dynamic registration of a capability.
type Registration struct {
	ID              string `json:"id"`
	Method          string `json:"method"`
	RegisterOptions any    `json:"registerOptions,omitempty"`
}

// RegistrationParams is the payload of client/registerCapability.
type RegistrationParams struct {
	Registrations []Registration `json:"registrations"`
}

// FileSystemWatcher is one glob the client should watch on our behalf.
type FileSystemWatcher struct {
	GlobPattern string `json:"globPattern"`
}

// DidChangeWatchedFilesRegistrationOptions carries the watchers to register.
type DidChangeWatchedFilesRegistrationOptions struct {
	Watchers []FileSystemWatcher `json:"watchers"`
}

// Package capabilities describes what this server advertises in the
// initialize response. The set is static: it depends only on the build, never
// on what the client declares, and it is serialized once per process.
package capabilities

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.lsp.dev/protocol"
)

// Server returns the server capabilities. Each call builds a fresh value, so
// callers may not observe mutations made by others.
func Server() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindFull,
			Save:      &protocol.SaveOptions{IncludeText: false},
		},
		HoverProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			ResolveProvider:   false,
			TriggerCharacters: []string{":", "."},
		},
		SignatureHelpProvider: &protocol.SignatureHelpOptions{
			TriggerCharacters: []string{"(", ","},
		},
		DefinitionProvider:         true,
		TypeDefinitionProvider:     true,
		ImplementationProvider:     true,
		ReferencesProvider:         true,
		DocumentHighlightProvider:  true,
		DocumentSymbolProvider:     true,
		WorkspaceSymbolProvider:    true,
		CodeActionProvider:         true,
		CodeLensProvider:           &protocol.CodeLensOptions{ResolveProvider: true},
		DocumentFormattingProvider: true,
		DocumentOnTypeFormattingProvider: &protocol.DocumentOnTypeFormattingOptions{
			FirstTriggerCharacter: "=",
			MoreTriggerCharacter:  []string{".", ">"},
		},
		RenameProvider:         &protocol.RenameOptions{PrepareProvider: true},
		FoldingRangeProvider:   true,
		SelectionRangeProvider: true,
	}
}

var advertised = sync.OnceValues(func() (json.RawMessage, error) {
	b, err := json.Marshal(Server())
	if err != nil {
		return nil, fmt.Errorf("marshal server capabilities: %w", err)
	}
	return b, nil
})

// Advertised returns the serialized capability payload for the initialize
// response. The payload is computed on first use and shared afterwards;
// callers must not modify the returned bytes.
func Advertised() (json.RawMessage, error) {
	return advertised()
}

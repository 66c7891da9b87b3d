// Package lsp holds the Language Server Protocol wire types this server needs
// around the initialize handshake. Structures the handshake treats as opaque
// or that are stable in the protocol (client capabilities, server
// capabilities, workspace folders, message types) come from go.lsp.dev/protocol;
// the handshake request itself is declared here so that initializationOptions
// stays raw until the session layer decodes it against its own schema.
package lsp

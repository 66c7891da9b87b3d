// Parses the command line for the lsp-server binary.
//
//	lsp-server [serve]       Run one language-server session on stdin/stdout.
//	lsp-server version       Print version information.
//	lsp-server config-schema Print the JSON Schema of initializationOptions.
//
// Diagnostics are configured from the environment (RA_LOG, RA_LOG_DIR,
// RA_PROFILE, RA_OTEL_ENDPOINT), never from flags, so editors can launch the
// server without arguments.
package cli

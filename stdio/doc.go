// Package stdio implements the duplex message transport of a language server
// over stdin/stdout. It is the only transport the server speaks: an editor
// spawns the server as a child process and exchanges LSP base-protocol frames
// (Content-Length headers + JSON-RPC body) over the pipes.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Framing          : Content-Length headers, see internal/jsonrpc
//	Concurrency      : one reader and one writer goroutine per transport
//	Ordering         : FIFO in both directions
//
// Open returns a Conn for the session and an IOThreads handle for the two
// goroutines. The session must call IOThreads.Join exactly once before the
// process exits; output still queued is otherwise lost.
//
// Example:
//
//	conn, io := stdio.Open(stdio.WithLogger(log))
//	err := serve(conn.Sender, conn.Receiver)
//	if jerr := io.Join(); jerr != nil { ... }
package stdio

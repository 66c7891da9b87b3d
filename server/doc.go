// Package server runs one language-server session over stdio.
//
// Run is the process lifecycle boundary. It logs the start of the session,
// recovers any panic raised on the session goroutine, and logs the
// terminating outcome. Inside it the session:
//
//  1. opens the stdio transport (reader and writer goroutines)
//  2. waits for initialize, answers with the static capability set, and
//     waits for initialized
//  3. resolves workspace roots and session configuration
//  4. hands control to the Engine exactly once
//  5. waits for the exit notification
//  6. joins the transport goroutines
//
// Every failure is reported as an *Error whose Kind tells the categories
// apart. There is no retry and no handshake timeout: a client that never
// sends initialize keeps the session waiting until ctx is done.
package server

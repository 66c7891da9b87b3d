package engine

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
	"github.com/ggoodman/lsp-server-go/server"
	"github.com/ggoodman/lsp-server-go/session"
	"github.com/ggoodman/lsp-server-go/stdio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

const waitTimeout = 5 * time.Second

// peer plays the client side of a session handed to the engine.
type peer struct {
	t    *testing.T
	in   *io.PipeWriter
	fw   *jsonrpc.FrameWriter
	msgs chan *jsonrpc.AnyMessage
	done chan error
}

func serve(t *testing.T, e *Engine, sess server.Session) *peer {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	t.Cleanup(func() {
		_ = inW.Close()
		_ = inR.Close()
		_ = outW.Close()
		_ = outR.Close()
	})

	conn, threads := stdio.Open(stdio.WithIO(inR, outW))
	t.Cleanup(func() {
		threads.Detach()
		_ = threads.Join()
	})
	sess.Sender = conn.Sender
	sess.Receiver = conn.Receiver
	if sess.Roots == nil {
		sess.Roots = []string{t.TempDir()}
	}

	p := &peer{
		t:    t,
		in:   inW,
		fw:   jsonrpc.NewFrameWriter(inW),
		msgs: make(chan *jsonrpc.AnyMessage, 64),
		done: make(chan error, 1),
	}
	go func() {
		defer close(p.msgs)
		fr := jsonrpc.NewFrameReader(outR)
		for {
			payload, err := fr.Read()
			if err != nil {
				return
			}
			msg, err := jsonrpc.Decode(payload)
			if err != nil {
				return
			}
			p.msgs <- msg
		}
	}()
	go func() { p.done <- e.Serve(context.Background(), sess) }()
	return p
}

func (p *peer) send(msg jsonrpc.Message) {
	p.t.Helper()
	require.NoError(p.t, p.fw.Write(msg))
}

func (p *peer) request(id int, method string, params any) {
	p.t.Helper()
	req, err := jsonrpc.NewRequest(jsonrpc.NewRequestID(id), method, params)
	require.NoError(p.t, err)
	p.send(req)
}

func (p *peer) notify(method string, params any) {
	p.t.Helper()
	n, err := jsonrpc.NewNotification(method, params)
	require.NoError(p.t, err)
	p.send(n)
}

func (p *peer) next() *jsonrpc.AnyMessage {
	p.t.Helper()
	select {
	case msg, ok := <-p.msgs:
		require.True(p.t, ok, "engine output closed")
		return msg
	case <-time.After(waitTimeout):
		p.t.Fatal("timed out waiting for engine output")
		return nil
	}
}

func (p *peer) wait() error {
	p.t.Helper()
	select {
	case err := <-p.done:
		return err
	case <-time.After(waitTimeout):
		p.t.Fatal("timed out waiting for Serve to return")
		return nil
	}
}

// ping makes sure the main loop is running.
func (p *peer) ping(id int) {
	p.t.Helper()
	p.request(id, "textDocument/hover", map[string]any{})
	resp := p.next()
	require.NotNil(p.t, resp.Error)
}

func baseSession() server.Session {
	return server.Session{ID: "test", Config: session.DefaultConfig()}
}

func TestShutdownEndsServe(t *testing.T) {
	p := serve(t, New(), baseSession())

	p.request(1, "shutdown", nil)
	resp := p.next()
	assert.Equal(t, "1", resp.ID.String())
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, "null", string(resp.Result))

	require.NoError(t, p.wait())
}

func TestUnknownRequestIsMethodNotFound(t *testing.T) {
	p := serve(t, New(), baseSession())

	p.notify("textDocument/didOpen", map[string]any{})
	p.notify("$/cancelRequest", map[string]any{"id": 1})
	p.request(2, "textDocument/completion", map[string]any{})
	resp := p.next()
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.ErrorCodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "2", resp.ID.String())

	p.request(3, "shutdown", nil)
	p.next()
	require.NoError(t, p.wait())
}

func TestExitWithoutShutdown(t *testing.T) {
	p := serve(t, New(), baseSession())
	p.notify("exit", nil)
	assert.ErrorIs(t, p.wait(), ErrExitWithoutShutdown)
}

func TestDisconnectWithoutShutdown(t *testing.T) {
	p := serve(t, New(), baseSession())
	require.NoError(t, p.in.Close())
	assert.ErrorIs(t, p.wait(), ErrExitWithoutShutdown)
}

func clientCaps(t *testing.T, raw string) protocol.ClientCapabilities {
	t.Helper()
	var caps protocol.ClientCapabilities
	require.NoError(t, json.Unmarshal([]byte(raw), &caps))
	return caps
}

func TestRegistersClientWatchers(t *testing.T) {
	sess := baseSession()
	sess.Roots = []string{"/ws/a", "/ws/b"}
	sess.Config.UseClientWatching = true
	sess.ClientCapabilities = clientCaps(t, `{"workspace":{"didChangeWatchedFiles":{"dynamicRegistration":true}}}`)
	p := serve(t, New(), sess)

	req := p.next()
	require.Equal(t, "request", req.Type())
	require.Equal(t, "client/registerCapability", req.Method)

	var params struct {
		Registrations []struct {
			Method          string `json:"method"`
			RegisterOptions struct {
				Watchers []struct {
					GlobPattern string `json:"globPattern"`
				} `json:"watchers"`
			} `json:"registerOptions"`
		} `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(req.Params, &params))
	require.Len(t, params.Registrations, 1)
	reg := params.Registrations[0]
	assert.Equal(t, "workspace/didChangeWatchedFiles", reg.Method)
	require.Len(t, reg.RegisterOptions.Watchers, 2)
	assert.Equal(t, "/ws/a/**/*", reg.RegisterOptions.Watchers[0].GlobPattern)

	resp, err := jsonrpc.NewResultResponse(req.ID, nil)
	require.NoError(t, err)
	p.send(resp)

	p.notify("workspace/didChangeWatchedFiles", map[string]any{"changes": []any{map[string]any{"uri": "file:///ws/a/x", "type": 1}}})
	p.request(5, "shutdown", nil)
	assert.Equal(t, "5", p.next().ID.String())
	require.NoError(t, p.wait())
}

func TestClientWatchingNeedsDynamicRegistration(t *testing.T) {
	sess := baseSession()
	sess.Config.UseClientWatching = true
	p := serve(t, New(), sess)

	p.request(1, "shutdown", nil)
	resp := p.next()
	assert.Equal(t, "response", resp.Type(), "no registration request expected")
	require.NoError(t, p.wait())
}

func TestServerSideWatchingHonoursExcludes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "target"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build", "debug", "deps"), 0o755))

	events := make(chan fsnotify.Event, 64)
	ready := make(chan struct{})
	sess := baseSession()
	sess.Roots = []string{root}
	sess.Config.ExcludeGlobs = []string{"*.tmp", "target", "build/**"}
	e := New(WithChangeHook(func(ev fsnotify.Event) { events <- ev }))
	e.watchReady = func() { close(ready) }
	p := serve(t, e, sess)
	select {
	case <-ready:
	case <-time.After(waitTimeout):
		t.Fatal("initial walk did not finish")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "target", "out.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build", "debug", "deps", "a.o"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.txt"), []byte("x"), 0o644))

	deadline := time.After(waitTimeout)
	for seen := false; !seen; {
		select {
		case ev := <-events:
			assert.NotEqual(t, "skip.tmp", filepath.Base(ev.Name))
			assert.NotEqual(t, "out.txt", filepath.Base(ev.Name))
			assert.NotEqual(t, "a.o", filepath.Base(ev.Name))
			seen = filepath.Base(ev.Name) == "main.txt"
		case <-deadline:
			t.Fatal("no event for main.txt")
		}
	}

	p.request(1, "shutdown", nil)
	p.next()
	require.NoError(t, p.wait())
}

func TestShutdownDoesNotWaitForInitialWalk(t *testing.T) {
	release := make(chan struct{})
	e := New()
	e.watchReady = func() { <-release }

	p := serve(t, e, baseSession())
	p.ping(1)
	p.request(2, "shutdown", nil)
	assert.Equal(t, "2", p.next().ID.String())

	close(release)
	require.NoError(t, p.wait())
}

func TestExcludeMatcher(t *testing.T) {
	m := excludeMatcher{roots: []string{"/ws"}, globs: []string{"target", "*.log", "gen/*"}}
	assert.True(t, m.excluded("/ws/target"))
	assert.True(t, m.excluded("/ws/sub/app.log"))
	assert.True(t, m.excluded("/ws/gen/x.go"))
	assert.False(t, m.excluded("/ws/src/main.go"))
	assert.False(t, m.excluded("/ws"))
	assert.False(t, m.excluded("/elsewhere/target/x"))
}

func TestExcludeMatcherDoubleStar(t *testing.T) {
	m := excludeMatcher{roots: []string{"/ws"}, globs: []string{"target/**", "**/node_modules", "docs/**/*.md"}}
	assert.True(t, m.excluded("/ws/target"))
	assert.True(t, m.excluded("/ws/target/x"))
	assert.True(t, m.excluded("/ws/target/debug/build/a.rs"))
	assert.True(t, m.excluded("/ws/web/app/node_modules"))
	assert.True(t, m.excluded("/ws/docs/a/b/readme.md"))
	assert.False(t, m.excluded("/ws/docs/a/b/readme.txt"))
	assert.False(t, m.excluded("/ws/src/target.rs"))
	assert.False(t, m.excluded("/ws/sub/target/x"))
}

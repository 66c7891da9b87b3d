// Package outbound correlates server-initiated requests with the client's
// responses. Responses arrive on the session's main loop, which hands them to
// OnResponse; callers block in Call on their own goroutine.
package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
)

// Transport emits outbound messages for the dispatcher.
type Transport interface {
	// SendRequest writes req, whose id is already allocated.
	SendRequest(ctx context.Context, req *jsonrpc.Request) error
	// SendCancel asks the client to abandon the request with id.
	SendCancel(ctx context.Context, id *jsonrpc.RequestID) error
}

var (
	// ErrDispatcherClosed indicates the dispatcher is closed.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

type pendingCall struct {
	respCh chan *jsonrpc.Response
	errCh  chan error
}

// Dispatcher coordinates server-initiated JSON-RPC requests with correlation,
// cancellation, and response routing. It is transport-agnostic.
type Dispatcher struct {
	t Transport

	mu      sync.Mutex
	pending map[string]*pendingCall // id.String() -> call

	nextID uint64

	closed   atomic.Bool
	closeErr error
}

// New constructs a Dispatcher using the provided transport.
func New(t Transport) *Dispatcher {
	return &Dispatcher{t: t, pending: make(map[string]*pendingCall)}
}

func (d *Dispatcher) closedErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return d.closeErr
	}
	return ErrDispatcherClosed
}

// Call sends a request and waits for the matching response, ctx
// cancellation, or Close. On cancellation $/cancelRequest is sent best-effort.
func (d *Dispatcher) Call(ctx context.Context, method string, params any) (*jsonrpc.Response, error) {
	if d.closed.Load() {
		return nil, d.closedErr()
	}

	id := jsonrpc.NewRequestID(atomic.AddUint64(&d.nextID, 1))
	key := id.String()

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	pc := &pendingCall{respCh: make(chan *jsonrpc.Response, 1), errCh: make(chan error, 1)}
	d.mu.Lock()
	if d.closed.Load() {
		d.mu.Unlock()
		return nil, d.closedErr()
	}
	d.pending[key] = pc
	d.mu.Unlock()

	if err := d.t.SendRequest(ctx, req); err != nil {
		d.forget(key)
		return nil, err
	}

	select {
	case resp := <-pc.respCh:
		return resp, nil
	case err := <-pc.errCh:
		return nil, err
	case <-ctx.Done():
		_ = d.t.SendCancel(context.WithoutCancel(ctx), id)
		d.forget(key)
		return nil, ctx.Err()
	}
}

// CallResult is Call followed by decoding the result into out. A JSON-RPC
// error response is returned as a *jsonrpc.Error.
func (d *Dispatcher) CallResult(ctx context.Context, method string, params any, out any) error {
	resp, err := d.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (d *Dispatcher) forget(key string) {
	d.mu.Lock()
	delete(d.pending, key)
	d.mu.Unlock()
}

// OnResponse delivers an incoming response to a waiting call. It reports
// whether a call was waiting; unmatched responses are otherwise ignored.
func (d *Dispatcher) OnResponse(resp *jsonrpc.Response) bool {
	if resp == nil || resp.ID == nil {
		return false
	}
	key := resp.ID.String()
	d.mu.Lock()
	pc, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()
	if ok {
		pc.respCh <- resp
	}
	return ok
}

// Close fails all pending calls with err and prevents new calls.
func (d *Dispatcher) Close(err error) {
	if err == nil {
		err = ErrDispatcherClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.closeErr = err
	for key, pc := range d.pending {
		delete(d.pending, key)
		pc.errCh <- err
	}
}

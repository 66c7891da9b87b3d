package stdio

import (
	"context"
	"errors"

	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
)

var (
	// ErrTransportClosed is returned when sending after the writer stopped or
	// receiving after the reader stopped.
	ErrTransportClosed = errors.New("transport closed")
	// ErrAlreadyJoined is returned by a second call to IOThreads.Join.
	ErrAlreadyJoined = errors.New("io threads already joined")
)

// Sender is the outbound endpoint. Messages are written in the order Send
// returns for them. Safe for concurrent use.
type Sender struct {
	out  chan<- jsonrpc.Message
	stop <-chan struct{}
	done <-chan struct{}
}

// Send hands msg to the writer goroutine. It blocks until the writer takes
// the message or the transport shuts down.
func (s Sender) Send(msg jsonrpc.Message) error {
	select {
	case <-s.stop:
		return ErrTransportClosed
	case <-s.done:
		return ErrTransportClosed
	default:
	}
	select {
	case s.out <- msg:
		return nil
	case <-s.done:
		return ErrTransportClosed
	}
}

// Notify sends a notification.
func (s Sender) Notify(method string, params any) error {
	n, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	return s.Send(n)
}

// Reply sends a successful response to id.
func (s Sender) Reply(id *jsonrpc.RequestID, result any) error {
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		return err
	}
	return s.Send(resp)
}

// ReplyError sends an error response to id.
func (s Sender) ReplyError(id *jsonrpc.RequestID, code jsonrpc.ErrorCode, message string) error {
	return s.Send(jsonrpc.NewErrorResponse(id, code, message, nil))
}

// Receiver is the inbound endpoint. Messages arrive in wire order.
type Receiver struct {
	in <-chan *jsonrpc.AnyMessage
}

// Receive blocks until the next message arrives, the reader stops
// (ErrTransportClosed) or ctx is done.
func (r Receiver) Receive(ctx context.Context) (*jsonrpc.AnyMessage, error) {
	select {
	case msg, ok := <-r.in:
		if !ok {
			return nil, ErrTransportClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Messages exposes the inbound channel for select loops. It is closed when
// the reader stops.
func (r Receiver) Messages() <-chan *jsonrpc.AnyMessage {
	return r.in
}

// Conn bundles both endpoints of one transport.
type Conn struct {
	Sender   Sender
	Receiver Receiver
}

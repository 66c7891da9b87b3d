package stdio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/lsp-server-go/internal/jsonrpc"
)

// exitMethod ends the reader: nothing may follow it on the wire.
const exitMethod = "exit"

// IOThreads is the handle on the reader and writer goroutines.
type IOThreads struct {
	log *slog.Logger

	stop       chan struct{}
	stopOnce   sync.Once
	readerDone chan struct{}
	writerDone chan struct{}

	detached atomic.Bool
	aborted  atomic.Bool
	joined   atomic.Bool

	mu       sync.Mutex
	readErr  error
	writeErr error
}

// Open starts the reader and writer goroutines over stdin/stdout (or the
// streams given by options) and returns the session endpoints.
func Open(opts ...Option) (Conn, *IOThreads) {
	cfg := config{r: os.Stdin, w: os.Stdout, l: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	in := make(chan *jsonrpc.AnyMessage)
	out := make(chan jsonrpc.Message)
	t := &IOThreads{
		log:        cfg.l.With("component", "stdio_transport"),
		stop:       make(chan struct{}),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}

	go t.readLoop(jsonrpc.NewFrameReader(cfg.r), in)
	go t.writeLoop(jsonrpc.NewFrameWriter(cfg.w), out)

	conn := Conn{
		Sender:   Sender{out: out, stop: t.stop, done: t.writerDone},
		Receiver: Receiver{in: in},
	}
	return conn, t
}

func (t *IOThreads) readLoop(fr *jsonrpc.FrameReader, in chan<- *jsonrpc.AnyMessage) {
	defer close(t.readerDone)
	defer close(in)

	for {
		payload, err := fr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.log.Debug("stdin closed")
				return
			}
			t.setReadErr(err)
			return
		}
		msg, err := jsonrpc.Decode(payload)
		if err != nil {
			t.setReadErr(err)
			return
		}
		select {
		case in <- msg:
		case <-t.stop:
			return
		}
		if msg.Type() == "notification" && msg.Method == exitMethod {
			return
		}
	}
}

func (t *IOThreads) writeLoop(fw *jsonrpc.FrameWriter, out <-chan jsonrpc.Message) {
	defer close(t.writerDone)

	write := func(msg jsonrpc.Message) bool {
		if t.aborted.Load() {
			return true
		}
		if err := fw.Write(msg); err != nil {
			t.setWriteErr(fmt.Errorf("write stdout: %w", err))
			return false
		}
		return true
	}

	for {
		select {
		case msg := <-out:
			if !write(msg) {
				return
			}
		case <-t.stop:
			for {
				select {
				case msg := <-out:
					if !write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (t *IOThreads) setReadErr(err error) {
	var pe *jsonrpc.ProtocolError
	if !errors.As(err, &pe) {
		err = fmt.Errorf("read stdin: %w", err)
	}
	t.log.Error("transport reader stopped", slog.String("err", err.Error()))
	t.mu.Lock()
	t.readErr = err
	t.mu.Unlock()
}

func (t *IOThreads) setWriteErr(err error) {
	t.log.Error("transport writer stopped", slog.String("err", err.Error()))
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}

// Detach makes Join stop waiting for the reader, which may be blocked on a
// client that never closes its end. Output already sent is still flushed.
func (t *IOThreads) Detach() {
	t.detached.Store(true)
}

// Abort detaches the reader and discards every message not yet written.
func (t *IOThreads) Abort() {
	t.aborted.Store(true)
	t.detached.Store(true)
}

// Join stops the writer after it has flushed what was sent, waits for the
// reader unless detached, and reports the first I/O or protocol failure
// either goroutine hit. It must be called exactly once.
func (t *IOThreads) Join() error {
	if !t.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}
	t.stopOnce.Do(func() { close(t.stop) })

	<-t.writerDone
	if !t.detached.Load() {
		<-t.readerDone
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.readErr, t.writeErr)
}

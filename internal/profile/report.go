package profile

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// treeReporter buffers ended child spans per trace until the root ends, then
// prints the whole tree if the root exceeded the threshold.
type treeReporter struct {
	longerThan time.Duration

	mu      sync.Mutex
	out     io.Writer
	pending map[trace.TraceID][]sdktrace.ReadOnlySpan
}

var _ sdktrace.SpanProcessor = (*treeReporter)(nil)

func newTreeReporter(out io.Writer, longerThan time.Duration) *treeReporter {
	return &treeReporter{
		out:        out,
		longerThan: longerThan,
		pending:    make(map[trace.TraceID][]sdktrace.ReadOnlySpan),
	}
}

func (r *treeReporter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (r *treeReporter) OnEnd(s sdktrace.ReadOnlySpan) {
	tid := s.SpanContext().TraceID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Parent().IsValid() {
		r.pending[tid] = append(r.pending[tid], s)
		return
	}
	children := r.pending[tid]
	delete(r.pending, tid)

	if s.EndTime().Sub(s.StartTime()) < r.longerThan {
		return
	}

	byParent := make(map[trace.SpanID][]sdktrace.ReadOnlySpan, len(children))
	for _, c := range children {
		pid := c.Parent().SpanID()
		byParent[pid] = append(byParent[pid], c)
	}

	var b strings.Builder
	writeTree(&b, s, byParent, 0)
	_, _ = io.WriteString(r.out, b.String())
}

func writeTree(b *strings.Builder, s sdktrace.ReadOnlySpan, byParent map[trace.SpanID][]sdktrace.ReadOnlySpan, level int) {
	d := s.EndTime().Sub(s.StartTime())
	fmt.Fprintf(b, "%s%5dms - %s\n", strings.Repeat(" ", level*4), d.Milliseconds(), s.Name())

	kids := byParent[s.SpanContext().SpanID()]
	slices.SortFunc(kids, func(x, y sdktrace.ReadOnlySpan) int {
		return x.StartTime().Compare(y.StartTime())
	})
	for _, k := range kids {
		writeTree(b, k, byParent, level+1)
	}
}

func (r *treeReporter) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.pending)
	return nil
}

func (r *treeReporter) ForceFlush(context.Context) error { return nil }

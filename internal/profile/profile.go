// Package profile implements hierarchical timing spans gated by a filter
// spec. Spans are OpenTelemetry spans from a private tracer provider; a span
// processor assembles each finished tree and prints it when the root was slow
// enough. When an OTLP endpoint is configured the same spans are exported.
package profile

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ggoodman/lsp-server-go/internal/profile"

// Profiler starts filtered spans. A nil *Profiler is valid and records nothing.
type Profiler struct {
	filter Filter
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

type options struct {
	out          io.Writer
	otlpEndpoint string
	serviceName  string
}

// Option customizes a Profiler.
type Option func(*options)

// WithOutput overrides where span trees are printed. Defaults to os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithOTLPEndpoint additionally batches spans to an OTLP/HTTP collector.
func WithOTLPEndpoint(url string) Option {
	return func(o *options) { o.otlpEndpoint = url }
}

// WithServiceName sets the service.name resource attribute for exported spans.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// New builds a Profiler for f. A disabled filter yields a Profiler whose
// spans are no-ops and which owns no tracer provider.
func New(ctx context.Context, f Filter, opts ...Option) (*Profiler, error) {
	o := options{out: os.Stderr, serviceName: "lsp-server"}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Profiler{filter: f}
	if !f.Enabled() {
		return p, nil
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(newTreeReporter(o.out, f.LongerThan)),
	}

	if o.otlpEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(o.otlpEndpoint))
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(o.serviceName)))
		if err != nil {
			return nil, fmt.Errorf("create otel resource: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
	}

	p.tp = sdktrace.NewTracerProvider(tpOpts...)
	p.tracer = p.tp.Tracer(instrumentationName)
	return p, nil
}

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Span starts a span named label as a child of whatever span ctx carries.
// The returned func ends it and must be called exactly once.
func (p *Profiler) Span(ctx context.Context, label string) (context.Context, func()) {
	if p == nil || p.tracer == nil {
		return ctx, func() {}
	}
	depth := depthFrom(ctx)
	if depth >= p.filter.Depth {
		return ctx, func() {}
	}
	if depth == 0 && !p.filter.allowsRoot(label) {
		return ctx, func() {}
	}
	ctx = context.WithValue(ctx, depthKey{}, depth+1)
	ctx, span := p.tracer.Start(ctx, label)
	return ctx, func() { span.End() }
}

// Filter returns the active filter.
func (p *Profiler) Filter() Filter {
	if p == nil {
		return Disabled()
	}
	return p.filter
}

// Shutdown flushes exporters and releases the tracer provider.
func (p *Profiler) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

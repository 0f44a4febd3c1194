package tracer

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans emitted by this module.
const InstrumentationName = "github.com/maciegg5/regon-search/registry"

// OTel starts OpenTelemetry spans. SOAP calls are client spans, everything
// else is internal.
type OTel struct {
	tracer trace.Tracer
	common []attribute.KeyValue
}

type OTelOption func(*OTel)

// WithTracerProvider replaces the global provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(t *OTel) {
		t.tracer = tp.Tracer(InstrumentationName)
	}
}

// WithProvider tags every span with the registry provider id.
func WithProvider(id string) OTelOption {
	return func(t *OTel) {
		t.common = append(t.common, attribute.String(AttrProvider, id))
	}
}

func NewOTel(opts ...OTelOption) *OTel {
	t := &OTel{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	kind := trace.SpanKindInternal
	if name == SpanSOAPCall {
		kind = trace.SpanKindClient
	}
	kvs := append(slices.Clone(t.common), keyValues(attrs)...)
	ctx, s := t.tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(kvs...))
	return ctx, otelSpan{s}
}

type otelSpan struct {
	s trace.Span
}

func (o otelSpan) End(err error) {
	if err != nil {
		o.s.RecordError(err)
		o.s.SetStatus(codes.Error, err.Error())
	}
	o.s.End()
}

func (o otelSpan) SetAttributes(attrs ...Attribute) {
	o.s.SetAttributes(keyValues(attrs)...)
}

func (o otelSpan) AddEvent(name string, attrs ...Attribute) {
	o.s.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

// keyValues converts attributes; unknown value types are formatted as strings.
func keyValues(attrs []Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			kvs = append(kvs, attribute.String(a.Key, v))
		case bool:
			kvs = append(kvs, attribute.Bool(a.Key, v))
		case int64:
			kvs = append(kvs, attribute.Int64(a.Key, v))
		case int:
			kvs = append(kvs, attribute.Int(a.Key, v))
		case float64:
			kvs = append(kvs, attribute.Float64(a.Key, v))
		case []string:
			kvs = append(kvs, attribute.StringSlice(a.Key, v))
		default:
			kvs = append(kvs, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return kvs
}

var (
	_ Tracer = (*OTel)(nil)
	_ Tracer = nop{}
	_ Span   = otelSpan{}
	_ Span   = nop{}
)

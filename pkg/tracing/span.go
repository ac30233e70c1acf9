package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
)

// Tracer is the span API the services depend on
type Tracer interface {
	// StartServiceSpan opens a span named "<service>.<method>"
	StartServiceSpan(ctx context.Context, serviceName, methodName string) (context.Context, *trace.Span)
	AddAttribute(ctx context.Context, key string, value interface{})
	MarkSpanError(ctx context.Context, err error)
}

type spanTracer struct{}

func NewTracer() Tracer {
	return spanTracer{}
}

func (spanTracer) StartServiceSpan(ctx context.Context, serviceName, methodName string) (context.Context, *trace.Span) {
	return StartServiceSpan(ctx, serviceName, methodName)
}

func (spanTracer) AddAttribute(ctx context.Context, key string, value interface{}) {
	AddAttribute(ctx, key, value)
}

func (spanTracer) MarkSpanError(ctx context.Context, err error) {
	MarkSpanError(ctx, err)
}

var globalTracer = NewTracer()

// GetTracer returns the process wide tracer
func GetTracer() Tracer {
	return globalTracer
}

func StartServiceSpan(ctx context.Context, serviceName, methodName string) (context.Context, *trace.Span) {
	return trace.StartSpan(ctx, serviceName+"."+methodName)
}

// AddAttribute annotates the span in ctx, if any
func AddAttribute(ctx context.Context, key string, value interface{}) {
	if span := trace.FromContext(ctx); span != nil {
		span.AddAttributes(attribute(key, value))
	}
}

func attribute(key string, value interface{}) trace.Attribute {
	switch v := value.(type) {
	case string:
		return trace.StringAttribute(key, v)
	case bool:
		return trace.BoolAttribute(key, v)
	case int:
		return trace.Int64Attribute(key, int64(v))
	case int32:
		return trace.Int64Attribute(key, int64(v))
	case int64:
		return trace.Int64Attribute(key, v)
	case float64:
		return trace.Float64Attribute(key, v)
	case time.Duration:
		return trace.Int64Attribute(key, v.Milliseconds())
	case error:
		return trace.StringAttribute(key, v.Error())
	default:
		return trace.StringAttribute(key, fmt.Sprint(v))
	}
}

// MarkSpanError sets the status of the span in ctx from err. Nil errors are ignored.
func MarkSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if span := trace.FromContext(ctx); span != nil {
		span.SetStatus(errorStatus(err))
	}
}

func errorStatus(err error) trace.Status {
	code := int32(trace.StatusCodeUnknown)
	switch {
	case errors.Is(err, context.Canceled):
		code = trace.StatusCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		code = trace.StatusCodeDeadlineExceeded
	}
	return trace.Status{Code: code, Message: err.Error()}
}

// WrapHandler instruments an http.Handler. Spans are named after the RPC
// method path, e.g. "POST /api/templates.export". Health probes are not traced.
func WrapHandler(h http.Handler) http.Handler {
	return &ochttp.Handler{
		Handler: h,
		FormatSpanName: func(r *http.Request) string {
			return r.Method + " " + r.URL.Path
		},
		IsHealthEndpoint: func(r *http.Request) bool {
			return r.URL.Path == "/healthz"
		},
	}
}

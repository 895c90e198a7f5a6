package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/routepath"
)

// Default tracer name.
const defaultTracerName = "pageactions"

// OTelConfig configures tracing.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "pageactions").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeKey adds the action key to spans. Keys may identify records
	// and are left out by default.
	IncludeKey bool

	// Filter determines which requests to trace. If nil, all are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor adds custom attributes to request spans.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue
}

// OTelOption configures tracing.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeKey enables including action keys in spans.
func WithIncludeKey(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeKey = include
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracing creates spans for submissions and dispatches.
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer
}

// NewTracing creates a Tracing.
func NewTracing(opts ...OTelOption) *Tracing {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{config: config, tracer: tp.Tracer(config.TracerName)}
}

// Start implements actions.Observer. The span is a client span and is the
// parent of the submission's HTTP request context.
func (t *Tracing) Start(ctx context.Context, info actions.SubmitInfo) (context.Context, func(actions.Report)) {
	attrs := []attribute.KeyValue{
		attribute.String("pageactions.action", info.Name),
		attribute.Int64("pageactions.seq", int64(info.Seq)),
	}
	if t.config.IncludeKey && info.Key != "" {
		attrs = append(attrs, attribute.String("pageactions.key", info.Key))
	}

	ctx, span := t.tracer.Start(ctx, "pageactions.submit "+info.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(r actions.Report) {
		defer span.End()
		span.SetAttributes(attribute.String("pageactions.result", r.Result))
		if r.Status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", r.Status))
		}
		if r.Err != nil {
			span.RecordError(r.Err)
			span.SetStatus(codes.Error, r.Err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// Middleware traces every request that reaches next. The span is available
// to server actions through trace.SpanFromContext(ev.Request.Context()).
func (t *Tracing) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.config.Filter != nil && !t.config.Filter(r) {
			next.ServeHTTP(w, r)
			return
		}

		action := actionLabel(r)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("pageactions.path", r.URL.Path),
			attribute.String("pageactions.action", action),
		}
		if t.config.IncludeKey && r.Method == http.MethodPost {
			if _, key, ok := routepath.ParseAction(r.URL.Query(), []string{action}); ok && key != "" {
				attrs = append(attrs, attribute.String("pageactions.key", key))
			}
		}
		if t.config.AttributeExtractor != nil {
			attrs = append(attrs, t.config.AttributeExtractor(r)...)
		}

		ctx, span := t.tracer.Start(r.Context(), fmt.Sprintf("pageactions.dispatch %s", action),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

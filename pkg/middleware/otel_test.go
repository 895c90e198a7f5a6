package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/pageactions/pkg/actions"
)

type recordedSpan struct {
	name   string
	kind   trace.SpanKind
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

type recordingProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{p: p}
}

func (p *recordingProvider) only(t *testing.T) *recordedSpan {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(p.spans))
	}
	return p.spans[0]
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (tr *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	rec := &recordedSpan{name: name, kind: cfg.SpanKind(), attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		rec.attrs[kv.Key] = kv.Value
	}
	tr.p.mu.Lock()
	tr.p.spans = append(tr.p.spans, rec)
	tr.p.mu.Unlock()

	span := &recordingSpan{rec: rec}
	return trace.ContextWithSpan(ctx, span), span
}

type recordingSpan struct {
	noop.Span
	rec *recordedSpan
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.rec.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.rec.errs = append(s.rec.errs, err)
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.rec.status = code }
func (s *recordingSpan) End(...trace.SpanEndOption)          { s.rec.ended = true }

func TestTracingObserver(t *testing.T) {
	tp := &recordingProvider{}
	tr := NewTracing(WithTracerProvider(tp), WithIncludeKey(true))

	ctx, done := tr.Start(context.Background(), actions.SubmitInfo{Name: "toggle", Key: "abc", Seq: 2})
	if _, ok := trace.SpanFromContext(ctx).(*recordingSpan); !ok {
		t.Fatal("span not placed in the submission context")
	}
	done(actions.Report{Result: actions.ResultHTTPError, Status: 502, Err: errors.New("bad gateway")})

	span := tp.only(t)
	if span.name != "pageactions.submit toggle" || span.kind != trace.SpanKindClient {
		t.Errorf("span = %q kind %v", span.name, span.kind)
	}
	if span.attrs["pageactions.key"].AsString() != "abc" || span.attrs["pageactions.seq"].AsInt64() != 2 {
		t.Errorf("attrs = %v", span.attrs)
	}
	if span.attrs["http.status_code"].AsInt64() != 502 {
		t.Errorf("status attr = %v", span.attrs["http.status_code"])
	}
	if span.status != codes.Error || len(span.errs) != 1 || !span.ended {
		t.Errorf("span status=%v errs=%v ended=%v", span.status, span.errs, span.ended)
	}
}

func TestTracingObserverOmitsKeyByDefault(t *testing.T) {
	tp := &recordingProvider{}
	_, done := NewTracing(WithTracerProvider(tp)).Start(context.Background(), actions.SubmitInfo{Name: "toggle", Key: "abc"})
	done(actions.Report{Result: actions.ResultApplied, Status: 200})

	span := tp.only(t)
	if _, ok := span.attrs["pageactions.key"]; ok {
		t.Error("key recorded without WithIncludeKey")
	}
	if span.status != codes.Ok {
		t.Errorf("status = %v, want Ok", span.status)
	}
}

func TestTracingMiddleware(t *testing.T) {
	tp := &recordingProvider{}
	tr := NewTracing(WithTracerProvider(tp), WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("test.attr", "ok")}
	}))

	var sawSpan bool
	h := tr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSpan = trace.SpanFromContext(r.Context()).(*recordingSpan)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/todos?action.create", nil))

	if !sawSpan {
		t.Error("handler did not see the dispatch span")
	}
	span := tp.only(t)
	if span.name != "pageactions.dispatch create" || span.kind != trace.SpanKindServer {
		t.Errorf("span = %q kind %v", span.name, span.kind)
	}
	if span.attrs["test.attr"].AsString() != "ok" || span.attrs["http.status_code"].AsInt64() != 500 {
		t.Errorf("attrs = %v", span.attrs)
	}
	if span.status != codes.Error || !span.ended {
		t.Errorf("status = %v ended = %v", span.status, span.ended)
	}
}

func TestTracingMiddlewareFilter(t *testing.T) {
	tp := &recordingProvider{}
	tr := NewTracing(WithTracerProvider(tp), WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz"
	}))

	called := false
	h := tr.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Fatal("next not called")
	}
	if len(tp.spans) != 0 {
		t.Errorf("got %d spans for a filtered request", len(tp.spans))
	}
}

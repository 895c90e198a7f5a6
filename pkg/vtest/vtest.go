package vtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/store"
)

// Request is a request received by an Endpoint.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values

	// RawQuery is the query exactly as the client sent it.
	RawQuery string

	Header http.Header
}

// Reply scripts an Endpoint's answer.
type Reply struct {
	// Status defaults to 200.
	Status int

	// Envelope is encoded as the body when Body is empty.
	Envelope *protocol.Envelope

	// Body, when set, is written verbatim.
	Body string

	// Wait, when set, delays the answer until the channel is closed.
	Wait <-chan struct{}
}

// Result returns a 200 reply carrying result.
func Result(result map[string]any) Reply {
	return Reply{Envelope: &protocol.Envelope{Result: result}}
}

// Errors returns a 200 reply carrying validation errors.
func Errors(errs protocol.Errors) Reply {
	return Reply{Envelope: &protocol.Envelope{Errors: errs}}
}

// Status returns an empty reply with status code.
func Status(code int) Reply {
	return Reply{Status: code, Body: http.StatusText(code)}
}

// Endpoint is a scripted action endpoint.
type Endpoint struct {
	*httptest.Server

	script func(Request) Reply

	mu       sync.Mutex
	requests []Request
}

// NewEndpoint starts an Endpoint answering with script. The server is
// closed when the test ends.
func NewEndpoint(t testing.TB, script func(Request) Reply) *Endpoint {
	t.Helper()
	e := &Endpoint{script: script}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Server.Close)
	return e
}

func (e *Endpoint) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	req := Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Query:    r.URL.Query(),
		Form:     r.PostForm,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	reply := Reply{}
	if e.script != nil {
		reply = e.script(req)
	}
	if reply.Wait != nil {
		select {
		case <-reply.Wait:
		case <-r.Context().Done():
			return
		}
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if reply.Body != "" {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply.Body))
		return
	}
	w.Header().Set(protocol.HeaderContentType, protocol.ContentTypeJSON)
	w.WriteHeader(status)
	_ = protocol.EncodeEnvelope(w, reply.Envelope)
}

// Requests returns the requests received so far.
func (e *Endpoint) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// Recording collects the values a store delivers.
type Recording[T any] struct {
	mu     sync.Mutex
	values []T
}

// Record subscribes to s for the rest of the test.
func Record[T any](t testing.TB, s *store.Store[T]) *Recording[T] {
	t.Helper()
	rec := &Recording[T]{}
	unsubscribe := s.Subscribe(func(v T) {
		rec.mu.Lock()
		rec.values = append(rec.values, v)
		rec.mu.Unlock()
	})
	t.Cleanup(unsubscribe)
	return rec
}

// Values returns every recorded value, oldest first.
func (r *Recording[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of recorded values.
func (r *Recording[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Last returns the most recent value.
func (r *Recording[T]) Last() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.values) == 0 {
		return zero
	}
	return r.values[len(r.values)-1]
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	perrors "github.com/vango-dev/pageactions/internal/errors"
	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/routepath"
)

// LoadFunc produces a page's data. The value is encoded as JSON.
type LoadFunc func(ctx context.Context, r *http.Request) (any, error)

// Event is one dispatched action submission.
type Event struct {
	Name string

	// Key is the value of the action parameter, "" when it has none.
	Key string

	Fields  url.Values
	Request *http.Request
}

// ID returns "name" or "name=key".
func (e *Event) ID() string { return routepath.ActionID(e.Name, e.Key) }

// ServerAction handles one action. Returning a nil envelope answers with
// "{}". Validation failures belong in the envelope's Errors; a returned
// error is an internal failure and answers 500.
type ServerAction func(ctx context.Context, ev *Event) (*protocol.Envelope, error)

// Broadcaster is told about page paths whose data changed.
type Broadcaster interface {
	Broadcast(path string)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(path string)

// Broadcast implements Broadcaster.
func (fn BroadcasterFunc) Broadcast(path string) { fn(path) }

// Page serves one page's data and actions.
type Page struct {
	load        LoadFunc
	actions     map[string]ServerAction
	names       []string
	broadcaster Broadcaster
	maxFormSize int64
	logger      *slog.Logger
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithBroadcaster sets who is told after a successful mutation.
func WithBroadcaster(b Broadcaster) PageOption {
	return func(p *Page) { p.broadcaster = b }
}

// WithMaxFormSize limits request bodies. Default: protocol.MaxFormSize.
func WithMaxFormSize(n int64) PageOption {
	return func(p *Page) {
		if n > 0 {
			p.maxFormSize = n
		}
	}
}

// WithPageLogger sets the logger. Default: slog.Default().
func WithPageLogger(l *slog.Logger) PageOption {
	return func(p *Page) {
		if l != nil {
			p.logger = l.With("component", "server")
		}
	}
}

// NewPage creates a page. load may be nil for pages that only take actions.
// When several action parameters are present the first registered name in
// sorted order wins.
func NewPage(load LoadFunc, actions map[string]ServerAction, opts ...PageOption) *Page {
	p := &Page{
		load:        load,
		actions:     make(map[string]ServerAction, len(actions)),
		maxFormSize: protocol.MaxFormSize,
		logger:      slog.Default().With("component", "server"),
	}
	for name, fn := range actions {
		if fn == nil {
			continue
		}
		p.actions[name] = fn
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the registered action names in sorted order.
func (p *Page) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// ServeHTTP implements http.Handler.
func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		p.serveLoad(w, r)
	case http.MethodPost:
		p.serveAction(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		writeEnvelope(w, http.StatusMethodNotAllowed, failure("action", http.StatusText(http.StatusMethodNotAllowed)))
	}
}

func (p *Page) serveLoad(w http.ResponseWriter, r *http.Request) {
	if p.load == nil {
		w.Header().Set("Allow", "POST")
		writeEnvelope(w, http.StatusMethodNotAllowed, failure("action", ErrNoLoader.Error()))
		return
	}

	data, err := p.load(r.Context(), r)
	if err != nil {
		p.logger.Error("load failed",
			"path", r.URL.Path,
			"error", perrors.New("PA204").WithDetail(r.URL.Path).Wrap(err))
		writeEnvelope(w, http.StatusInternalServerError, failure("load", "internal error"))
		return
	}

	w.Header().Set(protocol.HeaderContentType, protocol.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		p.logger.Warn("write load response", "path", r.URL.Path, "error", err)
	}
}

func (p *Page) serveAction(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name, key, ok := routepath.ParseAction(query, p.names)
	if !ok {
		requested := routepath.RequestedActions(query)
		err, code := ErrNoAction, "PA201"
		if len(requested) > 0 {
			err, code = fmt.Errorf("%w %q", ErrUnknownAction, requested[0]), "PA205"
		}
		p.logger.Debug("no action matched",
			"path", r.URL.Path,
			"requested", requested,
			"error", perrors.New(code).Wrap(err))
		writeEnvelope(w, http.StatusNotFound, failure("action", err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, p.maxFormSize)
	if err := r.ParseForm(); err != nil {
		p.logger.Debug("form parse failed",
			"path", r.URL.Path,
			"error", perrors.New("PA202").Wrap(err))
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeEnvelope(w, status, failure("form", "invalid form body"))
		return
	}

	ev := &Event{
		Name:    name,
		Key:     key,
		Fields:  r.PostForm,
		Request: r,
	}

	env, err := p.actions[name](r.Context(), ev)
	if err != nil {
		derr := &DispatchError{Path: r.URL.Path, Action: ev.ID(), Err: err}
		p.logger.Error("action failed",
			"path", r.URL.Path,
			"action", ev.ID(),
			"error", perrors.New("PA203").WithDetail(ev.ID()).Wrap(derr))
		writeEnvelope(w, http.StatusInternalServerError, failure("action", "internal error"))
		return
	}
	if env == nil {
		env = &protocol.Envelope{}
	}

	writeEnvelope(w, http.StatusOK, env)

	if !env.HasErrors() && p.broadcaster != nil {
		p.broadcaster.Broadcast(r.URL.Path)
	}
}

// Mount registers page on r at pattern for every method the page answers.
func Mount(r chi.Router, pattern string, page *Page) {
	r.Handle(pattern, page)
}

func failure(field, msg string) *protocol.Envelope {
	return &protocol.Envelope{Errors: protocol.Errors{field: msg}}
}

func writeEnvelope(w http.ResponseWriter, status int, env *protocol.Envelope) {
	w.Header().Set(protocol.HeaderContentType, protocol.ContentTypeJSON)
	w.WriteHeader(status)
	_ = protocol.EncodeEnvelope(w, env)
}

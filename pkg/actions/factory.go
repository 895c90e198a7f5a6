package actions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/pageactions/pkg/routepath"
	"github.com/vango-dev/pageactions/pkg/store"
)

// Handler runs one submission. It may update s.Data optimistically and
// usually ends with s.Post. Returning (nil, nil) means nothing was sent and
// nothing is reconciled.
type Handler[T any] func(ctx context.Context, s *Submission[T]) (*Response, error)

// Handlers maps action names to handlers. A nil handler posts the submitted
// fields unchanged.
type Handlers[T any] map[string]Handler[T]

// Factory holds the actions of one page.
type Factory[T any] struct {
	basePath string
	origin   string
	data     *store.Store[store.PageState[T]]
	handlers Handlers[T]
	names    []string
	actions  map[string]*Action[T]

	client      *http.Client
	header      http.Header
	merge       func(T, map[string]any) T
	onError     func(ErrorEvent)
	invalidator Invalidator
	navigator   Navigator
	reload      bool
	observers   []Observer
	logger      *slog.Logger

	seq *sequencer

	// applyMu makes the latest-submission check and the store update one
	// step, so an older result can never land after a newer one.
	applyMu sync.Mutex
}

// NewFactory creates the actions of the page at basePath. data is the
// page's store; every reconciled response is applied to it.
func NewFactory[T any](basePath string, data *store.Store[store.PageState[T]], handlers Handlers[T], opts ...Option) (*Factory[T], error) {
	if err := routepath.ValidateBasePath(basePath); err != nil {
		return nil, fmt.Errorf("actions: base path %q: %w", basePath, err)
	}
	if data == nil {
		return nil, fmt.Errorf("actions: nil store for %q", basePath)
	}

	f := &Factory[T]{
		basePath: basePath,
		data:     data,
		handlers: make(Handlers[T], len(handlers)),
		actions:  make(map[string]*Action[T], len(handlers)),
		client:   http.DefaultClient,
		header:   make(http.Header),
		seq:      newSequencer(),
		logger:   slog.Default().With("component", "actions"),
	}

	for name, h := range handlers {
		if name == "" || strings.ContainsAny(name, "=&?#") {
			return nil, fmt.Errorf("actions: invalid action name %q", name)
		}
		f.handlers[name] = h
		f.names = append(f.names, name)
	}
	sort.Strings(f.names)

	for _, opt := range opts {
		opt.apply(f)
	}

	if f.origin != "" {
		u, err := url.Parse(f.origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("actions: invalid origin %q", f.origin)
		}
		f.origin = strings.TrimSuffix(f.origin, "/")
	}

	if f.reload && f.invalidator == nil {
		f.invalidator = NewHTTPInvalidator(f.origin+f.basePath, data,
			WithInvalidatorClient(f.client),
			WithInvalidatorLogger(f.logger))
	}

	for _, name := range f.names {
		f.actions[name] = newAction(f, name, "")
	}

	f.logger = f.logger.With("page", basePath)
	return f, nil
}

// BasePath returns the page path the actions submit to.
func (f *Factory[T]) BasePath() string { return f.basePath }

// Data returns the page store.
func (f *Factory[T]) Data() *store.Store[store.PageState[T]] { return f.data }

// Names returns the action names in sorted order.
func (f *Factory[T]) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Action returns the unkeyed action called name.
func (f *Factory[T]) Action(name string) (*Action[T], bool) {
	a, ok := f.actions[name]
	return a, ok
}

// MustAction is like Action but panics for an unknown name.
func (f *Factory[T]) MustAction(name string) *Action[T] {
	a, ok := f.actions[name]
	if !ok {
		panic(fmt.Sprintf("actions: no action %q on %s", name, f.basePath))
	}
	return a
}

// Actions returns every unkeyed action by name.
func (f *Factory[T]) Actions() map[string]*Action[T] {
	out := make(map[string]*Action[T], len(f.actions))
	for name, a := range f.actions {
		out[name] = a
	}
	return out
}

// Invalidate reloads the page data through the configured Invalidator.
// It is a no-op when none is configured.
func (f *Factory[T]) Invalidate(ctx context.Context) error {
	if f.invalidator == nil {
		return nil
	}
	return f.invalidator.Invalidate(ctx)
}

package actions

import (
	"log/slog"
	"net/http"
)

// Option configures a Factory.
type Option interface {
	apply(f any)
}

type optionFunc func(f any)

func (fn optionFunc) apply(f any) { fn(f) }

// The factory is generic; options reach it through these setters so that
// Option itself need not be.
type factorySetters interface {
	setOrigin(string)
	setClient(*http.Client)
	setHeader(string, string)
	setOnError(func(ErrorEvent))
	setInvalidator(Invalidator)
	setReload(bool)
	setNavigator(Navigator)
	addObserver(Observer)
	setLogger(*slog.Logger)
}

func withSetters(fn func(factorySetters)) Option {
	return optionFunc(func(f any) {
		if s, ok := f.(factorySetters); ok {
			fn(s)
		}
	})
}

// WithOrigin sets the scheme and host requests are sent to, e.g.
// "http://localhost:3000". Paths stay relative to it.
func WithOrigin(origin string) Option {
	return withSetters(func(s factorySetters) { s.setOrigin(origin) })
}

// WithClient sets the HTTP client. Default: http.DefaultClient.
func WithClient(c *http.Client) Option {
	return withSetters(func(s factorySetters) { s.setClient(c) })
}

// WithHeader adds a header to every action request.
func WithHeader(key, value string) Option {
	return withSetters(func(s factorySetters) { s.setHeader(key, value) })
}

// WithOnError sets the callback for failed submissions. Without it failures
// are logged.
func WithOnError(fn func(ErrorEvent)) Option {
	return withSetters(func(s factorySetters) { s.setOnError(fn) })
}

// WithInvalidator sets how page data is reloaded after a successful
// submission.
func WithInvalidator(inv Invalidator) Option {
	return withSetters(func(s factorySetters) { s.setInvalidator(inv) })
}

// WithReload reloads the page data with GET <origin><base path> after every
// successful submission that reported no validation errors. It is ignored
// when WithInvalidator is also given.
func WithReload() Option {
	return withSetters(func(s factorySetters) { s.setReload(true) })
}

// WithNavigator sets who follows an envelope's "location".
func WithNavigator(nav Navigator) Option {
	return withSetters(func(s factorySetters) { s.setNavigator(nav) })
}

// WithObserver adds an observer of submissions. May be given several times.
func WithObserver(o Observer) Option {
	return withSetters(func(s factorySetters) { s.addObserver(o) })
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return withSetters(func(s factorySetters) { s.setLogger(l) })
}

// WithMerge sets how an envelope's "result" is folded into the page data.
// Without it results are ignored and only errors are reconciled.
func WithMerge[T any](fn func(data T, result map[string]any) T) Option {
	return optionFunc(func(f any) {
		if fac, ok := f.(*Factory[T]); ok {
			fac.merge = fn
		}
	})
}

func (f *Factory[T]) setOrigin(o string) { f.origin = o }

func (f *Factory[T]) setClient(c *http.Client) {
	if c != nil {
		f.client = c
	}
}

func (f *Factory[T]) setHeader(k, v string) { f.header.Add(k, v) }
func (f *Factory[T]) setOnError(fn func(ErrorEvent)) { f.onError = fn }
func (f *Factory[T]) setInvalidator(inv Invalidator) { f.invalidator = inv }
func (f *Factory[T]) setReload(r bool) { f.reload = r }
func (f *Factory[T]) setNavigator(nav Navigator) { f.navigator = nav }

func (f *Factory[T]) addObserver(o Observer) {
	if o != nil {
		f.observers = append(f.observers, o)
	}
}

func (f *Factory[T]) setLogger(l *slog.Logger) {
	if l != nil {
		f.logger = l.With("component", "actions")
	}
}

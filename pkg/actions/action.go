package actions

import (
	"context"
	"net/url"

	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/routepath"
)

// Action is one named action of a page, optionally bound to a key.
// Actions are immutable; WithKey derives a new one.
type Action[T any] struct {
	factory *Factory[T]
	name    string
	key     string
	path    string
}

func newAction[T any](f *Factory[T], name, key string) *Action[T] {
	return &Action[T]{
		factory: f,
		name:    name,
		key:     key,
		path:    routepath.ActionPath(f.basePath, name, key),
	}
}

// Name returns the action name.
func (a *Action[T]) Name() string { return a.name }

// Key returns the instance key, or "".
func (a *Action[T]) Key() string { return a.key }

// Path returns the submission path: base path, "?action.<name>", and
// "=<key>" when keyed.
func (a *Action[T]) Path() string { return a.path }

// ID identifies the action instance in sequence tracking and in the store's
// error map.
func (a *Action[T]) ID() string { return routepath.ActionID(a.name, a.key) }

// WithKey returns a new action for the same name bound to key. The receiver
// is not modified.
func (a *Action[T]) WithKey(key string) *Action[T] {
	return newAction(a.factory, a.name, key)
}

// Submit snapshots fields and runs the action's handler, then reconciles the
// result with the page store. See the package documentation for the rules.
func (a *Action[T]) Submit(ctx context.Context, fields url.Values) (*Outcome, error) {
	return a.factory.submit(ctx, a, fields)
}

// Errors returns the validation errors currently recorded for this action
// instance.
func (a *Action[T]) Errors() protocol.Errors {
	return a.factory.data.Get().ErrorsFor(a.ID())
}

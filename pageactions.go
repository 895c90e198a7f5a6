// Package pageactions provides the public API for page actions.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/pageactions"
//
// Usage:
//
//	data := pageactions.NewPageStore(Page{})
//	page, err := pageactions.NewFactory("/todos", data, pageactions.Handlers[Page]{
//	    "create": nil,
//	}, pageactions.WithOrigin("http://localhost:3000"), pageactions.WithReload())
//
//	outcome, err := page.MustAction("create").Submit(ctx, url.Values{"text": {"milk"}})
package pageactions

import (
	"github.com/vango-dev/pageactions/pkg/actions"
	"github.com/vango-dev/pageactions/pkg/protocol"
	"github.com/vango-dev/pageactions/pkg/server"
	"github.com/vango-dev/pageactions/pkg/store"
)

// =============================================================================
// Client
// =============================================================================

// Option configures a Factory.
type Option = actions.Option

// ErrorEvent describes a failed submission.
type ErrorEvent = actions.ErrorEvent

// Outcome is the result of one Submit.
type Outcome = actions.Outcome

// Response is an action endpoint's answer.
type Response = actions.Response

// Invalidator reloads page data after a successful action.
type Invalidator = actions.Invalidator

// Navigator follows an envelope's location.
type Navigator = actions.Navigator

// Observer is told about every submission.
type Observer = actions.Observer

// Factory holds the actions of one page.
type Factory[T any] struct{ *actions.Factory[T] }

// Handlers maps action names to their client-side handlers. A nil handler
// posts the fields unchanged.
type Handlers[T any] actions.Handlers[T]

// NewFactory creates the actions of the page at basePath.
func NewFactory[T any](basePath string, data *store.Store[store.PageState[T]], handlers Handlers[T], opts ...Option) (Factory[T], error) {
	f, err := actions.NewFactory(basePath, data, actions.Handlers[T](handlers), opts...)
	return Factory[T]{f}, err
}

// NewPageStore creates a page store holding data and no errors.
func NewPageStore[T any](data T) *store.Store[store.PageState[T]] {
	return store.NewPage(data)
}

// Client options, re-exported from package actions.
var (
	WithOrigin      = actions.WithOrigin
	WithClient      = actions.WithClient
	WithHeader      = actions.WithHeader
	WithOnError     = actions.WithOnError
	WithReload      = actions.WithReload
	WithInvalidator = actions.WithInvalidator
	WithNavigator   = actions.WithNavigator
	WithObserver    = actions.WithObserver
	WithLogger      = actions.WithLogger
)

// WithMerge sets how an envelope's result is merged into the page data.
func WithMerge[T any](fn func(data T, result map[string]any) T) Option {
	return actions.WithMerge(fn)
}

// =============================================================================
// Server
// =============================================================================

// Envelope is the JSON body of an action response.
type Envelope = protocol.Envelope

// Errors maps a field name to its validation message(s).
type Errors = protocol.Errors

// Event is one dispatched action submission.
type Event = server.Event

// ServerAction handles one action on the server.
type ServerAction = server.ServerAction

// LoadFunc produces a page's data.
type LoadFunc = server.LoadFunc

// Page serves one page's data and actions.
type Page = server.Page

// NewPage creates a page from its loader and actions.
func NewPage(load LoadFunc, actions map[string]ServerAction, opts ...server.PageOption) *Page {
	return server.NewPage(load, actions, opts...)
}

// Package store provides the reactive data container a page shares with its
// actions.
//
// A Store holds one value. Writers replace it with Set or Update; every
// change is delivered to subscribers in the order the changes were made.
// Subscribe delivers the current value immediately, then every later one.
//
//	data := store.New(store.PageState[Page]{Data: initial})
//
//	unsubscribe := data.Subscribe(func(s store.PageState[Page]) {
//	    render(s.Data, s.Errors)
//	})
//	defer unsubscribe()
//
//	data.Update(func(s store.PageState[Page]) store.PageState[Page] {
//	    return s.WithErrors("create", protocol.Errors{"text": "required"})
//	})
//
// Values are treated as immutable: an update function returns a new value
// instead of mutating the one it was given. PageState's helpers follow that
// rule for the per-action error map.
//
// Listeners run synchronously on the writing goroutine and must not write to
// the same store; hand the write off to another goroutine instead.
package store

// Package actions binds named, optionally keyed form submissions of a page to
// its server-side action endpoints.
//
// A Factory is built from the page's base path, the page's store and a map of
// handlers. It exposes one Action per handler name:
//
//	data := store.NewPage(Page{})
//	page, err := actions.NewFactory("/todos", data, actions.Handlers[Page]{
//	    "create": nil, // post the fields as they are
//	    "toggle": func(ctx context.Context, s *actions.Submission[Page]) (*actions.Response, error) {
//	        s.Data.Update(func(p store.PageState[Page]) store.PageState[Page] {
//	            return p.WithData(p.Data.WithDone(s.Key, s.Fields.Get("done") != ""))
//	        })
//	        return s.Post(ctx, s.Fields)
//	    },
//	}, actions.WithOrigin("http://localhost:3000"), actions.WithReload())
//
//	toggle := page.MustAction("toggle").WithKey(todo.UID)
//	toggle.Path() // "/todos?action.toggle=<uid>"
//	outcome, err := toggle.Submit(ctx, url.Values{"done": {"on"}})
//
// # Reconciliation
//
// Every Submit of an action instance (name plus key) takes the next number of
// that instance's sequence. When the handler returns, the result is applied
// only if no later Submit of the same instance was started in the meantime;
// otherwise it is dropped and the Outcome reports Superseded. Earlier
// requests are not cancelled.
//
// A successful envelope replaces the instance's entry in the store's error
// map (clearing it when the envelope has no errors), merges "result" into
// the page data when a merge function is configured, then follows
// "location" through the Navigator or reloads the page data through the
// Invalidator.
//
// # Failures
//
// Transport failures and non-OK responses never touch the store. They are
// passed to the OnError callback, or logged at error level when none is set.
package actions

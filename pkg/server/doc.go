// Package server implements the server side of page actions: a Page
// answers GET with its load function's data as JSON and POST with the
// envelope of the server action named by the "action.<name>" query
// parameter.
//
// A Page is an http.Handler. Mount it on a chi router, or run it through a
// Server, which adds the usual chi middleware stack and graceful shutdown.
//
//	page := server.NewPage(load, map[string]server.ServerAction{
//	    "create": create,
//	    "toggle": toggle,
//	}, server.WithBroadcaster(hub))
//
//	srv := server.New(server.DefaultConfig())
//	srv.Mount("/todos", page)
//	srv.Run(ctx)
//
// # Status codes
//
// Validation errors are ordinary 200 responses whose envelope carries
// "errors". A request naming no registered action gets 404, a form that
// cannot be parsed 400, any other method than GET, HEAD or POST 405, and a
// Go error returned by a server action or the load function 500. Error
// envelopes always carry the reason under the "action" or "form" key.
package server
